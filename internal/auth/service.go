package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"travyy/internal/kafka"
	"travyy/internal/logger"
	"travyy/internal/models"
	"travyy/internal/user"
	"travyy/internal/utils"
)

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
	ProviderPhone  = "phone"

	minPasswordLength = 8
)

var phonePattern = regexp.MustCompile(`^0\d{9}$`)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
}

type OTPIssuer interface {
	Issue(ctx context.Context, phone string) (string, time.Time, error)
	Verify(ctx context.Context, phone, code string) error
}

type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

// Session is returned by every successful login.
type Session struct {
	User   *models.User `json:"user"`
	Tokens *TokenPair   `json:"tokens"`
}

type Service struct {
	users     UserStore
	tokens    *TokenIssuer
	revoked   Revoker
	otp       OTPIssuer
	google    IDTokenVerifier
	publisher kafka.Publisher
	logger    *logger.Logger
	now       func() time.Time
}

type Deps struct {
	Users     UserStore
	Tokens    *TokenIssuer
	Revoked   Revoker
	OTP       OTPIssuer
	Google    IDTokenVerifier
	Publisher kafka.Publisher
	Logger    *logger.Logger
}

func NewService(d Deps) *Service {
	return &Service{
		users:     d.Users,
		tokens:    d.Tokens,
		revoked:   d.Revoked,
		otp:       d.OTP,
		google:    d.Google,
		publisher: d.Publisher,
		logger:    d.Logger,
		now:       time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	phone := ""
	if strings.TrimSpace(in.Phone) != "" {
		var err error
		if phone, err = NormalizePhone(in.Phone); err != nil {
			return nil, err
		}
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u := &models.User{
		ID:           utils.GenerateID(),
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		Role:         models.RoleUser,
		Status:       models.UserActive,
		AuthProvider: ProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.logger.LogSecurity("REGISTER", fmt.Sprintf("user=%s", u.ID))
	return s.issue(u)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == "" || !CheckPassword(u.PasswordHash, password) {
		s.logger.LogSecurity("LOGIN_FAILED", fmt.Sprintf("user=%s", u.ID))
		return nil, ErrInvalidCredentials
	}
	if u.Status != models.UserActive {
		return nil, ErrAccountDisabled
	}
	return s.issue(u)
}

// AdminLogin checks credentials and additionally requires the admin role.
func (s *Service) AdminLogin(ctx context.Context, email, password string) (*models.User, error) {
	sess, err := s.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if sess.User.Role != models.RoleAdmin {
		s.logger.LogSecurity("ADMIN_LOGIN_DENIED", fmt.Sprintf("user=%s", sess.User.ID))
		return nil, ErrNotAdmin
	}
	return sess.User, nil
}

// Refresh rotates the refresh token. The presented token is revoked so it
// cannot be replayed.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		s.logger.LogSecurity("REFRESH_REPLAY", fmt.Sprintf("user=%s jti=%s", claims.Subject, claims.ID))
		return nil, ErrInvalidToken
	}

	u, err := s.users.GetUserByID(ctx, claims.Subject)
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if u.Status != models.UserActive {
		return nil, ErrAccountDisabled
	}

	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return nil, err
	}
	return s.issue(u)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return err
	}
	return s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// GoogleLogin signs in with a Google ID token, creating the account on first use.
func (s *Service) GoogleLogin(ctx context.Context, idToken string) (*Session, error) {
	if s.google == nil {
		return nil, ErrGoogleDisabled
	}
	ext, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	if ext.Email == "" || !ext.EmailVerified {
		return nil, fmt.Errorf("%w: google account email is not verified", ErrInvalidToken)
	}

	email := strings.ToLower(ext.Email)
	u, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, user.ErrNotFound):
		now := s.now().UTC()
		u = &models.User{
			ID:           utils.GenerateID(),
			Email:        email,
			FullName:     ext.Name,
			Role:         models.RoleUser,
			Status:       models.UserActive,
			AuthProvider: ProviderGoogle,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.users.CreateUser(ctx, u); err != nil {
			return nil, err
		}
		s.logger.LogSecurity("REGISTER", fmt.Sprintf("user=%s provider=google", u.ID))
	case err != nil:
		return nil, err
	}

	if u.Status != models.UserActive {
		return nil, ErrAccountDisabled
	}
	return s.issue(u)
}

// SendPhoneOTP stores a fresh code and hands it to the SMS worker over Kafka.
func (s *Service) SendPhoneOTP(ctx context.Context, rawPhone string) (time.Time, error) {
	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return time.Time{}, err
	}
	code, expiresAt, err := s.otp.Issue(ctx, phone)
	if err != nil {
		return time.Time{}, err
	}

	msg := models.OTPMessage{Phone: phone, Code: code, ExpiresAt: expiresAt}
	if err := kafka.PublishJSON(ctx, s.publisher, kafka.TopicOTPSMS, phone, msg); err != nil {
		return time.Time{}, fmt.Errorf("failed to dispatch otp: %w", err)
	}
	s.logger.LogSecurity("OTP_SENT", maskPhone(phone))
	return expiresAt, nil
}

// VerifyPhoneOTP signs in by phone, creating the account on first use.
func (s *Service) VerifyPhoneOTP(ctx context.Context, rawPhone, code string) (*Session, error) {
	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}
	if err := s.otp.Verify(ctx, phone, strings.TrimSpace(code)); err != nil {
		s.logger.LogSecurity("OTP_FAILED", maskPhone(phone))
		return nil, err
	}

	u, err := s.users.GetUserByPhone(ctx, phone)
	switch {
	case errors.Is(err, user.ErrNotFound):
		now := s.now().UTC()
		u = &models.User{
			ID:           utils.GenerateID(),
			Phone:        phone,
			Role:         models.RoleUser,
			Status:       models.UserActive,
			AuthProvider: ProviderPhone,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.users.CreateUser(ctx, u); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	if u.Status != models.UserActive {
		return nil, ErrAccountDisabled
	}
	return s.issue(u)
}

func (s *Service) issue(u *models.User) (*Session, error) {
	pair, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Tokens: pair}, nil
}

// NormalizePhone accepts local (0xxxxxxxxx) or international (+84xxxxxxxxx)
// Vietnamese mobile numbers and returns the local form.
func NormalizePhone(raw string) (string, error) {
	p := strings.NewReplacer(" ", "", "-", "", ".", "").Replace(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(p, "+84"):
		p = "0" + p[3:]
	case strings.HasPrefix(p, "84") && len(p) == 11:
		p = "0" + p[2:]
	}
	if !phonePattern.MatchString(p) {
		return "", fmt.Errorf("%w: invalid phone number", ErrInvalidInput)
	}
	return p, nil
}

func maskPhone(phone string) string {
	if len(phone) < 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-3) + phone[len(phone)-3:]
}
