package promotion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"travyy/internal/kafka"
	"travyy/internal/logger"
	"travyy/internal/models"
	"travyy/internal/utils"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/patrickmn/go-cache"
)

const (
	activeLimit    = 20
	activeCacheKey = "promotions:active"
	activeCacheTTL = 30 * time.Second
)

// Store is the persistence the service needs. Lookups return ErrNotFound when absent.
type Store interface {
	GetPromotionByCode(ctx context.Context, code string) (*models.Promotion, error)
	GetPromotionByID(ctx context.Context, id string) (*models.Promotion, error)
	ListPromotions(ctx context.Context, filter models.PromotionFilter) ([]models.Promotion, int, error)
	ListActivePromotions(ctx context.Context, now time.Time, limit int) ([]models.Promotion, error)
	CreatePromotion(ctx context.Context, p *models.Promotion) error
	UpdatePromotion(ctx context.Context, p *models.Promotion) error
	DeletePromotion(ctx context.Context, id string) error
	HasUserRedeemed(ctx context.Context, userID, promotionID string) (bool, error)
	RedeemedPromotionIDs(ctx context.Context, userID string) ([]string, error)
	// Redeem increments usage only while below the limit and records the user's
	// redemption in the same transaction. It returns the new usage count.
	Redeem(ctx context.Context, usage *models.UserPromotion) (int, error)
	ExpireEndedPromotions(ctx context.Context, now time.Time) (int, error)
}

type Service struct {
	store     Store
	publisher kafka.Publisher
	cache     *cache.Cache
	policy    *bluemonday.Policy
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(store Store, publisher kafka.Publisher, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		cache:     cache.New(activeCacheTTL, 2*activeCacheTTL),
		policy:    bluemonday.StrictPolicy(),
		logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func invalid(msg string) *models.PromotionValidation {
	return &models.PromotionValidation{Valid: false, Message: msg}
}

// Validate checks code against an order total for an optional user. Rejections
// come back as Valid=false with a customer message; errors are infrastructure failures.
func (s *Service) Validate(ctx context.Context, code string, totalAmount float64, userID string) (*models.PromotionValidation, error) {
	p, err := s.store.GetPromotionByCode(ctx, normalizeCode(code))
	if errors.Is(err, ErrNotFound) {
		return invalid(MsgNotFound), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load promotion: %w", err)
	}
	return s.evaluate(ctx, p, totalAmount, userID)
}

func (s *Service) evaluate(ctx context.Context, p *models.Promotion, totalAmount float64, userID string) (*models.PromotionValidation, error) {
	now := s.now()

	if p.Status != models.PromotionActive {
		return invalid(MsgUnavailable), nil
	}
	if !InWindow(p, now) {
		return invalid(MsgOutsideWindow), nil
	}
	if !HasUsesRemaining(p) {
		return invalid(MsgLimitReached), nil
	}
	if userID != "" {
		used, err := s.store.HasUserRedeemed(ctx, userID, p.ID)
		if err != nil {
			return nil, fmt.Errorf("check redemption: %w", err)
		}
		if used {
			return invalid(MsgAlreadyUsed), nil
		}
	}
	if totalAmount < p.MinOrderValue {
		return invalid(fmt.Sprintf(msgMinOrderFormat, utils.FormatVND(p.MinOrderValue))), nil
	}

	discount := CalculateDiscount(p, totalAmount, now)
	summary := p.Summary()
	return &models.PromotionValidation{
		Valid:      true,
		Message:    MsgValid,
		Promotion:  &summary,
		Discount:   discount,
		FinalTotal: totalAmount - discount,
	}, nil
}

// Apply validates and then redeems code for userID. The usage counter moves
// only through the store's conditional increment, so concurrent checkouts
// cannot push it past the limit.
func (s *Service) Apply(ctx context.Context, code string, totalAmount float64, userID, bookingID string) (*models.PromotionValidation, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required to redeem", ErrInvalidInput)
	}

	p, err := s.store.GetPromotionByCode(ctx, normalizeCode(code))
	if errors.Is(err, ErrNotFound) {
		return invalid(MsgNotFound), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load promotion: %w", err)
	}

	result, err := s.evaluate(ctx, p, totalAmount, userID)
	if err != nil || !result.Valid {
		return result, err
	}

	count, err := s.store.Redeem(ctx, &models.UserPromotion{
		ID:          uuid.NewString(),
		UserID:      userID,
		PromotionID: p.ID,
		Code:        p.Code,
		BookingID:   bookingID,
		UsedAt:      s.now(),
	})
	switch {
	case errors.Is(err, ErrLimitReached):
		return invalid(MsgLimitReached), nil
	case errors.Is(err, ErrAlreadyRedeemed):
		return invalid(MsgAlreadyUsed), nil
	case err != nil:
		return nil, fmt.Errorf("redeem promotion: %w", err)
	}

	s.cache.Delete(activeCacheKey)
	s.logger.LogPromotion("REDEEM", p.Code, fmt.Sprintf("user %s, usage %d, discount %.0f", userID, count, result.Discount))

	event := models.PromotionRedeemedEvent{
		PromotionID: p.ID,
		Code:        p.Code,
		UserID:      userID,
		BookingID:   bookingID,
		Discount:    result.Discount,
		UsageCount:  count,
		Timestamp:   s.now(),
	}
	if err := kafka.PublishJSON(ctx, s.publisher, kafka.TopicPromotionRedeemed, p.ID, event); err != nil {
		s.logger.Warn("PROMOTION", fmt.Sprintf("Failed to publish redemption of %s: %v", p.Code, err))
	}

	return result, nil
}

// GetActive lists up to 20 currently redeemable promotions, minus those userID already used.
func (s *Service) GetActive(ctx context.Context, userID string) ([]models.PromotionSummary, error) {
	var active []models.Promotion
	if cached, ok := s.cache.Get(activeCacheKey); ok {
		active = cached.([]models.Promotion)
	} else {
		list, err := s.store.ListActivePromotions(ctx, s.now(), activeLimit)
		if err != nil {
			return nil, fmt.Errorf("list active promotions: %w", err)
		}
		s.cache.Set(activeCacheKey, list, cache.DefaultExpiration)
		active = list
	}

	used := map[string]bool{}
	if userID != "" {
		ids, err := s.store.RedeemedPromotionIDs(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("list redeemed promotions: %w", err)
		}
		for _, id := range ids {
			used[id] = true
		}
	}

	now := s.now()
	summaries := make([]models.PromotionSummary, 0, len(active))
	for i := range active {
		p := &active[i]
		if used[p.ID] || !InWindow(p, now) || !HasUsesRemaining(p) {
			continue
		}
		summaries = append(summaries, p.Summary())
	}
	return summaries, nil
}

func (s *Service) Create(ctx context.Context, in models.PromotionInput, adminID string) (*models.Promotion, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	now := s.now()
	p := &models.Promotion{
		ID:         uuid.NewString(),
		CreatedBy:  adminID,
		UsageCount: 0,
		CreatedAt:  now,
	}
	s.applyInput(p, in)
	if p.Status == "" {
		p.Status = models.PromotionActive
	}
	p.UpdatedAt = now

	if _, err := s.store.GetPromotionByCode(ctx, p.Code); err == nil {
		return nil, ErrDuplicateCode
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check code: %w", err)
	}

	if err := s.store.CreatePromotion(ctx, p); err != nil {
		return nil, fmt.Errorf("create promotion: %w", err)
	}
	s.cache.Delete(activeCacheKey)
	s.logger.LogPromotion("CREATE", p.Code, fmt.Sprintf("created by %s", adminID))
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, in models.PromotionInput) (*models.Promotion, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	p, err := s.store.GetPromotionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	code := normalizeCode(in.Code)
	if code != p.Code {
		if _, err := s.store.GetPromotionByCode(ctx, code); err == nil {
			return nil, ErrDuplicateCode
		} else if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("check code: %w", err)
		}
	}

	s.applyInput(p, in)
	if p.UsageLimit != nil && *p.UsageLimit < p.UsageCount {
		return nil, fmt.Errorf("%w: usage limit below current usage (%d)", ErrInvalidInput, p.UsageCount)
	}
	p.UpdatedAt = s.now()

	if err := s.store.UpdatePromotion(ctx, p); err != nil {
		return nil, fmt.Errorf("update promotion: %w", err)
	}
	s.cache.Delete(activeCacheKey)
	s.logger.LogPromotion("UPDATE", p.Code, "updated")
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeletePromotion(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(activeCacheKey)
	s.logger.LogPromotion("DELETE", id, "deleted")
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Promotion, error) {
	return s.store.GetPromotionByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter models.PromotionFilter) ([]models.Promotion, int, error) {
	return s.store.ListPromotions(ctx, filter)
}

// ExpireEnded flips active promotions past their end date to expired.
func (s *Service) ExpireEnded(ctx context.Context) (int, error) {
	n, err := s.store.ExpireEndedPromotions(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.cache.Delete(activeCacheKey)
	}
	return n, nil
}

func (s *Service) applyInput(p *models.Promotion, in models.PromotionInput) {
	p.Code = normalizeCode(in.Code)
	p.Description = strings.TrimSpace(s.policy.Sanitize(in.Description))
	p.Type = models.PromotionType(strings.ToLower(in.Type))
	p.Value = in.Value
	p.MinOrderValue = in.MinOrderValue
	p.MaxDiscount = in.MaxDiscount
	p.StartDate = in.StartDate.UTC()
	p.EndDate = in.EndDate.UTC()
	p.UsageLimit = in.UsageLimit
	if in.Status != "" {
		p.Status = models.PromotionStatus(strings.ToLower(in.Status))
	}
	if p.Type != models.PromotionPercentage {
		p.MaxDiscount = nil
	}
}

func validateInput(in models.PromotionInput) error {
	code := normalizeCode(in.Code)
	switch {
	case code == "":
		return fmt.Errorf("%w: code is required", ErrInvalidInput)
	case len(code) > 64:
		return fmt.Errorf("%w: code is too long", ErrInvalidInput)
	}

	switch models.PromotionType(strings.ToLower(in.Type)) {
	case models.PromotionPercentage:
		if in.Value > 100 {
			return fmt.Errorf("%w: percentage cannot exceed 100", ErrInvalidInput)
		}
	case models.PromotionFixed:
	default:
		return fmt.Errorf("%w: type must be percentage or fixed", ErrInvalidInput)
	}

	if in.Value < 0 || in.MinOrderValue < 0 {
		return fmt.Errorf("%w: amounts must not be negative", ErrInvalidInput)
	}
	if in.MaxDiscount != nil && *in.MaxDiscount < 0 {
		return fmt.Errorf("%w: maxDiscount must not be negative", ErrInvalidInput)
	}
	if in.UsageLimit != nil && *in.UsageLimit < 0 {
		return fmt.Errorf("%w: usageLimit must not be negative", ErrInvalidInput)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return fmt.Errorf("%w: startDate and endDate are required", ErrInvalidInput)
	}
	if !in.EndDate.After(in.StartDate) {
		return fmt.Errorf("%w: endDate must be after startDate", ErrInvalidInput)
	}

	switch models.PromotionStatus(strings.ToLower(in.Status)) {
	case "", models.PromotionActive, models.PromotionInactive, models.PromotionExpired:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}
	return nil
}
