package agency

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"travyy/internal/logger"
	"travyy/internal/models"
	"travyy/internal/utils"

	"github.com/microcosm-cc/bluemonday"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Store interface {
	ListAgencies(ctx context.Context, filter models.AgencyFilter) ([]models.Agency, int, error)
	GetAgencyByID(ctx context.Context, id string) (*models.Agency, error)
	CreateAgency(ctx context.Context, a *models.Agency) error
	UpdateAgency(ctx context.Context, a *models.Agency) error
	DeleteAgency(ctx context.Context, id string) error
	AgencyStats(ctx context.Context) (*models.AgencyStats, error)

	ListEmployees(ctx context.Context, agencyID string) ([]models.AgencyEmployee, error)
	GetEmployee(ctx context.Context, agencyID, employeeID string) (*models.AgencyEmployee, error)
	CreateEmployee(ctx context.Context, e *models.AgencyEmployee) error
	UpdateEmployee(ctx context.Context, e *models.AgencyEmployee) error
	DeleteEmployee(ctx context.Context, agencyID, employeeID string) error
}

type Service struct {
	store  Store
	policy *bluemonday.Policy
	logger *logger.Logger
	now    func() time.Time
}

func NewService(store Store, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		policy: bluemonday.StrictPolicy(),
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) List(ctx context.Context, filter models.AgencyFilter) ([]models.Agency, int, error) {
	return s.store.ListAgencies(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Agency, error) {
	return s.store.GetAgencyByID(ctx, id)
}

func (s *Service) Stats(ctx context.Context) (*models.AgencyStats, error) {
	return s.store.AgencyStats(ctx)
}

func (s *Service) Create(ctx context.Context, in models.AgencyInput) (*models.Agency, error) {
	if err := validateContact(in.Name, in.Email, in.Status); err != nil {
		return nil, err
	}
	now := s.now()
	a := &models.Agency{
		ID:        utils.GenerateID(),
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.applyInput(a, in)
	if err := s.store.CreateAgency(ctx, a); err != nil {
		return nil, fmt.Errorf("create agency: %w", err)
	}
	s.logger.Info("AGENCY", fmt.Sprintf("Agency %s created: %s", a.ID, a.Name))
	return a, nil
}

func (s *Service) Update(ctx context.Context, id string, in models.AgencyInput) (*models.Agency, error) {
	if err := validateContact(in.Name, in.Email, in.Status); err != nil {
		return nil, err
	}
	a, err := s.store.GetAgencyByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.applyInput(a, in)
	a.UpdatedAt = s.now()
	if err := s.store.UpdateAgency(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes the agency together with its employees.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteAgency(ctx, id); err != nil {
		return err
	}
	s.logger.Info("AGENCY", fmt.Sprintf("Agency %s deleted", id))
	return nil
}

func (s *Service) Employees(ctx context.Context, agencyID string) ([]models.AgencyEmployee, error) {
	if _, err := s.store.GetAgencyByID(ctx, agencyID); err != nil {
		return nil, err
	}
	return s.store.ListEmployees(ctx, agencyID)
}

func (s *Service) AddEmployee(ctx context.Context, agencyID string, in models.EmployeeInput) (*models.AgencyEmployee, error) {
	if err := validateContact(in.FullName, in.Email, in.Status); err != nil {
		return nil, err
	}
	if _, err := s.store.GetAgencyByID(ctx, agencyID); err != nil {
		return nil, err
	}
	e := &models.AgencyEmployee{
		ID:        utils.GenerateID(),
		AgencyID:  agencyID,
		Status:    StatusActive,
		CreatedAt: s.now(),
	}
	applyEmployee(e, in)
	if err := s.store.CreateEmployee(ctx, e); err != nil {
		return nil, fmt.Errorf("create employee: %w", err)
	}
	return e, nil
}

func (s *Service) UpdateEmployee(ctx context.Context, agencyID, employeeID string, in models.EmployeeInput) (*models.AgencyEmployee, error) {
	if err := validateContact(in.FullName, in.Email, in.Status); err != nil {
		return nil, err
	}
	e, err := s.store.GetEmployee(ctx, agencyID, employeeID)
	if err != nil {
		return nil, err
	}
	applyEmployee(e, in)
	if err := s.store.UpdateEmployee(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) RemoveEmployee(ctx context.Context, agencyID, employeeID string) error {
	return s.store.DeleteEmployee(ctx, agencyID, employeeID)
}

func (s *Service) applyInput(a *models.Agency, in models.AgencyInput) {
	a.Name = strings.TrimSpace(in.Name)
	a.Email = strings.ToLower(strings.TrimSpace(in.Email))
	a.Phone = strings.TrimSpace(in.Phone)
	a.Address = strings.TrimSpace(in.Address)
	a.Description = strings.TrimSpace(s.policy.Sanitize(in.Description))
	if in.Status != "" {
		a.Status = strings.ToLower(in.Status)
	}
}

func applyEmployee(e *models.AgencyEmployee, in models.EmployeeInput) {
	e.FullName = strings.TrimSpace(in.FullName)
	e.Email = strings.ToLower(strings.TrimSpace(in.Email))
	e.Phone = strings.TrimSpace(in.Phone)
	e.Position = strings.TrimSpace(in.Position)
	if in.Status != "" {
		e.Status = strings.ToLower(in.Status)
	}
}

func validateContact(name, email, status string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if email = strings.TrimSpace(email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return fmt.Errorf("%w: invalid email %q", ErrInvalidInput, email)
		}
	}
	switch strings.ToLower(status) {
	case "", StatusActive, StatusInactive:
		return nil
	}
	return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
}
