package booking

import (
	"context"
	"time"

	"travyy/internal/models"
)

type Store interface {
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) error
}

type Service struct {
	store    Store
	vouchers *VoucherGenerator
	now      func() time.Time
}

func NewService(store Store, vouchers *VoucherGenerator) *Service {
	return &Service{store: store, vouchers: vouchers, now: time.Now}
}

// Get returns the booking when viewer owns it or is an admin.
func (s *Service) Get(ctx context.Context, id, viewerID string, viewerRole models.Role) (*models.Booking, error) {
	b, err := s.store.GetBookingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != viewerID && viewerRole != models.RoleAdmin {
		return nil, ErrForbidden
	}
	return b, nil
}

func (s *Service) VoucherPNG(ctx context.Context, id, viewerID string, viewerRole models.Role) ([]byte, error) {
	b, err := s.Get(ctx, id, viewerID, viewerRole)
	if err != nil {
		return nil, err
	}
	return s.vouchers.PNG(b, s.now())
}
