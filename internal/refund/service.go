package refund

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"travyy/internal/booking"
	"travyy/internal/kafka"
	"travyy/internal/logger"
	"travyy/internal/models"
	"travyy/internal/utils"

	"github.com/google/uuid"
)

type Store interface {
	CreateRefund(ctx context.Context, r *models.Refund) error
	GetRefundByID(ctx context.Context, id string) (*models.Refund, error)
	ListRefunds(ctx context.Context, filter models.RefundFilter) ([]models.Refund, int, error)
	HasOpenRefund(ctx context.Context, bookingID string) (bool, error)
	// UpdateRefund persists r only while its stored status is one of from,
	// returning ErrInvalidTransition otherwise.
	UpdateRefund(ctx context.Context, r *models.Refund, from ...models.RefundStatus) error
	ExpirePending(ctx context.Context, createdBefore, now time.Time) ([]models.Refund, error)
}

type BookingStore interface {
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) error
}

// Locker keeps two callers from processing the same refund at once.
type Locker interface {
	Acquire(ctx context.Context, refundID, owner string) (bool, error)
	Release(ctx context.Context, refundID, owner string) error
	Held(ctx context.Context, refundID string) (bool, error)
}

// Processor is satisfied by Orchestrator.
type Processor interface {
	ProcessRefund(ctx context.Context, b *models.Booking, amount float64, note string) *models.RefundOutcome
}

type Service struct {
	store     Store
	bookings  BookingStore
	processor Processor
	publisher kafka.Publisher
	locker    Locker
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(store Store, bookings BookingStore, processor Processor, publisher kafka.Publisher, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		bookings:  bookings,
		processor: processor,
		publisher: publisher,
		logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithLocker serialises Process and manual payments per refund. Without one, the status
// compare-and-set is the only guard.
func (s *Service) WithLocker(l Locker) *Service {
	s.locker = l
	return s
}

// guard takes the per-refund lock when a Locker is configured.
func (s *Service) guard(ctx context.Context, id, adminID string) (release func(), err error) {
	if s.locker == nil {
		return func() {}, nil
	}
	owner := adminID + ":" + uuid.NewString()
	ok, err := s.locker.Acquire(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInProgress
	}
	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), id, owner); err != nil {
			s.logger.Warn("REFUND", err.Error())
		}
	}, nil
}

func (s *Service) loadBooking(ctx context.Context, id string) (*models.Booking, error) {
	b, err := s.bookings.GetBookingByID(ctx, id)
	if errors.Is(err, booking.ErrNotFound) {
		return nil, fmt.Errorf("%w: booking %s not found", ErrInvalidInput, id)
	}
	return b, err
}

// Create files a refund request for one of userID's confirmed bookings.
func (s *Service) Create(ctx context.Context, userID string, req models.RefundRequest) (*models.Refund, error) {
	if strings.TrimSpace(req.BookingID) == "" {
		return nil, fmt.Errorf("%w: bookingId is required", ErrInvalidInput)
	}
	b, err := s.loadBooking(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, ErrForbidden
	}
	if b.Status != models.BookingConfirmed {
		return nil, fmt.Errorf("%w: booking is %s", ErrInvalidInput, b.Status)
	}

	amount := req.Amount
	if amount == 0 {
		amount = b.AmountPaid()
	}
	if amount <= 0 || amount > b.AmountPaid() {
		return nil, fmt.Errorf("%w: amount must be between 0 and %s", ErrInvalidInput, utils.FormatVND(b.AmountPaid()))
	}

	open, err := s.store.HasOpenRefund(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, ErrConflict
	}

	now := s.now()
	r := &models.Refund{
		ID:        utils.GenerateID(),
		BookingID: b.ID,
		UserID:    userID,
		Amount:    amount,
		Reason:    strings.TrimSpace(req.Reason),
		Status:    models.RefundPending,
		Provider:  strings.ToLower(b.Payment.Provider),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateRefund(ctx, r); err != nil {
		return nil, fmt.Errorf("create refund: %w", err)
	}
	s.logger.LogRefund("REQUEST", r.ID, fmt.Sprintf("booking %s, %s VND", b.ID, utils.FormatVND(amount)))
	s.publish(ctx, r)
	return r, nil
}

// Get also reports whether another admin holds the refund mid-processing.
func (s *Service) Get(ctx context.Context, id string) (*models.Refund, error) {
	r, err := s.store.GetRefundByID(ctx, id)
	if err != nil || s.locker == nil {
		return r, err
	}
	held, err := s.locker.Held(ctx, id)
	if err != nil {
		s.logger.Warn("REFUND", fmt.Sprintf("lock state for %s: %v", id, err))
		return r, nil
	}
	r.Processing = held
	return r, nil
}

func (s *Service) List(ctx context.Context, filter models.RefundFilter) ([]models.Refund, int, error) {
	return s.store.ListRefunds(ctx, filter)
}

// Review approves or rejects a pending refund.
func (s *Service) Review(ctx context.Context, id string, approve bool, note, adminID string) (*models.Refund, error) {
	r, err := s.store.GetRefundByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != models.RefundPending {
		return nil, fmt.Errorf("%w: review requires pending, refund is %s", ErrInvalidTransition, r.Status)
	}

	now := s.now()
	r.Status = models.RefundRejected
	if approve {
		r.Status = models.RefundApproved
	}
	r.ReviewNote = strings.TrimSpace(note)
	r.ReviewedBy = adminID
	r.ReviewedAt = &now
	r.UpdatedAt = now

	if err := s.store.UpdateRefund(ctx, r, models.RefundPending); err != nil {
		return nil, err
	}
	s.logger.LogRefund("REVIEW", r.ID, fmt.Sprintf("%s by %s", r.Status, adminID))
	s.publish(ctx, r)
	return r, nil
}

// Process sends an approved refund to its gateway. Gateway failures do not
// fail the call: the refund moves to manual_required and the outcome says why.
func (s *Service) Process(ctx context.Context, id, adminID string) (*models.Refund, *models.RefundOutcome, error) {
	release, err := s.guard(ctx, id, adminID)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	r, err := s.store.GetRefundByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if r.Status != models.RefundApproved && r.Status != models.RefundManualRequired {
		return nil, nil, fmt.Errorf("%w: process requires approved or manual_required, refund is %s", ErrInvalidTransition, r.Status)
	}
	b, err := s.loadBooking(ctx, r.BookingID)
	if err != nil {
		return nil, nil, err
	}

	from := r.Status
	out := s.processor.ProcessRefund(ctx, b, r.Amount, r.ReviewNote)

	now := s.now()
	r.UpdatedAt = now
	r.IsSimulated = out.IsSimulated
	if out.Provider != "" {
		r.Provider = out.Provider
	}
	if out.Success && !out.RequiresManualProcessing {
		r.Status = models.RefundCompleted
		r.TransactionID = out.TransactionID
		r.RequiresManual = false
		r.GatewayError = ""
		r.ProcessedAt = &now
	} else {
		r.Status = models.RefundManualRequired
		r.RequiresManual = true
		r.GatewayError = out.Error
		out.RequiresManualProcessing = true
	}

	if err := s.store.UpdateRefund(ctx, r, from); err != nil {
		if !errors.Is(err, ErrInvalidTransition) || r.Status != models.RefundCompleted {
			return nil, nil, err
		}
		// The gateway moved money; it must not be lost to a concurrent status change.
		if r, err = s.recordLateGatewaySuccess(ctx, id, out, now); err != nil {
			return nil, out, err
		}
	}
	if r.Status == models.RefundCompleted {
		s.markBookingRefunded(ctx, b.ID)
	}
	s.logger.LogRefund("PROCESS", r.ID, fmt.Sprintf("%s via %s by %s", r.Status, r.Provider, adminID))
	s.publish(ctx, r)
	return r, out, nil
}

// recordLateGatewaySuccess stores a successful gateway refund whose status
// write lost the compare-and-set to another admin action.
func (s *Service) recordLateGatewaySuccess(ctx context.Context, id string, out *models.RefundOutcome, now time.Time) (*models.Refund, error) {
	cur, err := s.store.GetRefundByID(ctx, id)
	if err != nil {
		s.logger.Error("REFUND", fmt.Sprintf("Refund %s: gateway refund %s succeeded but reload failed: %v", id, out.TransactionID, err))
		return nil, err
	}
	from := cur.Status
	cur.UpdatedAt = now
	cur.IsSimulated = out.IsSimulated
	if out.Provider != "" {
		cur.Provider = out.Provider
	}
	if cur.Status == models.RefundCompleted {
		cur.RequiresManual = true
		cur.GatewayError = fmt.Sprintf("gateway refund %s also succeeded after completion as %s", out.TransactionID, cur.TransactionID)
		s.logger.Error("REFUND", fmt.Sprintf("Refund %s paid twice: %s", id, cur.GatewayError))
	} else {
		s.logger.Error("REFUND", fmt.Sprintf("Refund %s moved to %s during the gateway call, recording gateway refund %s", id, from, out.TransactionID))
		cur.Status = models.RefundCompleted
		cur.TransactionID = out.TransactionID
		cur.RequiresManual = false
		cur.GatewayError = ""
		cur.ProcessedAt = &now
	}
	if err := s.store.UpdateRefund(ctx, cur, from); err != nil {
		s.logger.Error("REFUND", fmt.Sprintf("Refund %s: could not record gateway refund %s: %v", id, out.TransactionID, err))
		return nil, err
	}
	return cur, nil
}

// CreateManualPayment records that an admin is paying the refund out of band.
func (s *Service) CreateManualPayment(ctx context.Context, id, method, reference, adminID string) (*models.Refund, error) {
	release, err := s.guard(ctx, id, adminID)
	if err != nil {
		return nil, err
	}
	defer release()

	r, err := s.store.GetRefundByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != models.RefundApproved && r.Status != models.RefundManualRequired {
		return nil, fmt.Errorf("%w: manual payment requires approved or manual_required, refund is %s", ErrInvalidTransition, r.Status)
	}

	from := r.Status
	if strings.TrimSpace(reference) == "" {
		reference = utils.GenerateManualPaymentRef()
	}
	if strings.TrimSpace(method) == "" {
		method = "bank_transfer"
	}
	r.Status = models.RefundManualPending
	r.RequiresManual = true
	r.ManualPaymentRef = strings.TrimSpace(reference)
	r.ManualPaymentMethod = strings.TrimSpace(method)
	r.UpdatedAt = s.now()

	if err := s.store.UpdateRefund(ctx, r, from); err != nil {
		return nil, err
	}
	s.logger.LogRefund("MANUAL_PAYMENT", r.ID, fmt.Sprintf("%s ref %s by %s", r.ManualPaymentMethod, r.ManualPaymentRef, adminID))
	s.publish(ctx, r)
	return r, nil
}

// CheckPayment reports a refund's payment state. With confirmed set, a
// manual_pending refund is closed out as completed.
func (s *Service) CheckPayment(ctx context.Context, id string, confirmed bool, transactionID, adminID string) (*models.Refund, error) {
	r, err := s.store.GetRefundByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !confirmed {
		return r, nil
	}
	release, err := s.guard(ctx, id, adminID)
	if err != nil {
		return nil, err
	}
	defer release()
	if r, err = s.store.GetRefundByID(ctx, id); err != nil {
		return nil, err
	}
	if r.Status != models.RefundManualPending {
		return nil, fmt.Errorf("%w: confirm requires manual_pending, refund is %s", ErrInvalidTransition, r.Status)
	}

	now := s.now()
	r.Status = models.RefundCompleted
	r.ManualPaidAt = &now
	r.ProcessedAt = &now
	r.UpdatedAt = now
	if transactionID = strings.TrimSpace(transactionID); transactionID != "" {
		r.TransactionID = transactionID
	} else if r.TransactionID == "" {
		r.TransactionID = r.ManualPaymentRef
	}

	if err := s.store.UpdateRefund(ctx, r, models.RefundManualPending); err != nil {
		return nil, err
	}
	s.markBookingRefunded(ctx, r.BookingID)
	s.logger.LogRefund("MANUAL_CONFIRMED", r.ID, fmt.Sprintf("confirmed by %s", adminID))
	s.publish(ctx, r)
	return r, nil
}

// AutoExpire closes refunds nobody reviewed within olderThan.
func (s *Service) AutoExpire(ctx context.Context, olderThan time.Duration) (int, error) {
	now := s.now()
	expired, err := s.store.ExpirePending(ctx, now.Add(-olderThan), now)
	if err != nil {
		return 0, err
	}
	for i := range expired {
		s.publish(ctx, &expired[i])
	}
	return len(expired), nil
}

func (s *Service) markBookingRefunded(ctx context.Context, bookingID string) {
	if err := s.bookings.UpdateBookingStatus(ctx, bookingID, models.BookingRefunded); err != nil {
		s.logger.Error("REFUND", fmt.Sprintf("Failed to mark booking %s refunded: %v", bookingID, err))
	}
}

var statusMessages = map[models.RefundStatus]string{
	models.RefundPending:        "Yêu cầu hoàn tiền của bạn đã được tiếp nhận",
	models.RefundApproved:       "Yêu cầu hoàn tiền của bạn đã được duyệt",
	models.RefundRejected:       "Yêu cầu hoàn tiền của bạn đã bị từ chối",
	models.RefundManualRequired: "Hoàn tiền của bạn đang được xử lý thủ công",
	models.RefundManualPending:  "Hoàn tiền của bạn đang được chuyển khoản",
	models.RefundCompleted:      "Hoàn tiền của bạn đã hoàn tất",
	models.RefundExpired:        "Yêu cầu hoàn tiền của bạn đã hết hạn",
}

func (s *Service) publish(ctx context.Context, r *models.Refund) {
	now := s.now()
	event := models.RefundStatusEvent{
		RefundID:  r.ID,
		BookingID: r.BookingID,
		UserID:    r.UserID,
		Status:    r.Status,
		Amount:    r.Amount,
		Provider:  r.Provider,
		Timestamp: now,
	}
	if err := kafka.PublishJSON(ctx, s.publisher, kafka.TopicRefundStatus, r.ID, event); err != nil {
		s.logger.Warn("REFUND", fmt.Sprintf("Failed to publish status of %s: %v", r.ID, err))
	}

	note := models.NotificationEvent{
		UserID:      r.UserID,
		Type:        "refund",
		Title:       "Cập nhật hoàn tiền",
		Message:     fmt.Sprintf("%s (%sđ)", statusMessages[r.Status], utils.FormatVND(r.Amount)),
		ReferenceID: r.ID,
		Timestamp:   now,
	}
	if err := kafka.PublishJSON(ctx, s.publisher, kafka.TopicNotifications, r.UserID, note); err != nil {
		s.logger.Warn("REFUND", fmt.Sprintf("Failed to publish notification for %s: %v", r.ID, err))
	}
}
