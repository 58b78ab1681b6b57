package scheduler

import (
	"context"
	"time"
)

const (
	JobRefundAutoExpire = "refund-auto-expire"
	JobPromotionExpiry  = "promotion-expiry"
)

type RefundExpirer interface {
	AutoExpire(ctx context.Context, olderThan time.Duration) (int, error)
}

type PromotionExpirer interface {
	ExpireEnded(ctx context.Context) (int, error)
}

// RegisterDefaultJobs wires the refund and promotion housekeeping jobs.
func RegisterDefaultJobs(s *Scheduler, refunds RefundExpirer, promotions PromotionExpirer, refundExpireAfter time.Duration) {
	s.Add(JobRefundAutoExpire, func(ctx context.Context) (int, error) {
		return refunds.AutoExpire(ctx, refundExpireAfter)
	})
	s.Add(JobPromotionExpiry, promotions.ExpireEnded)
}
