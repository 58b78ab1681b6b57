package gateway

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"travyy/internal/models"
)

const (
	ProviderMoMo   = "momo"
	ProviderPayPal = "paypal"
	ProviderStripe = "stripe"
	ProviderManual = "manual"
)

// ErrMissingPaymentData means the booking lacks an identifier the gateway needs.
var ErrMissingPaymentData = errors.New("missing payment data")

// Request is one refund attempt against the gateway that captured the booking.
type Request struct {
	Booking *models.Booking
	Amount  float64 // VND
	Note    string
}

// Adapter refunds through one payment provider. Transport and provider
// failures come back as a failed outcome; an error means the request could
// not be attempted at all.
type Adapter interface {
	Provider() string
	Refund(ctx context.Context, req Request) (*models.RefundOutcome, error)
}

// Registry maps provider names to adapters. Unknown providers resolve to the
// fallback, which is normally the Manual adapter.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	fallback Adapter
}

func NewRegistry(fallback Adapter, adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter), fallback: fallback}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[strings.ToLower(a.Provider())] = a
}

func (r *Registry) Resolve(provider string) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.adapters[strings.ToLower(strings.TrimSpace(provider))]; ok {
		return a
	}
	return r.fallback
}

func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func failed(provider string, err error) *models.RefundOutcome {
	return &models.RefundOutcome{Success: false, Provider: provider, Error: err.Error()}
}
