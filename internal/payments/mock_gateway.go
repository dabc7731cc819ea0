package payments

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// MockGateway approves every charge after a short fake latency. Used in
// development and tests; the real processor adapter replaces it in
// production wiring.
type MockGateway struct {
	failRate float64
	latency  time.Duration
}

func NewMockGateway(failRate float64, latency time.Duration) *MockGateway {
	return &MockGateway{failRate: failRate, latency: latency}
}

func (g *MockGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	select {
	case <-time.After(g.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if g.failRate > 0 && rand.Float64() < g.failRate {
		return nil, ErrChargeFailed
	}
	return &ChargeResult{
		ProviderRef: "ch_" + uuid.NewString(),
		Status:      "succeeded",
	}, nil
}

func (g *MockGateway) Name() string { return "mock" }
