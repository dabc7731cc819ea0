package smsprovider

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockProvider is a simulated telephony provider for development and tests.
type MockProvider struct {
	logger       *slog.Logger
	name         string
	failRate     float64 // chance to simulate a send failure (0.0 to 1.0)
	minLatencyMs int
	maxLatencyMs int
}

// NewMockProvider creates a new MockProvider.
func NewMockProvider(logger *slog.Logger, name string, failRate float64, minLatencyMs, maxLatencyMs int) Adapter {
	if name == "" {
		name = "mock"
	}
	return &MockProvider{
		logger:       logger.With("provider", name),
		name:         name,
		failRate:     failRate,
		minLatencyMs: minLatencyMs,
		maxLatencyMs: maxLatencyMs,
	}
}

func (p *MockProvider) Name() string { return p.name }

func (p *MockProvider) simulateLatency() {
	if p.maxLatencyMs > p.minLatencyMs {
		latency := p.minLatencyMs + rand.Intn(p.maxLatencyMs-p.minLatencyMs+1)
		time.Sleep(time.Duration(latency) * time.Millisecond)
	}
}

func (p *MockProvider) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	p.simulateLatency()

	if rand.Float64() < p.failRate {
		p.logger.WarnContext(ctx, "simulated send failure", "to", req.To)
		return nil, fmt.Errorf("%w: simulated failure for %s", ErrSendFailed, req.To)
	}

	providerMsgID := "SM" + uuid.NewString()
	p.logger.InfoContext(ctx, "SMS sent (simulated)",
		"from", req.From, "to", req.To, "content_len", len(req.Body),
		"provider_message_id", providerMsgID)

	segments := len(req.Body)/160 + 1
	return &SendResult{ProviderMessageID: providerMsgID, Segments: segments}, nil
}

func (p *MockProvider) SearchAvailable(ctx context.Context, areaCode string) ([]AvailableNumber, error) {
	p.simulateLatency()
	if areaCode == "" {
		areaCode = "555"
	}

	results := make([]AvailableNumber, 0, 5)
	for i := 0; i < 5; i++ {
		results = append(results, AvailableNumber{
			Number:       fmt.Sprintf("+1%s%07d", areaCode, rand.Intn(10000000)),
			Type:         "local",
			MonthlyPrice: decimal.RequireFromString("1.00"),
			Region:       "US",
		})
	}
	return results, nil
}

func (p *MockProvider) Purchase(ctx context.Context, number string) (*AvailableNumber, error) {
	p.simulateLatency()
	p.logger.InfoContext(ctx, "number purchased (simulated)", "number", number)
	return &AvailableNumber{
		Number:       number,
		Type:         "local",
		MonthlyPrice: decimal.RequireFromString("1.00"),
		Region:       "US",
	}, nil
}

func (p *MockProvider) Release(ctx context.Context, number string) error {
	p.simulateLatency()
	p.logger.InfoContext(ctx, "number released (simulated)", "number", number)
	return nil
}
