// Package smsprovider defines the port to the external telephony provider:
// number search/purchase/release and SMS submission. The rest of the system
// treats the provider as an opaque capability behind this interface.
package smsprovider

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrSendFailed wraps any provider-side submission failure. The gateway does
// not retry; the error surfaces to the caller.
var ErrSendFailed = errors.New("provider send failed")

// SendRequest carries one outbound SMS.
type SendRequest struct {
	From string
	To   string
	Body string
}

// SendResult is the provider's acknowledgement of a submission.
type SendResult struct {
	ProviderMessageID string
	Segments          int
}

// AvailableNumber describes a purchasable number from a search.
type AvailableNumber struct {
	Number       string          `json:"number"`
	Type         string          `json:"type"` // "local" or "toll_free"
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	Region       string          `json:"region,omitempty"`
}

// Adapter is the interface every telephony provider implements.
type Adapter interface {
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
	SearchAvailable(ctx context.Context, areaCode string) ([]AvailableNumber, error)
	Purchase(ctx context.Context, number string) (*AvailableNumber, error)
	Release(ctx context.Context, number string) error
	Name() string
}
