package smsprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TwilioProvider talks to a Twilio-shaped REST API: form-encoded requests,
// basic auth with account SID and token, JSON responses.
type TwilioProvider struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	accountSID string
	authToken  string
}

// NewTwilioProvider creates a TwilioProvider. A nil httpClient gets a default
// with a 10s timeout.
func NewTwilioProvider(logger *slog.Logger, baseURL, accountSID, authToken string, httpClient *http.Client) Adapter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &TwilioProvider{
		logger:     logger.With("provider", "twilio"),
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
	}
}

func (p *TwilioProvider) Name() string { return "twilio" }

type twilioMessageResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	NumSegments  string `json:"num_segments"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type twilioAvailableNumbersResponse struct {
	AvailablePhoneNumbers []struct {
		PhoneNumber string `json:"phone_number"`
		Region      string `json:"region"`
	} `json:"available_phone_numbers"`
}

func (p *TwilioProvider) postForm(ctx context.Context, path string, form url.Values, out any) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s%s", p.baseURL, p.accountSID, path)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create provider request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(p.accountSID, p.authToken)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read provider response: %w", err)
	}
	if httpResp.StatusCode >= 300 {
		p.logger.WarnContext(ctx, "provider returned error status",
			"status_code", httpResp.StatusCode, "body", string(body))
		return fmt.Errorf("provider returned status %d", httpResp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode provider response: %w", err)
		}
	}
	return nil
}

func (p *TwilioProvider) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	form := url.Values{}
	form.Set("From", req.From)
	form.Set("To", req.To)
	form.Set("Body", req.Body)

	var resp twilioMessageResponse
	if err := p.postForm(ctx, "/Messages.json", form, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	if resp.ErrorCode != nil {
		p.logger.WarnContext(ctx, "provider rejected message",
			"error_code", *resp.ErrorCode, "error_message", resp.ErrorMessage)
		return nil, fmt.Errorf("%w: %s", ErrSendFailed, resp.ErrorMessage)
	}

	segments := 1
	if n, err := fmt.Sscanf(resp.NumSegments, "%d", &segments); n != 1 || err != nil {
		segments = 1
	}
	return &SendResult{ProviderMessageID: resp.SID, Segments: segments}, nil
}

func (p *TwilioProvider) SearchAvailable(ctx context.Context, areaCode string) ([]AvailableNumber, error) {
	endpoint := fmt.Sprintf("%s/Accounts/%s/AvailablePhoneNumbers/US/Local.json", p.baseURL, p.accountSID)
	if areaCode != "" {
		endpoint += "?AreaCode=" + url.QueryEscape(areaCode)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider request: %w", err)
	}
	httpReq.SetBasicAuth(p.accountSID, p.authToken)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}
	if httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider returned status %d", httpResp.StatusCode)
	}

	var resp twilioAvailableNumbersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode provider response: %w", err)
	}

	numbers := make([]AvailableNumber, 0, len(resp.AvailablePhoneNumbers))
	for _, n := range resp.AvailablePhoneNumbers {
		numbers = append(numbers, AvailableNumber{
			Number:       n.PhoneNumber,
			Type:         "local",
			MonthlyPrice: decimal.RequireFromString("1.00"),
			Region:       n.Region,
		})
	}
	return numbers, nil
}

func (p *TwilioProvider) Purchase(ctx context.Context, number string) (*AvailableNumber, error) {
	form := url.Values{}
	form.Set("PhoneNumber", number)

	if err := p.postForm(ctx, "/IncomingPhoneNumbers.json", form, nil); err != nil {
		return nil, fmt.Errorf("failed to purchase number: %w", err)
	}
	return &AvailableNumber{
		Number:       number,
		Type:         "local",
		MonthlyPrice: decimal.RequireFromString("1.00"),
	}, nil
}

func (p *TwilioProvider) Release(ctx context.Context, number string) error {
	form := url.Values{}
	form.Set("PhoneNumber", number)
	form.Set("Status", "released")
	if err := p.postForm(ctx, "/IncomingPhoneNumbers.json", form, nil); err != nil {
		return fmt.Errorf("failed to release number: %w", err)
	}
	return nil
}
