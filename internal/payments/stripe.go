package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/solace-health/solace-platform/pkg/logging"
)

var stripeTracer = otel.Tracer("solace.internal.payments.stripe")

// ProcessorRefundParams describes a refund sent to the processor.
type ProcessorRefundParams struct {
	PaymentIntentID string
	AmountCents     int32
	Reason          string
}

// ProcessorRefund is the processor's view of a completed refund.
type ProcessorRefund struct {
	RefundID    string
	Status      string
	AmountCents int32
	CreatedAt   time.Time
}

// RefundProcessor issues refunds against the external payment
// processor.
type RefundProcessor interface {
	Refund(ctx context.Context, params ProcessorRefundParams) (*ProcessorRefund, error)
}

// StripeRefundService issues refunds through the Stripe Refunds API.
type StripeRefundService struct {
	secretKey  string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewStripeRefundService creates a Stripe-backed refund processor.
func NewStripeRefundService(secretKey string, logger *logging.Logger) *StripeRefundService {
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeRefundService{
		secretKey:  secretKey,
		baseURL:    "https://api.stripe.com",
		apiVersion: "2024-12-18.acacia",
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL overrides the Stripe API base URL (for testing).
func (s *StripeRefundService) WithBaseURL(baseURL string) *StripeRefundService {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

// WithAPIVersion pins a different Stripe-Version header.
func (s *StripeRefundService) WithAPIVersion(version string) *StripeRefundService {
	if version != "" {
		s.apiVersion = version
	}
	return s
}

// Refund creates a refund against the payment intent. The idempotency
// key is derived from the intent and amount so a retried identical
// request never refunds twice.
func (s *StripeRefundService) Refund(ctx context.Context, params ProcessorRefundParams) (*ProcessorRefund, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_refund")
	defer span.End()
	span.SetAttributes(
		attribute.String("stripe.payment_intent", params.PaymentIntentID),
		attribute.Int("solace.amount_cents", int(params.AmountCents)),
	)

	form := url.Values{}
	form.Set("payment_intent", params.PaymentIntentID)
	form.Set("amount", strconv.FormatInt(int64(params.AmountCents), 10))
	form.Set("reason", "requested_by_customer")
	if params.Reason != "" {
		form.Set("metadata[reason]", params.Reason)
	}

	apiURL := fmt.Sprintf("%s/v1/refunds", s.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("payments: refund request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.secretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Stripe-Version", s.apiVersion)
	httpReq.Header.Set("Idempotency-Key", fmt.Sprintf("refund-%s-%d", params.PaymentIntentID, params.AmountCents))

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payments: refund http: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		s.logger.Error("stripe refund failed",
			"status", resp.StatusCode,
			"body", string(respBody),
			"payment_intent", params.PaymentIntentID,
		)
		return nil, fmt.Errorf("payments: stripe refund api status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		Amount  int32  `json:"amount"`
		Created int64  `json:"created"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("payments: refund decode: %w", err)
	}

	s.logger.Info("refund processed",
		"refund_id", parsed.ID,
		"payment_intent", params.PaymentIntentID,
		"status", parsed.Status,
		"amount_cents", parsed.Amount,
	)

	return &ProcessorRefund{
		RefundID:    parsed.ID,
		Status:      parsed.Status,
		AmountCents: parsed.Amount,
		CreatedAt:   time.Unix(parsed.Created, 0).UTC(),
	}, nil
}
