package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/money"
	"github.com/cassiomorais/checkout/pkg/retry"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// StatusResult is the gateway's authoritative answer for a transaction.
type StatusResult struct {
	Status          string `json:"status"`
	RefID           string `json:"ref_id"`
	TransactionUUID string `json:"transaction_uuid"`
	TotalAmount     string `json:"total_amount"`
}

// Gateway transaction statuses. COMPLETE is the only settling status.
const (
	StatusComplete   = "COMPLETE"
	StatusPending    = "PENDING"
	StatusCanceled   = "CANCELED"
	StatusFullRefund = "FULL_REFUND"
)

// IsTerminalFailure reports whether a reported status can never become
// COMPLETE. Anything else that is not COMPLETE is treated as still in flight.
func IsTerminalFailure(status string) bool {
	return strings.EqualFold(status, StatusCanceled) ||
		strings.EqualFold(status, StatusFullRefund)
}

// StatusChecker queries the gateway's transaction status API. The contract is
// "eventually tells the truth": transient failures are expected and retried
// by the caller's schedule.
type StatusChecker interface {
	Check(ctx context.Context, transactionUUID string, totalCents int64) (*StatusResult, error)
}

// Client is the HTTP implementation of StatusChecker with a per-request
// timeout, retry with backoff, and a circuit breaker so a dead gateway does
// not stall the DLQ sweeper.
type Client struct {
	httpClient      *http.Client
	verificationURL string
	productCode     string
	breaker         *gobreaker.CircuitBreaker[*StatusResult]
	retryCfg        retry.Config
	logger          zerolog.Logger
}

func NewClient(verificationURL, productCode string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker[*StatusResult](gobreaker.Settings{
		Name:        "gateway-status-check",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
	})

	return &Client{
		httpClient:      &http.Client{Timeout: timeout},
		verificationURL: verificationURL,
		productCode:     productCode,
		breaker:         breaker,
		retryCfg: retry.Config{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
		},
		logger: logger.With().Str("component", "gateway_client").Logger(),
	}
}

// Check queries the status-check API for one transaction.
func (c *Client) Check(ctx context.Context, transactionUUID string, totalCents int64) (*StatusResult, error) {
	result, err := retry.DoWithResult(ctx, c.retryCfg, func() (*StatusResult, error) {
		return c.breaker.Execute(func() (*StatusResult, error) {
			return c.check(ctx, transactionUUID, totalCents)
		})
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: circuit open", domainErrors.ErrGatewayUnavailable)
		}
		return nil, err
	}
	return result, nil
}

func (c *Client) check(ctx context.Context, transactionUUID string, totalCents int64) (*StatusResult, error) {
	q := url.Values{}
	q.Set("product_code", c.productCode)
	q.Set("transaction_uuid", transactionUUID)
	q.Set("total_amount", money.FormatAmount(totalCents))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.verificationURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build status-check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status-check request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status-check returned HTTP %d", resp.StatusCode)
	}

	var result StatusResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode status-check response: %w", err)
	}

	c.logger.Debug().
		Str("transaction_uuid", transactionUUID).
		Str("status", result.Status).
		Msg("Gateway status check")
	return &result, nil
}
