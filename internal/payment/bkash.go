package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/explorebd/explorebd-api/internal/config"
)

// Currency is the ISO code every amount is expressed in.
const Currency = "bdt"

var ErrNoProof = errors.New("transaction id or payment screenshot required")

// MockBkashClient stands in for manual bKash verification: it waits a fixed
// delay and accepts the payment at the configured success rate.
type MockBkashClient struct {
	delay       time.Duration
	successRate float64

	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

type Receipt struct {
	ID            string    `json:"id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	TransactionID string    `json:"transactionId,omitempty"`
	Status        string    `json:"status"`
	VerifiedAt    time.Time `json:"verifiedAt"`
}

type Request struct {
	Reference     string
	Amount        int64
	TransactionID string
	HasProof      bool
}

type Response struct {
	Receipt *Receipt
	Success bool
	Error   string `json:"error,omitempty"`
}

func NewMockBkashClient(cfg *config.Config) *MockBkashClient {
	return &MockBkashClient{
		delay:       cfg.MockPaymentDelay,
		successRate: cfg.MockPaymentSuccessRate,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         time.Now,
	}
}

func (c *MockBkashClient) VerifyPayment(ctx context.Context, req *Request) (*Response, error) {
	txID := strings.TrimSpace(req.TransactionID)
	if txID == "" && !req.HasProof {
		return nil, ErrNoProof
	}

	// Simulate network delay
	if c.delay > 0 {
		timer := time.NewTimer(c.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	c.mu.Lock()
	success := c.rnd.Float64() < c.successRate
	c.mu.Unlock()

	receipt := &Receipt{
		ID:            fmt.Sprintf("bk_mock_%s_%d", req.Reference, c.now().Unix()),
		Amount:        req.Amount,
		Currency:      Currency,
		TransactionID: txID,
		VerifiedAt:    c.now(),
	}

	if !success {
		receipt.Status = "failed"
		return &Response{
			Receipt: receipt,
			Success: false,
			Error:   "Mock payment failure - transaction could not be matched",
		}, nil
	}

	receipt.Status = "submitted"
	return &Response{Receipt: receipt, Success: true}, nil
}
