// Package payment drives the wallet top-up settlement flow: create a
// backend order, hand it to the gateway, then report the outcome back.
// The confirm call is unconditional. A gateway failure is still
// reported with success=false, otherwise the backend order dangles and
// the wallet can drift out of sync with the gateway ledger.
package payment

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"gridee/internal/apiclient"
	"gridee/internal/metrics"
	"gridee/internal/models"

	"github.com/rs/zerolog"
)

// Order is what the backend creates before the gateway is involved.
// AmountMinor is in the currency's smallest unit (paise for INR).
// Email and Phone prefill the gateway's contact form.
type Order struct {
	ID           string
	AmountMinor  int64
	Currency     string
	MerchantName string
	Email        string
	Phone        string
}

// Gateway collects the payment for an order and returns the gateway's
// payment id. Implementations wrap the Razorpay checkout.
type Gateway interface {
	Checkout(ctx context.Context, order Order) (paymentID string, err error)
}

type initiateResponse struct {
	OrderID string  `json:"orderId"`
	Amount  float64 `json:"amount"`
}

type confirmRequest struct {
	OrderID   string  `json:"orderId"`
	PaymentID string  `json:"paymentId"`
	Success   bool    `json:"success"`
	UserID    string  `json:"userId"`
	Amount    float64 `json:"amount"`
}

// Orchestrator owns the initiate, checkout, confirm sequence. Exactly
// one confirm is sent per initiated order.
type Orchestrator struct {
	client       *apiclient.Client
	gateway      Gateway
	logger       *zerolog.Logger
	currency     string
	merchantName string
}

func NewOrchestrator(client *apiclient.Client, gateway Gateway, currency, merchantName string, logger *zerolog.Logger) *Orchestrator {
	if currency == "" {
		currency = "INR"
	}
	return &Orchestrator{
		client:       client,
		gateway:      gateway,
		logger:       logger,
		currency:     currency,
		merchantName: merchantName,
	}
}

// TopUpRequest describes one wallet credit. Email and Phone are
// optional gateway prefill.
type TopUpRequest struct {
	UserID string
	Amount float64
	Email  string
	Phone  string
}

// TopUp adds the requested amount (major units) to the user's wallet.
// The returned error reflects the settlement outcome; the wallet
// balance itself must be re-fetched, it is never adjusted here.
func (o *Orchestrator) TopUp(ctx context.Context, req TopUpRequest) error {
	if req.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if req.Amount < models.MinTopUpAmount || req.Amount > models.MaxTopUpAmount {
		return fmt.Errorf("top-up amount must be between %d and %d", models.MinTopUpAmount, models.MaxTopUpAmount)
	}

	initiate, err := apiclient.DoJSON[initiateResponse](ctx, o.client, http.MethodPost,
		"/payments/initiate", map[string]any{"userId": req.UserID, "amount": req.Amount})
	if err != nil {
		return fmt.Errorf("initiate top-up: %w", err)
	}

	order := Order{
		ID:           initiate.OrderID,
		AmountMinor:  int64(math.Round(req.Amount * 100)),
		Currency:     o.currency,
		MerchantName: o.merchantName,
		Email:        req.Email,
		Phone:        req.Phone,
	}

	paymentID, gatewayErr := o.gateway.Checkout(ctx, order)

	confirm := confirmRequest{
		OrderID:   initiate.OrderID,
		PaymentID: paymentID,
		Success:   gatewayErr == nil,
		UserID:    req.UserID,
		Amount:    req.Amount,
	}
	_, confirmErr := o.client.Do(ctx, http.MethodPost, "/payments/callback", confirm)

	switch {
	case gatewayErr != nil:
		metrics.IncSettlement("gateway_failed")
		o.logger.Warn().Err(gatewayErr).Str("order_id", initiate.OrderID).Msg("gateway checkout failed")
		if confirmErr != nil {
			o.logger.Error().Err(confirmErr).Str("order_id", initiate.OrderID).Msg("failure confirm not delivered")
		}
		return fmt.Errorf("payment failed: %w", gatewayErr)
	case confirmErr != nil:
		metrics.IncSettlement("confirm_failed")
		return fmt.Errorf("confirm top-up: %w", confirmErr)
	default:
		metrics.IncSettlement("success")
		o.logger.Info().Str("order_id", initiate.OrderID).Str("payment_id", paymentID).Float64("amount", req.Amount).Msg("top-up settled")
		return nil
	}
}
