// Package wallet reads balances and transaction history. The wallet
// is never adjusted client-side; every mutation goes through the
// payment flow and the balance is learned by re-fetching.
package wallet

import (
	"context"
	"fmt"
	"net/http"

	"gridee/internal/apiclient"
	"gridee/internal/models"

	"github.com/rs/zerolog"
)

type Service struct {
	client *apiclient.Client
	logger *zerolog.Logger
}

func NewService(client *apiclient.Client, logger *zerolog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// Fetch returns the user's wallet record.
func (s *Service) Fetch(ctx context.Context, userID string) (models.Wallet, error) {
	if userID == "" {
		return models.Wallet{}, fmt.Errorf("user id is required")
	}
	return apiclient.DoJSON[models.Wallet](ctx, s.client, http.MethodGet, "/users/"+userID+"/wallet", nil)
}

// Transactions returns the wallet ledger, newest first per the backend.
func (s *Service) Transactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	return apiclient.DoJSON[[]models.Transaction](ctx, s.client, http.MethodGet, "/users/"+userID+"/wallet/transactions", nil)
}

// TopUp credits the wallet directly, bypassing the gateway. Used by
// operator adjustments; customer top-ups go through payment.TopUp.
// No bound checks here, the caller owns them.
func (s *Service) TopUp(ctx context.Context, userID string, amount float64) (models.Wallet, error) {
	if userID == "" {
		return models.Wallet{}, fmt.Errorf("user id is required")
	}
	body := map[string]float64{"amount": amount}
	return apiclient.DoJSON[models.Wallet](ctx, s.client, http.MethodPost, "/users/"+userID+"/wallet/topup", body)
}

// ValidateTopUp bounds a requested amount before any order is created.
func ValidateTopUp(amount float64) error {
	if amount < models.MinTopUpAmount {
		return fmt.Errorf("minimum top-up is %d", models.MinTopUpAmount)
	}
	if amount > models.MaxTopUpAmount {
		return fmt.Errorf("maximum top-up is %d", models.MaxTopUpAmount)
	}
	return nil
}
