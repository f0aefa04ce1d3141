package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/streambet/streambet/internal/config"
	"github.com/streambet/streambet/internal/domain"
	"github.com/streambet/streambet/internal/repository"
)

// WalletService exposes read access to wallets and the ledger. Balance
// mutations happen only inside WagerService (debit at placement) and
// ResolutionService (credits at settlement); nothing else moves money.
type WalletService struct {
	walletRepo *repository.WalletRepository
	cfg        *config.Config
}

// NewWalletService creates a WalletService.
func NewWalletService(walletRepo *repository.WalletRepository, cfg *config.Config) *WalletService {
	return &WalletService{walletRepo: walletRepo, cfg: cfg}
}

// GetWallet returns the bettor's wallet, creating it with the configured
// starting balance on first contact.
func (s *WalletService) GetWallet(ctx context.Context, bettorID uuid.UUID) (*domain.Wallet, error) {
	starting := decimal.NewFromFloat(s.cfg.Betting.StartingBalance)
	w, err := s.walletRepo.GetOrCreate(ctx, bettorID, starting)
	if err != nil {
		return nil, fmt.Errorf("wallet_service.GetWallet: %w", err)
	}
	return w, nil
}

// GetTransactions returns the bettor's ledger entries, newest first.
func (s *WalletService) GetTransactions(ctx context.Context, bettorID uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	txs, err := s.walletRepo.GetTransactions(ctx, bettorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("wallet_service.GetTransactions: %w", err)
	}
	return txs, nil
}
