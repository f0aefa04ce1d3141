package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/streambet/streambet/internal/api/middleware"
	"github.com/streambet/streambet/internal/domain"
	"github.com/streambet/streambet/internal/service"
)

// WalletHandler serves wallet and ledger read endpoints.
type WalletHandler struct {
	walletSvc *service.WalletService
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(walletSvc *service.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// GetBalance godoc
// GET /api/wallet/balance [JWT]
func (h *WalletHandler) GetBalance(c *gin.Context) {
	bettorID := middleware.GetBettorID(c)

	wallet, err := h.walletSvc.GetWallet(c.Request.Context(), bettorID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch wallet")
		return
	}
	respondSuccess(c, http.StatusOK, wallet)
}

// GetTransactions godoc
// GET /api/wallet/transactions?page=1&limit=20 [JWT]
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	bettorID := middleware.GetBettorID(c)
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	txs, err := h.walletSvc.GetTransactions(c.Request.Context(), bettorID, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch transactions")
		return
	}
	respondList(c, txs, len(txs), page, limit)
}

// ──────────────────────────────────────────────────────────────────────────────
// StatsHandler
// ──────────────────────────────────────────────────────────────────────────────

// StatsHandler serves the rolling period aggregates.
type StatsHandler struct {
	statsSvc *service.StatsService
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(statsSvc *service.StatsService) *StatsHandler {
	return &StatsHandler{statsSvc: statsSvc}
}

// GetPeriod godoc
// GET /api/stats/period
func (h *StatsHandler) GetPeriod(c *gin.Context) {
	stats, err := h.statsSvc.GetLatest(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrStatsNotFound) {
			respondError(c, http.StatusNotFound, "ERR_STATS_NOT_FOUND", "no stats built yet")
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch stats")
		return
	}
	respondSuccess(c, http.StatusOK, stats)
}
