package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/streambet/streambet/internal/api/middleware"
	"github.com/streambet/streambet/internal/domain"
	"github.com/streambet/streambet/internal/service"
)

// WagerHandler serves wager placement and lookup endpoints.
type WagerHandler struct {
	wagerSvc *service.WagerService
}

// NewWagerHandler creates a WagerHandler.
func NewWagerHandler(wagerSvc *service.WagerService) *WagerHandler {
	return &WagerHandler{wagerSvc: wagerSvc}
}

// PlaceWager godoc
// POST /api/wagers [JWT]
// Body: {"question_id":"uuid","side":"Yes","stake":"100.00"}
func (h *WagerHandler) PlaceWager(c *gin.Context) {
	bettorID := middleware.GetBettorID(c)

	var body struct {
		QuestionID string `json:"question_id" binding:"required"`
		Side       string `json:"side"        binding:"required"`
		Stake      string `json:"stake"       binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	questionID, err := uuid.Parse(body.QuestionID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_QUESTION_ID", "invalid question_id format")
		return
	}

	stake, err := decimal.NewFromString(body.Stake)
	if err != nil || !stake.IsPositive() {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_STAKE", "stake must be a positive decimal string")
		return
	}

	req := domain.PlaceWagerRequest{
		BettorID:   bettorID,
		QuestionID: questionID,
		Side:       domain.Side(body.Side),
		Stake:      stake,
	}

	wager, err := h.wagerSvc.PlaceWager(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSide):
			respondError(c, http.StatusBadRequest, "ERR_INVALID_SIDE", err.Error())
		case errors.Is(err, domain.ErrInvalidStake):
			respondError(c, http.StatusBadRequest, "ERR_INVALID_STAKE", err.Error())
		case errors.Is(err, domain.ErrInsufficientFunds):
			respondError(c, http.StatusPaymentRequired, "ERR_INSUFFICIENT_FUNDS", err.Error())
		case domain.IsConflict(err):
			respondError(c, http.StatusConflict, "ERR_QUESTION_CLOSED", err.Error())
		case errors.Is(err, domain.ErrQuestionNotFound):
			respondError(c, http.StatusNotFound, "ERR_QUESTION_NOT_FOUND", err.Error())
		case errors.Is(err, domain.ErrWalletNotFound):
			respondError(c, http.StatusNotFound, "ERR_WALLET_NOT_FOUND", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not place wager")
		}
		return
	}
	respondSuccess(c, http.StatusCreated, wager)
}

// GetMyWagers godoc
// GET /api/wagers/my?page=1&limit=20 [JWT]
func (h *WagerHandler) GetMyWagers(c *gin.Context) {
	bettorID := middleware.GetBettorID(c)
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	wagers, err := h.wagerSvc.GetMyWagers(c.Request.Context(), bettorID, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch wagers")
		return
	}
	respondList(c, wagers, len(wagers), page, limit)
}

// GetWagerByID godoc
// GET /api/wagers/:id [JWT]
func (h *WagerHandler) GetWagerByID(c *gin.Context) {
	bettorID := middleware.GetBettorID(c)

	wagerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_WAGER_ID", "invalid wager id")
		return
	}

	wager, err := h.wagerSvc.GetWagerByID(c.Request.Context(), wagerID, bettorID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrForbidden):
			respondError(c, http.StatusForbidden, "ERR_FORBIDDEN", "this wager does not belong to you")
		case domain.IsNotFound(err):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", "wager not found")
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch wager")
		}
		return
	}
	respondSuccess(c, http.StatusOK, wager)
}
