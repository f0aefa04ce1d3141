package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/streambet/streambet/internal/domain"
	"github.com/streambet/streambet/internal/service"
)

// QuestionHandler serves betting-round read endpoints.
type QuestionHandler struct {
	questionSvc *service.QuestionService
}

// NewQuestionHandler creates a QuestionHandler.
func NewQuestionHandler(questionSvc *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionSvc: questionSvc}
}

// GetActive godoc
// GET /api/questions/active?stream=main
func (h *QuestionHandler) GetActive(c *gin.Context) {
	streamRef := c.DefaultQuery("stream", "main")

	q, err := h.questionSvc.GetActiveQuestion(c.Request.Context(), streamRef)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveQuestion) {
			respondError(c, http.StatusNotFound, "ERR_NO_ACTIVE_QUESTION", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch active question")
		return
	}
	respondSuccess(c, http.StatusOK, q)
}

// GetByID godoc
// GET /api/questions/:id
func (h *QuestionHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_QUESTION_ID", "invalid question id")
		return
	}

	q, err := h.questionSvc.FindQuestion(c.Request.Context(), id)
	if err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusNotFound, "ERR_QUESTION_NOT_FOUND", "question not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch question")
		return
	}
	respondSuccess(c, http.StatusOK, q)
}

// GetHistory godoc
// GET /api/questions/history?stream=main&page=1&limit=20
func (h *QuestionHandler) GetHistory(c *gin.Context) {
	streamRef := c.DefaultQuery("stream", "main")
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	questions, err := h.questionSvc.GetHistory(c.Request.Context(), streamRef, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch history")
		return
	}
	respondList(c, questions, len(questions), page, limit)
}
