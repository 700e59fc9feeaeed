package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/SergeiKhy/linkpay/internal/models"
	"github.com/SergeiKhy/linkpay/internal/repository"
	"github.com/SergeiKhy/linkpay/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ClickHandler API для трекинга сессий на промежуточной странице
// и чтения снимков леджеров
type ClickHandler struct {
	clicks   service.ClickService
	sessions service.SessionService
	logger   *zap.Logger
}

func NewClickHandler(clicks service.ClickService, sessions service.SessionService, logger *zap.Logger) *ClickHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClickHandler{
		clicks:   clicks,
		sessions: sessions,
		logger:   logger,
	}
}

type RecordClickResponse struct {
	ClickID    string       `json:"click_id"`
	IsUnique   bool         `json:"is_unique"`
	IsFlagged  bool         `json:"is_flagged"`
	FraudScore int          `json:"fraud_score"`
	Earned     models.Money `json:"earned"`
}

// RecordClick godoc
// @Summary Record a click synchronously
// @Description Score, resolve uniqueness and credit revenue for a click; returns the click id for session tracking
// @Tags clicks
// @Accept json
// @Produce json
// @Param code path string true "Short code"
// @Param request body models.ClickInput true "Click signals"
// @Success 201 {object} RecordClickResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/{code}/clicks [post]
func (h *ClickHandler) RecordClick(c *gin.Context) {
	code := c.Param("code")

	var req models.ClickInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	click, err := h.clicks.RecordClick(c.Request.Context(), code, &req)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "link_not_found",
				Message: "Link not found or expired",
			})
			return
		}
		h.logger.Error("Failed to record click", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to record click",
		})
		return
	}

	c.JSON(http.StatusCreated, RecordClickResponse{
		ClickID:    click.ID,
		IsUnique:   click.IsUnique,
		IsFlagged:  click.IsFlagged,
		FraudScore: click.FraudScore,
		Earned:     click.Earned,
	})
}

// UpdateSession godoc
// @Summary Update session metrics for a recorded click
// @Description Accepts new session totals (duration, pages, ad interactions) and credits the positive revenue delta
// @Tags clicks
// @Accept json
// @Produce json
// @Param id path string true "Click id"
// @Param request body models.SessionUpdateInput true "New session totals"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/clicks/{id}/session [post]
func (h *ClickHandler) UpdateSession(c *gin.Context) {
	clickID := c.Param("id")

	var req models.SessionUpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	err := h.sessions.UpdateSession(c.Request.Context(), clickID, &req)
	if err != nil {
		if errors.Is(err, repository.ErrClickNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "click_not_found",
				Message: "Click not found",
			})
			return
		}
		h.logger.Error("Failed to update session", zap.String("click_id", clickID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to update session",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session updated"})
}

// GetClick godoc
// @Summary Get a click snapshot
// @Tags clicks
// @Produce json
// @Param id path string true "Click id"
// @Success 200 {object} models.ClickEvent
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/clicks/{id} [get]
func (h *ClickHandler) GetClick(c *gin.Context) {
	clickID := c.Param("id")

	click, err := h.clicks.GetClick(c.Request.Context(), clickID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "click_not_found",
			Message: "Click not found",
		})
		return
	}

	c.JSON(http.StatusOK, click)
}

// GetPublisherLedger godoc
// @Summary Get a publisher balance snapshot
// @Tags ledgers
// @Produce json
// @Param id path int true "Publisher id"
// @Success 200 {object} models.PublisherLedger
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/publishers/{id}/ledger [get]
func (h *ClickHandler) GetPublisherLedger(c *gin.Context) {
	publisherID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || publisherID <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_publisher_id",
			Message: "Publisher id must be a positive integer",
		})
		return
	}

	ledger, err := h.clicks.GetPublisherLedger(c.Request.Context(), publisherID)
	if err != nil {
		h.logger.Error("Failed to get publisher ledger", zap.Int64("publisher_id", publisherID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to get publisher ledger",
		})
		return
	}

	c.JSON(http.StatusOK, ledger)
}

// GetPlatformLedger godoc
// @Summary Get the platform revenue snapshot
// @Tags ledgers
// @Produce json
// @Success 200 {object} models.PlatformLedger
// @Router /api/v1/platform/ledger [get]
func (h *ClickHandler) GetPlatformLedger(c *gin.Context) {
	ledger, err := h.clicks.GetPlatformLedger(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get platform ledger", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to get platform ledger",
		})
		return
	}

	c.JSON(http.StatusOK, ledger)
}
