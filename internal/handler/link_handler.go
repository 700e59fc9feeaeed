package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/SergeiKhy/linkpay/internal/models"
	"github.com/SergeiKhy/linkpay/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LinkHandler struct {
	service        service.LinkService
	clicks         service.ClickService
	clickProcessor service.ClickProcessor
	logger         *zap.Logger
}

func NewLinkHandler(
	linkService service.LinkService,
	clicks service.ClickService,
	clickProcessor service.ClickProcessor,
	logger *zap.Logger,
) *LinkHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkHandler{
		service:        linkService,
		clicks:         clicks,
		clickProcessor: clickProcessor,
		logger:         logger,
	}
}

type CreateLinkRequest struct {
	URL         string               `json:"url" binding:"required,url"`
	PublisherID int64                `json:"publisher_id" binding:"required"`
	Share       *models.RevenueShare `json:"revenue_share,omitempty"`
	AdEnabled   *bool                `json:"ad_enabled,omitempty"`
	ExpiresIn   *int                 `json:"expires_in,omitempty"`
	CustomCode  string               `json:"custom_code,omitempty"`
}

type CreateLinkResponse struct {
	ShortCode   string              `json:"short_code"`
	ShortURL    string              `json:"short_url"`
	OriginalURL string              `json:"original_url"`
	PublisherID int64               `json:"publisher_id"`
	Share       models.RevenueShare `json:"revenue_share"`
	ExpiresAt   *time.Time          `json:"expires_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreateLink godoc
// @Summary Create a monetized short link
// @Description Create a new shortened URL owned by a publisher
// @Tags links
// @Accept json
// @Produce json
// @Param request body CreateLinkRequest true "Link creation request"
// @Success 201 {object} CreateLinkResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/links [post]
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	input := &models.CreateLinkInput{
		OriginalURL: req.URL,
		PublisherID: req.PublisherID,
		Share:       req.Share,
		AdEnabled:   req.AdEnabled,
		ExpiresIn:   req.ExpiresIn,
	}

	if req.CustomCode != "" {
		input.CustomCode = &req.CustomCode
	}

	link, err := h.service.CreateLink(c.Request.Context(), input)
	if err != nil {
		h.logger.Error("Failed to create link", zap.Error(err))

		switch {
		case errors.Is(err, service.ErrInvalidURL):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_url",
				Message: "Invalid URL format",
			})
		case errors.Is(err, service.ErrInvalidCode):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_code",
				Message: "Custom code must be 4-12 alphanumeric characters",
			})
		case errors.Is(err, service.ErrSpamDomain):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "spam_domain",
				Message: "Domain is blacklisted",
			})
		case errors.Is(err, service.ErrInvalidShare):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_share",
				Message: "Revenue share percentages must be non-negative and sum to at most 100",
			})
		case errors.Is(err, service.ErrNoPublisher):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "missing_publisher",
				Message: "Publisher id is required",
			})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to create link",
			})
		}
		return
	}

	response := CreateLinkResponse{
		ShortCode:   link.ShortCode,
		ShortURL:    "http://localhost:8080/" + link.ShortCode,
		OriginalURL: link.OriginalURL,
		PublisherID: link.PublisherID,
		Share:       link.Share,
		ExpiresAt:   link.ExpiresAt,
		CreatedAt:   link.CreatedAt,
	}

	c.JSON(http.StatusCreated, response)
}

// Redirect godoc
// @Summary Redirect to original URL
// @Description Redirect to the original URL by short code; the click is recorded asynchronously
// @Tags links
// @Produce json
// @Param code path string true "Short code"
// @Success 307 {object} nil
// @Failure 404 {object} ErrorResponse
// @Router /{code} [get]
func (h *LinkHandler) Redirect(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_code",
			Message: "Short code is required",
		})
		return
	}

	link, err := h.service.GetLink(c.Request.Context(), code)
	if err != nil {
		h.logger.Warn("Link not found", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Link not found or expired",
		})
		return
	}

	// Асинхронная запись клика: редирект не ждёт скоринга и леджера
	event := &service.EdgeClick{
		ShortCode: code,
		Input: models.ClickInput{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Referer:   c.Request.Referer(),
		},
	}
	if err := h.clickProcessor.Enqueue(c.Request.Context(), event); err != nil {
		h.logger.Debug("Failed to enqueue click (non-blocking)", zap.Error(err))
	}

	c.Redirect(http.StatusTemporaryRedirect, link.OriginalURL)
}

// DeleteLink godoc
// @Summary Delete a short link
// @Description Delete a shortened URL by short code
// @Tags links
// @Produce json
// @Param code path string true "Short code"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/{code} [delete]
func (h *LinkHandler) DeleteLink(c *gin.Context) {
	code := c.Param("code")

	err := h.service.DeleteLink(c.Request.Context(), code)
	if err != nil {
		h.logger.Warn("Failed to delete link", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Link not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Link deleted successfully"})
}

// GetStats godoc
// @Summary Get click and earnings statistics for a short link
// @Description Get traffic counters and accumulated earnings for a shortened URL
// @Tags links
// @Produce json
// @Param code path string true "Short code"
// @Success 200 {object} models.LinkStats
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/{code}/stats [get]
func (h *LinkHandler) GetStats(c *gin.Context) {
	code := c.Param("code")

	stats, err := h.clicks.GetLinkStats(c.Request.Context(), code)
	if err != nil {
		h.logger.Warn("Failed to get stats", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Link not found",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}
