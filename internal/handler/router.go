package handler

import (
	"github.com/SergeiKhy/linkpay/internal/middleware"
	"github.com/SergeiKhy/linkpay/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func NewRouter(
	linkService service.LinkService,
	clickService service.ClickService,
	sessionService service.SessionService,
	clickProcessor service.ClickProcessor,
	rateLimiter *middleware.RateLimiter,
	apiKeyMiddleware gin.HandlerFunc,
	logger *zap.Logger,
) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.Default()

	// Middleware для логгирования
	router.Use(func(c *gin.Context) {
		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
		)
		c.Next()
	})

	// Rate limiting для всех запросов
	router.Use(rateLimiter.Middleware())

	// Инициализация обработчиков
	linkHandler := NewLinkHandler(linkService, clickService, clickProcessor, logger)
	clickHandler := NewClickHandler(clickService, sessionService, logger)

	// API v.1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", HealthCheck)

		// Трекинг с промежуточной страницы — без API key,
		// вызывается браузером посетителя
		v1.POST("/links/:code/clicks", clickHandler.RecordClick)
		v1.POST("/clicks/:id/session", clickHandler.UpdateSession)

		// Применяем API Key middleware только к защищённым эндпоинтам
		if apiKeyMiddleware != nil {
			v1.Use(apiKeyMiddleware)
		}

		v1.POST("/links", linkHandler.CreateLink)
		v1.DELETE("/links/:code", linkHandler.DeleteLink)
		v1.GET("/links/:code/stats", linkHandler.GetStats)
		v1.GET("/clicks/:id", clickHandler.GetClick)
		v1.GET("/publishers/:id/ledger", clickHandler.GetPublisherLedger)
		v1.GET("/platform/ledger", clickHandler.GetPlatformLedger)
	}

	// Редирект (корневой путь) - без API key проверки
	router.GET("/:code", linkHandler.Redirect)

	// Метрики Prometheus
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger документация (без аутентификации)
	AddSwaggerRoutes(router)

	return router
}

// HealthCheck godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/v1/health [get]
func HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
