package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/amitRaDev/GMS/config"
	"github.com/amitRaDev/GMS/internal/mw"
	"github.com/amitRaDev/GMS/internal/ws"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	limit := rate.Limit(10)
	burst := 5
	if cfg != nil && cfg.RateLimitPerSec > 0 {
		limit = rate.Limit(cfg.RateLimitPerSec)
		// Burst tracks the configured rate.
		if b := int(cfg.RateLimitPerSec); b > burst {
			burst = b
		}
	}
	rateLimiter := mw.RateLimiter(limit, burst)

	ttl := 5 * time.Second
	if cfg != nil && cfg.CacheTTLSeconds > 0 {
		ttl = time.Duration(cfg.CacheTTLSeconds) * time.Second
	}
	if h.respCache == nil {
		h.respCache = cache.New(ttl, 2*ttl)
	}
	caching := mw.Cache(h.respCache, ttl)

	// WebSocket upgrade stays outside the API middleware chain.
	r.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(h.hub, c.Writer, c.Request)
	})

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		gateGroup := api.Group("/gate")
		{
			gateGroup.POST("/event", h.SubmitGateEvent)
			gateGroup.POST("/confirm-entry", h.ConfirmEntry)
			gateGroup.POST("/confirm-exit", h.ConfirmExit)
			gateGroup.POST("/force-close/:jobCardId", h.ForceCloseJob)
		}

		cameraGroup := api.Group("/camera")
		{
			cameraGroup.POST("/event", h.CameraEvent)
			cameraGroup.POST("/events/bulk", h.CameraEventsBulk)
			cameraGroup.POST("/event/upload", h.CameraEventUpload)
		}

		api.GET("/cameras", h.ListCameras)
		api.POST("/cameras", h.CreateCamera)
		api.GET("/cameras/:id", h.GetCamera)
		api.PUT("/cameras/:id", h.UpdateCamera)
		api.DELETE("/cameras/:id", h.DeleteCamera)
		api.POST("/cameras/:id/regenerate-token", h.RegenerateCameraToken)

		api.GET("/gate-logs", caching, h.GetGateLogs)
		api.GET("/gate-logs/stats", caching, h.GetGateStats)

		api.GET("/vehicles", caching, h.ListVehicles)
		api.POST("/vehicles", h.CreateVehicle)
		api.GET("/vehicles/:id", caching, h.GetVehicle)
		api.PUT("/vehicles/:id", h.UpdateVehicle)
		api.DELETE("/vehicles/:id", h.DeleteVehicle)

		api.GET("/job-cards", h.ListJobCards)
		api.GET("/job-cards/active", h.ListActiveJobCards)
		api.POST("/job-cards", h.CreateJobCard)
		api.GET("/job-cards/:id", h.GetJobCard)
		api.PUT("/job-cards/:id", h.UpdateJobCard)
		api.DELETE("/job-cards/:id", h.DeleteJobCard)
		api.PUT("/job-cards/:id/status", h.UpdateJobStatus)

		api.GET("/images/:id", h.GetImage)
		api.GET("/images/vehicle/:vehicleNumber", h.GetVehicleImages)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
