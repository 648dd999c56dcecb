// Package router wires HTTP routes to handlers and global middleware.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/gizmodojp/line-contact-api/config"
	"github.com/gizmodojp/line-contact-api/handlers"
	"github.com/gizmodojp/line-contact-api/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies holds everything required for setting up routes.
type Dependencies struct {
	Config         *config.Config
	InquiryHandler *handlers.InquiryHandler
	HealthHandler  *handlers.HealthHandler
	// RateLimiter is optional; nil when Redis is not configured.
	RateLimiter gin.HandlerFunc
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.Default()

	// Global middleware
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))

	// Health and metrics routes
	r.GET("/", deps.HealthHandler.Root)
	r.GET("/health", deps.HealthHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		inquiryHandlers := []gin.HandlerFunc{}
		if deps.RateLimiter != nil {
			inquiryHandlers = append(inquiryHandlers, deps.RateLimiter)
		}
		inquiryHandlers = append(inquiryHandlers, deps.InquiryHandler.SubmitInquiry)
		api.POST("/inquiry", inquiryHandlers...)
	}

	return r
}
