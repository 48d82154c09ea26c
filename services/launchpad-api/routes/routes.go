package routes

import (
	"context"
	"net/http"
	"time"

	apperrors "github.com/AmentiAI/solmaker-sub001/common/errors"
	"github.com/AmentiAI/solmaker-sub001/common/middleware"
	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/controllers"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Options configures the launchpad router.
type Options struct {
	AllowOrigins   []string
	Limiter        *middleware.RateLimiter
	Logger         *zap.Logger
	RequestTimeout time.Duration
	Metrics        middleware.LatencyRecorder
}

// NewRouter builds the gin engine with the shared middleware stack, /health
// and the launchpad routes.
func NewRouter(lc *controllers.LaunchpadController, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(apperrors.ErrorMiddleware())
	if opts.Metrics != nil {
		r.Use(middleware.RequestMetrics(opts.Metrics))
	}

	if len(opts.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	if opts.RequestTimeout > 0 {
		r.Use(func(c *gin.Context) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), opts.RequestTimeout)
			defer cancel()
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}

	r.NoRoute(func(c *gin.Context) {
		c.AbortWithStatusJSON(apperrors.ErrNotFound.Code, apperrors.ErrNotFound)
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	RegisterRoutes(r, lc, opts.Limiter)
	return r
}

// RegisterRoutes sets up all launchpad routes. Reserve, release and build are
// rate limited per wallet when limiter is set.
func RegisterRoutes(r *gin.Engine, lc *controllers.LaunchpadController, limiter *middleware.RateLimiter) {
	launchpad := r.Group("/api/launchpad/:collectionId")
	launchpad.Use(middleware.SanitizeInput())

	limited := []gin.HandlerFunc{}
	if limiter != nil {
		limited = append(limited, middleware.RateLimitMiddleware(limiter, middleware.WalletKey))
	}

	launchpad.GET("", lc.GetCollection)
	launchpad.GET("/poll", lc.Poll)
	launchpad.GET("/ordinals", lc.ListOrdinals)
	launchpad.GET("/whitelist-status", lc.WhitelistStatus)

	launchpad.POST("/reserve", append(limited, lc.Reserve)...)
	launchpad.DELETE("/reserve", append(limited, lc.Release)...)
	launchpad.POST("/mint/build", append(limited, lc.BuildMint)...)

	launchpad.POST("/mint/confirm", lc.ConfirmMint)
	launchpad.GET("/mint/confirm", lc.ConfirmStatus)
}
