package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// SessionHandler splits its routes between the public and the
// authenticated groups.
type SessionHandler interface {
	RegisterRoutes(public, protected *gin.RouterGroup)
}

type Handlers struct {
	Auth            SessionHandler
	Prescription    Handler
	DrugInteraction Handler
	Health          Handler
}

type RouterConfig struct {
	RateLimit      rate.Limit
	RateBurst      int
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	CORSConfig     middleware.CORSConfig
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	// Clock stamps error envelopes. Nil means the wall clock.
	Clock func() time.Time
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	gatherer prometheus.Gatherer
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, config RouterConfig) *Router {
	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
		gatherer: config.Gatherer,
	}
	if r.gatherer == nil {
		r.gatherer = prometheus.DefaultGatherer
	}

	sizeLimit := middleware.DefaultSizeLimitConfig()
	if config.MaxBodyBytes > 0 {
		sizeLimit.MaxBodySize = config.MaxBodyBytes
	}
	sizeLimit.SkipPaths = []string{"/metrics"}

	engine.Use(
		middleware.Clock(config.Clock),
		middleware.RequestID(),
		middleware.Logger(),
	)
	if config.Metrics != nil {
		engine.Use(middleware.Metrics(config.Metrics))
	}
	engine.Use(
		middleware.Recovery(),
		middleware.ErrorHandler(),
		middleware.DefaultSecurityHeaders().Handler(),
		middleware.CORS(config.CORSConfig),
	)
	if config.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}
	engine.Use(
		middleware.SizeLimit(sizeLimit),
		middleware.Deadline(config.RequestTimeout),
	)

	engine.NoRoute(func(c *gin.Context) {
		httputil.RespondWithStatus(c, http.StatusNotFound, "No handler found for "+c.Request.Method+" "+c.Request.URL.Path)
	})

	return r
}

// Setup mounts every route. It must be called once before serving.
func (r *Router) Setup() {
	r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.handlers.Health.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())

	r.handlers.Auth.RegisterRoutes(api, protected)
	r.handlers.Prescription.RegisterRoutes(protected)
	r.handlers.DrugInteraction.RegisterRoutes(protected)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
