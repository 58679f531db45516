package api

import (
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"evcharging-backend/internal/apperr"
	"evcharging-backend/internal/model"
	"evcharging-backend/internal/mw"
)

const basePath = "/api/v1"

// RateLimit configures the per-client request budget. Clients are keyed by
// remote address unless the request came through one of TrustedProxies.
type RateLimit struct {
	PerSecond      float64
	Burst          int
	TrustedProxies []string
}

var registerTagNames sync.Once

// adminRoutes lists the routes only an ADMIN may call.
var adminRoutes = mw.RouteRoles{
	mw.RouteKey(http.MethodPost, basePath+"/stations"):       model.RoleAdmin,
	mw.RouteKey(http.MethodDelete, basePath+"/stations/:id"): model.RoleAdmin,
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, tokens mw.TokenValidator, limit RateLimit, logger *zap.Logger) *gin.Engine {
	useJSONFieldNames()

	r := gin.New()
	if err := r.SetTrustedProxies(limit.TrustedProxies); err != nil {
		logger.Error("invalid trusted proxies, trusting none", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery(), mw.RequestLogger(logger))
	r.NoRoute(func(c *gin.Context) {
		mw.Abort(c, apperr.ErrRouteNotFound)
	})

	api := r.Group(basePath)
	api.Use(mw.RateLimiter(rate.Limit(limit.PerSecond), limit.Burst))
	{
		api.GET("/healthz", h.Health)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
		api.POST("/auth/signup", h.Signup)
		api.POST("/auth/login", h.Login)

		secured := api.Group("")
		secured.Use(mw.Authenticate(tokens, logger), mw.AuthorizeRole(adminRoutes))

		secured.GET("/stations", h.ListStations)
		secured.POST("/stations", h.CreateStation)
		secured.GET("/stations/nearby", h.NearbyStations)
		secured.GET("/stations/:id", h.GetStation)
		secured.PUT("/stations/:id", h.UpdateStation)
		secured.DELETE("/stations/:id", h.DeleteStation)

		secured.GET("/stations/:id/chargers", h.ListChargers)
		secured.POST("/stations/:id/chargers", h.CreateCharger)
		secured.PATCH("/chargers/:id/status", h.ChangeChargerStatus)

		secured.POST("/chargers/:id/sessions", h.StartSession)
		secured.PATCH("/sessions/:id/complete", h.CompleteSession)
		secured.GET("/sessions", h.ListSessions)

		secured.GET("/subscriptions", h.GetSubscription)
		secured.PUT("/subscriptions", h.PutSubscription)
		secured.DELETE("/subscriptions", h.DeleteSubscription)
	}

	return r
}

// useJSONFieldNames makes validation errors name fields as clients send them.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}
