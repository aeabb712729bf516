// Package router wires the handlers, middleware chains and route groups.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"innkeeper/internal/config"
	"innkeeper/internal/handler"
	"innkeeper/internal/metrics"
	"innkeeper/internal/middleware"
	"innkeeper/internal/model"
	"innkeeper/internal/repository"
)

// Deps carries everything New needs to assemble the server.
type Deps struct {
	Cfg   config.Config
	DB    *sql.DB
	Redis *redis.Client
	Log   zerolog.Logger
}

// New builds the Echo instance with all routes registered.
//
// Route map:
//
//	public:  /healthz /metrics
//	         GET  /v1/rooms/available
//	         POST /v1/reservations            (anonymous or bearer)
//	         GET  /v1/reservations/lookup
//	         POST /v1/auth/register /login /refresh /logout
//	guest:   GET  /v1/auth/me
//	         GET  /v1/reservations  GET /v1/reservations/:id
//	         POST /v1/reservations/claim
//	         GET  /v1/reservations/:id/bill
//	         POST /v1/reservations/:id/changes
//	staff:   under /v1/staff, RequireRole(STAFF)
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Log))

	rlCfg := config.LoadRateLimitConfig()
	e.Use(middleware.NewTokenBucket(rlCfg, d.Redis))

	m := metrics.New(prometheus.DefaultRegisterer)

	rooms := repository.NewRoomRepo(d.DB)
	guests := repository.NewGuestRepo(d.DB)
	staff := repository.NewStaffRepo(d.DB)
	tokens := repository.NewTokenRepo(d.DB)
	reservations := repository.NewReservationRepo(d.DB)
	changes := repository.NewChangeRepo(d.DB)
	charges := repository.NewChargeRepo(d.DB)

	authH := handler.NewAuthHandler(d.Cfg, guests, staff, tokens)
	availH := handler.NewAvailabilityHandler(rooms)
	resH := handler.NewReservationHandler(d.Cfg, rooms, guests, reservations, charges, m, d.Log)
	chgH := handler.NewChangeHandler(reservations, changes, rooms, m, d.Log)
	staffH := handler.NewStaffHandler(reservations, rooms, charges, m)

	e.GET("/healthz", handler.Health(d.DB))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1")

	// Availability search is the hottest read path; it sits behind the Redis
	// response cache when one is configured.
	cacheCfg := config.LoadCacheConfig()
	v1.GET("/rooms/available", availH.ListAvailable, middleware.NewRedisCache(cacheCfg, d.Redis))

	v1.POST("/auth/register", authH.Register)
	v1.POST("/auth/login", authH.Login)
	v1.POST("/auth/refresh", authH.Refresh)
	v1.POST("/auth/logout", authH.Logout)

	v1.POST("/reservations", resH.Create)
	v1.GET("/reservations/lookup", resH.Lookup)

	auth := v1.Group("", middleware.JWTAuth(d.Cfg.JWTSecret))
	auth.GET("/auth/me", authH.Me)

	guest := auth.Group("", middleware.RequireRole(model.RoleGuest))
	guest.GET("/reservations", resH.ListMine)
	guest.POST("/reservations/claim", resH.Claim)
	guest.POST("/reservations/:id/changes", chgH.Submit)

	// Detail and bill are shared: owner or staff.
	auth.GET("/reservations/:id", resH.Get)
	auth.GET("/reservations/:id/bill", resH.Bill)

	st := auth.Group("/staff", middleware.RequireRole(model.RoleStaff))
	st.GET("/reservations", staffH.ListReservations)
	st.GET("/changes", chgH.ListPending)
	st.POST("/reservations/:id/changes/approve", chgH.Approve)
	st.POST("/reservations/:id/changes/reject", chgH.Reject)
	st.POST("/reservations/:id/checkin", staffH.CheckIn)
	st.POST("/reservations/:id/checkout", staffH.CheckOut)
	st.POST("/reservations/:id/charges", staffH.AddCharge)
	st.GET("/reservations/:id/bill", resH.Bill)
	st.PUT("/rooms/:id/status", staffH.SetRoomStatus)
	st.GET("/stats", staffH.Stats)

	return e
}
