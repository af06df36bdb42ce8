package router // package router maps every HTTP route of the API to its handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/account-service/internal/handler"
	"github.com/iliyamo/account-service/internal/metrics"
	"github.com/iliyamo/account-service/internal/middleware"
	"github.com/iliyamo/account-service/internal/model"
)

// Route is one row of the routing table.
type Route struct {
	Method      string
	Path        string
	Handler     echo.HandlerFunc
	Auth        bool         // require a valid access token
	Roles       []model.Role // restrict to these roles; empty allows any authenticated caller
	RateLimited bool         // apply the token bucket
}

// Deps are the handlers and cross-cutting pieces the routes need.
type Deps struct {
	Auth  *handler.AuthHandler
	Users *handler.UserHandler
	Areas *handler.AreaHandler

	Tokens  middleware.TokenVerifier
	Keys    handler.KeySetSource // nil hides /.well-known/jwks.json
	Limiter echo.MiddlewareFunc  // nil disables rate limiting
	Metrics *metrics.Metrics
	Log     *zap.Logger

	// UpdateRequiresAuth protects PUT /api/user/update/:userId.
	UpdateRequiresAuth bool

	// FilesPrefix and FilesDir serve stored uploads when the upload base
	// URL is a local path such as /files.
	FilesPrefix string
	FilesDir    string
}

var areaAdmins = []model.Role{model.RoleSuperAdmin, model.RoleAdmin}

// Routes returns the routing table.
func Routes(d Deps) []Route {
	routes := []Route{
		{Method: http.MethodGet, Path: "/healthz", Handler: handler.Health},

		// Login and password reset.  Anonymous routes are rate limited.
		{Method: http.MethodPost, Path: "/api/login", Handler: d.Auth.Login, RateLimited: true},
		{Method: http.MethodPost, Path: "/api/login/forgot-password", Handler: d.Auth.ForgotPassword, RateLimited: true},
		{Method: http.MethodPost, Path: "/api/login/verify-otp", Handler: d.Auth.VerifyOTP, RateLimited: true},
		{Method: http.MethodPost, Path: "/api/login/set-password", Handler: d.Auth.SetPassword, RateLimited: true},
		{Method: http.MethodPost, Path: "/api/login/change-password", Handler: d.Auth.ChangePassword, Auth: true},

		// Accounts.
		{Method: http.MethodPost, Path: "/api/user/register", Handler: d.Users.Register, RateLimited: true},
		{Method: http.MethodPost, Path: "/api/user/verify", Handler: d.Users.VerifyProvider, RateLimited: true},
		{Method: http.MethodPut, Path: "/api/user/update/:userId", Handler: d.Users.Update, Auth: d.UpdateRequiresAuth},
		{Method: http.MethodPost, Path: "/api/user/create", Handler: d.Users.Create, Auth: true},
		{Method: http.MethodDelete, Path: "/api/user/delete", Handler: d.Users.Delete, Auth: true},
		{Method: http.MethodPost, Path: "/api/user/list", Handler: d.Users.List, Auth: true},

		// Areas.  Mutations are reserved to administrators.
		{Method: http.MethodPost, Path: "/api/area/create", Handler: d.Areas.Create, Auth: true, Roles: areaAdmins},
		{Method: http.MethodPut, Path: "/api/area/update/:id", Handler: d.Areas.Update, Auth: true, Roles: areaAdmins},
		{Method: http.MethodDelete, Path: "/api/area/delete/:id", Handler: d.Areas.Delete, Auth: true, Roles: areaAdmins},
		{Method: http.MethodGet, Path: "/api/area/view/:id", Handler: d.Areas.View, Auth: true},
		{Method: http.MethodGet, Path: "/api/area/pincode/:pincode", Handler: d.Areas.ByPincode},
	}
	if d.Keys != nil {
		routes = append(routes, Route{Method: http.MethodGet, Path: "/.well-known/jwks.json", Handler: handler.JWKS(d.Keys)})
	}
	if d.Metrics != nil {
		routes = append(routes, Route{Method: http.MethodGet, Path: "/metrics", Handler: echo.WrapHandler(d.Metrics.Handler())})
	}
	return routes
}

// Register adds every route of the table to e with its middleware chain:
// rate limit, then authentication, then role check.
func Register(e *echo.Echo, d Deps) {
	auth := middleware.JWTAuth(d.Tokens)
	for _, r := range Routes(d) {
		var chain []echo.MiddlewareFunc
		if r.RateLimited && d.Limiter != nil {
			chain = append(chain, d.Limiter)
		}
		if r.Auth {
			chain = append(chain, auth)
			if len(r.Roles) > 0 {
				chain = append(chain, middleware.RequireRole(r.Roles...))
			}
		}
		e.Add(r.Method, r.Path, r.Handler, chain...)
	}
	if d.FilesDir != "" && strings.HasPrefix(d.FilesPrefix, "/") {
		e.Static(d.FilesPrefix, d.FilesDir)
	}
}

// New builds the echo server: envelope errors, validation, panic
// recovery, request logging and the routing table.
func New(d Deps) *echo.Echo {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	handler.Configure(e)
	e.Use(middleware.RequestLogger(log, d.Metrics))
	e.Use(echomw.Recover())
	Register(e, d)
	return e
}
