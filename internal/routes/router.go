package routes

import (
	"html/template"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"memviz/internal/controllers"
	"memviz/internal/middleware"
	"memviz/internal/services"
	"memviz/web"
)

// Deps is everything the HTTP surface needs
type Deps struct {
	Dashboard *services.Dashboard
	Hub       *services.WebSocketHub
	Auth      *services.AuthService
	HostCache *services.HostCache

	AllowedOrigins     []string
	AllowedIPs         []string
	RequireViewerToken bool

	RateLimit           float64
	RateBurst           int
	SimulationRateLimit float64
	SimulationRateBurst int

	// TemplatesDir overrides the embedded dashboard templates
	TemplatesDir string
}

// NewRouter builds the gin engine with every route and middleware installed
func NewRouter(deps Deps) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	if deps.TemplatesDir != "" {
		r.LoadHTMLGlob(filepath.Join(deps.TemplatesDir, "*.html"))
	} else {
		tmpl, err := template.ParseFS(web.Templates, "templates/*.html")
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse embedded templates")
		}
		r.SetHTMLTemplate(tmpl)
	}

	security := middleware.NewSecurityLogger()
	r.Use(
		middleware.SecurityHeadersMiddleware(),
		middleware.CORSMiddleware(deps.AllowedOrigins),
		middleware.IPWhitelistMiddleware(middleware.NewIPWhitelist(deps.AllowedIPs), security),
		middleware.RateLimitMiddleware(middleware.NewRateLimiter(deps.RateLimit, deps.RateBurst), security),
	)

	simulationLimit := middleware.RateLimitMiddleware(
		middleware.NewRateLimiter(deps.SimulationRateLimit, deps.SimulationRateBurst),
		security,
	)

	RegisterDashboardRoutes(r, deps.RequireViewerToken)
	RegisterSimulationRoutes(r, controllers.NewSimulationController(deps.Dashboard), simulationLimit)
	RegisterHostRoutes(r, controllers.NewHostController(deps.HostCache))
	RegisterAuthRoutes(r, controllers.NewWebSocketController(deps.Hub, deps.Dashboard, deps.Auth, security, controllers.WebSocketOptions{
		RequireToken:   deps.RequireViewerToken,
		AllowedOrigins: deps.AllowedOrigins,
	}))

	return r, nil
}
