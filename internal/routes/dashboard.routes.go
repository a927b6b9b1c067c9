package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterDashboardRoutes serves the dashboard page
func RegisterDashboardRoutes(r *gin.Engine, wsToken bool) {
	page := func(c *gin.Context) {
		c.HTML(http.StatusOK, "dashboard.html", gin.H{
			"RequireToken": wsToken,
		})
	}

	r.GET("/", page)
	r.GET("/dashboard", page)
}
