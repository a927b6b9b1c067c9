package routes

import (
	"github.com/gin-gonic/gin"

	"memviz/internal/controllers"
)

func RegisterHostRoutes(r *gin.Engine, hc *controllers.HostController) {
	r.GET("/api/host", hc.GetMemory)
}
