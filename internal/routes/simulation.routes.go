package routes

import (
	"github.com/gin-gonic/gin"

	"memviz/internal/controllers"
)

func RegisterSimulationRoutes(r *gin.Engine, sc *controllers.SimulationController, limit gin.HandlerFunc) {
	api := r.Group("/api")
	{
		api.GET("/view", sc.GetView)
		api.DELETE("/notifications/:id", sc.DismissNotification)
	}

	simulation := api.Group("/simulation", limit)
	{
		simulation.POST("/start", sc.Start)
		simulation.POST("/step", sc.Step)
		simulation.POST("/reset", sc.Reset)
		simulation.GET("/results", sc.Results)
	}
}
