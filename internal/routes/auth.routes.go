package routes

import (
	"github.com/gin-gonic/gin"

	"memviz/internal/controllers"
)

// RegisterAuthRoutes registers the view event stream. Viewer tokens are
// minted from the CLI only, so there is no token endpoint.
func RegisterAuthRoutes(r *gin.Engine, wc *controllers.WebSocketController) {
	r.GET("/ws", wc.HandleWebSocket)
}
