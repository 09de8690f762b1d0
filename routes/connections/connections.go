package connections

import (
	"SportLink/controllers"
	"SportLink/middleware"
	conns "SportLink/pkg/connections"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Register registers connection-graph routes (protected)
func Register(g *gin.RouterGroup, svc *conns.Service, db *gorm.DB) {
	g.GET("/connections", controllers.ListConnections(svc, db))
	g.POST("/connections", middleware.RateLimit(), controllers.RequestConnection(svc))
	g.POST("/connections/:connection_id/accept", controllers.AcceptConnection(svc))
}
