package routes

import (
	"SportLink/middleware"
	"SportLink/pkg/chat"
	"SportLink/pkg/connections"
	"SportLink/pkg/realtime"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	authRoutes "SportLink/routes/auth"
	connectionRoutes "SportLink/routes/connections"
	convRoutes "SportLink/routes/conversation"
	messageRoutes "SportLink/routes/messages"
	profileRoutes "SportLink/routes/profile"
	websocketRoutes "SportLink/routes/websocket"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, hub *realtime.Hub) {
	gate := connections.NewService(db)
	store := chat.NewStore(db, gate)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "SportLink messaging backend running"})
	})

	websocketRoutes.Register(r, store, hub)
	authRoutes.RegisterPublic(r, db)

	protected := r.Group("/")
	protected.Use(middleware.AuthMiddleware())
	authRoutes.RegisterProtected(protected, db)
	profileRoutes.Register(protected, db)
	connectionRoutes.Register(protected, gate, db)
	convRoutes.Register(protected, store, hub, db)
	messageRoutes.Register(protected, store, db)
}
