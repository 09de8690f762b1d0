package websocket

import (
	"SportLink/controllers"
	"SportLink/middleware"
	"SportLink/pkg/chat"
	"SportLink/pkg/realtime"

	"github.com/gin-gonic/gin"
)

func Register(r *gin.Engine, store *chat.Store, hub *realtime.Hub) {
	r.GET("/ws/chat", middleware.RateLimit(), controllers.ChatWS(store, hub))
}
