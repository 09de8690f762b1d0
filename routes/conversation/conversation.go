package conversation

import (
	"SportLink/controllers"
	"SportLink/middleware"
	"SportLink/pkg/chat"
	"SportLink/pkg/realtime"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Register registers conversation routes (protected)
func Register(g *gin.RouterGroup, store *chat.Store, hub *realtime.Hub, db *gorm.DB) {
	g.GET("/conversations", controllers.ListConversations(store, db))
	g.POST("/conversations", middleware.RateLimit(), controllers.GetOrCreateConversation(store, db))
	g.GET("/conversations/:conversation_id", controllers.GetConversationMessages(store, db))
	g.POST("/conversations/:conversation_id", middleware.RateLimit(), controllers.SendMessage(store, hub))
	g.POST("/conversations/:conversation_id/read", controllers.MarkConversationRead(store, hub))
}
