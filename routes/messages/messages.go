package messages

import (
	"SportLink/controllers"
	"SportLink/pkg/chat"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Register registers cross-conversation message routes (protected)
func Register(g *gin.RouterGroup, store *chat.Store, db *gorm.DB) {
	g.GET("/messages/recent", controllers.RecentMessages(store, db))
	g.GET("/messages/unread-count", controllers.UnreadCount(store))
	g.GET("/messages/unread-count/stream", controllers.UnreadCountStream(store))
}
