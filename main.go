package main

import (
	"SportLink/middleware"
	"SportLink/models"
	"SportLink/pkg/cache"
	"SportLink/pkg/config"
	"SportLink/pkg/realtime"
	"SportLink/routes"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openDB() (*gorm.DB, error) {
	if config.MySQLDSN != "" {
		return gorm.Open(mysql.Open(config.MySQLDSN), &gorm.Config{})
	}
	return gorm.Open(sqlite.Open(config.SQLitePath), &gorm.Config{})
}

func main() {
	// config init via package init()

	db, err := openDB()
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Connection{},
		&models.Conversation{},
		&models.Participant{},
		&models.Message{},
	); err != nil {
		log.Fatalf("failed migrate: %v", err)
	}

	middleware.SetRateLimitConfig(
		time.Duration(config.RateLimitWindowSeconds)*time.Second,
		config.RateLimitCapacity,
		config.UserStreamLimit,
	)
	cache.SetMaxItems(config.IdentityCacheMaxItems)

	hub := realtime.NewHub()
	defer hub.Close()

	r := gin.Default()

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:5173", "http://127.0.0.1:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, hub)
	r.Run(":" + config.Port)
}
