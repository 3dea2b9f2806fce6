package routes

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"danceforchange/handlers"
	"danceforchange/middleware"
	"danceforchange/websocket"
)

// SetupRouter wires the REST surface and the live channel. mindtalk
// and hub are required; push may be nil, which removes the push
// endpoints entirely.
func SetupRouter(mindtalk *handlers.MindTalk, push *handlers.PushNotifier, hub *websocket.Hub) *gin.Engine {
	router := gin.Default()

	clientURL := os.Getenv("CLIENT_URL")
	if clientURL == "" {
		clientURL = "http://localhost:5173"
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{clientURL, "http://localhost:3000", "http://127.0.0.1:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "Dance For Change API"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	// Public routes (no auth required)
	router.GET("/api/mindtalk", mindtalk.GetAllPosts)
	if push != nil {
		router.GET("/api/vapid-public-key", push.GetVapidPublicKey)
	}

	// Member routes
	member := router.Group("/api/mindtalk")
	member.Use(middleware.JWTAuthMiddleware(), middleware.RequireMember())
	member.POST("", mindtalk.CreatePost)
	member.POST("/:id/reactions", mindtalk.AddReaction)
	member.POST("/:id/comments", mindtalk.AddComment)
	if push != nil {
		subscribe := router.Group("/api/push")
		subscribe.Use(middleware.JWTAuthMiddleware(), middleware.RequireMember())
		subscribe.POST("/subscribe", push.Subscribe)
	}

	// Admin routes
	admin := router.Group("/api/mindtalk")
	admin.Use(middleware.JWTAuthMiddleware(), middleware.RequireAdmin())
	admin.DELETE("/:id", mindtalk.DeletePost)

	// Live channel; inherits whatever the REST layer already validated
	router.GET("/ws", gin.WrapF(websocket.Handler(hub)))

	return router
}
