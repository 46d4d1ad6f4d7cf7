package controller

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/AlexLuu1/Memento/logging"
	"github.com/AlexLuu1/Memento/services"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	Memories      services.MemoryService
	Conversations services.ConversationService
	UploadsDir    string
	Logger        *slog.Logger
}

// NewRouter wires the HTTP API of the memory companion.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery(), logging.Middleware(logger), cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "Memento API",
			"version": "1.0.0",
		})
	})

	memories := NewMemoryController(cfg.Memories)
	conversations := NewConversationController(cfg.Conversations)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/memories", memories.CreateMemory)
		apiV1.GET("/memories", memories.ListMemories)
		apiV1.GET("/memories/:id", memories.GetMemory)
		apiV1.POST("/memories/:id/photo", memories.UploadPhoto)

		apiV1.POST("/sessions", conversations.StartSession)
		apiV1.POST("/sessions/:id/reset", conversations.ResetSession)
		apiV1.POST("/sessions/:id/utterances", conversations.HandleUtterance)
		apiV1.DELETE("/sessions/:id", conversations.EndSession)
	}

	if cfg.UploadsDir != "" {
		router.Static(strings.TrimSuffix(services.UploadsURLPrefix, "/"), cfg.UploadsDir)
	}
	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
