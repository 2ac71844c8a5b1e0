package handlers

import (
	"net/http"
	"time"

	"task-tracker/backend/internal/middleware"
	"task-tracker/backend/internal/monitoring"
	"task-tracker/backend/internal/security"
	"task-tracker/backend/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterConfig struct {
	AuthService   services.AuthService
	TaskService   services.TaskService
	TokenVerifier security.TokenVerifier
	HealthChecker *monitoring.HealthChecker
	Logger        *zap.Logger

	// AllowedOrigins lists the origins allowed by CORS; "*" allows any.
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	RegisterValidators()

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	checker := cfg.HealthChecker
	if checker == nil {
		checker = monitoring.NewHealthChecker()
	}

	router := gin.New()
	router.Use(middleware.RequestLogger(log.Named("http")))
	router.Use(middleware.RecoveryWithLog())
	router.Use(monitoring.MetricsMiddleware())
	router.Use(middleware.ErrorHandler())
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	router.GET("/health", monitoring.HealthHandler())
	router.GET("/health/live", monitoring.LivenessHandler(checker))
	router.GET("/health/ready", monitoring.ReadinessHandler(checker))
	router.GET("/metrics", monitoring.MetricsHandler())

	authHandler := NewAuthHandler(cfg.AuthService)
	taskHandler := NewTaskHandler(cfg.TaskService)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)

		tasks := api.Group("/tasks")
		tasks.Use(middleware.Authenticate(cfg.TokenVerifier, log))
		tasks.GET("/list", taskHandler.ListTasks)
		tasks.POST("/create", taskHandler.CreateTask)
		tasks.PUT("/update/:id", taskHandler.UpdateTask)
		tasks.DELETE("/delete/:id", taskHandler.DeleteTask)
	}

	router.NoRoute(func(c *gin.Context) {
		respondMessage(c, http.StatusNotFound, "Route not found")
	})

	return router
}

func corsConfig(origins []string) cors.Config {
	config := cors.DefaultConfig()
	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	config.ExposeHeaders = []string{middleware.RequestIDHeader}
	config.MaxAge = 12 * time.Hour
	return config
}
