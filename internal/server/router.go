// Package server wires the HTTP router for the API service.
package server

import (
	"log/slog"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"yaothink/internal/auth"
	"yaothink/internal/config"
	"yaothink/internal/user"
)

// Deps carries the handlers and middleware inputs the router needs.
type Deps struct {
	Auth   *auth.Handler
	User   *user.Handler
	Tokens *auth.TokenIssuer
	Log    *slog.Logger
}

// NewRouter configures the gin engine with all routes and middleware.
func NewRouter(deps Deps) *gin.Engine {
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(deps.Log))
	r.Use(cors.New(corsConfig()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy", "service": "yaothink-api"})
	})

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/send-code", deps.Auth.SendCode)
		authGroup.POST("/login/phone-sms", deps.Auth.LoginPhoneSMS)
		authGroup.POST("/login/phone-password", deps.Auth.LoginPhonePassword)
		authGroup.POST("/login/email-password", deps.Auth.LoginEmailPassword)
		authGroup.POST("/register/phone", deps.Auth.RegisterPhone)
		authGroup.POST("/register/email", deps.Auth.RegisterEmail)
		authGroup.POST("/set-password", deps.Auth.SetPassword)
		authGroup.GET("/me", auth.RequireAuth(deps.Tokens), deps.Auth.Me)
	}

	userGroup := api.Group("/user")
	userGroup.Use(auth.RequireAuth(deps.Tokens))
	{
		userGroup.GET("/profile", deps.User.GetProfile)
		userGroup.PUT("/profile", deps.User.UpdateProfile)
		userGroup.POST("/avatar/upload-url", deps.User.AvatarUploadURL)
		userGroup.GET("/stats", deps.User.Stats)
		userGroup.POST("/history", deps.User.SaveHistory)
		userGroup.GET("/history/:kind", deps.User.ListHistory)
		userGroup.DELETE("/history/:kind/:id", deps.User.DeleteHistory)
	}

	return r
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	origins := config.GetEnvOrDefault("CORS_ORIGINS", "http://localhost:5173")
	cfg.AllowOrigins = strings.Split(origins, ",")
	cfg.AllowCredentials = true
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	return cfg
}
