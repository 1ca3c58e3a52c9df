package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/forum/backend/internal/auth"
	"github.com/emilythestrangee/forum/backend/internal/config"
	"github.com/emilythestrangee/forum/backend/internal/database"
	"github.com/emilythestrangee/forum/backend/internal/handlers"
	"github.com/emilythestrangee/forum/backend/internal/logging"
	"github.com/emilythestrangee/forum/backend/internal/middleware"
	"github.com/emilythestrangee/forum/backend/internal/realtime"
)

type Server struct {
	cfg     config.Config
	db      database.Service
	tokens  *auth.Tokens
	hub     *realtime.Hub
	handler *handlers.Handler
	logger  *slog.Logger
}

// New wires the handlers around an open database.
func New(cfg config.Config, db database.Service, logger *slog.Logger) *Server {
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	hub := realtime.NewHub(logger, cfg.CORSOrigins)
	votes := database.NewVoteStore(db.GetDB(), cfg.VoteMaxRetries)

	return &Server{
		cfg:     cfg,
		db:      db,
		tokens:  tokens,
		hub:     hub,
		handler: handlers.NewHandler(db.GetDB(), tokens, votes, hub),
		logger:  logger,
	}
}

// HTTPServer builds the listening server.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         "0.0.0.0:" + s.cfg.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     logging.StdLogger(s.logger, slog.LevelWarn),
	}
}

// Hub exposes the realtime hub so shutdown can close live sessions.
func (s *Server) Hub() *realtime.Hub {
	return s.hub
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(s.logger))

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(s.cfg.CORSOrigins) == 1 && s.cfg.CORSOrigins[0] == "*" {
		// Credentials cannot be combined with a literal "*" origin.
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsConfig.AllowOrigins = s.cfg.CORSOrigins
	}
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		stats := s.db.Health(c.Request.Context())
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, stats)
	})

	optional := middleware.OptionalAuth(s.tokens)
	required := middleware.AuthMiddleware(s.tokens)

	// Realtime channel; identity from ?token= since browsers cannot set headers here
	r.GET("/ws", optional, s.handler.Realtime.Connect)

	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/register", s.handler.Auth.Register)
		api.POST("/login", s.handler.Auth.Login)

		// Public reads; a token only adds the caller's own votes
		api.GET("/posts", optional, s.handler.Post.GetPosts)
		api.GET("/posts/:id", optional, s.handler.Post.GetPost)
		api.GET("/posts/:id/comments", optional, s.handler.Comment.GetComments)
		api.GET("/users/:id", s.handler.User.GetUserProfile)

		// Votes from anonymous callers are dropped, not refused
		api.POST("/posts/:id/vote", optional, s.handler.Vote.VotePost)
		api.POST("/comments/:commentId/vote", optional, s.handler.Vote.VoteComment)

		protected := api.Group("")
		protected.Use(required)
		{
			protected.GET("/me", s.handler.Auth.GetMe)

			protected.POST("/posts", s.handler.Post.CreatePost)
			protected.PUT("/posts/:id", s.handler.Post.UpdatePost)
			protected.DELETE("/posts/:id", s.handler.Post.DeletePost)

			protected.POST("/posts/:id/comments", s.handler.Comment.CreateComment)
			protected.PUT("/comments/:commentId", s.handler.Comment.UpdateComment)
			protected.DELETE("/comments/:commentId", s.handler.Comment.DeleteComment)
		}
	}

	return r
}
