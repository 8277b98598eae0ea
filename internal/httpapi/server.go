// Package httpapi exposes the credential and catalog services over HTTP.
package httpapi

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"booktracker/internal/auth"
	"booktracker/internal/book"
	"booktracker/internal/user"
	"booktracker/pkg/models"
)

type Server struct {
	engine *gin.Engine
	users  *user.Service
	books  *book.Service
	issuer *auth.Issuer
}

func New(users *user.Service, books *book.Service, issuer *auth.Issuer) *Server {
	s := &Server{
		engine: gin.New(),
		users:  users,
		books:  books,
		issuer: issuer,
	}
	s.engine.Use(requestLogger(), gin.CustomRecovery(recoverPanic), gzip.Gzip(gzip.DefaultCompression))
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.Fail[any]("route not found"))
	})
	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.OK("ok", ""))
	})

	api := s.engine.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.handleRegister)
	authGroup.POST("/login", s.handleLogin)
	authGroup.POST("/login-admin", s.handleLoginAdmin)

	authed := authGroup.Group("/", auth.RequireJWT(s.issuer))
	authed.POST("/change-password", s.handleChangePassword)
	authed.PUT("/profile", s.handleUpdateProfile)

	users := authGroup.Group("/users", auth.RequireJWT(s.issuer), auth.RequireRole(models.RoleAdmin))
	users.GET("", s.handleListUsers)
	users.DELETE("/:username", s.handleDeleteUser)

	books := api.Group("/books", auth.RequireJWT(s.issuer))
	books.GET("", s.handleListBooks)
	books.POST("", s.handleAddBook)
	books.GET("/reading", s.handleReadingBooks)
	books.GET("/by-title", s.handleSearch(book.FieldTitle))
	books.GET("/by-genre", s.handleSearch(book.FieldGenre))
	books.GET("/by-author", s.handleSearch(book.FieldAuthor))
	books.GET("/:id", s.handleGetBook)
	books.PUT("/:id", s.handleUpdateBook)
	books.DELETE("/:id", s.handleDeleteBook)

	admin := api.Group("/admin", auth.RequireJWT(s.issuer), auth.RequireRole(models.RoleAdmin))
	admin.GET("/books", s.handleListAllBooks)
}
