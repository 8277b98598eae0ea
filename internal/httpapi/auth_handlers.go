package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"booktracker/internal/auth"
	"booktracker/internal/user"
)

type registerRequest struct {
	Username string `json:"username" binding:"max=50"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	UsernameOrEmail string `json:"username_or_email"`
	Password        string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type updateProfileRequest struct {
	Username string `json:"username" binding:"max=50"`
	Email    string `json:"email"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	u, err := s.users.Register(c.Request.Context(), user.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, u, "user registered")
}

func (s *Server) handleLogin(c *gin.Context) {
	s.login(c, s.users.Login)
}

func (s *Server) handleLoginAdmin(c *gin.Context) {
	s.login(c, s.users.LoginAdmin)
}

func (s *Server) login(c *gin.Context, fn func(ctx context.Context, login, password string) (user.Token, error)) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tok, err := fn(c.Request.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, tok, "login successful")
}

// handleChangePassword changes the password of the token's subject.
func (s *Server) handleChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	err := s.users.ChangePassword(c.Request.Context(), c.GetString(auth.CtxUsernameKey), req.CurrentPassword, req.NewPassword)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, true, "password changed")
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	u, err := s.users.UpdateProfile(c.Request.Context(), req.Username, req.Email, c.GetString(auth.CtxUsernameKey))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, u, "profile updated; log in again to refresh your token")
}

func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.users.ListUsers(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, users, "")
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	if err := s.users.DeleteUser(c.Request.Context(), c.Param("username")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, true, "user deleted")
}
