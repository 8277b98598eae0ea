package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MiddlewareTestSuite struct {
	suite.Suite
	issuer *Issuer
	router *gin.Engine
}

func (s *MiddlewareTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.issuer = newTestIssuer()
	s.router = gin.New()

	authed := s.router.Group("/", RequireJWT(s.issuer))
	authed.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":  c.GetString(CtxUserIDKey),
			"username": c.GetString(CtxUsernameKey),
			"role":     c.GetString(CtxRoleKey),
		})
	})
	authed.GET("/admin", RequireRole("Admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

func (s *MiddlewareTestSuite) do(path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *MiddlewareTestSuite) token(role string) string {
	tok, _, err := s.issuer.Sign("u-42", "alice", role)
	require.NoError(s.T(), err)
	return tok
}

func (s *MiddlewareTestSuite) TestMissingHeader() {
	w := s.do("/me", "")
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)

	var body map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(s.T(), false, body["success"])
	assert.Nil(s.T(), body["data"])
	assert.Equal(s.T(), "missing bearer token", body["message"])
}

func (s *MiddlewareTestSuite) TestWrongScheme() {
	w := s.do("/me", "Basic "+s.token("User"))
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *MiddlewareTestSuite) TestInvalidToken() {
	w := s.do("/me", "Bearer nope")
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
	assert.Contains(s.T(), w.Body.String(), "invalid token")
}

func (s *MiddlewareTestSuite) TestValidTokenSetsContext() {
	w := s.do("/me", "Bearer "+s.token("User"))
	require.Equal(s.T(), http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(s.T(), "u-42", body["user_id"])
	assert.Equal(s.T(), "alice", body["username"])
	assert.Equal(s.T(), "User", body["role"])
}

func (s *MiddlewareTestSuite) TestSchemeIsCaseInsensitive() {
	w := s.do("/me", "bearer "+s.token("User"))
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *MiddlewareTestSuite) TestRequireRole() {
	w := s.do("/admin", "Bearer "+s.token("User"))
	assert.Equal(s.T(), http.StatusForbidden, w.Code)

	w = s.do("/admin", "Bearer "+s.token("Admin"))
	assert.Equal(s.T(), http.StatusNoContent, w.Code)
}

func TestMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareTestSuite))
}
