package user

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/crypto/bcrypt"

	"booktracker/internal/apperr"
	"booktracker/internal/auth"
	"booktracker/pkg/database"
	"booktracker/pkg/models"
)

const (
	msgBadLogin      = "username/email or password is incorrect"
	msgBadAdminLogin = "admin username/email or password is incorrect"
)

// RegisterInput is what a new account is created from. An empty Role means User.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// Token is a signed session token and its expiry.
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service implements account registration, login and administration.
type Service struct {
	store    Store
	issuer   *auth.Issuer
	hashCost int
}

type Option func(*Service)

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

func NewService(store Store, issuer *auth.Issuer, opts ...Option) *Service {
	s := &Service{store: store, issuer: issuer, hashCost: bcrypt.DefaultCost}
	for _, o := range opts {
		o(s)
	}
	return s
}

func normalizeRole(role string) (string, bool) {
	switch {
	case role == "":
		return models.RoleUser, true
	case strings.EqualFold(role, models.RoleUser):
		return models.RoleUser, true
	case strings.EqualFold(role, models.RoleAdmin):
		return models.RoleAdmin, true
	}
	return "", false
}

// storeUser wraps a write error. A unique index hit means another request
// took the name or email after the existence check.
func storeUser(op string, err error) error {
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("username or email already exists")
	}
	return apperr.Storage(op, err)
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (models.UserDTO, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return models.UserDTO{}, apperr.Validation("username, email and password are required")
	}

	var created models.User
	err := s.store.Transaction(ctx, func(tx Store) error {
		taken, err := tx.ExistsOther(ctx, username, email, "")
		if err != nil {
			return apperr.Storage("check existing user", err)
		}
		if taken {
			return apperr.Conflict("username or email already exists")
		}

		role, ok := normalizeRole(strings.TrimSpace(in.Role))
		if !ok {
			return apperr.Validation("invalid role %q: must be Admin or User", in.Role)
		}

		hash, err := hashPassword(in.Password, s.hashCost)
		if err != nil {
			return err
		}

		created = models.User{
			ID:           uuid.NewString(),
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			Role:         role,
		}
		return storeUser("insert user", tx.Insert(ctx, &created))
	})
	if err != nil {
		return models.UserDTO{}, err
	}

	log.Info("user registered", "username", created.Username, "id", created.ID, "role", created.Role)
	return created.DTO(), nil
}

func (s *Service) Login(ctx context.Context, login, password string) (Token, error) {
	return s.login(ctx, login, password, false)
}

// LoginAdmin is Login restricted to accounts with the Admin role.
func (s *Service) LoginAdmin(ctx context.Context, login, password string) (Token, error) {
	return s.login(ctx, login, password, true)
}

func (s *Service) login(ctx context.Context, login, password string, adminOnly bool) (Token, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return Token{}, apperr.Validation("username/email and password are required")
	}
	failure := msgBadLogin
	if adminOnly {
		failure = msgBadAdminLogin
	}

	u, err := s.store.FindByUsernameOrEmail(ctx, login)
	if err != nil {
		return Token{}, apperr.Storage("find user", err)
	}
	if u == nil {
		checkPassword(dummyHash(), password)
		return Token{}, apperr.Auth("%s", failure)
	}
	if !checkPassword(u.PasswordHash, password) {
		log.Warn("failed login", "username", u.Username)
		return Token{}, apperr.Auth("%s", failure)
	}
	if adminOnly && u.Role != models.RoleAdmin {
		log.Warn("non-admin attempted admin login", "username", u.Username)
		return Token{}, apperr.Auth("%s", failure)
	}

	signed, exp, err := s.issuer.Sign(u.ID, u.Username, u.Role)
	if err != nil {
		return Token{}, err
	}
	log.Info("user logged in", "username", u.Username, "role", u.Role)
	return Token{Token: signed, ExpiresAt: exp}, nil
}

func (s *Service) ChangePassword(ctx context.Context, username, current, next string) error {
	if strings.TrimSpace(username) == "" || current == "" || next == "" {
		return apperr.Validation("username, current password and new password are required")
	}

	u, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return apperr.Storage("find user", err)
	}
	if u == nil {
		return apperr.NotFound("user %q not found", username)
	}
	if !checkPassword(u.PasswordHash, current) {
		return apperr.Auth("current password is incorrect")
	}

	hash, err := hashPassword(next, s.hashCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	if err := s.store.Update(ctx, u); err != nil {
		return apperr.Storage("update user", err)
	}

	log.Info("password changed", "username", u.Username)
	return nil
}

// DeleteUser removes a non-admin account together with all of its books.
func (s *Service) DeleteUser(ctx context.Context, username string) error {
	u, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return apperr.Storage("find user", err)
	}
	if u == nil {
		return apperr.NotFound("user %q not found", username)
	}
	if u.Role == models.RoleAdmin {
		return apperr.Forbidden("admin accounts cannot be deleted")
	}

	if err := s.store.Delete(ctx, u.ID); err != nil {
		return apperr.Storage("delete user", err)
	}

	log.Info("user deleted", "username", u.Username, "id", u.ID)
	return nil
}

// UpdateProfile renames the account currentUsername. Tokens issued before the
// change still carry the old username and should be replaced by logging in
// again.
func (s *Service) UpdateProfile(ctx context.Context, newUsername, newEmail, currentUsername string) (models.UserDTO, error) {
	newUsername = strings.TrimSpace(newUsername)
	newEmail = strings.TrimSpace(newEmail)
	if newUsername == "" || newEmail == "" || strings.TrimSpace(currentUsername) == "" {
		return models.UserDTO{}, apperr.Validation("username and email are required")
	}

	var updated models.User
	err := s.store.Transaction(ctx, func(tx Store) error {
		u, err := tx.FindByUsername(ctx, currentUsername)
		if err != nil {
			return apperr.Storage("find user", err)
		}
		if u == nil {
			return apperr.NotFound("user %q not found", currentUsername)
		}

		taken, err := tx.ExistsOther(ctx, newUsername, newEmail, u.ID)
		if err != nil {
			return apperr.Storage("check existing user", err)
		}
		if taken {
			return apperr.Conflict("username or email already exists")
		}

		u.Username = newUsername
		u.Email = newEmail
		if err := storeUser("update user", tx.Update(ctx, u)); err != nil {
			return err
		}
		updated = *u
		return nil
	})
	if err != nil {
		return models.UserDTO{}, err
	}

	log.Info("profile updated", "id", updated.ID, "username", updated.Username)
	return updated.DTO(), nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.UserDTO, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, apperr.Storage("list users", err)
	}
	return lo.Map(users, func(u models.User, _ int) models.UserDTO {
		return u.DTO()
	}), nil
}
