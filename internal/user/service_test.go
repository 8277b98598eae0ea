package user

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"booktracker/internal/apperr"
	"booktracker/internal/auth"
	"booktracker/internal/testutil"
	"booktracker/pkg/models"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *auth.Issuer) {
	t.Helper()
	db := testutil.OpenInMemoryDB(t)
	issuer := testutil.NewIssuer()
	return NewService(NewRepo(db), issuer, WithHashCost(bcrypt.MinCost)), db, issuer
}

func register(t *testing.T, s *Service, username, email, password, role string) models.UserDTO {
	t.Helper()
	u, err := s.Register(context.Background(), RegisterInput{
		Username: username, Email: email, Password: password, Role: role,
	})
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	s, db, _ := newTestService(t)

	u := register(t, s, "alice", "alice@example.com", "s3cret", "")
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, models.RoleUser, u.Role)

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "s3cret")
	assert.NotContains(t, string(raw), "$2a$")

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", u.ID).Error)
	assert.NotEqual(t, "s3cret", stored.PasswordHash)
	assert.True(t, checkPassword(stored.PasswordHash, "s3cret"))
	assert.False(t, checkPassword(stored.PasswordHash, "S3cret"))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	register(t, s, "alice", "alice@example.com", "pw", "")

	_, err := s.Register(ctx, RegisterInput{Username: "ALICE", Email: "other@example.com", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = s.Register(ctx, RegisterInput{Username: "bob", Email: "Alice@Example.com", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRegisterValidation(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"missing username", RegisterInput{Email: "a@example.com", Password: "pw"}},
		{"blank username", RegisterInput{Username: "  ", Email: "a@example.com", Password: "pw"}},
		{"missing email", RegisterInput{Username: "a", Password: "pw"}},
		{"missing password", RegisterInput{Username: "a", Email: "a@example.com"}},
		{"unknown role", RegisterInput{Username: "a", Email: "a@example.com", Password: "pw", Role: "Owner"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(ctx, tt.in)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestRegisterNormalizesRole(t *testing.T) {
	s, _, _ := newTestService(t)

	assert.Equal(t, models.RoleAdmin, register(t, s, "root", "root@example.com", "pw", "admin").Role)
	assert.Equal(t, models.RoleUser, register(t, s, "bob", "bob@example.com", "pw", "USER").Role)
}

func TestLogin(t *testing.T) {
	s, _, issuer := newTestService(t)
	ctx := context.Background()
	u := register(t, s, "alice", "alice@example.com", "s3cret", "")

	for _, login := range []string{"alice", "Alice", "ALICE@example.com"} {
		tok, err := s.Login(ctx, login, "s3cret")
		require.NoError(t, err, login)

		claims, err := issuer.Parse(tok.Token)
		require.NoError(t, err)
		assert.Equal(t, u.ID, claims.UserID)
		assert.Equal(t, "alice", claims.Subject)
		assert.Equal(t, models.RoleUser, claims.Role)
		assert.True(t, tok.ExpiresAt.After(claims.IssuedAt.Time))
	}
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	register(t, s, "alice", "alice@example.com", "s3cret", "")

	_, wrongPassword := s.Login(ctx, "alice", "nope")
	_, unknownUser := s.Login(ctx, "mallory", "nope")

	assert.ErrorIs(t, wrongPassword, apperr.ErrAuth)
	assert.ErrorIs(t, unknownUser, apperr.ErrAuth)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())

	_, err := s.Login(ctx, "", "pw")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = s.Login(ctx, "alice", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLoginAdmin(t *testing.T) {
	s, _, issuer := newTestService(t)
	ctx := context.Background()
	register(t, s, "alice", "alice@example.com", "pw", "")
	register(t, s, "root", "root@example.com", "pw", models.RoleAdmin)

	_, err := s.LoginAdmin(ctx, "alice", "pw")
	assert.ErrorIs(t, err, apperr.ErrAuth)
	_, unknown := s.LoginAdmin(ctx, "nobody", "pw")
	assert.Equal(t, err.Error(), unknown.Error())

	tok, err := s.LoginAdmin(ctx, "root", "pw")
	require.NoError(t, err)
	claims, err := issuer.Parse(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestChangePassword(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	register(t, s, "alice", "alice@example.com", "old", "")

	assert.ErrorIs(t, s.ChangePassword(ctx, "alice", "wrong", "new"), apperr.ErrAuth)
	assert.ErrorIs(t, s.ChangePassword(ctx, "ghost", "old", "new"), apperr.ErrNotFound)
	assert.ErrorIs(t, s.ChangePassword(ctx, "alice", "old", ""), apperr.ErrValidation)

	require.NoError(t, s.ChangePassword(ctx, "alice", "old", "new"))

	_, err := s.Login(ctx, "alice", "old")
	assert.ErrorIs(t, err, apperr.ErrAuth)
	_, err = s.Login(ctx, "alice", "new")
	assert.NoError(t, err)
}

func TestDeleteUserRemovesBooks(t *testing.T) {
	s, db, _ := newTestService(t)
	ctx := context.Background()
	alice := register(t, s, "alice", "alice@example.com", "pw", "")
	bob := register(t, s, "bob", "bob@example.com", "pw", "")

	require.NoError(t, db.Create(&[]models.Book{
		{Title: "Dune", Author: "Frank Herbert", Genre: "SciFi", UserID: alice.ID},
		{Title: "Emma", Author: "Jane Austen", Genre: "Classic", UserID: alice.ID},
		{Title: "Ubik", Author: "Philip K. Dick", Genre: "SciFi", UserID: bob.ID},
	}).Error)

	require.NoError(t, s.DeleteUser(ctx, "Alice"))

	var left []models.Book
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, bob.ID, left[0].UserID)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", alice.ID).Count(&count).Error)
	assert.Zero(t, count)

	assert.ErrorIs(t, s.DeleteUser(ctx, "alice"), apperr.ErrNotFound)
}

func TestDeleteUserRefusesAdmins(t *testing.T) {
	s, _, _ := newTestService(t)
	register(t, s, "root", "root@example.com", "pw", models.RoleAdmin)

	err := s.DeleteUser(context.Background(), "root")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestUpdateProfile(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	alice := register(t, s, "alice", "alice@example.com", "pw", "")
	register(t, s, "bob", "bob@example.com", "pw", "")

	// keeping one's own email is not a conflict
	u, err := s.UpdateProfile(ctx, "alicia", "alice@example.com", "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)
	assert.Equal(t, "alicia", u.Username)

	_, err = s.UpdateProfile(ctx, "BOB", "new@example.com", "alicia")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = s.UpdateProfile(ctx, "alicia", "Bob@example.com", "alicia")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = s.UpdateProfile(ctx, "x", "x@example.com", "alice")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = s.UpdateProfile(ctx, "", "x@example.com", "alicia")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.Login(ctx, "alicia", "pw")
	assert.NoError(t, err)
}

func TestListUsers(t *testing.T) {
	s, _, _ := newTestService(t)
	register(t, s, "alice", "alice@example.com", "pw", "")
	register(t, s, "root", "root@example.com", "pw", "Admin")

	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.ElementsMatch(t, []string{"alice", "root"}, []string{users[0].Username, users[1].Username})
}

func TestRegisterRejectsCaseVariantsInAnyScript(t *testing.T) {
	tests := []struct {
		name   string
		first  RegisterInput
		second RegisterInput
	}{
		{
			"turkish username",
			RegisterInput{Username: "Ölaf", Email: "olaf1@example.com", Password: "pw"},
			RegisterInput{Username: "ölaf", Email: "olaf2@example.com", Password: "pw"},
		},
		{
			"turkish username upper",
			RegisterInput{Username: "çağla", Email: "cagla1@example.com", Password: "pw"},
			RegisterInput{Username: "ÇAĞLA", Email: "cagla2@example.com", Password: "pw"},
		},
		{
			"greek username",
			RegisterInput{Username: "Σοφία", Email: "sofia1@example.com", Password: "pw"},
			RegisterInput{Username: "σοφία", Email: "sofia2@example.com", Password: "pw"},
		},
		{
			"non-ascii email",
			RegisterInput{Username: "ozge1", Email: "ÖZGE@example.com", Password: "pw"},
			RegisterInput{Username: "ozge2", Email: "özge@EXAMPLE.com", Password: "pw"},
		},
		{
			"username taken as email",
			RegisterInput{Username: "bob", Email: "bob@example.com", Password: "pw"},
			RegisterInput{Username: "BOB@example.com", Email: "other@example.com", Password: "pw"},
		},
		{
			"email taken as username",
			RegisterInput{Username: "carol@example.com", Email: "carol1@example.com", Password: "pw"},
			RegisterInput{Username: "carol", Email: "Carol@Example.com", Password: "pw"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestService(t)
			ctx := context.Background()

			_, err := s.Register(ctx, tt.first)
			require.NoError(t, err)
			_, err = s.Register(ctx, tt.second)
			assert.ErrorIs(t, err, apperr.ErrConflict)

			users, err := s.ListUsers(ctx)
			require.NoError(t, err)
			assert.Len(t, users, 1)
		})
	}
}

func TestLoginFoldsNonASCII(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	register(t, s, "Ölaf", "ÖLAF@example.com", "pw", "")

	for _, login := range []string{"ölaf", "ÖLAF", "ölaf@example.com"} {
		_, err := s.Login(ctx, login, "pw")
		assert.NoError(t, err, login)
	}
	require.NoError(t, s.ChangePassword(ctx, "ölaf", "pw", "pw2"))
	require.NoError(t, s.DeleteUser(ctx, "ÖLAF"))

	_, err := s.Login(ctx, "Ölaf", "pw2")
	assert.ErrorIs(t, err, apperr.ErrAuth)
}

func TestUpdateProfileRejectsCrossFieldCollisions(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	register(t, s, "alice", "alice@example.com", "pw", "")
	register(t, s, "Ölaf", "olaf@example.com", "pw", "")

	_, err := s.UpdateProfile(ctx, "ÖLAF", "new@example.com", "alice")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = s.UpdateProfile(ctx, "OLAF@example.com", "new@example.com", "alice")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = s.UpdateProfile(ctx, "alice2", "ölaf", "alice")
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

// racyStore reports every name as free, like a concurrent request that
// passed the existence check first.
type racyStore struct {
	Store
}

func (racyStore) ExistsOther(context.Context, string, string, string) (bool, error) {
	return false, nil
}

func (r racyStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return r.Store.Transaction(ctx, func(tx Store) error {
		return fn(racyStore{Store: tx})
	})
}

func TestRegisterMapsUniqueIndexToConflict(t *testing.T) {
	db := testutil.OpenInMemoryDB(t)
	s := NewService(racyStore{Store: NewRepo(db)}, testutil.NewIssuer(), WithHashCost(bcrypt.MinCost))
	ctx := context.Background()

	_, err := s.Register(ctx, RegisterInput{Username: "Ölaf", Email: "olaf1@example.com", Password: "pw"})
	require.NoError(t, err)
	_, err = s.Register(ctx, RegisterInput{Username: "ölaf", Email: "olaf2@example.com", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
