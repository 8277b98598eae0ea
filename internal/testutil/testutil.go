package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"booktracker/internal/auth"
	"booktracker/pkg/database"
)

// Secret is the signing key used by NewIssuer.
const Secret = "test-secret-test-secret-test-secret"

// OpenInMemoryDB opens a migrated in-memory SQLite database through the pure
// Go driver. Every call gets its own database. It is closed via t.Cleanup.
func OpenInMemoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(database.DriverPure, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// NewIssuer returns a token issuer with test settings.
func NewIssuer() *auth.Issuer {
	return auth.NewIssuer([]byte(Secret), "booktracker-test", "booktracker-test", time.Hour)
}

// Bearer signs a token for the given user and returns it as an
// Authorization header value.
func Bearer(t *testing.T, issuer *auth.Issuer, userID, username, role string) string {
	t.Helper()
	token, _, err := issuer.Sign(userID, username, role)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}
