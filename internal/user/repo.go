package user

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"booktracker/pkg/models"
)

// Store is the persistence contract the credential service needs. Lookups
// return (nil, nil) when no user matches. Username and email comparisons use
// the folded key columns, so they are case-insensitive for any script.
type Store interface {
	FindByUsernameOrEmail(ctx context.Context, login string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	// ExistsOther reports whether a user other than exceptID already uses
	// username or email, as either its username or its email.
	ExistsOther(ctx context.Context, username, email, exceptID string) (bool, error)
	Insert(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	// Delete removes the user and every book the user owns.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.User, error)
	// Transaction runs fn against a Store bound to one transaction and
	// commits when fn returns nil.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

var _ Store = (*Repo)(nil)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) first(ctx context.Context, query string, args ...any) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where(query, args...).Order("created_at").First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) FindByUsernameOrEmail(ctx context.Context, login string) (*models.User, error) {
	key := models.Fold(login)
	return r.first(ctx, "username_key = ? OR email_key = ?", key, key)
}

func (r *Repo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username_key = ?", models.Fold(username))
}

func (r *Repo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

// ExistsOther checks both values against usernames and emails alike, so no
// login string can ever match two accounts.
func (r *Repo) ExistsOther(ctx context.Context, username, email, exceptID string) (bool, error) {
	keys := []string{models.Fold(username), models.Fold(email)}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("(username_key IN ? OR email_key IN ?) AND id <> ?", keys, keys, exceptID).
		Count(&count).Error
	return count > 0, err
}

func (r *Repo) Insert(ctx context.Context, u *models.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *Repo) Update(ctx context.Context, u *models.User) error {
	u.RefreshKeys()
	return r.db.WithContext(ctx).Save(u).Error
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Book{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.User{}).Error
	})
}

func (r *Repo) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("created_at").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *Repo) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repo{db: tx})
	})
}
