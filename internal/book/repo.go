package book

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"booktracker/pkg/models"
)

// Query narrows an owner's books. Text fields match case-insensitive
// substrings; empty fields are ignored.
type Query struct {
	Title       string
	Genre       string
	Author      string
	ReadingOnly bool
}

// Store is the persistence contract of the catalog. Every method except
// ListAll is scoped to one owner.
type Store interface {
	Query(ctx context.Context, ownerID string, q Query) ([]models.Book, error)
	// FindByIDAndOwner returns (nil, nil) when the book is absent or owned
	// by someone else.
	FindByIDAndOwner(ctx context.Context, id uint, ownerID string) (*models.Book, error)
	Insert(ctx context.Context, b *models.Book) error
	Update(ctx context.Context, b *models.Book) error
	// Delete reports whether a book was removed.
	Delete(ctx context.Context, id uint, ownerID string) (bool, error)
	ListAll(ctx context.Context) ([]models.Book, error)
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

var _ Store = (*Repo)(nil)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// owned is the base of every scoped query.
func (r *Repo) owned(ctx context.Context, ownerID string) *gorm.DB {
	return r.db.WithContext(ctx).Where("user_id = ?", ownerID)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// contains builds a LIKE pattern over the folded columns of models.Book.
func contains(term string) string {
	return "%" + likeEscaper.Replace(models.Fold(term)) + "%"
}

func (r *Repo) Query(ctx context.Context, ownerID string, q Query) ([]models.Book, error) {
	tx := r.owned(ctx, ownerID)
	for column, term := range map[string]string{"title_key": q.Title, "genre_key": q.Genre, "author_key": q.Author} {
		if term != "" {
			tx = tx.Where(column+` LIKE ? ESCAPE '\'`, contains(term))
		}
	}
	if q.ReadingOnly {
		tx = tx.Where("is_reading = ?", true)
	}

	var books []models.Book
	if err := tx.Order("id").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *Repo) FindByIDAndOwner(ctx context.Context, id uint, ownerID string) (*models.Book, error) {
	var b models.Book
	err := r.owned(ctx, ownerID).Where("id = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repo) Insert(ctx context.Context, b *models.Book) error {
	return r.db.WithContext(ctx).Create(b).Error
}

// Update writes every mutable column of b, zero values included, scoped to
// b's owner.
func (r *Repo) Update(ctx context.Context, b *models.Book) error {
	b.RefreshKeys()
	return r.owned(ctx, b.UserID).Model(b).
		Select("*").Omit("id", "user_id", "created_at").
		Updates(b).Error
}

func (r *Repo) Delete(ctx context.Context, id uint, ownerID string) (bool, error) {
	res := r.owned(ctx, ownerID).Where("id = ?", id).Delete(&models.Book{})
	return res.RowsAffected > 0, res.Error
}

func (r *Repo) ListAll(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	if err := r.db.WithContext(ctx).Order("id").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *Repo) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repo{db: tx})
	})
}
