package models

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

// users table
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null;size:50" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"not null;default:User" json:"role"`
	UsernameKey  string    `gorm:"uniqueIndex" json:"-"`
	EmailKey     string    `gorm:"uniqueIndex" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Books        []Book    `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

// books table
type Book struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"not null;size:100" json:"title"`
	Author      string     `gorm:"not null;size:50" json:"author"`
	Genre       string     `gorm:"not null;size:50" json:"genre"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Description string     `gorm:"size:1000" json:"description"`
	PageCount   int        `json:"page_count"`
	CoverImage  string     `json:"cover_image"`
	Notes       string     `gorm:"size:500" json:"notes"`
	IsReading   bool       `gorm:"not null;default:false" json:"is_reading"`
	UserID      string     `gorm:"index;not null;size:36" json:"user_id"`
	TitleKey    string     `json:"-"`
	AuthorKey   string     `json:"-"`
	GenreKey    string     `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Fold returns the form of s used for case-insensitive comparison. It uses
// full Unicode case folding, so it also works for non-ASCII text.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// RefreshKeys recomputes the folded lookup columns.
func (u *User) RefreshKeys() {
	u.UsernameKey = Fold(u.Username)
	u.EmailKey = Fold(u.Email)
}

func (u *User) BeforeSave(*gorm.DB) error {
	u.RefreshKeys()
	return nil
}

// RefreshKeys recomputes the folded search columns.
func (b *Book) RefreshKeys() {
	b.TitleKey = Fold(b.Title)
	b.AuthorKey = Fold(b.Author)
	b.GenreKey = Fold(b.Genre)
}

func (b *Book) BeforeSave(*gorm.DB) error {
	b.RefreshKeys()
	return nil
}

// UserDTO is the public projection of a user. It never carries the hash.
type UserDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func (u User) DTO() UserDTO {
	return UserDTO{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// BookInput is the payload accepted when creating or updating a book,
// and the element type of an import file.
type BookInput struct {
	Title       string     `json:"title" binding:"max=100"`
	Author      string     `json:"author" binding:"max=50"`
	Genre       string     `json:"genre" binding:"max=50"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Description string     `json:"description" binding:"max=1000"`
	PageCount   int        `json:"page_count" binding:"min=0"`
	CoverImage  string     `json:"cover_image"`
	Notes       string     `json:"notes" binding:"max=500"`
	IsReading   bool       `json:"is_reading"`
}

// Apply copies the mutable fields of in onto b.
func (in BookInput) Apply(b *Book) {
	b.Title = in.Title
	b.Author = in.Author
	b.Genre = in.Genre
	b.StartDate = in.StartDate
	b.EndDate = in.EndDate
	b.Description = in.Description
	b.PageCount = in.PageCount
	b.CoverImage = in.CoverImage
	b.Notes = in.Notes
	b.IsReading = in.IsReading
}

// Response is the envelope every endpoint returns.
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data"`
	Message string `json:"message"`
}

func OK[T any](data T, message string) Response[T] {
	return Response[T]{Success: true, Data: &data, Message: message}
}

func Fail[T any](message string) Response[T] {
	return Response[T]{Success: false, Message: message}
}
