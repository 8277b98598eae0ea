package book

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"booktracker/internal/apperr"
	"booktracker/pkg/models"
)

// Field is a searchable book column.
type Field string

const (
	FieldTitle  Field = "title"
	FieldGenre  Field = "genre"
	FieldAuthor Field = "author"
)

// Filter narrows List. Both fields are optional substrings.
type Filter struct {
	Genre  string
	Author string
}

// SearchResult is the outcome of a search. Message describes an empty result.
type SearchResult struct {
	Books   []models.Book
	Message string
}

// Service manages each user's books. Owner ids always come from the
// authenticated caller.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func validate(in models.BookInput) error {
	var missing []string
	if strings.TrimSpace(in.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(in.Author) == "" {
		missing = append(missing, "author")
	}
	if strings.TrimSpace(in.Genre) == "" {
		missing = append(missing, "genre")
	}
	if len(missing) > 0 {
		return apperr.Validation("%s required", strings.Join(missing, ", "))
	}

	limits := []struct {
		name  string
		value string
		max   int
	}{
		{"title", in.Title, 100},
		{"author", in.Author, 50},
		{"genre", in.Genre, 50},
		{"description", in.Description, 1000},
		{"notes", in.Notes, 500},
	}
	for _, l := range limits {
		if utf8.RuneCountInString(l.value) > l.max {
			return apperr.Validation("%s must be at most %d characters", l.name, l.max)
		}
	}
	if in.PageCount < 0 {
		return apperr.Validation("page_count must not be negative")
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return apperr.Validation("end_date must not be before start_date")
	}
	return nil
}

func (s *Service) List(ctx context.Context, ownerID string, f Filter) ([]models.Book, error) {
	books, err := s.store.Query(ctx, ownerID, Query{Genre: f.Genre, Author: f.Author})
	if err != nil {
		return nil, apperr.Storage("list books", err)
	}
	return books, nil
}

func (s *Service) Get(ctx context.Context, id uint, ownerID string) (models.Book, error) {
	b, err := s.store.FindByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return models.Book{}, apperr.Storage("find book", err)
	}
	if b == nil {
		return models.Book{}, apperr.NotFound("book %d not found", id)
	}
	return *b, nil
}

func (s *Service) Add(ctx context.Context, in models.BookInput, ownerID string) (models.Book, error) {
	if err := validate(in); err != nil {
		return models.Book{}, err
	}

	b := models.Book{UserID: ownerID}
	in.Apply(&b)
	if err := s.store.Insert(ctx, &b); err != nil {
		return models.Book{}, apperr.Storage("insert book", err)
	}

	log.Info("book added", "id", b.ID, "owner", ownerID, "title", b.Title)
	return b, nil
}

func (s *Service) Update(ctx context.Context, id uint, in models.BookInput, ownerID string) (models.Book, error) {
	b, err := s.store.FindByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return models.Book{}, apperr.Storage("find book", err)
	}
	if b == nil {
		return models.Book{}, apperr.NotFound("book %d not found", id)
	}
	if err := validate(in); err != nil {
		return models.Book{}, err
	}

	in.Apply(b)
	if err := s.store.Update(ctx, b); err != nil {
		return models.Book{}, apperr.Storage("update book", err)
	}

	log.Info("book updated", "id", b.ID, "owner", ownerID)
	return *b, nil
}

func (s *Service) Delete(ctx context.Context, id uint, ownerID string) error {
	deleted, err := s.store.Delete(ctx, id, ownerID)
	if err != nil {
		return apperr.Storage("delete book", err)
	}
	if !deleted {
		return apperr.NotFound("book %d not found", id)
	}

	log.Info("book deleted", "id", id, "owner", ownerID)
	return nil
}

// Search matches term as a case-insensitive substring of field.
func (s *Service) Search(ctx context.Context, ownerID string, field Field, term string) (SearchResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return SearchResult{}, apperr.Validation("search term is required")
	}

	var q Query
	switch field {
	case FieldTitle:
		q.Title = term
	case FieldGenre:
		q.Genre = term
	case FieldAuthor:
		q.Author = term
	default:
		return SearchResult{}, apperr.Validation("cannot search by %q", field)
	}

	books, err := s.store.Query(ctx, ownerID, q)
	if err != nil {
		return SearchResult{}, apperr.Storage("search books", err)
	}
	if len(books) == 0 {
		return SearchResult{Books: books, Message: fmt.Sprintf("no books found with %s matching %q", field, term)}, nil
	}
	return SearchResult{Books: books, Message: fmt.Sprintf("%d book(s) found", len(books))}, nil
}

// Reading returns the owner's books marked as currently being read,
// optionally narrowed by title.
func (s *Service) Reading(ctx context.Context, ownerID, title string) ([]models.Book, error) {
	books, err := s.store.Query(ctx, ownerID, Query{Title: strings.TrimSpace(title), ReadingOnly: true})
	if err != nil {
		return nil, apperr.Storage("list reading books", err)
	}
	return books, nil
}

// ListAll returns every user's books. Callers must restrict it to admins.
func (s *Service) ListAll(ctx context.Context) ([]models.Book, error) {
	books, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, apperr.Storage("list all books", err)
	}
	return books, nil
}

// Import validates every entry and then inserts all of them for ownerID in
// one transaction. Nothing is stored if any entry is invalid or an insert
// fails.
func (s *Service) Import(ctx context.Context, ownerID string, inputs []models.BookInput) ([]models.Book, error) {
	if len(inputs) == 0 {
		return nil, apperr.Validation("nothing to import")
	}
	for i, in := range inputs {
		if err := validate(in); err != nil {
			return nil, apperr.Validation("entry %d: %s", i+1, apperr.Message(err))
		}
	}

	books := lo.Map(inputs, func(in models.BookInput, _ int) models.Book {
		b := models.Book{UserID: ownerID}
		in.Apply(&b)
		return b
	})
	err := s.store.Transaction(ctx, func(tx Store) error {
		for i := range books {
			if err := tx.Insert(ctx, &books[i]); err != nil {
				return apperr.Storage(fmt.Sprintf("insert book %q", books[i].Title), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("books imported", "owner", ownerID, "count", len(books))
	return books, nil
}
