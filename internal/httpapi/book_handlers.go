package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"booktracker/internal/apperr"
	"booktracker/internal/auth"
	"booktracker/internal/book"
	"booktracker/pkg/models"
)

// ownerID is the uid claim of the caller. Book routes never take an owner
// from the request.
func ownerID(c *gin.Context) string {
	return c.GetString(auth.CtxUserIDKey)
}

func bookID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		fail(c, apperr.Validation("invalid book id %q", c.Param("id")))
		return 0, false
	}
	return uint(id), true
}

// listed keeps empty lists as [] in the envelope.
func listed(books []models.Book) []models.Book {
	if books == nil {
		return []models.Book{}
	}
	return books
}

func (s *Server) handleListBooks(c *gin.Context) {
	books, err := s.books.List(c.Request.Context(), ownerID(c), book.Filter{
		Genre:  c.Query("genre"),
		Author: c.Query("author"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, listed(books), "")
}

func (s *Server) handleReadingBooks(c *gin.Context) {
	books, err := s.books.Reading(c.Request.Context(), ownerID(c), c.Query("title"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, listed(books), "")
}

func (s *Server) handleSearch(field book.Field) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := s.books.Search(c.Request.Context(), ownerID(c), field, c.Query("q"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, http.StatusOK, listed(res.Books), res.Message)
	}
}

func (s *Server) handleGetBook(c *gin.Context) {
	id, valid := bookID(c)
	if !valid {
		return
	}
	b, err := s.books.Get(c.Request.Context(), id, ownerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, b, "")
}

func (s *Server) handleAddBook(c *gin.Context) {
	var in models.BookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	b, err := s.books.Add(c.Request.Context(), in, ownerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, b, "book added")
}

func (s *Server) handleUpdateBook(c *gin.Context) {
	id, valid := bookID(c)
	if !valid {
		return
	}
	var in models.BookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	b, err := s.books.Update(c.Request.Context(), id, in, ownerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, b, "book updated")
}

func (s *Server) handleDeleteBook(c *gin.Context) {
	id, valid := bookID(c)
	if !valid {
		return
	}
	if err := s.books.Delete(c.Request.Context(), id, ownerID(c)); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, true, "book deleted")
}

func (s *Server) handleListAllBooks(c *gin.Context) {
	books, err := s.books.ListAll(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, listed(books), "")
}
