package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/entities"
)

type bookBody struct {
	Book entities.Book `json:"book"`
}

type booksBody struct {
	Books []entities.Book `json:"books"`
}

func TestBooksController_Create(t *testing.T) {
	app := newTestApp(t)
	user := app.register(t, "librarian")
	api := app.bearerClient(t, app.token(t, user))

	t.Run("requires an account", func(t *testing.T) {
		rr := app.client(t).do(http.MethodPost, "/books", CreateBookRequest{Title: "Dune", Author: "Frank Herbert"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("creates a book", func(t *testing.T) {
		rr := api.do(http.MethodPost, "/books", CreateBookRequest{Title: "  Dune ", Author: "Frank Herbert", Pages: 412, ISBN: "9780441013593"})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		book := decode[bookBody](t, rr).Book
		assert.NotEmpty(t, book.ID)
		assert.Equal(t, "Dune", book.Title)
		assert.Equal(t, 412, book.Pages)
	})

	t.Run("rejects missing title or author", func(t *testing.T) {
		rr := api.do(http.MethodPost, "/books", CreateBookRequest{Title: "Dune", Author: "   "})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "title and author are required and cannot be empty")
	})

	t.Run("rejects negative page count", func(t *testing.T) {
		rr := api.do(http.MethodPost, "/books", CreateBookRequest{Title: "Dune", Author: "Frank Herbert", Pages: -1})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestBooksController_ListAndGet(t *testing.T) {
	app := newTestApp(t)
	visitor := app.client(t)

	rr := visitor.do(http.MethodGet, "/books", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[booksBody](t, rr).Books)

	book := &entities.Book{Title: "Emma", Author: "Jane Austen"}
	require.NoError(t, app.books.CreateBook(context.Background(), book))

	rr = visitor.do(http.MethodGet, "/books", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, decode[booksBody](t, rr).Books, 1)

	rr = visitor.do(http.MethodGet, "/books/"+book.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Emma", decode[bookBody](t, rr).Book.Title)

	rr = visitor.do(http.MethodGet, "/books/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"book not found"}`, rr.Body.String())
}
