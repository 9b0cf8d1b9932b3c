package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/entities"
)

type BooksController struct {
	store BookStore
}

func NewBooksController(store BookStore) *BooksController {
	return &BooksController{
		store: store,
	}
}

// CreateBookRequest is the body of POST /books.
type CreateBookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	ISBN        string `json:"isbn"`
	Pages       int    `json:"pages"`
	CoverURL    string `json:"cover_url"`
	FileURL     string `json:"file_url"`
}

func (controller *BooksController) ListBooks(c *gin.Context) {
	list, err := controller.store.ListBooks(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": list})
}

func (controller *BooksController) GetBook(c *gin.Context) {
	id, ok := parseBookParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.store.GetBookByID(c.Request.Context(), id)
	if errors.Is(err, books.ErrBookNotFound) {
		respondNotFound(c, "book")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, gin.H{"book": book})
}

func (controller *BooksController) CreateBook(c *gin.Context) {
	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if req.Pages < 0 {
		respondBadRequest(c, "pages cannot be negative")
		return
	}

	book := &entities.Book{
		Title:       req.Title,
		Author:      req.Author,
		Description: req.Description,
		ISBN:        req.ISBN,
		Pages:       req.Pages,
		CoverURL:    req.CoverURL,
		FileURL:     req.FileURL,
	}
	err := controller.store.CreateBook(c.Request.Context(), book)
	if errors.Is(err, books.ErrMissingDetails) {
		respondBadRequest(c, err.Error())
		return
	}
	if err != nil {
		respondInternalError(c, err, "create book")
		return
	}
	respondCreated(c, gin.H{"book": book})
}
