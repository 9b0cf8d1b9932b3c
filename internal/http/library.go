package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/library"
)

// LibraryController exposes the toggle façade and the collection views.
type LibraryController struct {
	svc      *library.Service
	shelves  ShelfBooks
	identity *identitySync
	activity activity
}

func NewLibraryController(svc *library.Service, shelves ShelfBooks, identity *identitySync, recorder ActivityRecorder) *LibraryController {
	return &LibraryController{
		svc:      svc,
		shelves:  shelves,
		identity: identity,
		activity: activity{rec: recorder},
	}
}

// ToggleRequest is the optional body of the toggle endpoint.
type ToggleRequest struct {
	// MaxItems overrides the default quota for this call when positive.
	MaxItems int `json:"max_items"`
}

type toggleResponse struct {
	library.Outcome
	Error string `json:"error,omitempty"`
}

// ShelfResponse is the current identity's library.
type ShelfResponse struct {
	Identity library.IdentityKind `json:"identity"`
	Library  library.Shelf        `json:"library"`
	Total    int                  `json:"total"`
}

// ListByType returns the full book rows of one of the signed-in account's
// collections. type defaults to favorites and accepts the legacy names.
func (controller *LibraryController) ListByType(c *gin.Context) {
	userID := auth.GetUserID(c)
	if userID == 0 {
		respondUnauthorized(c, "missing authorization header")
		return
	}

	kind := library.KindFavorites
	if raw := c.Query("type"); raw != "" {
		parsed, err := library.ParseKind(raw)
		if err != nil {
			respondLibraryError(c, err, "list library")
			return
		}
		kind = parsed
	}

	books, err := controller.shelves.BooksIn(c.Request.Context(), userID, kind)
	if err != nil {
		respondInternalError(c, err, "list library")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books})
}

// Shelf returns the book ids of all three collections for the request
// identity.
func (controller *LibraryController) Shelf(c *gin.Context) {
	id := controller.identity.resolve(c)
	shelf, err := controller.svc.View(c.Request.Context(), id)
	if err != nil {
		respondLibraryError(c, err, "view library")
		return
	}
	c.JSON(http.StatusOK, ShelfResponse{Identity: id.Kind, Library: shelf, Total: shelf.Total()})
}

// Membership reports which collection holds a book, if any.
func (controller *LibraryController) Membership(c *gin.Context) {
	book, ok := parseBookParam(c, "id")
	if !ok {
		return
	}
	id := controller.identity.resolve(c)
	kind, member, err := controller.svc.Membership(c.Request.Context(), id, book)
	if err != nil {
		respondLibraryError(c, err, "membership")
		return
	}
	c.JSON(http.StatusOK, gin.H{"book_id": book, "member": member, "kind": kind})
}

// Toggle flips a book in or out of a collection. The body is always the
// outcome; the status reflects its reason.
func (controller *LibraryController) Toggle(c *gin.Context) {
	kind, err := library.ParseKind(c.Param("kind"))
	if err != nil {
		respondLibraryError(c, err, "toggle")
		return
	}
	book, ok := parseBookParam(c, "bookId")
	if !ok {
		return
	}

	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBadRequest(c, "invalid request body")
		return
	}
	if req.MaxItems < 0 {
		respondBadRequest(c, "max_items cannot be negative")
		return
	}

	id := controller.identity.resolve(c)
	outcome := controller.svc.Toggle(c.Request.Context(), id, kind, book, req.MaxItems)
	controller.activity.toggle(id, outcome)

	resp := toggleResponse{Outcome: outcome}
	status := http.StatusOK
	if !outcome.OK {
		status = outcome.Reason.HTTPStatus()
		if outcome.Err != nil {
			resp.Error = outcome.Err.Error()
		}
	}
	c.JSON(status, resp)
}
