package http

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/library"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondUnauthorized sends a 401 with the NOT_AUTHENTICATED code.
func respondUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{Error: message, Code: string(library.CodeNotAuthenticated)})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Error("internal error", "context", context, "err", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondError sends an error response with the given status code.
// Use the specific helpers (respondBadRequest, respondNotFound, etc.) when possible.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// respondLibraryError maps a coded library error to its HTTP status. Other
// errors become a 500.
func respondLibraryError(c *gin.Context, err error, context string) {
	var libErr *library.Error
	if !errors.As(err, &libErr) {
		respondInternalError(c, err, context)
		return
	}
	status := libErr.Code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Warn("library operation failed", "context", context, "err", err)
	}
	c.JSON(status, ErrorResponse{Error: libErr.Message, Code: string(libErr.Code)})
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// --- Parameter Parsing ---

// parseBookParam extracts a non-empty book id from URL parameters.
// Returns the id or responds with a 400 error and returns "", false.
func parseBookParam(c *gin.Context, paramName string) (string, bool) {
	book := c.Param(paramName)
	if book == "" || len(book) > 64 {
		respondBadRequest(c, "invalid "+paramName)
		return "", false
	}
	return book, true
}
