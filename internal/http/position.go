package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/library"
)

// PositionController reads and records reading positions.
type PositionController struct {
	tracker  *library.Tracker
	identity *identitySync
}

func NewPositionController(tracker *library.Tracker, identity *identitySync) *PositionController {
	return &PositionController{tracker: tracker, identity: identity}
}

// PositionRequest is a location report from the reader.
type PositionRequest struct {
	CurrentLocation int `json:"current_location" binding:"required"`
	TotalLocations  int `json:"total_locations" binding:"required"`
}

// GetPosition returns where to reopen the book; location 1 when it was
// never opened.
func (controller *PositionController) GetPosition(c *gin.Context) {
	book, ok := parseBookParam(c, "id")
	if !ok {
		return
	}
	id := controller.identity.resolve(c)
	pos, err := controller.tracker.Resume(c.Request.Context(), id, book)
	if err != nil {
		respondLibraryError(c, err, "get position")
		return
	}
	c.JSON(http.StatusOK, gin.H{"position": pos})
}

// ReportPosition records a location change. The write to the store is
// debounced, so the response is 202.
func (controller *PositionController) ReportPosition(c *gin.Context) {
	book, ok := parseBookParam(c, "id")
	if !ok {
		return
	}
	var req PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "current_location and total_locations are required")
		return
	}

	id := controller.identity.resolve(c)
	pos, err := controller.tracker.Report(id, book, req.CurrentLocation, req.TotalLocations)
	if err != nil {
		respondLibraryError(c, err, "report position")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"position": pos})
}
