package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

const maxActivityPage = 200

// activity forwards events to an optional recorder. Only accounts have an
// activity trail; guest toggles are not recorded.
type activity struct {
	rec ActivityRecorder
}

func (a activity) auth(c *gin.Context, userID uint, action, description string, success bool) {
	if a.rec == nil {
		return
	}
	a.rec.LogAuth(userID, action, description, c.ClientIP(), c.Request.UserAgent(), success)
}

func (a activity) toggle(id library.Identity, outcome library.Outcome) {
	if a.rec == nil || !id.IsAuthenticated() {
		return
	}
	a.rec.LogToggle(id.UserID, outcome)
}

// ActivityController serves the signed-in account's activity trail.
type ActivityController struct {
	log ActivityLog
}

func NewActivityController(log ActivityLog) *ActivityController {
	return &ActivityController{log: log}
}

// ActivityResponse is one page of activity.
type ActivityResponse struct {
	Events []entities.AuditEvent `json:"events"`
	Total  int64                 `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// List handles GET /api/account/activity?type=&limit=&offset=
func (controller *ActivityController) List(c *gin.Context) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil || limit <= 0 || limit > maxActivityPage {
		respondBadRequest(c, "limit must be between 1 and "+strconv.Itoa(maxActivityPage))
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		respondBadRequest(c, "offset cannot be negative")
		return
	}

	userID := auth.GetUserID(c)
	var (
		events []entities.AuditEvent
		total  int64
	)
	switch eventType := entities.AuditEventType(c.Query("type")); eventType {
	case "":
		events, total, err = controller.log.GetEvents(userID, limit, offset)
	case entities.AuditEventAuth, entities.AuditEventLibrary:
		events, total, err = controller.log.GetEventsByType(eventType, userID, limit, offset)
	default:
		respondBadRequest(c, "type must be auth or library")
		return
	}
	if err != nil {
		respondInternalError(c, err, "list activity")
		return
	}
	if events == nil {
		events = []entities.AuditEvent{}
	}

	c.JSON(http.StatusOK, ActivityResponse{Events: events, Total: total, Limit: limit, Offset: offset})
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
