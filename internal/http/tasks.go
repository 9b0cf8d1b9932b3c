package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/tasks"
)

// TasksController handles task queue management endpoints.
type TasksController struct {
	client   *tasks.Client
	defaults TaskDefaults
}

// TaskDefaults are the retention periods used when a run request does not
// name one.
type TaskDefaults struct {
	GuestRetentionDays int
	AuditRetentionDays int
}

// NewTasksController creates a new TasksController.
func NewTasksController(client *tasks.Client, defaults TaskDefaults) *TasksController {
	return &TasksController{client: client, defaults: defaults}
}

// TaskTypeInfo describes an available task type.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Queue       string `json:"queue"`
}

// ListTaskTypes handles GET /api/tasks/types
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	types := []TaskTypeInfo{
		{
			Type:        tasks.PurgeGuestCacheQueue,
			Description: "Remove guest libraries and reading positions not touched for a number of days",
			Queue:       tasks.PurgeGuestCacheQueue,
		},
		{
			Type:        tasks.CleanupAuditEventsQueue,
			Description: "Remove account activity older than a number of days",
			Queue:       tasks.CleanupAuditEventsQueue,
		},
	}

	c.JSON(http.StatusOK, gin.H{
		"task_types": types,
	})
}

// GetTaskStatus handles GET /api/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		respondBadRequest(c, "task ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.client.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": tasks.StatusName(status),
	})
}

// RunTaskRequest is the request body for running a task.
type RunTaskRequest struct {
	// OlderThanDays overrides the configured retention period
	OlderThanDays int `json:"older_than_days,omitempty"`
}

// RunTask handles POST /api/tasks/:type/run
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")

	var req RunTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body")
			return
		}
	}

	if req.OlderThanDays < 0 {
		respondBadRequest(c, "older_than_days must not be negative")
		return
	}
	days := func(fallback int) int {
		if req.OlderThanDays > 0 {
			return req.OlderThanDays
		}
		return fallback
	}

	var task backlite.Task
	switch taskType {
	case tasks.PurgeGuestCacheQueue:
		task = tasks.PurgeGuestCacheTask{OlderThanDays: days(tc.defaults.GuestRetentionDays)}

	case tasks.CleanupAuditEventsQueue:
		task = tasks.CleanupAuditEventsTask{RetentionDays: days(tc.defaults.AuditRetentionDays)}

	default:
		respondBadRequest(c, fmt.Sprintf("unknown task type: %s", taskType))
		return
	}

	ids, err := tc.client.Add(task).Save()
	if err != nil {
		respondInternalError(c, err, "enqueue task")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task_id": ids[0],
		"type":    taskType,
		"message": "task enqueued",
	})
}
