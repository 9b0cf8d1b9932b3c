// Package audit records the activity trail of accounts: sign-ins, API token
// changes, collection toggles and maintenance runs.
package audit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mrlokans/bookshelf/internal/database/audit"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

// Auth actions.
const (
	ActionLogin       = "login"
	ActionLogout      = "logout"
	ActionRegister    = "register"
	ActionTokenCreate = "token_create"
	ActionTokenRevoke = "token_revoke"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo   *audit.Repository
	logger *log.Logger
	wg     sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{repo: repo, logger: logger.WithPrefix("audit")}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(event); err != nil {
			s.logger.Error("failed to log audit event", "action", event.Action, "error", err)
		}
	}()
}

// Wait blocks until every event passed to LogAsync has been written.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogAuth records an authentication event. Failed sign-ins of unknown
// accounts carry userID 0 and the attempted login as description.
func (s *Service) LogAuth(userID uint, action, description, ipAddr, userAgent string, success bool) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventAuth,
		Action:      action,
		Description: truncate(description, 500),
		IPAddress:   ipAddr,
		UserAgent:   truncate(userAgent, 500),
		Status:      entities.AuditStatusSuccess,
	}

	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// LogToggle records the outcome of a collection toggle of an account.
// Unchanged outcomes are not recorded.
func (s *Service) LogToggle(userID uint, outcome library.Outcome) {
	if outcome.OK && outcome.Action == library.ActionUnchanged {
		return
	}

	event := &entities.AuditEvent{
		UserID:     userID,
		EventType:  entities.AuditEventLibrary,
		Action:     fmt.Sprintf("%s_%s", outcome.Kind, outcome.Action),
		EntityType: "book",
		EntityID:   outcome.Book,
		Collection: string(outcome.Kind),
		Status:     entities.AuditStatusSuccess,
	}

	if outcome.OK {
		event.Description = fmt.Sprintf("Book %s %s %s", outcome.Book, outcome.Action, outcome.Kind)
	} else {
		event.Action = fmt.Sprintf("%s_toggle", outcome.Kind)
		event.Status = entities.AuditStatusFailed
		event.Description = fmt.Sprintf("Toggle of %s rejected: %s", outcome.Kind, outcome.Reason)
		if outcome.Err != nil {
			event.ErrorMsg = truncate(outcome.Err.Error(), 500)
		}
	}

	s.LogAsync(event)
}

// LogMaintenance records a background job run.
func (s *Service) LogMaintenance(action string, affected int, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventMaintenance,
		Action:      action,
		Description: fmt.Sprintf("%d records affected", affected),
		Status:      entities.AuditStatusSuccess,
	}

	if mdBytes, e := json.Marshal(map[string]any{"affected": affected}); e == nil {
		event.Metadata = string(mdBytes)
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(userID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(userID, limit, offset)
}

// GetEventsByType retrieves audit events filtered by type.
func (s *Service) GetEventsByType(eventType entities.AuditEventType, userID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEventsByType(eventType, userID, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
