// Package adapters holds the integration points around the core engine:
// form definition loading, submission lifecycle event publishing, and
// completed-submission export.
package adapters

import (
	"context"
	"time"

	"github.com/formflow/formflow-go/runtime"
)

// Event types published over the lifecycle feed.
const (
	EventSubmissionCreated   = "submission.created"
	EventSubmissionSaved     = "submission.saved"
	EventSubmissionCompleted = "submission.completed"
)

// Event is one submission lifecycle notification.
type Event struct {
	Type         string    `json:"type"`
	SubmissionID string    `json:"submission_id"`
	Form         string    `json:"form"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher delivers lifecycle events to an external feed.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NewEvent builds an event from a submission snapshot.
func NewEvent(eventType string, sub *runtime.Submission) Event {
	return Event{
		Type:         eventType,
		SubmissionID: sub.ID,
		Form:         sub.Form,
		Status:       sub.Status,
		OccurredAt:   time.Now().UTC(),
	}
}
