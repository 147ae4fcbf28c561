package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/formflow/formflow-go/form"
	"github.com/formflow/formflow-go/options"
)

// Submission statuses. A submission is created in_progress and converges to
// exactly one terminal complete transition.
const (
	StatusInProgress = "in_progress"
	StatusComplete   = "complete"
)

// ErrNotFound is returned for unknown submission ids and form slugs.
var ErrNotFound = errors.New("not found")

// ErrCompleted rejects writes against a submission that already completed.
var ErrCompleted = errors.New("submission already complete")

// Submission is the persisted record of one fill session. Data is the
// literal answer map keyed by question slug.
type Submission struct {
	ID        string         `json:"id"`
	Form      string         `json:"form"`
	Status    string         `json:"status"`
	Data      form.AnswerMap `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// FormVersion is an immutable snapshot taken when a draft is published.
type FormVersion struct {
	Form       string           `json:"form"`
	Version    int              `json:"version"`
	Notes      string           `json:"notes,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	Definition *form.Definition `json:"definition"`
}

// SubmissionStore persists fill sessions. UpdateSubmission merges a partial
// answer map into the stored one (autosave semantics); SubmitForm replaces
// the stored map wholesale and flips the status to complete.
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, formSlug string) (*Submission, error)
	GetSubmission(ctx context.Context, id string) (*Submission, error)
	UpdateSubmission(ctx context.Context, id string, partial form.AnswerMap) (*Submission, error)
	SubmitForm(ctx context.Context, id string, full form.AnswerMap) (*Submission, error)
	ListSubmissions(ctx context.Context, formSlug string) ([]*Submission, error)
	HealthCheck(ctx context.Context) error
}

// FormStore serves form definitions. GetForm returns the latest published
// version, GetDraftForm the working copy. PublishForm snapshots the current
// draft as a new immutable version.
type FormStore interface {
	GetForm(ctx context.Context, slug string) (*form.Definition, error)
	GetDraftForm(ctx context.Context, slug string) (*form.Definition, error)
	PublishForm(ctx context.Context, slug, notes string) (*FormVersion, error)
	ListForms(ctx context.Context) ([]string, error)
	QuestionTypes(ctx context.Context) (*options.Registry, error)
}

// mergeAnswers applies a partial answer map over base. A nil value in the
// patch deletes the key, matching the clear_value removal the session
// controller sends when a hidden question's answer is dropped.
func mergeAnswers(base, patch form.AnswerMap) form.AnswerMap {
	out := base.Clone()
	if out == nil {
		out = form.AnswerMap{}
	}
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}
