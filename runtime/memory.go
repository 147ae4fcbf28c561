package runtime

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/formflow/formflow-go/form"
	"github.com/formflow/formflow-go/options"
)

// MemoryStore implements SubmissionStore and FormStore in memory. Useful for
// tests and local development.
type MemoryStore struct {
	submissions map[string]*Submission
	drafts      map[string]*form.Definition
	published   map[string][]*FormVersion
	types       *options.Registry
	mu          sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store backed by the builtin
// question type registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		submissions: make(map[string]*Submission),
		drafts:      make(map[string]*form.Definition),
		published:   make(map[string][]*FormVersion),
		types:       options.Builtin(),
	}
}

// PutDraft stores or replaces the working copy of a form.
func (m *MemoryStore) PutDraft(def *form.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.drafts[def.Slug] = def
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) CreateSubmission(ctx context.Context, formSlug string) (*Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	sub := &Submission{
		ID:        uuid.NewString(),
		Form:      formSlug,
		Status:    StatusInProgress,
		Data:      form.AnswerMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.submissions[sub.ID] = sub
	return cloneSubmission(sub), nil
}

func (m *MemoryStore) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.submissions[id]
	if !ok {
		return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	return cloneSubmission(sub), nil
}

func (m *MemoryStore) UpdateSubmission(ctx context.Context, id string, partial form.AnswerMap) (*Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.submissions[id]
	if !ok {
		return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	if sub.Status == StatusComplete {
		return nil, ErrCompleted
	}
	sub.Data = mergeAnswers(sub.Data, partial)
	sub.UpdatedAt = time.Now().UTC()
	return cloneSubmission(sub), nil
}

func (m *MemoryStore) SubmitForm(ctx context.Context, id string, full form.AnswerMap) (*Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.submissions[id]
	if !ok {
		return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	if sub.Status == StatusComplete {
		return nil, ErrCompleted
	}
	sub.Data = full.Clone()
	sub.Status = StatusComplete
	sub.UpdatedAt = time.Now().UTC()
	return cloneSubmission(sub), nil
}

func (m *MemoryStore) ListSubmissions(ctx context.Context, formSlug string) ([]*Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Submission
	for _, sub := range m.submissions {
		if formSlug == "" || sub.Form == formSlug {
			out = append(out, cloneSubmission(sub))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) GetForm(ctx context.Context, slug string) (*form.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	versions := m.published[slug]
	if len(versions) == 0 {
		return nil, fmt.Errorf("form %s: %w", slug, ErrNotFound)
	}
	return versions[len(versions)-1].Definition, nil
}

func (m *MemoryStore) GetDraftForm(ctx context.Context, slug string) (*form.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	def, ok := m.drafts[slug]
	if !ok {
		return nil, fmt.Errorf("form %s: %w", slug, ErrNotFound)
	}
	return def, nil
}

func (m *MemoryStore) PublishForm(ctx context.Context, slug, notes string) (*FormVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	def, ok := m.drafts[slug]
	if !ok {
		return nil, fmt.Errorf("form %s: %w", slug, ErrNotFound)
	}
	version := &FormVersion{
		Form:       slug,
		Version:    len(m.published[slug]) + 1,
		Notes:      notes,
		CreatedAt:  time.Now().UTC(),
		Definition: def,
	}
	m.published[slug] = append(m.published[slug], version)
	return version, nil
}

func (m *MemoryStore) ListForms(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var slugs []string
	for slug := range m.drafts {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs, nil
}

func (m *MemoryStore) QuestionTypes(ctx context.Context) (*options.Registry, error) {
	return m.types, nil
}

func cloneSubmission(sub *Submission) *Submission {
	out := *sub
	out.Data = sub.Data.Clone()
	return &out
}
