package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/formflow/formflow-go/eval"
	"github.com/formflow/formflow-go/form"
	"github.com/formflow/formflow-go/nav"
	"github.com/formflow/formflow-go/runtime"
)

// DefaultDebounce is the edit-inactivity window before an autosave fires.
const DefaultDebounce = time.Second

// ErrNotActive rejects operations that require an active session.
var ErrNotActive = errors.New("session is not active")

// SubmitResult is the outcome of a submit attempt. Validation is set and
// Submission nil when the form failed the gate; persistence failures come
// back as an error from Submit with the session left active.
type SubmitResult struct {
	Submission *runtime.Submission   `json:"submission,omitempty"`
	Validation *nav.ValidationResult `json:"validation,omitempty"`
}

// Controller owns one fill session: the answer map, the submission status,
// page position, and the debounced autosave pipeline. It is the only writer
// of the answer map; the resolver and navigator get read-only views.
type Controller struct {
	mu   sync.Mutex
	cond *sync.Cond

	store runtime.SubmissionStore
	def   *form.Definition
	nav   *nav.Navigator
	logic *eval.Resolver

	debounce time.Duration
	warn     func(format string, args ...any)

	state     State
	lastErr   error
	retryID   string // id the failed load was attempted with, "" for create
	sub       *runtime.Submission
	answers   form.AnswerMap
	pageIndex int

	// Autosave machinery. dirty accumulates the patch since the last save
	// snapshot (nil values mark deletions); at most one save is in flight
	// and a timer firing during one re-arms on completion instead of
	// issuing a second racing write.
	timer    *time.Timer
	dirty    form.AnswerMap
	saveSeq  uint64
	inFlight bool
	rearm    bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce overrides the autosave inactivity window.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

// WithLanguage selects the option-list language for resolved states.
func WithLanguage(lang string) Option {
	return func(c *Controller) {
		c.logic.Lang = lang
		c.nav.Logic.Lang = lang
	}
}

// WithWarnFunc overrides the sink for autosave failure warnings.
func WithWarnFunc(fn func(format string, args ...any)) Option {
	return func(c *Controller) { c.warn = fn }
}

// NewController builds a controller for one definition. The session is not
// usable until Start succeeds.
func NewController(def *form.Definition, store runtime.SubmissionStore, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		def:      def,
		logic:    &eval.Resolver{},
		debounce: DefaultDebounce,
		warn:     log.Printf,
		state:    StateInitializing,
		answers:  form.AnswerMap{},
	}
	c.nav = nav.NewNavigator(def, "")
	c.cond = sync.NewCond(&c.mu)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start creates a fresh submission when id is empty, or loads the existing
// one. The session enters the error state on failure; Retry re-attempts the
// same operation. Autosave is never armed before this returns, so a slow
// load cannot be clobbered by an empty local answer map.
func (c *Controller) Start(ctx context.Context, id string) error {
	c.mu.Lock()
	switch c.state {
	case StateInitializing, StateError:
	default:
		c.mu.Unlock()
		return fmt.Errorf("cannot start session in state %s", c.state)
	}
	if id == "" {
		c.state = StateCreating
	} else {
		c.state = StateLoading
	}
	c.retryID = id
	c.mu.Unlock()

	var sub *runtime.Submission
	var err error
	if id == "" {
		sub, err = c.store.CreateSubmission(ctx, c.def.Slug)
	} else {
		sub, err = c.store.GetSubmission(ctx, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateError
		c.lastErr = err
		return err
	}
	c.sub = sub
	c.answers = sub.Data.Clone()
	if c.answers == nil {
		c.answers = form.AnswerMap{}
	}
	if sub.Status == runtime.StatusComplete {
		c.state = StateCompleted
	} else {
		c.state = StateActive
	}
	c.lastErr = nil
	return nil
}

// Retry re-attempts the create or load that put the session into the error
// state.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateError {
		c.mu.Unlock()
		return fmt.Errorf("nothing to retry in state %s", c.state)
	}
	id := c.retryID
	c.state = StateInitializing
	c.mu.Unlock()
	return c.Start(ctx, id)
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return StateSaving
	}
	return c.state
}

// Err returns the error that moved the session into the error state.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// SubmissionID returns the persisted identifier, empty until Start succeeds.
func (c *Controller) SubmissionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == nil {
		return ""
	}
	return c.sub.ID
}

// SetAnswer records an edit, synchronously updating the in-memory answer
// map, dropping answers of questions the edit just hid (when their applied
// rule carries clear_value), and re-arming the debounced autosave.
func (c *Controller) SetAnswer(slug string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return ErrNotActive
	}

	visibleBefore := c.visibilitySnapshot()
	if value == nil {
		delete(c.answers, slug)
	} else {
		c.answers[slug] = value
	}
	if c.dirty == nil {
		c.dirty = form.AnswerMap{}
	}
	c.dirty[slug] = value

	// An edit can hide dependent questions anywhere on the form. Those
	// marked clear_value by their applied rule lose their stored answer as
	// part of the same update.
	for _, q := range c.def.AllQuestions() {
		if q.Slug == slug || !visibleBefore[q.Slug] {
			continue
		}
		state := c.logic.Resolve(q, c.answers)
		if !state.Visible && state.ClearOnHide {
			if _, answered := c.answers[q.Slug]; answered {
				delete(c.answers, q.Slug)
				c.dirty[q.Slug] = nil
			}
		}
	}

	c.scheduleSaveLocked()
	return nil
}

// GetAnswer returns the stored answer for slug.
func (c *Controller) GetAnswer(slug string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.answers[slug]
	return v, ok
}

// Answers returns a snapshot of the answer map.
func (c *Controller) Answers() form.AnswerMap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answers.Clone()
}

// GetEffectiveState resolves the visibility, required-ness, and options of
// one question against the current answers. Recomputed on every call.
func (c *Controller) GetEffectiveState(slug string) (eval.EffectiveState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.def.FindQuestion(slug)
	if q == nil {
		return eval.EffectiveState{}, false
	}
	return c.logic.Resolve(q, c.answers), true
}

// CurrentPageIndex returns the active page position.
func (c *Controller) CurrentPageIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageIndex
}

// CurrentPage returns the active page.
func (c *Controller) CurrentPage() *form.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.def.Pages[c.pageIndex]
}

// VisibleQuestions lists the currently visible questions on the active page.
func (c *Controller) VisibleQuestions() []*form.Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nav.VisibleQuestions(c.def.Pages[c.pageIndex], c.answers)
}

// CanAdvance reports whether the current page passes its validation gate.
func (c *Controller) CanAdvance() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nav.CanAdvance(c.def.Pages[c.pageIndex], c.answers)
}

// GoNext advances to the next page when the gate passes. The returned
// validation result explains a refusal; it is nil on success.
func (c *Controller) GoNext() *nav.ValidationResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := c.nav.ValidatePage(c.def.Pages[c.pageIndex], c.answers)
	if !result.Valid {
		return result
	}
	if c.pageIndex < len(c.def.Pages)-1 {
		c.pageIndex++
	}
	return nil
}

// GoPrevious moves back one page. Never gated and never touches answers.
func (c *Controller) GoPrevious() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pageIndex > 0 {
		c.pageIndex--
	}
}

// Submit validates the whole form, flushes the autosave pipeline so no
// queued write races the completion write, and issues the final submit. A
// failed validation comes back in the result, not as an error; a failed
// persistence call leaves the session active with answers intact.
func (c *Controller) Submit(ctx context.Context) (*SubmitResult, error) {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return nil, ErrNotActive
	}

	// Cancel the pending debounce and wait out any in-flight autosave. The
	// submit payload carries the full map, so a pending patch is superseded
	// once the completion write lands; until then it stays queued so a
	// failed submit leaves the edits on the autosave path.
	c.stopTimerLocked()
	for c.inFlight {
		c.cond.Wait()
	}

	result := c.nav.ValidateForm(c.answers)
	if !result.Valid {
		if len(c.dirty) > 0 {
			c.scheduleSaveLocked()
		}
		c.mu.Unlock()
		return &SubmitResult{Validation: result}, nil
	}

	c.state = StateSubmitting
	id := c.sub.ID
	snapshot := c.answers.Clone()
	c.mu.Unlock()

	sub, err := c.store.SubmitForm(ctx, id, snapshot)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateActive
		if len(c.dirty) > 0 {
			c.scheduleSaveLocked()
		}
		return nil, fmt.Errorf("submit failed: %w", err)
	}
	c.dirty = nil
	c.sub = sub
	c.state = StateCompleted
	return &SubmitResult{Submission: sub}, nil
}

// Flush forces a pending debounced save to run now and waits for it. Used
// when the caller is about to drop the session (page unload).
func (c *Controller) Flush(ctx context.Context) error {
	c.mu.Lock()
	c.stopTimerLocked()
	if len(c.dirty) > 0 && !c.inFlight {
		c.startSaveLocked()
	}
	for c.inFlight {
		c.cond.Wait()
	}
	c.mu.Unlock()
	return ctx.Err()
}

func (c *Controller) visibilitySnapshot() map[string]bool {
	out := make(map[string]bool)
	for _, q := range c.def.AllQuestions() {
		out[q.Slug] = c.logic.Resolve(q, c.answers).Visible
	}
	return out
}

// scheduleSaveLocked re-arms the single debounce timer. Each edit within
// the window supersedes the previous schedule, so only the most recent
// patch is ever sent.
func (c *Controller) scheduleSaveLocked() {
	c.stopTimerLocked()
	c.timer = time.AfterFunc(c.debounce, c.timerFired)
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) timerFired() {
	c.mu.Lock()
	c.timer = nil
	if c.state != StateActive || len(c.dirty) == 0 {
		c.mu.Unlock()
		return
	}
	if c.inFlight {
		// A round trip is already out; re-arm when it completes so the
		// coalesced edits still land.
		c.rearm = true
		c.mu.Unlock()
		return
	}
	c.startSaveLocked()
	c.mu.Unlock()
}

// startSaveLocked snapshots the dirty patch and issues the write off the
// calling goroutine. Sequence numbers make superseded responses detectable:
// a response only applies if no newer save has been snapshotted meanwhile.
func (c *Controller) startSaveLocked() {
	patch := c.dirty
	c.dirty = nil
	c.saveSeq++
	seq := c.saveSeq
	c.inFlight = true
	id := c.sub.ID

	go func() {
		sub, err := c.store.UpdateSubmission(context.Background(), id, patch)
		c.mu.Lock()
		c.inFlight = false
		if err != nil {
			c.warn("autosave failed for submission %s: %v", id, err)
			// Put the failed patch back without clobbering newer edits so
			// the next window retries it.
			if c.dirty == nil {
				c.dirty = form.AnswerMap{}
			}
			for k, v := range patch {
				if _, newer := c.dirty[k]; !newer {
					c.dirty[k] = v
				}
			}
		} else if seq == c.saveSeq && c.sub != nil && c.sub.Status != runtime.StatusComplete {
			c.sub = sub
		}
		if c.state == StateActive && (c.rearm || len(c.dirty) > 0) {
			c.rearm = false
			if len(c.dirty) > 0 {
				c.scheduleSaveLocked()
			}
		}
		c.cond.Broadcast()
		c.mu.Unlock()
	}()
}
