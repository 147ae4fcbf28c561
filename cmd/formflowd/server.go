package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/formflow/formflow-go/adapters"
	"github.com/formflow/formflow-go/form"
	"github.com/formflow/formflow-go/lint"
	"github.com/formflow/formflow-go/nav"
	"github.com/formflow/formflow-go/runtime"
)

// server exposes the collaborator API over HTTP JSON: forms and question
// types read-only, submissions with autosave-style partial updates and the
// final submit transition.
type server struct {
	forms       runtime.FormStore
	submissions runtime.SubmissionStore
	publisher   adapters.Publisher
	auth        apiConfig
	lang        string
}

func newServer(forms runtime.FormStore, submissions runtime.SubmissionStore, publisher adapters.Publisher, auth apiConfig, lang string) *server {
	return &server{
		forms:       forms,
		submissions: submissions,
		publisher:   publisher,
		auth:        auth,
		lang:        lang,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/forms/", s.handleListForms)
	mux.HandleFunc("GET /api/forms/{slug}/", s.handleGetForm)
	mux.HandleFunc("GET /api/forms/{slug}/draft/", s.handleGetDraftForm)
	mux.HandleFunc("GET /api/forms/{slug}/lint/", s.handleLintForm)
	mux.HandleFunc("POST /api/forms/{slug}/versions/", s.handlePublishForm)
	mux.HandleFunc("GET /api/question-types/", s.handleQuestionTypes)
	mux.HandleFunc("POST /api/submissions/", s.handleCreateSubmission)
	mux.HandleFunc("GET /api/submissions/", s.handleListSubmissions)
	mux.HandleFunc("GET /api/submissions/{id}/", s.handleGetSubmission)
	mux.HandleFunc("PATCH /api/submissions/{id}/", s.handleUpdateSubmission)
	return s.withAuth(mux)
}

func (s *server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.ToLower(s.auth.Auth) == "token" {
			token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
			if token == "" || token != s.auth.Token {
				writeError(w, http.StatusUnauthorized, "invalid or missing token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.submissions.HealthCheck(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleListForms(w http.ResponseWriter, r *http.Request) {
	slugs, err := s.forms.ListForms(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"forms": slugs})
}

func (s *server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	def, err := s.forms.GetForm(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (s *server) handleGetDraftForm(w http.ResponseWriter, r *http.Request) {
	def, err := s.forms.GetDraftForm(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (s *server) handleLintForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	def, err := s.forms.GetDraftForm(ctx, r.PathValue("slug"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	registry, err := s.forms.QuestionTypes(ctx)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	issues := lint.LintForm(def, registry)
	writeJSON(w, http.StatusOK, map[string]any{"issues": issues, "errors": lint.HasErrors(issues)})
}

func (s *server) handlePublishForm(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Notes string `json:"notes"`
	}
	// Body is optional; an empty request publishes without notes.
	_ = json.NewDecoder(r.Body).Decode(&body)
	version, err := s.forms.PublishForm(r.Context(), r.PathValue("slug"), body.Notes)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, version)
}

func (s *server) handleQuestionTypes(w http.ResponseWriter, r *http.Request) {
	registry, err := s.forms.QuestionTypes(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, registry.All())
}

func (s *server) handleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Form string `json:"form"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Form == "" {
		writeError(w, http.StatusBadRequest, "form slug is required")
		return
	}
	if _, err := s.forms.GetForm(r.Context(), body.Form); err != nil {
		writeStoreError(w, err)
		return
	}
	sub, err := s.submissions.CreateSubmission(r.Context(), body.Form)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.publish(r.Context(), adapters.EventSubmissionCreated, sub)
	writeJSON(w, http.StatusCreated, sub)
}

func (s *server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.submissions.GetSubmission(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.submissions.ListSubmissions(r.Context(), r.URL.Query().Get("form_slug"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": subs})
}

// handleUpdateSubmission serves both autosave (partial data merge) and the
// final submit ({"is_complete": true}), which validates the whole form
// server-side before flipping the status.
func (s *server) handleUpdateSubmission(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Data       form.AnswerMap `json:"data"`
		IsComplete bool           `json:"is_complete"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := r.PathValue("id")
	ctx := r.Context()

	if !body.IsComplete {
		sub, err := s.submissions.UpdateSubmission(ctx, id, body.Data)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		s.publish(ctx, adapters.EventSubmissionSaved, sub)
		writeJSON(w, http.StatusOK, sub)
		return
	}

	current, err := s.submissions.GetSubmission(ctx, id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	answers := current.Data
	if body.Data != nil {
		answers = body.Data
	}

	def, err := s.forms.GetForm(ctx, current.Form)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	result := nav.NewNavigator(def, s.lang).ValidateForm(answers)
	if !result.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, result)
		return
	}

	sub, err := s.submissions.SubmitForm(ctx, id, answers)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.publish(ctx, adapters.EventSubmissionCompleted, sub)
	writeJSON(w, http.StatusOK, sub)
}

func (s *server) publish(ctx context.Context, eventType string, sub *runtime.Submission) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, adapters.NewEvent(eventType, sub)); err != nil {
		log.Printf("failed to publish %s for %s: %v", eventType, sub.ID, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, runtime.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, runtime.ErrCompleted):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
