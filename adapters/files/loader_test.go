package files

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formflow/formflow-go/form"
)

type memDraftStore struct {
	mu     sync.Mutex
	drafts map[string]*form.Definition
}

func newMemDraftStore() *memDraftStore {
	return &memDraftStore{drafts: make(map[string]*form.Definition)}
}

func (m *memDraftStore) PutDraft(def *form.Definition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[def.Slug] = def
	return nil
}

const petSurveyJSON = `{
	"slug": "pet-survey",
	"name": "Pet Survey",
	"pages": [
		{
			"slug": "page-1",
			"questions": [
				{"slug": "has-pet", "type": "radio", "required": true}
			]
		},
		{
			"slug": "page-2",
			"questions": [
				{
					"slug": "pet-name",
					"type": "text",
					"rules": ["show, require when has-pet == \"yes\""],
					"default_action": "hide"
				}
			]
		}
	]
}`

func TestParseDefinitionCompilesCompactRules(t *testing.T) {
	def, err := ParseDefinition([]byte(petSurveyJSON))
	require.NoError(t, err)
	assert.Equal(t, "pet-survey", def.Slug)

	q := def.FindQuestion("pet-name")
	require.NotNil(t, q)
	require.NotNil(t, q.Logic)
	assert.Equal(t, "hide", q.Logic.DefaultAction)
	require.Len(t, q.Logic.Rules, 1)
	rule := q.Logic.Rules[0]
	assert.Equal(t, form.ActionShow, rule.Actions[0].Type)
	assert.Equal(t, form.ActionRequire, rule.Actions[1].Type)
	assert.Equal(t, "has-pet", rule.Conditions[0].QuestionSlug)
}

func TestParseDefinitionErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not json", `{nope`, "not valid JSON"},
		{"missing slug", `{"pages": []}`, "missing a slug"},
		{"pages not array", `{"slug": "f", "pages": "x"}`, "no pages array"},
		{
			name: "both logic forms",
			input: `{"slug": "f", "pages": [{"slug": "p", "questions": [{
				"slug": "q", "type": "text",
				"conditional_logic": {"rules": []},
				"rules": ["show when x == 1"]
			}]}]}`,
			want: "both conditional_logic and rules",
		},
		{
			name: "bad rule line",
			input: `{"slug": "f", "pages": [{"slug": "p", "questions": [{
				"slug": "q", "type": "text", "rules": ["explode when x == 1"]
			}]}]}`,
			want: "unknown action",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefinition([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadAllSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.json"), []byte(petSurveyJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{broken`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))

	store := newMemDraftStore()
	loader, err := NewLoader(dir, store)
	require.NoError(t, err)

	err = loader.LoadAll()
	require.Error(t, err, "bad file is reported")
	assert.Contains(t, err.Error(), "bad.json")

	// The good definition still landed.
	assert.Contains(t, store.drafts, "pet-survey")
	assert.Len(t, store.drafts, 1)
}

func TestNewLoaderRejectsMissingDir(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope"), newMemDraftStore())
	assert.Error(t, err)
}
