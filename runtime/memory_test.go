package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formflow/formflow-go/form"
)

func testDefinition(slug string) *form.Definition {
	return &form.Definition{
		Slug: slug,
		Pages: []*form.Page{{
			Slug:      "page-1",
			Questions: []*form.Question{{Slug: "name", Type: "text"}},
		}},
	}
}

func TestSubmissionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sub, err := store.CreateSubmission(ctx, "pet-survey")
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, StatusInProgress, sub.Status)

	sub, err = store.UpdateSubmission(ctx, sub.ID, form.AnswerMap{"name": "Rex", "extra": "x"})
	require.NoError(t, err)
	assert.Equal(t, "Rex", sub.Data["name"])

	// A nil patch entry deletes the stored answer.
	sub, err = store.UpdateSubmission(ctx, sub.ID, form.AnswerMap{"extra": nil})
	require.NoError(t, err)
	assert.NotContains(t, sub.Data, "extra")

	sub, err = store.SubmitForm(ctx, sub.ID, form.AnswerMap{"name": "Rex"})
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, sub.Status)

	// Completed submissions reject further writes.
	_, err = store.UpdateSubmission(ctx, sub.ID, form.AnswerMap{"name": "Fido"})
	assert.ErrorIs(t, err, ErrCompleted)
	_, err = store.SubmitForm(ctx, sub.ID, form.AnswerMap{})
	assert.ErrorIs(t, err, ErrCompleted)
}

func TestGetSubmissionNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.GetSubmission(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetSubmissionReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	created, err := store.CreateSubmission(ctx, "f")
	require.NoError(t, err)

	got, err := store.GetSubmission(ctx, created.ID)
	require.NoError(t, err)
	got.Data["leak"] = true

	again, err := store.GetSubmission(ctx, created.ID)
	require.NoError(t, err)
	assert.NotContains(t, again.Data, "leak")
}

func TestListSubmissionsFiltersByForm(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.CreateSubmission(ctx, "a")
	require.NoError(t, err)
	_, err = store.CreateSubmission(ctx, "b")
	require.NoError(t, err)

	subs, err := store.ListSubmissions(ctx, "a")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "a", subs[0].Form)

	all, err := store.ListSubmissions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDraftAndPublishFlow(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// Nothing is live before the first publish.
	require.NoError(t, store.PutDraft(testDefinition("pet-survey")))
	_, err := store.GetForm(ctx, "pet-survey")
	assert.ErrorIs(t, err, ErrNotFound)

	draft, err := store.GetDraftForm(ctx, "pet-survey")
	require.NoError(t, err)
	assert.Equal(t, "pet-survey", draft.Slug)

	v1, err := store.PublishForm(ctx, "pet-survey", "initial")
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version)
	assert.Equal(t, "initial", v1.Notes)

	live, err := store.GetForm(ctx, "pet-survey")
	require.NoError(t, err)
	assert.Equal(t, "pet-survey", live.Slug)

	// Versions increment per publish.
	v2, err := store.PublishForm(ctx, "pet-survey", "")
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)
}

func TestPutDraftValidates(t *testing.T) {
	store := NewMemoryStore()
	bad := testDefinition("dup")
	bad.Pages[0].Questions = append(bad.Pages[0].Questions, &form.Question{Slug: "name", Type: "text"})
	assert.Error(t, store.PutDraft(bad))
}

func TestPublishUnknownForm(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.PublishForm(context.Background(), "ghost", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFormsSorted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.PutDraft(testDefinition("zebra")))
	require.NoError(t, store.PutDraft(testDefinition("aardvark")))

	slugs, err := store.ListForms(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"aardvark", "zebra"}, slugs)
}

func TestMergeAnswers(t *testing.T) {
	base := form.AnswerMap{"a": "1", "b": "2"}
	merged := mergeAnswers(base, form.AnswerMap{"b": nil, "c": "3"})
	assert.Equal(t, form.AnswerMap{"a": "1", "c": "3"}, merged)
}
