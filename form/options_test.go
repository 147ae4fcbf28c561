package form

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalizedOptionsUnmarshal(t *testing.T) {
	t.Run("language map stays as is", func(t *testing.T) {
		var lo LocalizedOptions
		err := json.Unmarshal([]byte(`{"en":[{"value":"a","label":"A"}],"fr":[{"value":"a","label":"Ah"}]}`), &lo)
		require.NoError(t, err)
		assert.Len(t, lo, 2)
		assert.Equal(t, "A", lo["en"][0].Label)
	})

	t.Run("bare list normalizes to en", func(t *testing.T) {
		var lo LocalizedOptions
		err := json.Unmarshal([]byte(`[{"value":"a","label":"A"}]`), &lo)
		require.NoError(t, err)
		require.Contains(t, lo, "en")
		assert.Equal(t, "a", lo["en"][0].Value)
	})

	t.Run("rejects scalars", func(t *testing.T) {
		var lo LocalizedOptions
		assert.Error(t, json.Unmarshal([]byte(`"nope"`), &lo))
	})
}

func TestLocalizedOptionsFallbackOrder(t *testing.T) {
	lo := LocalizedOptions{
		"fr": {{Value: "a", Label: "Ah"}},
		"de": {{Value: "a", Label: "Ach"}},
	}

	t.Run("requested language first", func(t *testing.T) {
		assert.Equal(t, "Ah", lo.ForLanguage("fr")[0].Label)
	})

	t.Run("falls back to en when present", func(t *testing.T) {
		withEN := LocalizedOptions{
			"en": {{Value: "a", Label: "A"}},
			"fr": {{Value: "a", Label: "Ah"}},
		}
		assert.Equal(t, "A", withEN.ForLanguage("es")[0].Label)
	})

	t.Run("first available key when en missing", func(t *testing.T) {
		// Keys sort deterministically, so "de" wins over "fr".
		assert.Equal(t, "Ach", lo.ForLanguage("es")[0].Label)
	})

	t.Run("empty mapping yields nil", func(t *testing.T) {
		assert.Nil(t, LocalizedOptions{}.ForLanguage("en"))
	})
}

func TestQuestionDecodeNormalizesOptions(t *testing.T) {
	raw := `{
		"slug": "color",
		"label": "Color",
		"type": "select",
		"options": [{"value":"red","label":"Red"}]
	}`
	var q Question
	require.NoError(t, json.Unmarshal([]byte(raw), &q))
	require.Contains(t, q.Options, "en")
	assert.Equal(t, "Red", q.Options["en"][0].Label)
}
