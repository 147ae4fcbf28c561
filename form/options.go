package form

import (
	"encoding/json"
	"fmt"
	"sort"
)

// DefaultLanguage is the language key options fall back to when the
// requested language is missing.
const DefaultLanguage = "en"

// LocalizedOptions maps a language code to an ordered option list. Authors
// may supply either the full mapping or a bare list; a bare list is
// normalized to the default language at decode time so downstream code only
// ever sees the canonical mapping form.
type LocalizedOptions map[string][]Option

// UnmarshalJSON accepts {"en":[...],"fr":[...]} or a bare [...] and
// normalizes the latter to {"en":[...]}.
func (lo *LocalizedOptions) UnmarshalJSON(data []byte) error {
	var mapped map[string][]Option
	if err := json.Unmarshal(data, &mapped); err == nil {
		*lo = mapped
		return nil
	}

	var bare []Option
	if err := json.Unmarshal(data, &bare); err != nil {
		return fmt.Errorf("options must be a language map or an option list: %w", err)
	}
	*lo = LocalizedOptions{DefaultLanguage: bare}
	return nil
}

// ForLanguage resolves the option list for lang with the defined fallback
// order: requested language, then the default language, then the first
// available key (sorted, so the fallback is deterministic). Returns nil when
// the mapping is empty.
func (lo LocalizedOptions) ForLanguage(lang string) []Option {
	if len(lo) == 0 {
		return nil
	}
	if lang != "" {
		if opts, ok := lo[lang]; ok && len(opts) > 0 {
			return opts
		}
	}
	if opts, ok := lo[DefaultLanguage]; ok && len(opts) > 0 {
		return opts
	}
	keys := make([]string, 0, len(lo))
	for key := range lo {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if len(lo[key]) > 0 {
			return lo[key]
		}
	}
	return nil
}
