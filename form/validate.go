package form

import "fmt"

// Validate checks the structural invariants a definition must satisfy before
// it can serve a fill session. Cross-reference checks that only degrade
// behavior (a condition naming an unknown slug reads as an empty answer) are
// left to the lint pass.
func (d *Definition) Validate() error {
	if d.Slug == "" {
		return fmt.Errorf("form is missing a slug")
	}
	if len(d.Pages) == 0 {
		return fmt.Errorf("form %q has no pages", d.Slug)
	}

	seenPages := make(map[string]bool)
	seenQuestions := make(map[string]bool)
	for _, page := range d.Pages {
		if page.Slug == "" {
			return fmt.Errorf("form %q contains a page without a slug", d.Slug)
		}
		if seenPages[page.Slug] {
			return fmt.Errorf("form %q declares page %q twice", d.Slug, page.Slug)
		}
		seenPages[page.Slug] = true

		for _, q := range page.AllQuestions() {
			if q.Slug == "" {
				return fmt.Errorf("page %q contains a question without a slug", page.Slug)
			}
			if seenQuestions[q.Slug] {
				return fmt.Errorf("question slug %q is declared more than once", q.Slug)
			}
			seenQuestions[q.Slug] = true
			if q.Type == "" {
				return fmt.Errorf("question %q has no type", q.Slug)
			}
		}
	}
	return nil
}
