package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/formflow/formflow-go/adapters/files"
	"github.com/formflow/formflow-go/dsl"
	"github.com/formflow/formflow-go/eval"
	"github.com/formflow/formflow-go/form"
	"github.com/formflow/formflow-go/nav"
	"github.com/formflow/formflow-go/options"
)

// registerShow wires `formflowc show -form <file> [-answers <file>]`:
// resolve every question's effective state against an answer map and print
// the result, page by page. Useful for debugging rule sets without a
// browser.
func registerShow() {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	formPath := fs.String("form", "", "Form definition file")
	answersPath := fs.String("answers", "", "JSON answer map file (optional)")
	lang := fs.String("lang", "en", "Option list language")

	register(&command{
		name:    "show",
		summary: "Resolve and print effective question states for an answer map",
		flags:   fs,
		run: func() error {
			if *formPath == "" {
				return fmt.Errorf("usage: formflowc show -form <file.json> [-answers <file.json>]")
			}
			data, err := os.ReadFile(*formPath)
			if err != nil {
				return fmt.Errorf("failed to read form: %w", err)
			}
			def, err := files.ParseDefinition(data)
			if err != nil {
				return err
			}

			answers := form.AnswerMap{}
			if *answersPath != "" {
				raw, err := os.ReadFile(*answersPath)
				if err != nil {
					return fmt.Errorf("failed to read answers: %w", err)
				}
				if err := json.Unmarshal(raw, &answers); err != nil {
					return fmt.Errorf("failed to decode answers: %w", err)
				}
			}

			resolver := &eval.Resolver{Lang: *lang}
			optionResolver := options.NewResolver(options.Builtin(), *lang)
			navigator := nav.NewNavigator(def, *lang)

			for i, page := range def.Pages {
				gate := "blocked"
				if navigator.CanAdvance(page, answers) {
					gate = "open"
				}
				fmt.Printf("page %d %q (advance: %s)\n", i+1, page.Slug, gate)
				for _, q := range page.AllQuestions() {
					state := resolver.Resolve(q, answers)
					fmt.Printf("  %-24s visible=%-5v required=%-5v", q.Slug, state.Visible, state.Required)
					if opts := optionResolver.Resolve(q, answers); len(opts) > 0 {
						fmt.Printf(" options=%d", len(opts))
					}
					if value, ok := answers[q.Slug]; ok {
						fmt.Printf(" answer=%q", form.ValueToString(value))
					}
					fmt.Println()
					if *verbose && q.Logic != nil {
						for _, rule := range q.Logic.Rules {
							for _, cond := range rule.Conditions {
								fmt.Printf("      when %s\n", dsl.FormatCondition(cond))
							}
						}
					}
				}
			}
			return nil
		},
	})
}
