package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/formflow/formflow-go/adapters/files"
	"github.com/formflow/formflow-go/lint"
	"github.com/formflow/formflow-go/options"
)

// registerCheck wires `formflowc check <file...>`: parse each form
// definition file and run the lint pass over it.
func registerCheck() {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	strict := fs.Bool("strict", false, "Treat warnings as failures")

	register(&command{
		name:    "check",
		summary: "Validate and lint form definition files",
		flags:   fs,
		run: func() error {
			paths := fs.Args()
			if len(paths) == 0 {
				return fmt.Errorf("usage: formflowc check <file.json> [...]")
			}

			registry := options.Builtin()
			failed := false
			for _, path := range paths {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				def, err := files.ParseDefinition(data)
				if err != nil {
					fmt.Printf("%s: %v\n", path, err)
					failed = true
					continue
				}

				issues := lint.LintForm(def, registry)
				for _, issue := range issues {
					fmt.Printf("%s: %s [%s] %s (question %s)\n",
						path, issue.Severity, issue.Code, issue.Message, issue.Question)
				}
				if lint.HasErrors(issues) || (*strict && len(issues) > 0) {
					failed = true
				}
				if *verbose {
					fmt.Printf("%s: form %q, %d pages, %d questions, %d issues\n",
						path, def.Slug, len(def.Pages), len(def.AllQuestions()), len(issues))
				}
			}
			if failed {
				return fmt.Errorf("check failed")
			}
			fmt.Printf("checked %d file(s), all clean\n", len(paths))
			return nil
		},
	})
}
