package main

import (
	"flag"
	"fmt"

	"github.com/formflow/formflow-go/runtime"
)

// registerMigrate wires `formflowc migrate -dsn <dsn> <up|down|status>`
// running the embedded goose migrations.
func registerMigrate() {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dsn := fs.String("dsn", "", "PostgreSQL connection string")

	register(&command{
		name:    "migrate",
		summary: "Run database migrations (up, down, status)",
		flags:   fs,
		run: func() error {
			if *dsn == "" {
				return fmt.Errorf("-dsn is required")
			}
			action := "up"
			if args := fs.Args(); len(args) > 0 {
				action = args[0]
			}
			if err := runtime.Migrate(*dsn, action); err != nil {
				return fmt.Errorf("migrate %s: %w", action, err)
			}
			fmt.Printf("migrate %s complete\n", action)
			return nil
		},
	})
}
