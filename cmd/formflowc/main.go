package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
)

// command is one formflowc subcommand with its own flag set.
type command struct {
	name    string
	summary string
	flags   *flag.FlagSet
	run     func() error
}

var (
	verbose = flag.Bool("verbose", false, "Show detailed output")

	commands []*command
)

func register(c *command) {
	commands = append(commands, c)
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: formflowc [flags] <command> [options]")
	fmt.Fprintln(os.Stderr, "Commands:")
	sorted := append([]*command(nil), commands...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })
	for _, c := range sorted {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}

func lookup(name string) *command {
	for _, c := range commands {
		if c.name == name {
			return c
		}
	}
	return nil
}

func main() {
	registerCheck()
	registerShow()
	registerMigrate()

	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cmd := lookup(args[0])
	if cmd == nil {
		fmt.Fprintf(os.Stderr, "formflowc: unknown command %q\n", args[0])
		usage()
		os.Exit(2)
	}
	if err := cmd.flags.Parse(args[1:]); err != nil {
		os.Exit(2)
	}
	if err := cmd.run(); err != nil {
		fmt.Fprintf(os.Stderr, "formflowc %s: %v\n", cmd.name, err)
		os.Exit(1)
	}
}
