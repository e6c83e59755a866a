// Package cmd implements the CLI command structure for todo.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/nibzard/todo-go/internal/config"
	"github.com/nibzard/todo-go/internal/todo"
	"github.com/nibzard/todo-go/internal/ui"
)

// Version is set via ldflags at build time.
var Version = "dev"

// closeTimeout bounds how long exit waits for queued writes.
const closeTimeout = 5 * time.Second

// Run executes the todo CLI.
func Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("todo", flag.ContinueOnError)
	fs.Usage = func() {
		printUsage(fs, os.Stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	cws, err := config.LoadWithSources(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *help {
		printUsage(fs, os.Stdout)
		return nil
	}
	if *showVersion {
		return versionCommand()
	}

	// No subcommand opens the interactive list.
	subcommand := "tui"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 && !strings.HasPrefix(remainingArgs[0], "-") {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	cfg := cws.Config
	switch subcommand {
	case "tui":
		return tuiCommand(ctx, cfg, remainingArgs)
	case "add":
		return addCommand(ctx, cfg, remainingArgs)
	case "ls", "list":
		return lsCommand(ctx, cfg, remainingArgs)
	case "done", "toggle":
		return doneCommand(ctx, cfg, remainingArgs)
	case "edit":
		return editCommand(ctx, cfg, remainingArgs)
	case "rm", "delete":
		return rmCommand(ctx, cfg, remainingArgs)
	case "export":
		return exportCommand(ctx, cfg, remainingArgs)
	case "config":
		return configCommand(cws, remainingArgs)
	case "version":
		return versionCommand()
	case "help":
		printUsage(fs, os.Stdout)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, os.Stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// tuiCommand opens the interactive list.
func tuiCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("todo tui", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if !ui.IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY; use a subcommand such as 'todo ls'")
	}

	logger, closeLog, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer closeLog()

	s, err := openStore(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer s.close()

	opts, err := loadForTUI(ctx, s)
	if err != nil {
		return err
	}
	return ui.RunTUI(ctx, s, opts...)
}

// loadForTUI loads the list before the screen opens. A corrupt value starts
// the screen empty with the error in the status line; a read failure stops,
// since the first mutation would overwrite a value that was never read.
func loadForTUI(ctx context.Context, s *session) ([]ui.TUIOption, error) {
	_, err := s.Load(ctx)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, todo.ErrCorrupt) {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	s.logger.Warn("starting with an empty list", "err", err)
	return []ui.TUIOption{ui.WithLoadError(err)}, nil
}

// configCommand prints the effective configuration with the source of each value.
func configCommand(cws *config.ConfigWithSources, args []string) error {
	fs := flag.NewFlagSet("todo config", flag.ContinueOnError)
	example := fs.Bool("example", false, "Print an example config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *example {
		fmt.Print(config.ExampleConfig())
		return nil
	}

	if len(cws.Files) == 0 {
		fmt.Println("# no config files found")
	}
	for _, f := range cws.Files {
		fmt.Printf("# read %s\n", f)
	}
	for _, field := range config.Fields() {
		source := cws.Sources[field]
		if source == "" {
			source = config.SourceDefault
		}
		fmt.Printf("%-15s = %-30q # %s\n", field, cws.Config.Value(field), source)
	}
	return nil
}

func versionCommand() error {
	fmt.Printf("todo version %s\n", Version)
	return nil
}

// warnLoad reports a non-fatal load error. Read failures are returned so a
// one-shot command never overwrites a value it could not read.
func warnLoad(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, todo.ErrCorrupt) {
		fmt.Fprintf(os.Stderr, "warning: %v; starting from an empty list\n", err)
		return nil
	}
	return fmt.Errorf("loading tasks: %w", err)
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "todo - a small persistent task list")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  todo [options] [command]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  tui                  Open the interactive list (default command)")
	fmt.Fprintln(w, "  add <title...>       Add a task")
	fmt.Fprintln(w, "  ls                   List tasks")
	fmt.Fprintln(w, "  done <id>            Toggle a task's completed flag")
	fmt.Fprintln(w, "  edit <id> <title...> Change a task's title")
	fmt.Fprintln(w, "  rm <id>              Delete a task")
	fmt.Fprintln(w, "  export               Write the list as json, csv or pdf")
	fmt.Fprintln(w, "  config               Show the effective configuration")
	fmt.Fprintln(w, "  version              Show version information")
	fmt.Fprintln(w, "  help                 Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Ls Options (use with 'ls' command):")
	fmt.Fprintln(w, "  -done  Only completed tasks")
	fmt.Fprintln(w, "  -open  Only open tasks")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Export Options (use with 'export' command):")
	fmt.Fprintln(w, "  -format string")
	fmt.Fprintln(w, "        Output format (json|csv|pdf) (default \"json\")")
	fmt.Fprintln(w, "  -o string")
	fmt.Fprintln(w, "        Output file (default stdout)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config Options (use with 'config' command):")
	fmt.Fprintln(w, "  -example  Print an example todo.toml")
}
