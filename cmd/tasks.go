package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nibzard/todo-go/internal/config"
	"github.com/nibzard/todo-go/internal/export"
	"github.com/nibzard/todo-go/internal/todo"
	"github.com/nibzard/todo-go/internal/utils"
)

// withTasks opens a sync store, loads the list and runs fn against it.
func withTasks(ctx context.Context, cfg *config.Config, fn func(s *session) error) error {
	logger, closeLog, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer closeLog()

	s, err := openStore(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	_, loadErr := s.Load(ctx)
	if err := warnLoad(loadErr); err != nil {
		_ = s.close()
		return err
	}
	if err := fn(s); err != nil {
		_ = s.close()
		return err
	}
	if err := s.close(); err != nil {
		return fmt.Errorf("saving tasks: %w", err)
	}
	return nil
}

func addCommand(ctx context.Context, cfg *config.Config, args []string) error {
	title := strings.Join(args, " ")
	if todo.IsBlank(title) {
		return fmt.Errorf("usage: todo add <title...>")
	}
	return withTasks(ctx, cfg, func(s *session) error {
		tasks := s.Add(title)
		fmt.Printf("Added %s\n", tasks[len(tasks)-1].ID)
		return s.LastError()
	})
}

func lsCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("todo ls", flag.ContinueOnError)
	onlyDone := fs.Bool("done", false, "Only completed tasks")
	onlyOpen := fs.Bool("open", false, "Only open tasks")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if *onlyDone && *onlyOpen {
		return fmt.Errorf("-done and -open are mutually exclusive")
	}

	return withTasks(ctx, cfg, func(s *session) error {
		var shown []todo.Task
		for _, t := range s.Tasks() {
			if (*onlyDone && !t.Completed) || (*onlyOpen && t.Completed) {
				continue
			}
			shown = append(shown, t)
		}
		printTaskList(os.Stdout, shown)
		return nil
	})
}

func doneCommand(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: todo done <id>")
	}
	id := args[0]
	return withTasks(ctx, cfg, func(s *session) error {
		if _, ok := s.Get(id); !ok {
			return fmt.Errorf("no task with id %q", id)
		}
		s.ToggleCompleted(id)
		t, _ := s.Get(id)
		printTask(os.Stdout, t)
		return s.LastError()
	})
}

func editCommand(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 || todo.IsBlank(strings.Join(args[1:], " ")) {
		return fmt.Errorf("usage: todo edit <id> <title...>")
	}
	id, title := args[0], strings.Join(args[1:], " ")
	return withTasks(ctx, cfg, func(s *session) error {
		if _, ok := s.Get(id); !ok {
			return fmt.Errorf("no task with id %q", id)
		}
		s.UpdateTitle(id, title)
		t, _ := s.Get(id)
		printTask(os.Stdout, t)
		return s.LastError()
	})
}

func rmCommand(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: todo rm <id>")
	}
	id := args[0]
	return withTasks(ctx, cfg, func(s *session) error {
		if _, ok := s.Get(id); !ok {
			return fmt.Errorf("no task with id %q", id)
		}
		s.Delete(id)
		fmt.Printf("Deleted %s\n", id)
		return s.LastError()
	})
}

func exportCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("todo export", flag.ContinueOnError)
	format := fs.String("format", "json", "Output format (json|csv|pdf)")
	output := fs.String("o", "", "Output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	f, ok := utils.NormalizeChoice(*format, export.Formats, nil)
	if !ok {
		return fmt.Errorf("invalid format %q (want one of %s)", *format, strings.Join(export.Formats, ", "))
	}
	if f == "pdf" && *output == "" {
		return fmt.Errorf("pdf export needs -o <file>")
	}

	return withTasks(ctx, cfg, func(s *session) error {
		tasks := s.Tasks()
		render := func(w io.Writer) error {
			if err := export.Write(w, tasks, f); err != nil {
				return fmt.Errorf("exporting tasks: %w", err)
			}
			return nil
		}
		if *output == "" {
			return render(os.Stdout)
		}
		if err := writeExportFile(*output, render); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Exported %d tasks to %s\n", len(tasks), *output)
		return nil
	})
}

// writeExportFile creates path and fills it with render. On any failure,
// including Close, the partial file is removed.
func writeExportFile(path string, render func(io.Writer) error) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing export file: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	return render(file)
}

func printTaskList(w io.Writer, tasks []todo.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return
	}
	for _, t := range tasks {
		printTask(w, t)
	}
}

func printTask(w io.Writer, t todo.Task) {
	mark := " "
	if t.Completed {
		mark = "x"
	}
	fmt.Fprintf(w, "[%s] %s  %s\n", mark, t.ID, t.Title)
}
