package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ormasoftchile/mapgen/pkg/kernel/recipe"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [manifest.yaml] [recipe.yaml]",
	Short: "Recompile a recipe whenever it or its manifest changes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return runWatch(ctx, cmd.OutOrStdout(), args[0], args[1])
	},
}

func runWatch(ctx context.Context, w io.Writer, manifestPath, configPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files, so watch the parent directories.
	targets := map[string]bool{}
	for _, p := range []string{manifestPath, configPath} {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		targets[abs] = true
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
	}

	c := recipe.NewCompiler(recipe.WithLogger(logger))
	compileOnce := func() {
		ts := time.Now().Format("15:04:05")
		compiled, fp, err := compileFiles(c, manifestPath, configPath)
		if err != nil {
			fmt.Fprintf(w, "%s  %s\n", ts, errorTitleStyle.Render("✗ compile failed"))
			printError(w, err)
			return
		}
		fmt.Fprintf(w, "%s  %s\n", ts, okStyle.Render(fmt.Sprintf("✓ %d stage(s) %s", len(compiled), fp)))
	}
	compileOnce()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event, targets) {
				continue
			}
			logger.Debug("watch event", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			pending = time.After(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		case <-pending:
			pending = nil
			compileOnce()
		}
	}
}

func relevant(event fsnotify.Event, targets map[string]bool) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	return err == nil && targets[abs]
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 200*time.Millisecond, "Delay before recompiling after a change")
	rootCmd.AddCommand(watchCmd)
}
