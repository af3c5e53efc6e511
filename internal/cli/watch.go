package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-ledger/internal/analytics"
)

// Editors often save in several steps; changes inside this window collapse
// into one rebuild.
const watchDebounce = 100 * time.Millisecond

func newWatchCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <kind>",
		Short: "Rebuild a report whenever the dataset file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := analytics.ParseReportKind(args[0])
			if err != nil {
				return err
			}
			if g.datasetPath == "" {
				return fmt.Errorf("--dataset is required")
			}
			watcher, err := newFileWatcher(g.datasetPath)
			if err != nil {
				return err
			}

			rebuild := func() {
				if err := g.runReport(cmd, kind); err != nil {
					_, _ = fmt.Fprintln(g.opts.Stderr, failStyle.Render(err.Error()))
				}
			}
			rebuild()
			g.logger.Info("watching dataset", slog.String("path", g.datasetPath))
			runWatch(cmd.Context(), watcher, g.datasetPath, watchDebounce, g.logger, rebuild)
			return nil
		},
	}
}

// newFileWatcher watches the directory holding path so atomic saves, which
// replace the file, keep being observed.
func newFileWatcher(path string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", path, err)
	}
	return watcher, nil
}

// runWatch calls onChange after each burst of events touching path until ctx
// is done. onChange runs on the calling goroutine, so rebuilds never overlap
// and none is in flight once runWatch returns. It closes the watcher on return.
func runWatch(ctx context.Context, watcher *fsnotify.Watcher, path string, debounce time.Duration, logger *slog.Logger, onChange func()) {
	target := filepath.Clean(path)
	// Armed only by matching events.
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer func() {
		timer.Stop()
		_ = watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)
		case <-timer.C:
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("file watcher", slog.Any("error", err))
		}
	}
}
