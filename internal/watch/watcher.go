package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"codescout/internal/crawler"
	"codescout/internal/depgraph"
	"codescout/internal/indexer"
)

// debounceDelay batches bursts of file events (editor saves, git checkouts)
// into one incremental pass.
const debounceDelay = 500 * time.Millisecond

// Deleter removes a file's documents from the index.
type Deleter interface {
	DeleteFile(ctx context.Context, path string) error
}

// Watcher drives incremental re-indexing from filesystem events. Changed
// files are re-indexed, deleted files are removed, and after every pass the
// dependency graph is rebuilt and swapped in atomically.
type Watcher struct {
	root    string
	crawler *crawler.Crawler
	inc     *indexer.IncrementalIndexer
	deleter Deleter
	builder *depgraph.Builder
	holder  *depgraph.Holder
	edges   *indexer.IncrementalGraphCalculator // optional; persists similarity edges across passes
	logger  *slog.Logger
}

func NewWatcher(root string, cr *crawler.Crawler, inc *indexer.IncrementalIndexer,
	deleter Deleter, builder *depgraph.Builder, holder *depgraph.Holder,
	edges *indexer.IncrementalGraphCalculator, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		root:    root,
		crawler: cr,
		inc:     inc,
		deleter: deleter,
		builder: builder,
		holder:  holder,
		edges:   edges,
		logger:  logger,
	}
}

// Run watches the project root until ctx is cancelled. New directories
// created at runtime are added to the watch list.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := addDirsRecursive(fsw, w.root); err != nil {
		return err
	}
	w.logger.Info("watcher: started", slog.String("root", w.root))

	pending := make(map[string]struct{})
	removed := make(map[string]struct{})
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	schedule := func() {
		if flushTimer == nil {
			flushTimer = time.NewTimer(debounceDelay)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(debounceDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-flushCh:
			w.flush(ctx, pending, removed)
			pending = make(map[string]struct{})
			removed = make(map[string]struct{})

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(fsw, ev.Name); addErr != nil {
						w.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name), slog.String("error", addErr.Error()))
					}
					if files, scanErr := w.crawler.ScanProject(ev.Name); scanErr == nil {
						for _, f := range files {
							pending[f] = struct{}{}
						}
						if len(files) > 0 {
							schedule()
						}
					}
					continue
				}
			}

			if !w.crawler.Matches(ev.Name) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				pending[ev.Name] = struct{}{}
				delete(removed, ev.Name)
				schedule()
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old path; the new path arrives as a
				// separate Create event.
				removed[ev.Name] = struct{}{}
				delete(pending, ev.Name)
				schedule()
			}

		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// flush runs one incremental pass over the accumulated events and swaps in
// a freshly built dependency graph.
func (w *Watcher) flush(ctx context.Context, pending, removed map[string]struct{}) {
	for path := range removed {
		if err := w.deleter.DeleteFile(ctx, path); err != nil {
			w.logger.Warn("watcher: delete failed",
				slog.String("path", path), slog.String("error", err.Error()))
		} else {
			w.logger.Info("watcher: removed from index", slog.String("path", path))
		}
	}

	if len(pending) > 0 {
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		stats, err := w.inc.IndexChangedFiles(ctx, paths)
		if err != nil {
			w.logger.Warn("watcher: incremental pass failed", slog.String("error", err.Error()))
		} else {
			w.logger.Info("watcher: incremental pass done",
				slog.Int("filesIndexed", stats.FilesIndexed),
				slog.Int("totalChunks", stats.TotalChunks),
				slog.Int("errors", stats.Errors))
		}
	}

	if len(pending) == 0 && len(removed) == 0 {
		return
	}

	files, err := w.crawler.ScanProject(w.root)
	if err != nil {
		w.logger.Warn("watcher: rescan failed", slog.String("error", err.Error()))
		return
	}
	graph := w.builder.Build(files)
	w.holder.Swap(graph)
	w.logger.Info("watcher: graph swapped",
		slog.Int("files", len(files)), slog.Int("edges", graph.EdgeCount()))

	if w.edges != nil {
		stats, calcErr := w.edges.CalculateChangedEdgesForFiles(ctx, files)
		if calcErr != nil {
			w.logger.Warn("watcher: edge recompute failed", slog.String("error", calcErr.Error()))
		} else {
			w.logger.Info("watcher: similarity edges updated",
				slog.Int("recomputed", stats.NodesProcessed),
				slog.Int("cached", stats.CachedNodes),
				slog.Int("edges", stats.EdgesCalculated))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}
