package ingest

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ehwaz/internal/noteservice"
	"github.com/starford/ehwaz/internal/storage"
)

// EventCallback is invoked after a watcher-driven index change.
// kind is "created" or "updated"; id is the canonical note id.
type EventCallback func(kind, id, path string)

// Watch runs an fsnotify watcher on the workspace root until ctx is
// cancelled, re-indexing markdown files as they are created or written.
//
// Removes and renames do not touch the graph: a note keeps its last indexed
// content until the file is written again or the process restarts. A renamed
// file surfaces under its new id through the Create event for the new path.
//
// Directories created at runtime are added to the watch list, and any
// markdown already inside them is indexed immediately.
func Watch(ctx context.Context, svc *noteservice.Service, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					indexDir(svc, store, root, absPath, logger, cb)
					continue
				}
			}

			if !isMarkdown(absPath) {
				continue
			}

			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				n, idxErr := svc.IndexFile(rel, data)
				if idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				logger.Debug("watcher: indexed",
					slog.String("path", rel),
					slog.String("id", n.ID),
					slog.String("op", kind))
				if cb != nil {
					cb(kind, n.ID, rel)
				}

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// The graph stays as-is; the note keeps its last indexed
				// content.
				logger.Debug("watcher: file went away, keeping note", slog.String("path", rel))
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// indexDir indexes any markdown files found in a newly created directory.
func indexDir(svc *noteservice.Service, store storage.Provider, root, dirPath string, logger *slog.Logger, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !isMarkdown(path) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		data, readErr := store.Read(rel)
		if readErr != nil {
			return nil
		}
		if n, idxErr := svc.IndexFile(rel, data); idxErr == nil {
			logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
			if cb != nil {
				cb("created", n.ID, rel)
			}
		}
		return nil
	})
}

func isMarkdown(path string) bool {
	return strings.HasSuffix(path, ".md") || strings.HasSuffix(path, ".markdown")
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
