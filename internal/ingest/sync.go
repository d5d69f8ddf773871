// Package ingest feeds workspace markdown files into the note graph, once
// at boot (Sync) and continuously afterwards (Watch).
package ingest

import (
	"log/slog"

	"github.com/starford/ehwaz/internal/noteservice"
	"github.com/starford/ehwaz/internal/storage"
)

// Sync walks the workspace and indexes every markdown file it finds. The
// graph starts empty at boot, so everything on disk is indexed from scratch.
func Sync(svc *noteservice.Service, store storage.Provider, logger *slog.Logger) error {
	paths, err := store.List("")
	if err != nil {
		return err
	}

	indexed := 0
	for _, p := range paths {
		data, err := store.Read(p)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		if _, err := svc.IndexFile(p, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		indexed++
	}

	logger.Info("sync: complete", slog.Int("indexed", indexed), slog.Int("files", len(paths)))
	return nil
}
