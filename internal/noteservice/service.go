// Package noteservice coordinates the workspace graph, file storage and the
// search sidecar behind the HTTP and MCP surfaces.
package noteservice

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/checksum"
	"github.com/starford/ehwaz/internal/graph"
	"github.com/starford/ehwaz/internal/markdown"
	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/internal/search"
	"github.com/starford/ehwaz/internal/storage"
	"github.com/starford/ehwaz/pkg/slug"
)

// NoteDetail is the full representation of a note with resolved neighbors.
// The neighbor slices are sorted by id for stable responses; consumers
// should still treat them as sets.
type NoteDetail struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Title       string       `json:"title"`
	Filename    string       `json:"filename"`
	Path        string       `json:"path"`
	Content     string       `json:"content"`
	Checksum    string       `json:"checksum"`
	LinkedNotes []models.Ref `json:"linked_notes"`
	Backlinks   []models.Ref `json:"backlinks"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

// Service coordinates storage, graph and search operations.
type Service struct {
	store storage.Provider
	g     *graph.Index
	idx   search.Index
}

// NewService creates a new note service.
func NewService(store storage.Provider, g *graph.Index, idx search.Index) *Service {
	return &Service{store: store, g: g, idx: idx}
}

// Resolve maps a free-form note name to its canonical id.
func (s *Service) Resolve(name string) string {
	return slug.Canonicalize(name)
}

// GetNote returns a note by canonical id with its resolved neighbors.
func (s *Service) GetNote(_ context.Context, id string) (*NoteDetail, error) {
	return s.detailByID(id)
}

// CreateNote writes a new note file into the workspace and indexes it.
func (s *Service) CreateNote(_ context.Context, path string, content []byte) (*NoteDetail, error) {
	// Reject extensionless paths before anything lands on disk.
	if base := filepath.Base(path); !strings.Contains(base, ".") {
		return nil, fmt.Errorf("%w: %q has no extension", apperr.ErrMalformedPath, base)
	}
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	n, err := s.IndexFile(path, content)
	if err != nil {
		return nil, err
	}
	return s.detailByID(n.ID)
}

// UpdateNote replaces a note's content with optimistic concurrency. The note
// is addressed by canonical id; its backing file comes from the registry.
// Re-indexing retracts the edges of links the new content dropped.
func (s *Service) UpdateNote(_ context.Context, id string, content []byte, ifMatch string) (*NoteDetail, error) {
	existing, ok := s.g.NoteWithLinks(id)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if ifMatch != "" && ifMatch != checksum.SumString(existing.Note.Content) {
		return nil, apperr.ErrConflict
	}
	rel, err := filepath.Rel(s.g.Root(), existing.Note.AbsPath)
	if err != nil {
		return nil, fmt.Errorf("noteservice: resolve path: %w", err)
	}
	if err := s.store.Write(rel, content); err != nil {
		return nil, err
	}
	n, err := s.IndexFile(rel, content)
	if err != nil {
		return nil, err
	}
	return s.detailByID(n.ID)
}

// ListNotes returns a page of registered notes ordered by id, plus the
// total count.
func (s *Service) ListNotes(_ context.Context, limit, offset int) ([]NoteListItem, int) {
	all := s.g.Notes()
	total := len(all)
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	items := make([]NoteListItem, 0, end-offset)
	for _, n := range all[offset:end] {
		items = append(items, NoteListItem{
			ID:       n.ID,
			Title:    n.Title,
			Filename: n.Filename,
			Path:     n.AbsPath,
		})
	}
	return items, total
}

// Search delegates full-text search to the sidecar index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]search.Result, error) {
	return s.idx.Query(query, limit)
}

// Graph returns all registered notes and every forward edge for graph
// visualization. Dangling targets appear among the links but not the nodes.
func (s *Service) Graph(_ context.Context) ([]models.Ref, []models.Link) {
	notes := s.g.Notes()
	nodes := make([]models.Ref, 0, len(notes))
	for _, n := range notes {
		nodes = append(nodes, models.RefOf(n))
	}
	return nodes, s.g.Links()
}

// RenderNote returns the note body rendered to HTML.
func (s *Service) RenderNote(_ context.Context, id string) ([]byte, error) {
	res, ok := s.g.NoteWithLinks(id)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return markdown.Render(res.Note.Content)
}

// IndexFile indexes one workspace file from its raw bytes: the note goes
// into the graph, its searchable text into the sidecar. Exported so that
// boot sync and the watcher can reuse it.
func (s *Service) IndexFile(relPath string, data []byte) (models.Note, error) {
	abs := filepath.Join(s.g.Root(), relPath)
	n, err := s.g.AddNoteFromMarkdown(abs, string(data))
	if err != nil {
		return models.Note{}, err
	}
	if err := s.idx.Upsert(n.ID, n.Title, markdown.Body(n.Content)); err != nil {
		return models.Note{}, fmt.Errorf("noteservice: search upsert: %w", err)
	}
	return n, nil
}

func (s *Service) detailByID(id string) (*NoteDetail, error) {
	res, ok := s.g.NoteWithLinks(id)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return buildDetail(res), nil
}

func buildDetail(res graph.NoteWithLinks) *NoteDetail {
	n := res.Note
	return &NoteDetail{
		ID:          n.ID,
		Name:        n.Name,
		Title:       n.Title,
		Filename:    n.Filename,
		Path:        n.AbsPath,
		Content:     n.Content,
		Checksum:    checksum.SumString(n.Content),
		LinkedNotes: refs(res.LinkedNotes),
		Backlinks:   refs(res.Backlinks),
	}
}

// refs projects notes to Ref values sorted by id.
func refs(notes []models.Note) []models.Ref {
	out := make([]models.Ref, 0, len(notes))
	for _, n := range notes {
		out = append(out, models.RefOf(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
