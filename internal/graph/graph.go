// Package graph maintains the in-memory workspace note graph: a registry of
// notes keyed by canonical id plus two inverse link indexes.
//
// The forward index maps a note to the set of ids it links to; the backward
// index maps an id to the set of notes linking to it. The two stay strict
// inverses of each other: B is in forward[A] exactly when A is in
// backward[B]. Link targets resolve by canonical id, so an edge may point at
// an id with no registered note; such dangling edges are kept in the indexes
// and resolve to nothing at query time.
package graph

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/markdown"
	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/pkg/slug"
)

// FileReader supplies raw note bytes for AddNoteByFilePath. Paths are
// relative to the workspace root.
type FileReader interface {
	Read(path string) ([]byte, error)
}

// TitleFunc extracts a display title from markdown text; empty means none.
type TitleFunc func(source string) string

// LinkFunc extracts raw, uncanonicalized wiki-link targets from markdown text.
type LinkFunc func(source string) []string

// Index owns the note registry and both adjacency indexes.
//
// A single lock serializes all mutations: one add touches three maps and no
// query may observe the update half-applied. Query results are value copies;
// callers cannot corrupt index state through them.
type Index struct {
	root   string
	reader FileReader
	title  TitleFunc
	links  LinkFunc
	seed   []models.Note

	mu       sync.RWMutex
	notes    map[string]models.Note
	forward  map[string]map[string]struct{}
	backward map[string]map[string]struct{}
}

// Option configures an Index at construction time.
type Option func(*Index)

// WithReader attaches the file-read collaborator used by AddNoteByFilePath.
func WithReader(r FileReader) Option {
	return func(ix *Index) { ix.reader = r }
}

// WithExtractors overrides the markdown extractors. The defaults are
// markdown.Title and markdown.LinkTargets.
func WithExtractors(title TitleFunc, links LinkFunc) Option {
	return func(ix *Index) {
		ix.title = title
		ix.links = links
	}
}

// WithNotes seeds the index with an initial note set, applied in order with
// AddNote semantics once construction is complete.
func WithNotes(notes ...models.Note) Option {
	return func(ix *Index) { ix.seed = append(ix.seed, notes...) }
}

// New constructs an empty Index rooted at the workspace path. The root is
// opaque to index logic; only AddNoteByFilePath uses it to resolve paths.
func New(root string, opts ...Option) *Index {
	ix := &Index{
		root:     root,
		title:    markdown.Title,
		links:    markdown.LinkTargets,
		notes:    make(map[string]models.Note),
		forward:  make(map[string]map[string]struct{}),
		backward: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(ix)
	}
	for _, n := range ix.seed {
		ix.AddNote(n)
	}
	ix.seed = nil
	return ix
}

// Root returns the workspace root path the index was constructed with.
func (ix *Index) Root() string { return ix.root }

// AddNote inserts or replaces a note and rebuilds its outbound edges.
//
// The registry is last-write-wins. Re-adding an existing id first retracts
// the previous outbound edges, so an edited note never leaves edges behind
// for links its content no longer contains; backlinks held by other notes
// are untouched. The operation is total: it never fails, whatever the Note
// value.
func (ix *Index) AddNote(n models.Note) models.Note {
	targets := ix.links(n.Content)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, exists := ix.notes[n.ID]; exists {
		ix.retractLocked(n.ID)
	}
	ix.notes[n.ID] = n
	for _, raw := range targets {
		target := slug.Canonicalize(raw)
		addEdge(ix.forward, n.ID, target)
		addEdge(ix.backward, target, n.ID)
	}
	return n
}

// retractLocked removes id as a link source from both indexes, deleting
// emptied sets. Callers hold mu.
func (ix *Index) retractLocked(id string) {
	for target := range ix.forward[id] {
		back := ix.backward[target]
		delete(back, id)
		if len(back) == 0 {
			delete(ix.backward, target)
		}
	}
	delete(ix.forward, id)
}

func addEdge(m map[string]map[string]struct{}, from, to string) {
	set, ok := m[from]
	if !ok {
		set = make(map[string]struct{})
		m[from] = set
	}
	set[to] = struct{}{}
}

// AddNoteFromMarkdown derives note identity from the path's basename and
// delegates to AddNote. The segment after the last dot is the extension and
// everything before it, dots included, is the original name, so
// "v1.2.note.md" yields name "v1.2.note". A basename without a dot violates
// the precondition and is rejected with apperr.ErrMalformedPath.
func (ix *Index) AddNoteFromMarkdown(absPath, source string) (models.Note, error) {
	filename := filepath.Base(absPath)
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return models.Note{}, fmt.Errorf("%w: %q has no extension", apperr.ErrMalformedPath, filename)
	}
	name, ext := filename[:i], filename[i+1:]
	title := ix.title(source)
	if title == "" {
		title = name
	}
	n := models.Note{
		ID:        slug.Canonicalize(name),
		Name:      name,
		Title:     title,
		Filename:  filename,
		Extension: ext,
		AbsPath:   absPath,
		Content:   source,
	}
	return ix.AddNote(n), nil
}

// AddNoteByFilePath reads the note through the file-read collaborator and
// indexes it. The path may be absolute or relative to the workspace root.
// Read errors are returned to the caller untouched, without retry.
func (ix *Index) AddNoteByFilePath(path string) (models.Note, error) {
	if ix.reader == nil {
		return models.Note{}, errors.New("graph: no file reader configured")
	}
	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(ix.root, path)
		if err != nil {
			return models.Note{}, err
		}
		rel = r
	}
	data, err := ix.reader.Read(rel)
	if err != nil {
		return models.Note{}, err
	}
	return ix.AddNoteFromMarkdown(filepath.Join(ix.root, rel), string(data))
}

// NoteWithLinks bundles a note with its resolved neighbors. The two slices
// carry set semantics; their ordering is arbitrary.
type NoteWithLinks struct {
	Note        models.Note
	LinkedNotes []models.Note
	Backlinks   []models.Note
}

// NoteWithLinks resolves id against the registry. The second return is false
// when no note is registered under id. Edges whose other end has no
// registered note are silently omitted from the neighbor lists.
func (ix *Index) NoteWithLinks(id string) (NoteWithLinks, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n, ok := ix.notes[id]
	if !ok {
		return NoteWithLinks{}, false
	}
	res := NoteWithLinks{Note: n}
	for target := range ix.forward[id] {
		if tn, ok := ix.notes[target]; ok {
			res.LinkedNotes = append(res.LinkedNotes, tn)
		}
	}
	for source := range ix.backward[id] {
		if sn, ok := ix.notes[source]; ok {
			res.Backlinks = append(res.Backlinks, sn)
		}
	}
	return res, true
}

// Len returns the number of registered notes.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.notes)
}

// Notes returns a snapshot of all registered notes sorted by id.
func (ix *Index) Notes() []models.Note {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]models.Note, 0, len(ix.notes))
	for _, n := range ix.notes {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b models.Note) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Links returns a snapshot of every forward edge sorted by source then
// target, dangling targets included.
func (ix *Index) Links() []models.Link {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []models.Link
	for source, targets := range ix.forward {
		for target := range targets {
			out = append(out, models.Link{Source: source, Target: target})
		}
	}
	slices.SortFunc(out, func(a, b models.Link) int {
		if c := strings.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return strings.Compare(a.Target, b.Target)
	})
	return out
}
