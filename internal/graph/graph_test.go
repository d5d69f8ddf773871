package graph

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"pgregory.net/rapid"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/pkg/slug"
)

// ids projects notes to a set of canonical ids for order-free assertions.
func ids(notes []models.Note) map[string]bool {
	out := make(map[string]bool, len(notes))
	for _, n := range notes {
		out[n.ID] = true
	}
	return out
}

type reporter interface {
	Errorf(format string, args ...any)
}

// checkSymmetry verifies the forward/backward inverse invariant and that no
// emptied set is left behind.
func checkSymmetry(t reporter, ix *Index) {
	for source, targets := range ix.forward {
		if len(targets) == 0 {
			t.Errorf("forward[%q] is an empty set", source)
		}
		for target := range targets {
			if _, ok := ix.backward[target][source]; !ok {
				t.Errorf("forward edge %s -> %s missing from backward index", source, target)
			}
		}
	}
	for target, sources := range ix.backward {
		if len(sources) == 0 {
			t.Errorf("backward[%q] is an empty set", target)
		}
		for source := range sources {
			if _, ok := ix.forward[source][target]; !ok {
				t.Errorf("backward edge %s <- %s missing from forward index", target, source)
			}
		}
	}
}

func TestAddNoteFromMarkdownRoundTrip(t *testing.T) {
	ix := New("/ws")
	n, err := ix.AddNoteFromMarkdown("/ws/My Note.md", "# Greetings\n\nbody\n")
	if err != nil {
		t.Fatalf("AddNoteFromMarkdown: %v", err)
	}
	if want := slug.Canonicalize("My Note"); n.ID != want {
		t.Errorf("ID = %q, want %q", n.ID, want)
	}
	if n.Name != "My Note" {
		t.Errorf("Name = %q, want %q", n.Name, "My Note")
	}
	if n.Extension != "md" || n.Filename != "My Note.md" {
		t.Errorf("Extension/Filename = %q/%q, want md/My Note.md", n.Extension, n.Filename)
	}
	if n.Title != "Greetings" {
		t.Errorf("Title = %q, want %q", n.Title, "Greetings")
	}
	if n.AbsPath != "/ws/My Note.md" {
		t.Errorf("AbsPath = %q, want %q", n.AbsPath, "/ws/My Note.md")
	}
}

func TestAddNoteFromMarkdownMultiDotName(t *testing.T) {
	ix := New("/ws")
	n, err := ix.AddNoteFromMarkdown("/ws/v1.2.note.md", "body")
	if err != nil {
		t.Fatalf("AddNoteFromMarkdown: %v", err)
	}
	if n.Name != "v1.2.note" || n.Extension != "md" {
		t.Errorf("Name/Extension = %q/%q, want v1.2.note/md", n.Name, n.Extension)
	}
	if n.ID != "v1-2-note" {
		t.Errorf("ID = %q, want v1-2-note", n.ID)
	}
}

func TestAddNoteFromMarkdownNoExtension(t *testing.T) {
	ix := New("/ws")
	_, err := ix.AddNoteFromMarkdown("/ws/README", "body")
	if !errors.Is(err, apperr.ErrMalformedPath) {
		t.Fatalf("error = %v, want apperr.ErrMalformedPath", err)
	}
	if ix.Len() != 0 {
		t.Errorf("Len() = %d after rejected add, want 0", ix.Len())
	}
}

func TestAddNoteFromMarkdownTitleFallback(t *testing.T) {
	ix := New("/ws")
	n, err := ix.AddNoteFromMarkdown("/ws/Untitled.md", "no heading here\n")
	if err != nil {
		t.Fatalf("AddNoteFromMarkdown: %v", err)
	}
	if n.Title != "Untitled" {
		t.Errorf("Title = %q, want fallback to name %q", n.Title, "Untitled")
	}
}

func TestForwardAndBacklinkResolution(t *testing.T) {
	ix := New("/ws")
	if _, err := ix.AddNoteFromMarkdown("/ws/Alpha.md", "see [[Beta]]\n"); err != nil {
		t.Fatal(err)
	}
	if _, err := ix.AddNoteFromMarkdown("/ws/Beta.md", "no links\n"); err != nil {
		t.Fatal(err)
	}

	beta, ok := ix.NoteWithLinks("beta")
	if !ok {
		t.Fatal("NoteWithLinks(beta) not found")
	}
	if !ids(beta.Backlinks)["alpha"] {
		t.Errorf("beta backlinks = %v, want to contain alpha", ids(beta.Backlinks))
	}

	alpha, ok := ix.NoteWithLinks("alpha")
	if !ok {
		t.Fatal("NoteWithLinks(alpha) not found")
	}
	if !ids(alpha.LinkedNotes)["beta"] {
		t.Errorf("alpha linked notes = %v, want to contain beta", ids(alpha.LinkedNotes))
	}
	checkSymmetry(t, ix)
}

func TestDanglingLinkTolerance(t *testing.T) {
	ix := New("/ws")
	if _, err := ix.AddNoteFromMarkdown("/ws/Alpha.md", "see [[Ghost]]\n"); err != nil {
		t.Fatalf("adding a note with a dangling link: %v", err)
	}

	if _, ok := ix.NoteWithLinks("ghost"); ok {
		t.Error("NoteWithLinks(ghost) = found, want not found")
	}

	alpha, ok := ix.NoteWithLinks("alpha")
	if !ok {
		t.Fatal("NoteWithLinks(alpha) not found")
	}
	if len(alpha.LinkedNotes) != 0 {
		t.Errorf("alpha linked notes = %v, want empty (dangling target omitted)", ids(alpha.LinkedNotes))
	}

	// The edge itself is representable even though it resolves to nothing.
	links := ix.Links()
	found := false
	for _, l := range links {
		if l.Source == "alpha" && l.Target == "ghost" {
			found = true
		}
	}
	if !found {
		t.Errorf("Links() = %v, want to contain alpha -> ghost", links)
	}
	checkSymmetry(t, ix)
}

func TestSelfReference(t *testing.T) {
	ix := New("/ws")
	if _, err := ix.AddNoteFromMarkdown("/ws/Loop.md", "me again: [[Loop]]\n"); err != nil {
		t.Fatal(err)
	}
	loop, ok := ix.NoteWithLinks("loop")
	if !ok {
		t.Fatal("NoteWithLinks(loop) not found")
	}
	if !ids(loop.LinkedNotes)["loop"] {
		t.Error("self link missing from linked notes")
	}
	if !ids(loop.Backlinks)["loop"] {
		t.Error("self link missing from backlinks")
	}
	checkSymmetry(t, ix)
}

func TestCanonicalCollisionLastWriteWins(t *testing.T) {
	ix := New("/ws")
	if _, err := ix.AddNoteFromMarkdown("/ws/My Note.md", "first\n"); err != nil {
		t.Fatal(err)
	}
	if _, err := ix.AddNoteFromMarkdown("/ws/my-note.md", "second\n"); err != nil {
		t.Fatal(err)
	}

	if ix.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (colliding ids share a node)", ix.Len())
	}
	got, ok := ix.NoteWithLinks("my-note")
	if !ok {
		t.Fatal("NoteWithLinks(my-note) not found")
	}
	if got.Note.Content != "second\n" || got.Note.Name != "my-note" {
		t.Errorf("registry holds %q/%q, want the second note's data", got.Note.Name, got.Note.Content)
	}
}

func TestReAddRetractsStaleEdges(t *testing.T) {
	ix := New("/ws")
	if _, err := ix.AddNoteFromMarkdown("/ws/Delta.md", "points at [[Alpha]]\n"); err != nil {
		t.Fatal(err)
	}
	if _, err := ix.AddNoteFromMarkdown("/ws/Alpha.md", "see [[Beta]] and [[Gamma]]\n"); err != nil {
		t.Fatal(err)
	}

	// Edit drops the Gamma link.
	if _, err := ix.AddNoteFromMarkdown("/ws/Alpha.md", "see [[Beta]]\n"); err != nil {
		t.Fatal(err)
	}

	if _, ok := ix.forward["alpha"]["gamma"]; ok {
		t.Error("stale forward edge alpha -> gamma survived the re-add")
	}
	if _, ok := ix.backward["gamma"]; ok {
		t.Error("backward set for gamma should be deleted once emptied")
	}
	if _, ok := ix.forward["alpha"]["beta"]; !ok {
		t.Error("surviving edge alpha -> beta was lost")
	}

	// Backlinks pointing AT the re-added note are untouched.
	alpha, ok := ix.NoteWithLinks("alpha")
	if !ok {
		t.Fatal("NoteWithLinks(alpha) not found")
	}
	if !ids(alpha.Backlinks)["delta"] {
		t.Errorf("alpha backlinks = %v, want to contain delta", ids(alpha.Backlinks))
	}
	checkSymmetry(t, ix)
}

func TestWithNotesSeed(t *testing.T) {
	seed := []models.Note{
		{ID: "alpha", Name: "Alpha", Content: "see [[Beta]]"},
		{ID: "beta", Name: "Beta", Content: ""},
	}
	ix := New("/ws", WithNotes(seed...))
	if ix.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", ix.Len())
	}
	alpha, ok := ix.NoteWithLinks("alpha")
	if !ok {
		t.Fatal("NoteWithLinks(alpha) not found")
	}
	if !ids(alpha.LinkedNotes)["beta"] {
		t.Error("seeded note's links were not indexed")
	}
}

type stubReader struct {
	files map[string]string
	err   error
}

func (r *stubReader) Read(path string) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	content, ok := r.files[path]
	if !ok {
		return nil, fmt.Errorf("stub: no file %q", path)
	}
	return []byte(content), nil
}

func TestAddNoteByFilePath(t *testing.T) {
	reader := &stubReader{files: map[string]string{"Alpha.md": "# A\n\n[[Beta]]\n"}}
	ix := New("/ws", WithReader(reader))

	n, err := ix.AddNoteByFilePath("Alpha.md")
	if err != nil {
		t.Fatalf("AddNoteByFilePath: %v", err)
	}
	if n.ID != "alpha" {
		t.Errorf("ID = %q, want alpha", n.ID)
	}
	if n.AbsPath != "/ws/Alpha.md" {
		t.Errorf("AbsPath = %q, want /ws/Alpha.md", n.AbsPath)
	}

	// Absolute paths inside the workspace resolve to the same note.
	if _, err := ix.AddNoteByFilePath("/ws/Alpha.md"); err != nil {
		t.Fatalf("AddNoteByFilePath(absolute): %v", err)
	}
	if ix.Len() != 1 {
		t.Errorf("Len() = %d, want 1", ix.Len())
	}
}

func TestAddNoteByFilePathErrorPassthrough(t *testing.T) {
	errBoom := errors.New("boom")
	ix := New("/ws", WithReader(&stubReader{err: errBoom}))

	_, err := ix.AddNoteByFilePath("Alpha.md")
	if err != errBoom {
		t.Errorf("error = %v, want the reader's error unmodified", err)
	}
}

func TestAddNoteByFilePathWithoutReader(t *testing.T) {
	ix := New("/ws")
	if _, err := ix.AddNoteByFilePath("Alpha.md"); err == nil {
		t.Error("AddNoteByFilePath without a reader should fail")
	}
}

func TestSymmetryInvariantProperty(t *testing.T) {
	names := []string{"Alpha", "Beta", "Gamma", "My Note", "v1.2.note"}
	rapid.Check(t, func(t *rapid.T) {
		ix := New("/ws")
		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			name := rapid.SampledFrom(names).Draw(t, "name")
			linkCount := rapid.IntRange(0, 3).Draw(t, "linkCount")
			var b strings.Builder
			for j := 0; j < linkCount; j++ {
				fmt.Fprintf(&b, "see [[%s]]\n", rapid.SampledFrom(names).Draw(t, "target"))
			}
			if _, err := ix.AddNoteFromMarkdown("/ws/"+name+".md", b.String()); err != nil {
				t.Fatalf("AddNoteFromMarkdown: %v", err)
			}
		}
		checkSymmetry(t, ix)
	})
}

func TestConcurrentAdds(t *testing.T) {
	ix := New("/ws")
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				name := fmt.Sprintf("Note %d", (g+i)%10)
				content := fmt.Sprintf("see [[Note %d]]\n", i%10)
				if _, err := ix.AddNoteFromMarkdown("/ws/"+name+".md", content); err != nil {
					t.Errorf("AddNoteFromMarkdown: %v", err)
				}
				ix.NoteWithLinks(slug.Canonicalize(name))
			}
		}(g)
	}
	wg.Wait()
	checkSymmetry(t, ix)
}
