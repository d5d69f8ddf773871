// Package models defines the domain types for Ehwaz.
package models

// Note represents one markdown document registered in the workspace graph.
//
// ID is the canonical identifier derived from Name; it is the registry key,
// so two files whose names normalize to the same id address the same node
// and the later add wins. A Note value is immutable once constructed; an
// edit re-adds a fresh value under the same id.
type Note struct {
	// ID is the canonical id, derived from Name by slug.Canonicalize.
	ID string `json:"id"`
	// Name is the file's base name without extension, as first seen.
	Name string `json:"name"`
	// Title comes from the markdown content; falls back to Name.
	Title string `json:"title,omitempty"`
	// Filename, Extension and AbsPath describe the backing file.
	// None of them participate in index logic.
	Filename  string `json:"filename"`
	Extension string `json:"extension"`
	AbsPath   string `json:"path"`
	// Content is the raw markdown source, retained for re-derivation.
	Content string `json:"-"`
}

// Ref is the neighbor-list projection of a Note: enough to label a graph
// edge and fetch the full note, without hauling content around.
type Ref struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Filename string `json:"filename"`
}

// RefOf projects a Note to its Ref.
func RefOf(n Note) Ref {
	return Ref{ID: n.ID, Title: n.Title, Filename: n.Filename}
}

// Link represents a directed edge between two canonical ids. Target may be
// dangling: nothing guarantees a registered note exists under it.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
