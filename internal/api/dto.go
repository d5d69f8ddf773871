package api

import (
	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/internal/noteservice"
	"github.com/starford/ehwaz/internal/search"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Path    string `json:"path" example:"topics/hello.md" validate:"required"`
	Content string `json:"content" example:"# Hello\nWorld" validate:"required"`
}

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Content string `json:"content" example:"# Updated\nContent" validate:"required"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit (aliased from the search layer).
type SearchResult = search.Result

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// GraphNode is a node in the link graph (aliased from the domain layer).
type GraphNode = models.Ref

// GraphLink is a directed edge in the link graph (aliased from the domain layer).
type GraphLink = models.Link

// GraphResponse wraps the link graph.
type GraphResponse struct {
	Nodes []GraphNode `json:"nodes" validate:"required"`
	Links []GraphLink `json:"links" validate:"required"`
}

// ResolveResponse maps a raw link name to its canonical id.
type ResolveResponse struct {
	Name string `json:"name" example:"My Note!!" validate:"required"`
	ID   string `json:"id" example:"my-note" validate:"required"`
}
