// Package storage defines the workspace file-system abstraction.
package storage

// Provider is the interface for workspace file operations. All paths are
// relative to the workspace root. The graph consumes Read as its file-read
// collaborator; Write exists for the create/update surfaces. Deleting and
// renaming are deliberately absent: the index never retracts notes.
type Provider interface {
	// Root returns the absolute workspace root path.
	Root() string
	// List returns the relative path of every markdown file under dir,
	// sorted. An empty dir means the workspace root.
	List(dir string) ([]string, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
}
