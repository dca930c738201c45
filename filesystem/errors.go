package filesystem

import "errors"

// Name and structure errors
var (
	// ErrInvalidName indicates an empty name, a name containing '/' or a newline, or "." / "..".
	ErrInvalidName = errors.New("invalid name")

	// ErrTooLong indicates a name or path segment longer than the configured limit.
	ErrTooLong = errors.New("name too long")

	// ErrInvalidParent indicates the target is absent or not a directory.
	ErrInvalidParent = errors.New("invalid parent directory")

	// ErrNameCollision indicates a sibling with the same name already exists.
	ErrNameCollision = errors.New("name already exists")

	// ErrCyclicMove indicates a node would be moved into itself or one of its descendants.
	ErrCyclicMove = errors.New("cannot move a node into its own subtree")
)

// Resolution errors
var (
	// ErrNotFound indicates a path segment has no matching child.
	ErrNotFound = errors.New("element not found")

	// ErrPathThroughFile indicates a non-terminal path segment is a file.
	ErrPathThroughFile = errors.New("path traverses a file")
)

// File content errors
var (
	// ErrNotFile indicates a line operation on a directory.
	ErrNotFile = errors.New("not a file")

	// ErrLineRange indicates a line number outside the file.
	ErrLineRange = errors.New("line out of range")

	// ErrInvalidLine indicates line text containing a line break.
	ErrInvalidLine = errors.New("line contains a line break")
)
