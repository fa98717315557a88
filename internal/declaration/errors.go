package declaration

import "fmt"

// NotRegisteredError signals registry drift: a file was unregistered that the
// synchronizer does not track.
type NotRegisteredError struct {
	Filename string
	Basename string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("declaration %q (%s) is not registered", e.Basename, e.Filename)
}

// DuplicateDeclarationError names two live files that share a basename.
type DuplicateDeclarationError struct {
	Basename string
	Existing string
	Incoming string
}

func (e *DuplicateDeclarationError) Error() string {
	return fmt.Sprintf("duplicate declaration %q: %s collides with %s", e.Basename, e.Incoming, e.Existing)
}
