package fsops

// Remover abstracts filesystem remove operations
// Enables mocking in tests to prove dry-run never deletes
type Remover interface {
	Remove(path string) error
}
