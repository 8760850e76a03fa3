package fsops

import "os"

// OSRemover implements Remover using real os package calls
type OSRemover struct{}

func (OSRemover) Remove(path string) error {
	return os.Remove(path)
}
