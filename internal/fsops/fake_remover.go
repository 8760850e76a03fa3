package fsops

// FakeRemover implements Remover for testing
// Records all remove calls without touching the filesystem and can
// fail specific paths to exercise continue-on-error behavior
type FakeRemover struct {
	Calls  []string
	FailOn map[string]error
}

func (f *FakeRemover) Remove(path string) error {
	f.Calls = append(f.Calls, "rm:"+path)
	if err, ok := f.FailOn[path]; ok {
		return err
	}
	return nil
}
