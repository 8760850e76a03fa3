package safety

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath    = errors.New("invalid path")
	ErrProtectedPath  = errors.New("protected path")
	ErrOutsideBaseDir = errors.New("outside project directory")
	ErrTraversal      = errors.New("path traversal detected")
	ErrSymlinkEscape  = errors.New("symlink escape detected")
)

// systemRoots are never valid removal targets regardless of what the
// manifest or a glob resolves to.
var systemRoots = []string{
	"/",
	"/etc",
	"/bin",
	"/usr",
	"/boot",
	"/lib",
	"/lib64",
	"/sbin",
}

// Validator authorizes removal targets against a single project
// directory. Manifest entries and glob matches are joined to the base
// dir before validation, so every authorized target must still resolve
// inside it after cleaning and symlink resolution.
type Validator struct {
	baseDir   string
	protected []string
}

// NewValidator builds a validator for the given project directory.
// extraProtected adds to the built-in system roots.
func NewValidator(baseDir string, extraProtected []string) *Validator {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		abs = baseDir
	}
	protected := append([]string(nil), systemRoots...)
	for _, p := range extraProtected {
		if strings.TrimSpace(p) != "" {
			protected = append(protected, filepath.Clean(p))
		}
	}
	return &Validator{
		baseDir:   filepath.Clean(abs),
		protected: protected,
	}
}

// ValidateRemoveTarget authorizes a single removal. It is the only gate
// between candidate resolution and the remove syscall; a typed error
// means the target must not be touched.
func (v *Validator) ValidateRemoveTarget(path string) error {
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}

	if v.isProtected(p) {
		return ErrProtectedPath
	}

	if !underDir(p, v.baseDir) {
		return ErrOutsideBaseDir
	}

	// The cleaned path may land inside the base dir even when the raw
	// input walked out and back in; reject the raw form outright.
	if HasTraversal(path) {
		return ErrTraversal
	}

	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		// Target may already be gone (or vanish mid-run); let the
		// remove itself report that.
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	resolved, err = filepath.Abs(resolved)
	if err != nil {
		return ErrInvalidPath
	}
	if !underDir(filepath.Clean(resolved), v.baseDir) {
		return ErrSymlinkEscape
	}

	return nil
}

// BaseDir returns the project directory this validator confines to.
func (v *Validator) BaseDir() string {
	return v.baseDir
}

// NormalizePath converts path to absolute, cleaned form
func NormalizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrInvalidPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ErrInvalidPath
	}
	return filepath.Clean(abs), nil
}

// HasTraversal reports whether any segment of the raw path is "..".
// Shared with config validation: manifest entries and glob patterns
// must not climb out of the base dir.
func HasTraversal(raw string) bool {
	for _, part := range strings.Split(filepath.ToSlash(raw), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// isProtected checks the cleaned path against the protected roots.
// "/" is an exact hard block; everything else blocks the root and its
// subtree.
func (v *Validator) isProtected(p string) bool {
	if p == string(os.PathSeparator) {
		return true
	}
	for _, root := range v.protected {
		if root == string(os.PathSeparator) {
			continue
		}
		if underDir(p, root) {
			return true
		}
	}
	return false
}

// underDir reports whether cleaned path p is dir itself or inside it
func underDir(p, dir string) bool {
	if p == dir {
		return true
	}
	return strings.HasPrefix(p, dir+string(os.PathSeparator))
}
