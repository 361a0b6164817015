package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ContainmentError reports a symbolic link whose target lies outside the
// bundle root. It unwraps to ErrPathTraversal.
type ContainmentError struct {
	// Root is the bundle root as given by the caller.
	Root string
	// Link is the offending link, relative to the root.
	Link string
	// Target is the absolute, cleaned target of the link.
	Target string
}

func (e *ContainmentError) Error() string {
	return fmt.Sprintf("Can't deploy application containing links '%s' that reach outside its root '%s'", e.Link, e.Root)
}

func (e *ContainmentError) Unwrap() error {
	return ErrPathTraversal
}

// bundleRoot holds both spellings of a root: the absolute path as given and
// its fully resolved location. They differ when the root (or one of its
// parents) is itself a symbolic link.
type bundleRoot struct {
	lexical  string
	resolved string
}

func newBundleRoot(path string) (bundleRoot, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return bundleRoot{}, fmt.Errorf("%w: cannot resolve path: %w", ErrInvalidPath, err)
	}
	abs = filepath.Clean(abs)

	info, err := os.Stat(abs)
	if err != nil {
		return bundleRoot{}, fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	if !info.IsDir() {
		return bundleRoot{}, fmt.Errorf("%w: %s is not a directory", ErrInvalidPath, path)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return bundleRoot{}, fmt.Errorf("%w: cannot resolve symbolic links: %w", ErrInvalidPath, err)
	}

	return bundleRoot{lexical: abs, resolved: resolved}, nil
}

func (r bundleRoot) contains(path string) bool {
	return IsWithinRoot(path, r.resolved) || IsWithinRoot(path, r.lexical)
}

// ResolveLink reads the target of the symbolic link at path and returns it as
// an absolute, cleaned path. Relative targets are resolved against the
// directory holding the link. Only one level of indirection is followed; the
// target does not need to exist.
func ResolveLink(path string) (string, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return filepath.Clean(target), nil
}

// errStopWalk ends a walk early once a violation has been recorded.
var errStopWalk = errors.New("stop walk")

// CheckLinks walks every entry under bundleRoot and fails with a
// *ContainmentError on the first symbolic link whose target is outside the
// root. The walk is read-only and stops at the first violation.
func CheckLinks(bundleRoot string) error {
	root, err := newBundleRoot(bundleRoot)
	if err != nil {
		return err
	}

	var violation *ContainmentError
	walkErr := filepath.WalkDir(root.resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink == 0 {
			return nil
		}

		target, err := ResolveLink(path)
		if err != nil {
			return fmt.Errorf("failed to read link %s: %w", path, err)
		}
		if root.contains(target) {
			return nil
		}

		rel, err := filepath.Rel(root.resolved, path)
		if err != nil {
			rel = path
		}
		violation = &ContainmentError{
			Root:   bundleRoot,
			Link:   filepath.ToSlash(rel),
			Target: target,
		}
		return errStopWalk
	})

	if violation != nil {
		return violation
	}
	if walkErr != nil {
		return fmt.Errorf("failed to scan %s: %w", bundleRoot, walkErr)
	}
	return nil
}
