package render

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Extension is appended to a template name to find its file.
const Extension = ".tmpl"

// Store gives read access to template sources by name.
type Store interface {
	ReadTemplate(name string) (string, error)
	HasTemplate(name string) bool
}

// FSStore reads templates from an io/fs filesystem, typically the embedded
// default templates.
type FSStore struct {
	fsys fs.FS
}

// NewFSStore creates a store over fsys.
func NewFSStore(fsys fs.FS) *FSStore {
	return &FSStore{fsys: fsys}
}

func (s *FSStore) ReadTemplate(name string) (string, error) {
	data, err := fs.ReadFile(s.fsys, name+Extension)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return "", fmt.Errorf("failed to read template %s: %w", name, err)
	}
	return string(data), nil
}

func (s *FSStore) HasTemplate(name string) bool {
	info, err := fs.Stat(s.fsys, name+Extension)
	return err == nil && !info.IsDir()
}

// BillyStore reads templates from a go-billy filesystem. It backs template
// override directories (osfs) and in-memory fixtures (memfs).
type BillyStore struct {
	fs billy.Filesystem
}

// NewBillyStore creates a store over a billy filesystem.
func NewBillyStore(fs billy.Filesystem) *BillyStore {
	return &BillyStore{fs: fs}
}

func (s *BillyStore) ReadTemplate(name string) (string, error) {
	data, err := util.ReadFile(s.fs, name+Extension)
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return "", fmt.Errorf("failed to read template %s: %w", name, err)
	}
	return string(data), nil
}

func (s *BillyStore) HasTemplate(name string) bool {
	info, err := s.fs.Stat(name + Extension)
	return err == nil && !info.IsDir()
}

// Layered looks templates up in each store in turn; the first store holding
// a name wins.
type Layered []Store

func (l Layered) ReadTemplate(name string) (string, error) {
	for _, s := range l {
		if s.HasTemplate(name) {
			return s.ReadTemplate(name)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
}

func (l Layered) HasTemplate(name string) bool {
	for _, s := range l {
		if s.HasTemplate(name) {
			return true
		}
	}
	return false
}
