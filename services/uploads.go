package services

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// UploadsURLPrefix is the route the uploads directory is served under.
const UploadsURLPrefix = "/uploads/"

// Uploads handles the files kept in the uploads directory: memory photos and
// synthesized replies.
type Uploads struct {
	Dir string // absolute path of the uploads directory
}

func NewUploads(dir string) (*Uploads, error) {
	if dir == "" {
		return nil, goerr.New("uploads directory is not set")
	}
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, goerr.Wrap(err, "could not determine absolute path for uploads directory", goerr.V("dir", dir))
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, goerr.Wrap(err, "could not create uploads directory", goerr.V("dir", absPath))
	}
	return &Uploads{Dir: absPath}, nil
}

// path keeps name inside the uploads directory.
func (u *Uploads) path(name string) (string, error) {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base != name {
		return "", goerr.New("invalid upload filename", goerr.V("name", name))
	}
	cleanPath := filepath.Join(u.Dir, base)
	if !strings.HasPrefix(cleanPath, u.Dir+string(filepath.Separator)) {
		return "", goerr.New("upload filename escapes uploads directory", goerr.V("name", name))
	}
	return cleanPath, nil
}

// Write stores data under name, replacing any existing file.
func (u *Uploads) Write(name string, data []byte) error {
	path, err := u.path(name)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return goerr.Wrap(err, "failed to write upload", goerr.V("name", name))
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return goerr.Wrap(err, "failed to move upload into place", goerr.V("name", name))
	}
	return nil
}

func (u *Uploads) Read(name string) ([]byte, error) {
	path, err := u.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read upload", goerr.V("name", name))
	}
	return data, nil
}

func (u *Uploads) Exists(name string) bool {
	path, err := u.path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// URL is the public path of an uploaded file.
func (u *Uploads) URL(name string) string {
	return UploadsURLPrefix + name
}
