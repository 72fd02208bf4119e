// Package storage turns bytes into URLs: the upload collaborator of the
// inpaint workflow.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Store saves a named object and returns a URL it can be fetched from.
type Store interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// ErrBadName is returned for object names that would escape the store.
var ErrBadName = errors.New("invalid object name")

// Kind of artefact produced by the inpaint workflow.
type Kind string

const (
	KindOriginal Kind = "original"
	KindMask     Kind = "mask"
	KindResult   Kind = "result"
)

// Name builds the object name for an artefact:
// inpaint-<kind>-<owner>-<unix millis>-<job>.png. job keeps names of
// concurrent submissions by one owner apart and is sanitised like owner.
// An empty owner becomes "anonymous".
func Name(kind Kind, owner string, at time.Time, job string) string {
	owner = sanitizeOwner(owner)
	if owner == "" {
		owner = "anonymous"
	}
	name := fmt.Sprintf("inpaint-%s-%s-%d", kind, owner, at.UnixMilli())
	if job = sanitizeOwner(job); job != "" {
		name += "-" + job
	}
	return name + ".png"
}

func sanitizeOwner(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DirStore keeps objects as files in Dir. URLs are BaseURL/<name>, or file://
// URLs when BaseURL is empty.
type DirStore struct {
	Dir     string
	BaseURL string
}

// NewDirStore creates the directory if needed.
func NewDirStore(dir, baseURL string) (*DirStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &DirStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put writes data to Dir/name. The content type is implied by the name's
// extension when the file is served back.
func (s *DirStore) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || name != path.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrBadName, name)
	}
	p := filepath.Join(s.Dir, name)
	tmp := p + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return s.URL(name), nil
}

// URL returns the public URL of name.
func (s *DirStore) URL(name string) string {
	if s.BaseURL != "" {
		return s.BaseURL + "/" + url.PathEscape(name)
	}
	abs, err := filepath.Abs(filepath.Join(s.Dir, name))
	if err != nil {
		abs = filepath.Join(s.Dir, name)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// Handler serves stored objects. Mount it with http.StripPrefix.
func (s *DirStore) Handler() http.Handler {
	fs := http.FileServer(http.Dir(s.Dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") || strings.HasSuffix(r.URL.Path, ".part") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
