// Package upload stores payment screenshots after checking their real type.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/explorebd/explorebd-api/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrTooLarge      = errors.New("file exceeds the maximum upload size")
	ErrTypeForbidden = errors.New("file type not allowed")
	ErrEmpty         = errors.New("file is empty")
)

// Policy is the subset of site settings that governs uploads.
type Policy struct {
	MaxBytes int64
	Allowed  map[string]bool
}

func PolicyFrom(s models.SiteSettings) Policy {
	p := Policy{
		MaxBytes: int64(s.MaxFileSizeMB) << 20,
		Allowed:  map[string]bool{},
	}
	for _, ext := range strings.Split(s.AllowedFileTypes, ",") {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		p.Allowed[ext] = true
		if ext == "jpeg" {
			p.Allowed["jpg"] = true
		}
	}
	return p
}

func (p Policy) allows(mt *mimetype.MIME) bool {
	return p.Allowed[strings.TrimPrefix(mt.Extension(), ".")]
}

type Store struct {
	dir    string
	create func(name string) (io.WriteCloser, error)
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, create: func(name string) (io.WriteCloser, error) {
		return os.Create(name)
	}}
}

// Save sniffs r, rejects anything the policy does not allow and writes it
// under a random name. It returns the stored path.
func (s *Store) Save(r io.Reader, p Policy) (string, error) {
	limit := p.MaxBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if int64(len(data)) > limit {
		return "", ErrTooLarge
	}

	mt := mimetype.Detect(data)
	if !p.allows(mt) {
		return "", fmt.Errorf("%w: %s", ErrTypeForbidden, mt.String())
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	path := filepath.Join(s.dir, "proof_"+uuid.NewString()+mt.Extension())
	f, err := s.create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload: %w", err)
	}
	_, err = io.Copy(f, bytes.NewReader(data))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return path, nil
}
