// Package media stores listing images in the shared media directory.
//
// Every upload is first written to a hidden staging file and only renamed to
// its final name once all files of the batch were written, so a failed batch
// never leaves half of its images behind.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/homefinder/listing-service/internal/core/domain"
	"github.com/homefinder/listing-service/internal/core/ports"
)

const stagingPrefix = ".staging-"

// Store implements ports.ImageStore on top of an afero filesystem.
type Store struct {
	fs   afero.Fs
	root string
	now  func() time.Time

	mu   sync.Mutex
	last int64
}

// NewStore returns a Store rooted at root, creating the directory if needed.
func NewStore(fs afero.Fs, root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("media: root path is required")
	}
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("media: create root: %w", err)
	}
	return &Store{fs: fs, root: root, now: time.Now}, nil
}

// Ingest writes the uploads and returns their assigned names in input order.
// Names are a strictly increasing millisecond stamp followed by the base of
// the original filename.
func (s *Store) Ingest(ctx context.Context, uploads []ports.ImageUpload, expected int) ([]string, error) {
	if len(uploads) != expected {
		return nil, domain.ErrWrongImageCount
	}

	staged := make([]string, 0, len(uploads))
	defer func() {
		for _, tmp := range staged {
			_ = s.fs.Remove(tmp)
		}
	}()

	names := make([]string, 0, len(uploads))
	for _, u := range uploads {
		if u.Content == nil {
			return nil, domain.NewValidationError("image content is missing")
		}
		tmp, err := s.stage(ctx, u.Content)
		if err != nil {
			return nil, storageErr("stage "+u.Filename, err)
		}
		staged = append(staged, tmp)
		names = append(names, s.assignName(u.Filename))
	}

	committed := make([]string, 0, len(names))
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			s.remove(committed)
			return nil, storageErr("commit "+name, err)
		}
		if err := s.fs.Rename(staged[i], s.path(name)); err != nil {
			s.remove(committed)
			return nil, storageErr("commit "+name, err)
		}
		committed = append(committed, name)
	}
	staged = staged[:0]

	return names, nil
}

// Discard removes the named files. Files that are already gone are ignored.
func (s *Store) Discard(_ context.Context, names []string) error {
	var errs []error
	for _, name := range names {
		if !validName(name) {
			continue
		}
		if err := s.fs.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Open returns the committed image called name for reading.
func (s *Store) Open(name string) (afero.File, os.FileInfo, error) {
	if !validName(name) {
		return nil, nil, domain.ErrImageNotFound
	}

	f, err := s.fs.Open(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, domain.ErrImageNotFound
		}
		return nil, nil, fmt.Errorf("open image: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("stat image: %w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, nil, domain.ErrImageNotFound
	}
	return f, info, nil
}

// Ready reports whether the media root accepts writes.
func (s *Store) Ready() error {
	f, err := afero.TempFile(s.fs, s.root, stagingPrefix+"probe-*")
	if err != nil {
		return fmt.Errorf("media root not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return s.fs.Remove(name)
}

func (s *Store) stage(ctx context.Context, content io.Reader) (string, error) {
	f, err := afero.TempFile(s.fs, s.root, stagingPrefix+"*")
	if err != nil {
		return "", err
	}
	name := f.Name()

	_, err = io.Copy(f, &ctxReader{ctx: ctx, r: content})
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.fs.Remove(name)
		return "", err
	}
	return name, nil
}

func (s *Store) assignName(original string) string {
	s.mu.Lock()
	stamp := s.now().UnixMilli()
	if stamp <= s.last {
		stamp = s.last + 1
	}
	s.last = stamp
	s.mu.Unlock()

	return strconv.FormatInt(stamp, 10) + sanitize(original)
}

func (s *Store) remove(names []string) {
	for _, name := range names {
		_ = s.fs.Remove(s.path(name))
	}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.root, name)
}

// sanitize reduces a client-supplied filename to a bare file name.
func sanitize(original string) string {
	original = strings.ReplaceAll(original, "\\", "/")
	base := filepath.Base(filepath.Clean("/" + original))
	base = strings.TrimLeft(base, ".")
	if base == "" || base == "/" {
		return "image"
	}
	return base
}

func validName(name string) bool {
	return name != "" &&
		!strings.HasPrefix(name, ".") &&
		!strings.ContainsAny(name, `/\`)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStorageWrite, op, err)
}

// ctxReader aborts a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
