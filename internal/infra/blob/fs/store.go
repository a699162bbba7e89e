// Package fs implements a blob Store on the local filesystem.
//
// Each key is a file under the root; a JSON sidecar next to it (the same name
// plus ".meta") records content type, user metadata and the sha256 ETag.
package fs

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gcms/internal/blob/core"
)

const (
	metaSuffix  = ".meta"
	defaultRoot = "./data/blobs"
)

// Store is a core.Store rooted at a directory.
type Store struct {
	root string
}

// New creates root when missing. An empty root uses ./data/blobs.
func New(root string) (*Store, error) {
	root = cmp.Or(root, defaultRoot)
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

// Root is the directory blobs live under.
func (s *Store) Root() string { return s.root }

// location is where one key lives on disk.
type location struct {
	key  string
	data string
	meta string
}

func checkKey(key string) (string, error) {
	switch {
	case strings.TrimSpace(key) == "":
		return "", errors.New("empty key")
	case path.IsAbs(key):
		return "", fmt.Errorf("invalid absolute key %q", key)
	case slices.Contains(strings.Split(key, "/"), ".."):
		return "", fmt.Errorf("invalid key %q contains '..'", key)
	}
	clean := path.Clean(key)
	if strings.HasSuffix(clean, metaSuffix) {
		return "", fmt.Errorf("invalid key %q uses the metadata suffix", key)
	}
	return clean, nil
}

func (s *Store) locate(key string) (location, error) {
	clean, err := checkKey(key)
	if err != nil {
		return location{}, err
	}
	data := filepath.Join(s.root, filepath.FromSlash(clean))
	return location{key: key, data: data, meta: data + metaSuffix}, nil
}

func (s *Store) url(key string) string {
	u := url.URL{Scheme: "http", Host: "local.blob", Path: "/" + key}
	return u.String()
}

type sidecar struct {
	ContentType string            `json:"contentType,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ETag        string            `json:"etag"`
	Size        int64             `json:"size"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func (s *Store) describe(key string, sc sidecar) core.Info {
	return core.Info{
		Key:          key,
		Size:         sc.Size,
		ContentType:  sc.ContentType,
		ETag:         sc.ETag,
		Metadata:     maps.Clone(sc.Metadata),
		LastModified: sc.UpdatedAt,
		URL:          s.url(key),
	}
}

// Put writes through a temp file in the target directory and renames it
// into place, so a failed or concurrent write never exposes partial content.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	loc, err := s.locate(key)
	if err != nil {
		return core.Info{}, err
	}
	now := time.Now().UTC()
	sc := sidecar{ContentType: opts.ContentType, Metadata: maps.Clone(opts.Metadata), CreatedAt: now, UpdatedAt: now}
	if prev, err := loadSidecar(loc.meta); err == nil {
		if !opts.Overwrite {
			return core.Info{}, fmt.Errorf("blob %s: %w", key, core.ErrExists)
		}
		sc.CreatedAt = prev.CreatedAt
	}
	dir := filepath.Dir(loc.data)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return core.Info{}, err
	}
	sc.Size, sc.ETag, err = writeAtomic(dir, loc.data, r)
	if err != nil {
		return core.Info{}, err
	}
	if err := saveSidecar(loc.meta, sc); err != nil {
		return core.Info{}, err
	}
	return s.describe(key, sc), nil
}

func writeAtomic(dir, dest string, r io.Reader) (int64, string, error) {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return 0, "", err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck
	sum := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, sum), r)
	if err == nil {
		err = tmp.Sync()
	}
	err = errors.Join(err, tmp.Close())
	if err != nil {
		return 0, "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return 0, "", err
	}
	return n, hex.EncodeToString(sum.Sum(nil)), nil
}

// Get opens the blob; the caller closes the reader.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	loc, err := s.locate(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	f, err := os.Open(loc.data)
	if err != nil {
		return core.Info{}, nil, notFound(key, err)
	}
	sc, err := loadSidecar(loc.meta)
	if err != nil {
		f.Close() //nolint:errcheck
		return core.Info{}, nil, notFound(key, err)
	}
	return s.describe(key, sc), f, nil
}

func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	loc, err := s.locate(key)
	if err != nil {
		return core.Info{}, err
	}
	sc, err := loadSidecar(loc.meta)
	if err != nil {
		return core.Info{}, notFound(key, err)
	}
	return s.describe(key, sc), nil
}

// Delete removes the data file and its sidecar.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	loc, err := s.locate(key)
	if err != nil {
		return false, err
	}
	switch err := os.Remove(loc.data); {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, err
	}
	if err := os.Remove(loc.meta); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return true, err
	}
	return true, nil
}

// List finds sidecars below the root whose key has prefix.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	var out []core.Info
	walk := func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, metaSuffix) {
			return err
		}
		rel, err := filepath.Rel(s.root, strings.TrimSuffix(p, metaSuffix))
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		sc, err := loadSidecar(p)
		if err != nil {
			return err
		}
		out = append(out, s.describe(key, sc))
		return nil
	}
	if err := filepath.WalkDir(s.root, walk); err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b core.Info) int { return strings.Compare(a.Key, b.Key) })
	return out, nil
}

// PresignURL returns the plain local URL. Only GET is accepted.
func (s *Store) PresignURL(_ context.Context, key string, opts core.SignedURLOptions) (string, error) {
	if opts.Method != "" && !strings.EqualFold(opts.Method, "GET") {
		return "", core.ErrUnsupported
	}
	if _, err := checkKey(key); err != nil {
		return "", err
	}
	return s.url(key), nil
}

func notFound(key string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("blob %s: %w", key, core.ErrNotFound)
	}
	return err
}

func saveSidecar(p string, sc sidecar) error {
	b, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

func loadSidecar(p string) (sidecar, error) {
	var sc sidecar
	b, err := os.ReadFile(p)
	if err != nil {
		return sc, err
	}
	if err := json.Unmarshal(b, &sc); err != nil {
		return sc, fmt.Errorf("decode %s: %w", filepath.Base(p), err)
	}
	return sc, nil
}
