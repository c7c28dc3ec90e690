package artifact

import (
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/indranet/indra/internal/errs"
)

// Store is the content-addressed blob store from spec.md §4.4: opaque to
// the index, which is the sole authority on access decisions. On disk it
// follows the §6 layout: blobs/<2-byte-prefix>/<blob_id>.
type Store struct {
	root string
}

// NewStore opens (creating if absent) a blob store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.New("artifact.NewStore", errs.Io, err)
	}
	return &Store{root: dir}, nil
}

func (s *Store) path(id ID) string {
	hexID := hex.EncodeToString(id.Value[:])
	return filepath.Join(s.root, hexID[:2], hexID)
}

// Put writes data to the store under its content-addressed id, returning
// the id and the size written. Writing an already-present blob is a no-op
// beyond recomputing the id.
func (s *Store) Put(data []byte) (ID, int64, error) {
	id, _, err := BlobID(data)
	if err != nil {
		return ID{}, 0, err
	}
	p := s.path(id)
	if _, err := os.Stat(p); err == nil {
		return id, int64(len(data)), nil
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return ID{}, 0, errs.New("artifact.Store.Put", errs.Io, err)
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return ID{}, 0, errs.New("artifact.Store.Put", errs.Io, err)
	}
	return id, int64(len(data)), nil
}

// Get reads the blob named by id. A missing blob is reported as
// errs.ArtifactNotFound, not a bare filesystem error.
func (s *Store) Get(id ID) ([]byte, error) {
	b, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.New("artifact.Store.Get", errs.ArtifactNotFound, err)
		}
		return nil, errs.New("artifact.Store.Get", errs.Io, err)
	}
	return b, nil
}

// Discard removes a blob from local disk at the owner's discretion. Per
// spec.md §4.4's recall cascade policy, existing grantees retain copies
// they already downloaded — discarding here only affects this store.
func (s *Store) Discard(id ID) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return errs.New("artifact.Store.Discard", errs.Io, err)
	}
	return nil
}
