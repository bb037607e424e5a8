package receipt

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/ipfs/go-cid"
)

// Store keeps receipt bytes keyed by their CID.
//
// Put is idempotent and stored bytes never change. Get returns ErrNotFound
// for an absent CID.
type Store interface {
	Put(b []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}

// Archive encodes r and puts it into s.
func Archive(s Store, r Receipt) (cid.Cid, error) {
	b, err := r.Bytes()
	if err != nil {
		return cid.Undef, err
	}
	return s.Put(b)
}

// Lookup fetches and parses the receipt stored under id.
func Lookup(s Store, id cid.Cid) (Receipt, error) {
	b, err := s.Get(id)
	if err != nil {
		return Receipt{}, err
	}
	return Parse(b)
}

// MemStore is an in-process Store.
type MemStore struct {
	mu   sync.RWMutex
	objs map[cid.Cid][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{objs: make(map[cid.Cid][]byte)}
}

func (m *MemStore) Put(b []byte) (cid.Cid, error) {
	id, err := CIDOf(b)
	if err != nil {
		return cid.Undef, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.objs[id]; ok {
		if !bytes.Equal(existing, b) {
			return cid.Undef, ErrImmutable
		}
		return id, nil
	}
	m.objs[id] = append([]byte(nil), b...)
	return id, nil
}

func (m *MemStore) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, ErrInvalidCID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemStore) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objs[id]
	return ok
}

// DirStore keeps receipts as read-only files under a root directory,
// sharded by the first two characters of the CID.
type DirStore struct {
	root string
}

// NewDirStore creates root if needed.
func NewDirStore(root string) (*DirStore, error) {
	if root == "" {
		return nil, errors.New("receipt: store directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &DirStore{root: root}, nil
}

func (d *DirStore) Put(b []byte) (cid.Cid, error) {
	id, err := CIDOf(b)
	if err != nil {
		return cid.Undef, err
	}
	path := d.pathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cid.Undef, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if os.IsExist(err) {
			existing, rerr := d.Get(id)
			if rerr != nil || !bytes.Equal(existing, b) {
				return cid.Undef, ErrImmutable
			}
			return id, nil
		}
		return cid.Undef, err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return cid.Undef, err
	}
	return id, nil
}

func (d *DirStore) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, ErrInvalidCID
	}
	b, err := os.ReadFile(d.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	got, err := CIDOf(b)
	if err != nil {
		return nil, err
	}
	if got != id {
		return nil, ErrCIDMismatch
	}
	return b, nil
}

func (d *DirStore) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := os.Stat(d.pathFor(id))
	return err == nil
}

func (d *DirStore) pathFor(id cid.Cid) string {
	s := id.String()
	return filepath.Join(d.root, s[:2], s)
}
