package media

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var ErrUnknownHandle = errors.New("unknown media handle")

const handlePrefix = "blob:studio/"

// Store holds transient media handles for local playback. Revoking a handle
// hides it from new consumers immediately; the bytes are freed once every
// outstanding lease is released.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	logger  *slog.Logger
}

type entry struct {
	data    []byte
	mime    string
	leases  int
	revoked bool
}

// Lease is a read grant on a handle's bytes. Release must be called once.
type Lease struct {
	Handle string
	Data   []byte
	Mime   string

	store *Store
	once  sync.Once
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{entries: make(map[string]*entry), logger: logger}
}

// IsHandle reports whether s was minted by a Store.
func IsHandle(s string) bool {
	return len(s) > len(handlePrefix) && strings.HasPrefix(s, handlePrefix)
}

// HandleID returns the path-safe part of a handle.
func HandleID(h string) string {
	return strings.TrimPrefix(h, handlePrefix)
}

// HandleFromID reverses HandleID.
func HandleFromID(id string) string {
	return handlePrefix + id
}

// Register stores data under a fresh handle.
func (s *Store) Register(data []byte, mime string) string {
	h := handlePrefix + uuid.NewString()
	s.mu.Lock()
	s.entries[h] = &entry{data: data, mime: mime}
	s.mu.Unlock()
	return h
}

// Acquire leases a live handle.
func (s *Store) Acquire(handle string) (*Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[handle]
	if !ok || e.revoked {
		return nil, ErrUnknownHandle
	}
	e.leases++
	return &Lease{Handle: handle, Data: e.data, Mime: e.mime, store: s}, nil
}

func (l *Lease) Release() {
	l.once.Do(func() {
		l.store.release(l.Handle)
	})
}

func (s *Store) release(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[handle]
	if !ok {
		return
	}
	e.leases--
	if e.revoked && e.leases <= 0 {
		delete(s.entries, handle)
	}
}

// Revoke retires a handle. It is a no-op for unknown handles.
func (s *Store) Revoke(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[handle]
	if !ok {
		return
	}
	e.revoked = true
	if e.leases <= 0 {
		delete(s.entries, handle)
		return
	}
	if s.logger != nil {
		s.logger.Debug("handle revoke deferred", "handle", handle, "leases", e.leases)
	}
}

// Read copies out a handle's bytes.
func (s *Store) Read(handle string) ([]byte, string, error) {
	lease, err := s.Acquire(handle)
	if err != nil {
		return nil, "", err
	}
	defer lease.Release()

	out := make([]byte, len(lease.Data))
	copy(out, lease.Data)
	return out, lease.Mime, nil
}

// Inline converts a live handle into a data URI.
func (s *Store) Inline(handle string) (string, error) {
	data, mime, err := s.Read(handle)
	if err != nil {
		return "", err
	}
	return EncodeDataURI(mime, data), nil
}

// Len returns the number of retained entries, including revoked entries that
// still have leases.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
