package balance

import (
	"context"
	"log/slog"
)

// Store persists the balance hash between runs.
type Store interface {
	// Load returns the previously saved hash.
	// ok is false when no hash has been saved yet.
	Load(ctx context.Context) (hash string, ok bool, err error)

	// Save overwrites the stored hash.
	Save(ctx context.Context, hash string) error
}

// Tracker reads the previous hash once at run start and commits the new one
// once at run end.
type Tracker struct {
	store       Store
	logger      *slog.Logger
	previous    string
	hasPrevious bool
}

// NewTracker creates a tracker over the given store.
func NewTracker(store Store, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{store: store, logger: logger}
}

// LoadPrevious reads the stored hash. Read failures are logged and treated
// as if no hash had been stored.
func (t *Tracker) LoadPrevious(ctx context.Context) {
	hash, ok, err := t.store.Load(ctx)
	if err != nil {
		t.logger.Warn("Failed to load balance hash, treating as first run", "error", err)
		t.previous, t.hasPrevious = "", false
		return
	}
	t.previous, t.hasPrevious = hash, ok
}

// Previous returns the hash read by LoadPrevious.
func (t *Tracker) Previous() (string, bool) {
	return t.previous, t.hasPrevious
}

// Commit compares the snapshot with the previous hash and, when the snapshot
// is non-empty, saves the new hash whether or not it changed.
func (t *Tracker) Commit(ctx context.Context, s Snapshot) Decision {
	d := Detect(s, t.previous, t.hasPrevious)
	if d.Hash == "" {
		return d
	}

	switch {
	case d.FirstRun:
		t.logger.Info("First run detected", "hash", d.Hash)
	case d.Changed:
		t.logger.Info("Balance changes detected", "previous", t.previous, "hash", d.Hash)
	default:
		t.logger.Info("Balance unchanged", "hash", d.Hash)
	}

	if err := t.store.Save(ctx, d.Hash); err != nil {
		t.logger.Warn("Failed to save balance hash", "error", err)
	}
	return d
}

// MemoryStore keeps the hash in memory. It is used for dry runs and tests.
type MemoryStore struct {
	hash string
	ok   bool
}

// NewMemoryStore creates a store, optionally seeded with a previous hash.
func NewMemoryStore(seed ...string) *MemoryStore {
	s := &MemoryStore{}
	if len(seed) > 0 {
		s.hash, s.ok = seed[0], true
	}
	return s
}

// Load returns the stored hash.
func (s *MemoryStore) Load(ctx context.Context) (string, bool, error) {
	return s.hash, s.ok, nil
}

// Save stores the hash.
func (s *MemoryStore) Save(ctx context.Context, hash string) error {
	s.hash, s.ok = hash, true
	return nil
}

var _ Store = (*MemoryStore)(nil)

// ReadOnly wraps a store so that Save does nothing. Dry runs use it to
// compare against the real previous hash without replacing it.
func ReadOnly(s Store) Store {
	return readOnlyStore{s}
}

type readOnlyStore struct {
	Store
}

func (readOnlyStore) Save(ctx context.Context, hash string) error {
	return nil
}
