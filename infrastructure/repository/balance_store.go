package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"checkin-go/domain/balance"
)

// DefaultHashFile is the default balance hash file name.
const DefaultHashFile = "balance_hash.txt"

// DefaultScope keys the balance document when a store is shared.
const DefaultScope = "default"

var hashPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

// ErrMalformedHash is returned when stored content is not a balance hash.
var ErrMalformedHash = errors.New("malformed balance hash")

func parseHash(raw string) (string, error) {
	hash := strings.TrimSpace(raw)
	if !hashPattern.MatchString(hash) {
		return "", fmt.Errorf("%w: %q", ErrMalformedHash, hash)
	}
	return hash, nil
}

// FileHashStore keeps the hash as a single line in a file.
type FileHashStore struct {
	fs   afero.Fs
	path string
}

// NewFileHashStore creates a file store. A nil fs uses the OS filesystem.
func NewFileHashStore(fs afero.Fs, path string) *FileHashStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if path == "" {
		path = DefaultHashFile
	}
	return &FileHashStore{fs: fs, path: path}
}

// Load reads the hash. A missing file means no hash.
func (s *FileHashStore) Load(ctx context.Context) (string, bool, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	hash, err := parseHash(string(data))
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

// Save replaces the file contents with the hash.
func (s *FileHashStore) Save(ctx context.Context, hash string) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(s.fs, s.path, []byte(hash), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

// balanceDocument is the MongoDB document holding a scope's hash.
type balanceDocument struct {
	Scope     string    `bson:"_id"`
	Hash      string    `bson:"hash"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoHashStore keeps the hash in the balance_state collection.
type MongoHashStore struct {
	collection *mongo.Collection
	scope      string
	logger     *slog.Logger
}

// NewMongoHashStore creates a MongoDB-backed store for scope.
func NewMongoHashStore(db *MongoDB, scope string, logger *slog.Logger) *MongoHashStore {
	if scope == "" {
		scope = DefaultScope
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoHashStore{
		collection: db.Collection(BalanceCollection),
		scope:      scope,
		logger:     logger,
	}
}

// Load reads the scope's hash.
func (s *MongoHashStore) Load(ctx context.Context) (string, bool, error) {
	var doc balanceDocument
	if err := s.collection.FindOne(ctx, bson.M{"_id": s.scope}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to find balance state: %w", err)
	}
	hash, err := parseHash(doc.Hash)
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

// Save upserts the scope's hash.
func (s *MongoHashStore) Save(ctx context.Context, hash string) error {
	update := bson.M{"$set": bson.M{"hash": hash, "updated_at": time.Now().UTC()}}
	opts := options.Update().SetUpsert(true)

	if _, err := s.collection.UpdateOne(ctx, bson.M{"_id": s.scope}, update, opts); err != nil {
		return fmt.Errorf("failed to save balance state: %w", err)
	}
	s.logger.Debug("Balance state saved", "scope", s.scope)
	return nil
}

var (
	_ balance.Store = (*FileHashStore)(nil)
	_ balance.Store = (*MongoHashStore)(nil)
)
