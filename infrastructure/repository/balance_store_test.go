package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func TestFileHashStore_Missing(t *testing.T) {
	store := NewFileHashStore(afero.NewMemMapFs(), "")

	hash, ok, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ok || hash != "" {
		t.Errorf("Load() = %q, %v; want no hash", hash, ok)
	}
}

func TestFileHashStore_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileHashStore(fs, "state/balance_hash.txt")
	ctx := context.Background()

	if err := store.Save(ctx, "0123456789abcdef"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	hash, ok, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !ok || hash != "0123456789abcdef" {
		t.Errorf("Load() = %q, %v", hash, ok)
	}

	data, _ := afero.ReadFile(fs, "state/balance_hash.txt")
	if string(data) != "0123456789abcdef" {
		t.Errorf("file contents = %q", data)
	}
}

func TestFileHashStore_Contents(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		want     string
		wantErr  bool
	}{
		{name: "trailing newline", contents: "0123456789abcdef\n", want: "0123456789abcdef"},
		{name: "surrounding spaces", contents: "  0123456789abcdef  ", want: "0123456789abcdef"},
		{name: "empty", contents: "", wantErr: true},
		{name: "too short", contents: "abc", wantErr: true},
		{name: "not hex", contents: "zzzzzzzzzzzzzzzz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			afero.WriteFile(fs, DefaultHashFile, []byte(tt.contents), 0o644)

			hash, ok, err := NewFileHashStore(fs, DefaultHashFile).Load(context.Background())
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedHash) {
					t.Errorf("Load() error = %v, want ErrMalformedHash", err)
				}
				if ok {
					t.Error("Load() reported a hash for malformed contents")
				}
				return
			}
			if err != nil || !ok || hash != tt.want {
				t.Errorf("Load() = %q, %v, %v; want %q", hash, ok, err, tt.want)
			}
		})
	}
}

func TestSQLiteHashStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "checkin.db")

	store, err := OpenSQLiteHashStore(ctx, path, "")
	if err != nil {
		t.Fatalf("OpenSQLiteHashStore() error = %v", err)
	}
	defer store.Close()

	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Fatalf("Load() on empty db = %v, %v", ok, err)
	}

	for _, hash := range []string{"0123456789abcdef", "fedcba9876543210"} {
		if err := store.Save(ctx, hash); err != nil {
			t.Fatalf("Save(%s) error = %v", hash, err)
		}
		got, ok, err := store.Load(ctx)
		if err != nil || !ok || got != hash {
			t.Errorf("Load() = %q, %v, %v; want %q", got, ok, err, hash)
		}
	}
}

func TestSQLiteHashStore_Scopes(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "checkin.db")

	a, err := OpenSQLiteHashStore(ctx, path, "a")
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	defer a.Close()
	if err := a.Save(ctx, "0123456789abcdef"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	b, err := OpenSQLiteHashStore(ctx, path, "b")
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	defer b.Close()
	if _, ok, _ := b.Load(ctx); ok {
		t.Error("scope b should not see scope a's hash")
	}
}

func TestOpenSQLiteHashStore_EmptyPath(t *testing.T) {
	if _, err := OpenSQLiteHashStore(context.Background(), "  ", ""); err == nil {
		t.Error("expected error for empty path")
	}
}
