// File: internal/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xKony/x-automate/api/schemas"
	"github.com/xKony/x-automate/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotFound is returned when no snapshot exists for an account.
var ErrNotFound = errors.New("session snapshot not found")

// FileStore persists session snapshots as one JSON file per account under a
// configured directory. Writes are atomic (temp file + rename) so a crash
// mid-write never corrupts the previous snapshot.
type FileStore struct {
	dir string
	log *zap.Logger
}

// New creates the store, expanding and creating the snapshot directory.
func New(cfg config.StoreConfig, logger *zap.Logger) (*FileStore, error) {
	dir, err := homedir.Expand(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand store directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
	}
	return &FileStore{
		dir: dir,
		log: logger.Named("store"),
	}, nil
}

// Load reads the snapshot for the given account. Returns ErrNotFound when the
// account has never been persisted.
func (s *FileStore) Load(ctx context.Context, accountID string) (*schemas.SessionSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(accountID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, accountID)
		}
		return nil, fmt.Errorf("failed to read snapshot for %s: %w", accountID, err)
	}

	var snap schemas.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot for %s: %w", accountID, err)
	}
	return &snap, nil
}

// Save writes the snapshot atomically.
func (s *FileStore) Save(ctx context.Context, snap *schemas.SessionSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap == nil || snap.AccountID == "" {
		return fmt.Errorf("snapshot has no account ID")
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot for %s: %w", snap.AccountID, err)
	}

	target := s.path(snap.AccountID)
	tmp, err := os.CreateTemp(s.dir, "."+snap.AccountID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot for %s: %w", snap.AccountID, err)
	}

	s.log.Debug("Session snapshot persisted",
		zap.String("account_id", snap.AccountID),
		zap.String("path", target))
	return nil
}

func (s *FileStore) path(accountID string) string {
	return filepath.Join(s.dir, accountID+".json")
}
