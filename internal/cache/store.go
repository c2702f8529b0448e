package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// StoreFile is the BoltDB file holding compile-command history
	StoreFile = "compdb.db"

	// bucketName is the BoltDB bucket for compile-command entries, keyed by source path
	bucketName = "compile_commands"
)

// CommandStore persists compile-command entries across invocations
type CommandStore struct {
	db *bbolt.DB
}

// OpenStore opens (or creates) the compile-command store of buildDir
func OpenStore(buildDir string) (*CommandStore, error) {
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create build directory: %w", err)
	}

	dbPath := filepath.Join(buildDir, StoreFile)
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open compile command store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create compile command bucket: %w", err)
	}

	return &CommandStore{db: db}, nil
}

// Close closes the store
func (s *CommandStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

// Put records entries, replacing earlier entries for the same file
func (s *CommandStore) Put(entries ...CompileCommand) error {
	if len(entries) == 0 {
		return nil
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		for _, entry := range entries {
			data, err := json.Marshal(entry)
			if err != nil {
				return err
			}

			if err := b.Put([]byte(entry.File), data); err != nil {
				return err
			}
		}

		return nil
	})
}

// Lookup returns the entries recorded for files, skipping files never recorded.
// The result follows the order of files.
func (s *CommandStore) Lookup(files []string) ([]CompileCommand, error) {
	var entries []CompileCommand

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		for _, file := range files {
			data := b.Get([]byte(file))
			if data == nil {
				continue
			}

			var entry CompileCommand
			if err := json.Unmarshal(data, &entry); err != nil {
				// A damaged record is dropped; the file is re-recorded on its next compile
				continue
			}

			entries = append(entries, entry)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Len returns the number of recorded files
func (s *CommandStore) Len() (int, error) {
	var count int

	err := s.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket([]byte(bucketName)).Stats().KeyN
		return nil
	})

	return count, err
}

// Clear removes every recorded entry
func (s *CommandStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return err
		}

		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
}
