package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	bucketName = "governor"
	// PendingKey is the single well-known key holding the pending list.
	PendingKey = "pending_scores"
)

// BoltStore keeps the pending list as one JSON array under PendingKey.
// bbolt serializes writers, so every Update is an atomic read-modify-write
// even across goroutines sharing the file.
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("delivery: open %s: %w", path, err)
	}
	s := &BoltStore{db: db}
	if err := s.initDB(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *BoltStore) initDB() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
}

func (s *BoltStore) Load(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var records []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		records, err = decodeRecords(tx.Bucket([]byte(bucketName)).Get([]byte(PendingKey)))
		return err
	})
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return nil, ErrStoreClosed
	}
	return records, err
}

func (s *BoltStore) Update(ctx context.Context, fn func([]Record) ([]Record, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		current, err := decodeRecords(b.Get([]byte(PendingKey)))
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			next = []Record{}
		}
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}
		return b.Put([]byte(PendingKey), data)
	})
	switch {
	case errors.Is(err, errUnchanged):
		return nil
	case errors.Is(err, bolt.ErrDatabaseNotOpen):
		return ErrStoreClosed
	}
	return err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func decodeRecords(data []byte) ([]Record, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("delivery: corrupt %s: %w", PendingKey, err)
	}
	return records, nil
}
