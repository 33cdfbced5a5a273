package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
)

// Badger is a Store backed by BadgerDB v4.
type Badger struct {
	db  *badger.DB
	now func() time.Time
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files. Required unless
	// InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	InMemory bool

	// Logger sets the badger logger. If nil, warnings and errors go to
	// slog and the rest is dropped.
	Logger badger.Logger
}

// NewBadger opens a BadgerDB-backed Store.
func NewBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("transcript: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		dbOpts = dbOpts.WithLogger(opts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(slogBadgerLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("transcript: open badger: %w", err)
	}
	return &Badger{db: db, now: time.Now}, nil
}

func (b *Badger) Save(_ context.Context, sessionID string, items []rt.Item) error {
	if err := checkID(sessionID); err != nil {
		return err
	}
	now := b.now()
	records, err := encodeItems(items, now)
	if err != nil {
		return err
	}

	meta := Session{ID: sessionID, Items: len(items), CreatedAt: now.UTC(), UpdatedAt: now.UTC()}
	var stale [][]byte
	err = b.db.View(func(txn *badger.Txn) error {
		if prev, err := getMeta(txn, sessionID); err == nil {
			meta.CreatedAt = prev.CreatedAt
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		stale = keysWithPrefix(txn, itemPrefix(sessionID))
		return nil
	})
	if err != nil {
		return err
	}
	metaData, err := msgpack.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("transcript: marshal session: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	// Keys rewritten below are not deleted first.
	for _, k := range stale {
		if slices.Compare(k, itemKey(sessionID, len(records))) < 0 {
			continue
		}
		if err := wb.Delete(k); err != nil {
			return err
		}
	}
	for i, data := range records {
		if err := wb.Set(itemKey(sessionID, i), data); err != nil {
			return err
		}
	}
	if err := wb.Set(metaKey(sessionID), metaData); err != nil {
		return err
	}
	return wb.Flush()
}

func (b *Badger) Load(_ context.Context, sessionID string) ([]rt.Item, error) {
	if err := checkID(sessionID); err != nil {
		return nil, err
	}
	var items []rt.Item
	err := b.db.View(func(txn *badger.Txn) error {
		if _, err := getMeta(txn, sessionID); err != nil {
			return err
		}
		prefix := itemPrefix(sessionID)
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			item, err := decodeItem(val)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (b *Badger) Sessions(_ context.Context) ([]Session, error) {
	var sessions []Session
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = metaPrefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(metaPrefix); it.ValidForPrefix(metaPrefix); it.Next() {
			var s Session
			err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &s)
			})
			if err != nil {
				return fmt.Errorf("transcript: unmarshal session: %w", err)
			}
			sessions = append(sessions, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortSessions(sessions)
	return sessions, nil
}

func (b *Badger) Delete(_ context.Context, sessionID string) error {
	if err := checkID(sessionID); err != nil {
		return err
	}
	var keys [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		if _, err := getMeta(txn, sessionID); err != nil {
			return err
		}
		keys = append(keysWithPrefix(txn, itemPrefix(sessionID)), metaKey(sessionID))
		return nil
	})
	if err != nil {
		return err
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (b *Badger) Close() error {
	return b.db.Close()
}

func getMeta(txn *badger.Txn, id string) (*Session, error) {
	item, err := txn.Get(metaKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := item.Value(func(val []byte) error {
		return msgpack.Unmarshal(val, &s)
	}); err != nil {
		return nil, fmt.Errorf("transcript: unmarshal session: %w", err)
	}
	return &s, nil
}

func keysWithPrefix(txn *badger.Txn, prefix []byte) [][]byte {
	iterOpts := badger.DefaultIteratorOptions
	iterOpts.Prefix = prefix
	iterOpts.PrefetchValues = false
	it := txn.NewIterator(iterOpts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

func sortSessions(sessions []Session) {
	slices.SortFunc(sessions, func(a, b Session) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}

// slogBadgerLogger forwards badger warnings and errors to slog.
type slogBadgerLogger struct{}

func (slogBadgerLogger) Errorf(f string, v ...interface{}) {
	slog.Error("badger: " + fmt.Sprintf(f, v...))
}

func (slogBadgerLogger) Warningf(f string, v ...interface{}) {
	slog.Warn("badger: " + fmt.Sprintf(f, v...))
}

func (slogBadgerLogger) Infof(string, ...interface{})  {}
func (slogBadgerLogger) Debugf(string, ...interface{}) {}

// Ensure Badger implements Store.
var _ Store = (*Badger)(nil)
