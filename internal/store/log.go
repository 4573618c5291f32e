package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Entry kinds.
const (
	KindOrigination = "origination"
	KindTransaction = "transaction"
	KindBatch       = "batch"
	KindRun         = "run"
)

var operationsBucket = []byte("operations")

// reservedFields are the entry keys a receipt may not shadow.
var reservedFields = map[string]bool{
	"id": true, "kind": true, "date": true, "command": true,
	"stdout": true, "stderr": true, "failed": true,
}

// Entry is one logged client invocation. Receipt fields are stored next to
// the common fields in the same JSON object.
type Entry struct {
	ID      string
	Kind    string
	Date    time.Time
	Command []string
	Stdout  string
	Stderr  string
	Failed  bool

	// Fields holds the kind-specific receipt fields.
	Fields map[string]json.RawMessage
}

type entryHeader struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"`
	Date    time.Time `json:"date"`
	Command []string  `json:"command"`
	Stdout  string    `json:"stdout"`
	Stderr  string    `json:"stderr"`
	Failed  bool      `json:"failed"`
}

// SetReceipt flattens the JSON object encoding of receipt into Fields.
func (e *Entry) SetReceipt(receipt any) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("store: encode receipt: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("store: receipt must encode as an object: %w", err)
	}
	for key := range fields {
		if reservedFields[key] {
			return fmt.Errorf("store: receipt field %q shadows an entry field", key)
		}
	}
	e.Fields = fields
	return nil
}

// Receipt decodes the kind-specific fields into v.
func (e *Entry) Receipt(v any) error {
	data, err := json.Marshal(e.Fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// MarshalJSON renders the entry as a single flat object.
func (e Entry) MarshalJSON() ([]byte, error) {
	header, err := json.Marshal(entryHeader{
		ID: e.ID, Kind: e.Kind, Date: e.Date, Command: e.Command,
		Stdout: e.Stdout, Stderr: e.Stderr, Failed: e.Failed,
	})
	if err != nil {
		return nil, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(header, &obj); err != nil {
		return nil, err
	}
	for k, v := range e.Fields {
		if !reservedFields[k] {
			obj[k] = v
		}
	}
	return json.Marshal(obj)
}

// UnmarshalJSON splits a flat object into the common and receipt fields.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var h entryHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	for k := range reservedFields {
		delete(obj, k)
	}
	*e = Entry{
		ID: h.ID, Kind: h.Kind, Date: h.Date, Command: h.Command,
		Stdout: h.Stdout, Stderr: h.Stderr, Failed: h.Failed,
		Fields: obj,
	}
	return nil
}

// Filter selects log entries. Zero values match everything.
type Filter struct {
	Kind  string
	Limit int // most recent entries only
}

// LogStore is an append-only operation log.
type LogStore interface {
	// Append assigns an id and date when unset and persists the entry.
	Append(e Entry) (Entry, error)
	// List returns matching entries, oldest first.
	List(f Filter) ([]Entry, error)
	// Get returns the entry with the given id.
	Get(id string) (Entry, error)
	Close() error
}

// BoltLog is a LogStore backed by a bbolt database.
type BoltLog struct {
	db  *bolt.DB
	now func() time.Time
}

var _ LogStore = (*BoltLog)(nil)

// LogOption configures a BoltLog.
type LogOption func(*BoltLog)

// WithClock overrides the clock used to date entries.
func WithClock(now func() time.Time) LogOption {
	return func(l *BoltLog) {
		if now != nil {
			l.now = now
		}
	}
}

// OpenBoltLog opens or creates the log database at path.
func OpenBoltLog(path string, opts ...LogOption) (*BoltLog, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open log: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(operationsBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init log: %w", err)
	}
	l := &BoltLog{db: db, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Append persists e under the next sequence number.
func (l *BoltLog) Append(e Entry) (Entry, error) {
	if e.Kind == "" {
		return Entry{}, errors.New("store: entry kind is required")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Date.IsZero() {
		e.Date = l.now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("store: encode entry: %w", err)
	}
	err = l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(operationsBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
	if err != nil {
		return Entry{}, fmt.Errorf("store: append: %w", err)
	}
	return e, nil
}

// List walks the log backwards so that Limit keeps the newest entries,
// then restores chronological order.
func (l *BoltLog) List(f Filter) ([]Entry, error) {
	var out []Entry
	err := l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(operationsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("entry %d: %w", binary.BigEndian.Uint64(k), err)
			}
			if f.Kind != "" && e.Kind != f.Kind {
				continue
			}
			out = append(out, e)
			if f.Limit > 0 && len(out) == f.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if out == nil {
		out = []Entry{}
	}
	return out, nil
}

// Get scans the log for id.
func (l *BoltLog) Get(id string) (Entry, error) {
	var found *Entry
	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(operationsBucket).ForEach(func(_, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if e.ID == id {
				found = &e
			}
			return nil
		})
	})
	if err != nil {
		return Entry{}, fmt.Errorf("store: get: %w", err)
	}
	if found == nil {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *found, nil
}

// Close releases the database file lock.
func (l *BoltLog) Close() error {
	return l.db.Close()
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
