// Package store persists accounts, deployed contracts and the operation log
// under the tzcall home directory.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

var (
	// ErrNotFound is returned when a named record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrInvalidName is returned for empty record names.
	ErrInvalidName = errors.New("store: name is required")
)

// jsonStore is a name-keyed collection kept in a single JSON file. Every
// mutation rewrites the file through a temporary file and a rename.
type jsonStore[T any] struct {
	mu   sync.Mutex
	path string
}

func (s *jsonStore[T]) load() (map[string]T, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", filepath.Base(s.path), err)
	}
	records := map[string]T{}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", filepath.Base(s.path), err)
	}
	return records, nil
}

func (s *jsonStore[T]) save(records map[string]T) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("store: create directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("store: rename temp file: %w", err)
	}
	return nil
}

func (s *jsonStore[T]) get(name string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	records, err := s.load()
	if err != nil {
		return zero, err
	}
	rec, ok := records[name]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return rec, nil
}

func (s *jsonStore[T]) put(name string, rec T) error {
	if name == "" {
		return ErrInvalidName
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	records[name] = rec
	return s.save(records)
}

func (s *jsonStore[T]) remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := records[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(records, name)
	return s.save(records)
}

// list returns the records sorted by name.
func (s *jsonStore[T]) list() ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]T, 0, len(names))
	for _, name := range names {
		out = append(out, records[name])
	}
	return out, nil
}

// Account is a named implicit account known to the node client.
type Account struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Network string `json:"network,omitempty"`
}

// Accounts is the accounts.json store.
type Accounts struct {
	s jsonStore[Account]
}

// NewAccounts opens the accounts store at path. The file is created on
// first write.
func NewAccounts(path string) *Accounts {
	return &Accounts{s: jsonStore[Account]{path: path}}
}

// Get returns the named account.
func (a *Accounts) Get(name string) (Account, error) { return a.s.get(name) }

// Put creates or replaces an account.
func (a *Accounts) Put(acc Account) error { return a.s.put(acc.Name, acc) }

// Remove deletes the named account.
func (a *Accounts) Remove(name string) error { return a.s.remove(name) }

// List returns all accounts ordered by name.
func (a *Accounts) List() ([]Account, error) { return a.s.list() }

// Contract is a deployed contract and the types needed to call it.
type Contract struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	Network       string `json:"network,omitempty"`
	Source        string `json:"source,omitempty"`
	ParameterType string `json:"parameter_type,omitempty"`
	StorageType   string `json:"storage_type,omitempty"`
	OperationHash string `json:"operation_hash,omitempty"`
}

// Contracts is the contracts.json store.
type Contracts struct {
	s jsonStore[Contract]
}

// NewContracts opens the contracts store at path.
func NewContracts(path string) *Contracts {
	return &Contracts{s: jsonStore[Contract]{path: path}}
}

// Get returns the named contract.
func (c *Contracts) Get(name string) (Contract, error) { return c.s.get(name) }

// Put creates or replaces a contract record.
func (c *Contracts) Put(rec Contract) error { return c.s.put(rec.Name, rec) }

// Remove deletes the named contract.
func (c *Contracts) Remove(name string) error { return c.s.remove(name) }

// List returns all contracts ordered by name.
func (c *Contracts) List() ([]Contract, error) { return c.s.list() }

// Resolve returns the contract whose name or address matches ref.
func (c *Contracts) Resolve(ref string) (Contract, error) {
	if rec, err := c.Get(ref); err == nil || !errors.Is(err, ErrNotFound) {
		return rec, err
	}
	all, err := c.List()
	if err != nil {
		return Contract{}, err
	}
	for _, rec := range all {
		if rec.Address == ref {
			return rec, nil
		}
	}
	return Contract{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
}
