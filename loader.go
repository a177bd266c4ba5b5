package cryptotax

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// File layout of the persisted state. These three artifacts are the only
// state that must survive process restarts.
const (
	ledgerFile    = "ledger.jsonl"
	pricesFile    = "prices.jsonl"
	syncStateFile = "syncstate.json"
)

// Store persists the ledger, the price table and the per-source watermarks in
// a directory.
//
// Every write is all-or-nothing: content goes to a temporary file first and
// is renamed over the previous version, so a failed run leaves the persisted
// state unchanged. The mutex serializes a merge-then-compute cycle against
// any concurrent run, so no partial view of the ledger is ever observable.
type Store struct {
	dir string
	mu  sync.Mutex
}

// OpenStore opens (and creates if needed) a state directory.
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot open state directory %q: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the state directory path.
func (s *Store) Dir() string { return s.dir }

// writeAtomic writes content through a temporary file and an atomic rename.
func (s *Store) writeAtomic(name string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, name))
}

// LoadLedger reads the persisted ledger, or returns an empty one when no
// ledger was persisted yet. Persisted watermarks are restored on top.
func (s *Store) LoadLedger() (*Ledger, error) {
	f, err := os.Open(filepath.Join(s.dir, ledgerFile))
	if os.IsNotExist(err) {
		l := NewLedger()
		s.restoreWatermarks(l)
		return l, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	l, err := DecodeLedger(f)
	if err != nil {
		return nil, err
	}
	s.restoreWatermarks(l)
	return l, nil
}

func (s *Store) restoreWatermarks(l *Ledger) {
	state, err := s.loadSyncState()
	if err != nil {
		return // absent or unreadable state only widens the next fetch window
	}
	for source, watermark := range state {
		l.SetWatermark(source, watermark)
	}
}

// SaveLedger persists the ledger entries and, separately, the sync state.
// The watermark moves only after the entries landed successfully.
func (s *Store) SaveLedger(l *Ledger) error {
	err := s.writeAtomic(ledgerFile, func(f *os.File) error {
		return EncodeLedger(f, l)
	})
	if err != nil {
		return fmt.Errorf("cannot persist ledger: %w", err)
	}
	return s.saveSyncState(l.Watermarks())
}

// LoadPrices reads the persisted price table, or an empty one.
func (s *Store) LoadPrices() (*PriceSeries, error) {
	f, err := os.Open(filepath.Join(s.dir, pricesFile))
	if os.IsNotExist(err) {
		return NewPriceSeries(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodePrices(f)
}

// SavePrices persists the price table.
func (s *Store) SavePrices(p *PriceSeries) error {
	err := s.writeAtomic(pricesFile, func(f *os.File) error {
		return EncodePrices(f, p)
	})
	if err != nil {
		return fmt.Errorf("cannot persist prices: %w", err)
	}
	return nil
}

func (s *Store) loadSyncState() (map[string]time.Time, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, syncStateFile))
	if err != nil {
		return nil, err
	}
	var state map[string]time.Time
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("corrupt sync state: %w", err)
	}
	return state, nil
}

func (s *Store) saveSyncState(state map[string]time.Time) error {
	return s.writeAtomic(syncStateFile, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	})
}
