package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/eddiefleurent/nse_strangler/internal/models"
	"github.com/eddiefleurent/nse_strangler/internal/util"
)

// JSONStore is a file-backed implementation of the store interfaces.
// Results live in <dir>/results.json; each symbol's snapshots live in
// <dir>/snapshots/<SYMBOL>.json keyed by ISO day. Snapshot files load
// lazily on first access and are written back atomically via a tmp-file
// rename. All methods are goroutine-safe.
type JSONStore struct {
	mu     sync.RWMutex
	dir    string
	closed bool

	results map[string]*models.BacktestResult // key: SYMBOL-YYYY-MM
	// symbol -> date key -> snapshot; nil until loaded
	snapshots map[string]map[string]*models.MarketSnapshot
	dirty     map[string]bool // symbols with unsaved snapshot changes

	meta storeMeta
}

type storeMeta struct {
	LastUpdated time.Time `json:"last_updated"`
	LastRunID   string    `json:"last_run_id,omitempty"`
}

type resultsFile struct {
	Results map[string]*models.BacktestResult `json:"results"`
	Meta    storeMeta                         `json:"meta"`
}

// OpenJSONStore opens (creating if needed) a store rooted at dir.
func OpenJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "snapshots"), 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}
	s := &JSONStore{
		dir:       dir,
		results:   make(map[string]*models.BacktestResult),
		snapshots: make(map[string]map[string]*models.MarketSnapshot),
		dirty:     make(map[string]bool),
	}
	if err := s.loadResults(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStore) resultsPath() string { return filepath.Join(s.dir, "results.json") }

func (s *JSONStore) snapshotPath(symbol string) string {
	return filepath.Join(s.dir, "snapshots", symbol+".json")
}

func (s *JSONStore) loadResults() error {
	data, err := os.ReadFile(s.resultsPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading results: %w", err)
	}
	var f resultsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing results: %w", err)
	}
	if f.Results != nil {
		s.results = f.Results
	}
	s.meta = f.Meta
	return nil
}

// ensureSymbolLocked loads a symbol's snapshot file. Caller holds the write lock.
func (s *JSONStore) ensureSymbolLocked(symbol string) (map[string]*models.MarketSnapshot, error) {
	if m, ok := s.snapshots[symbol]; ok {
		return m, nil
	}
	m := make(map[string]*models.MarketSnapshot)
	data, err := os.ReadFile(s.snapshotPath(symbol))
	if err == nil {
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parsing snapshots for %s: %w", symbol, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading snapshots for %s: %w", symbol, err)
	}
	s.snapshots[symbol] = m
	return m, nil
}

// GetSnapshot implements MarketDataStore.
func (s *JSONStore) GetSnapshot(symbol string, date time.Time) (*models.MarketSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.ensureSymbolLocked(symbol)
	if err != nil {
		return nil, false
	}
	snap, ok := m[util.Day(date).Format(util.DayLayout)]
	return snap, ok
}

// GetTradingDays implements MarketDataStore.
func (s *JSONStore) GetTradingDays(symbol string, start, end time.Time) []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.ensureSymbolLocked(symbol)
	if err != nil {
		return nil
	}
	start, end = util.Day(start), util.Day(end)
	days := make([]time.Time, 0, len(m))
	for key := range m {
		d, err := time.Parse(util.DayLayout, key)
		if err != nil {
			continue
		}
		d = util.Day(d)
		if !d.Before(start) && !d.After(end) {
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// UpsertResult implements ResultSink with overwrite semantics.
func (s *JSONStore) UpsertResult(r *models.BacktestResult) error {
	if r == nil {
		return ErrNilResult
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	r.Sanitize()
	s.results[r.Key()] = r
	s.meta.LastUpdated = time.Now().UTC()
	if r.RunID != "" {
		s.meta.LastRunID = r.RunID
	}
	return s.saveResultsLocked()
}

// UpsertSnapshot implements SnapshotSink with overwrite semantics. The write
// is buffered in memory; Save or Close flushes dirty symbols to disk.
func (s *JSONStore) UpsertSnapshot(snap *models.MarketSnapshot) error {
	if snap == nil {
		return ErrNilSnapshot
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	m, err := s.ensureSymbolLocked(snap.Symbol)
	if err != nil {
		return err
	}
	m[util.Day(snap.Date).Format(util.DayLayout)] = snap
	s.dirty[snap.Symbol] = true
	return nil
}

// Results returns all stored result rows, ordered by key.
func (s *JSONStore) Results() []*models.BacktestResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.results))
	for k := range s.results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*models.BacktestResult, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.results[k])
	}
	return out
}

// ResultsFor returns the stored rows for one symbol, ordered by key.
func (s *JSONStore) ResultsFor(symbol string) []*models.BacktestResult {
	var out []*models.BacktestResult
	for _, r := range s.Results() {
		if r.Symbol == symbol {
			out = append(out, r)
		}
	}
	return out
}

// SetRunID records the run that produced subsequent writes.
func (s *JSONStore) SetRunID(id string) {
	s.mu.Lock()
	s.meta.LastRunID = id
	s.mu.Unlock()
}

// Save flushes results and all dirty snapshot files.
func (s *JSONStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveResultsLocked(); err != nil {
		return err
	}
	for symbol := range s.dirty {
		if err := s.saveSymbolLocked(symbol); err != nil {
			return err
		}
		delete(s.dirty, symbol)
	}
	return nil
}

// Close flushes and marks the store closed; later writes fail with ErrClosed.
func (s *JSONStore) Close() error {
	if err := s.Save(); err != nil {
		return err
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *JSONStore) saveResultsLocked() error {
	s.meta.LastUpdated = time.Now().UTC()
	f := resultsFile{Results: s.results, Meta: s.meta}
	return atomicWriteJSON(s.resultsPath(), f)
}

func (s *JSONStore) saveSymbolLocked(symbol string) error {
	m, ok := s.snapshots[symbol]
	if !ok {
		return nil
	}
	return atomicWriteJSON(s.snapshotPath(symbol), m)
}

// atomicWriteJSON writes via a temp file and rename so readers never see a
// partial record.
func atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}
