package cryptotax

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// EncodeLedger persists the ledger entries to an io.Writer in JSONL format,
// one entry per line, in canonical (timestamp, reference id) order.
func EncodeLedger(w io.Writer, l *Ledger) error {
	for e := range l.Entries() {
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal entry %q: %w", e.RefID, err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("failed to write entry %q: %w", e.RefID, err)
		}
	}
	return nil
}

// DecodeLedger reads a JSONL stream of ledger entries and returns a sorted
// ledger. Invalid lines are fatal here: persisted state is expected to be
// clean, only fetched batches tolerate malformed records.
func DecodeLedger(r io.Reader) (*Ledger, error) {
	l := NewLedger()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	n := 0
	for scanner.Scan() {
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue // Skip empty lines
		}
		n++
		var e LedgerEntry
		if err := json.Unmarshal(lineBytes, &e); err != nil {
			return nil, fmt.Errorf("ledger line %d: %w", n, err)
		}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("ledger line %d (%s): %w", n, e.RefID, err)
		}
		if l.Has(e.RefID) {
			return nil, fmt.Errorf("ledger line %d: duplicate reference id %q", n, e.RefID)
		}
		e.Time = e.Time.UTC()
		l.entries = append(l.entries, e)
		l.byRef[e.RefID] = struct{}{}
		if e.Time.After(l.watermarks[e.Source]) {
			l.watermarks[e.Source] = e.Time
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading ledger: %w", err)
	}

	l.sort()
	return l, nil
}
