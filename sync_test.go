package cryptotax

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

// fakeSource serves canned activity, balances and daily closes.
type fakeSource struct {
	name    string
	raws    []RawEntry
	balance map[string]Quantity
	closes  map[string][]PricePoint
	err     error

	since []time.Time // records the lower bound of each activity fetch
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchActivity(since time.Time) ([]RawEntry, error) {
	f.since = append(f.since, since)
	if f.err != nil {
		return nil, f.err
	}
	return f.raws, nil
}

func (f *fakeSource) FetchBalance() (map[string]Quantity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.balance, nil
}

func (f *fakeSource) FetchDailyCloses(asset string, since time.Time) ([]PricePoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.closes[asset], nil
}

var (
	_ ActivitySource = (*fakeSource)(nil)
	_ PriceSource    = (*fakeSource)(nil)
)

// tradeRaws is one EUR buy and one EUR sell of the same bitcoin, as the
// exchange would report them: two legs per trade.
func tradeRaws() []RawEntry {
	return []RawEntry{
		raw("LDG-1", "T1", "2021-03-01T10:00:00Z", "trade", "EUR", -10000),
		raw("LDG-2", "T1", "2021-03-01T10:00:00Z", "trade", "XBT", 1),
		raw("LDG-3", "T2", "2023-06-01T10:00:00Z", "trade", "XBT", -1),
		raw("LDG-4", "T2", "2023-06-01T10:00:00Z", "trade", "EUR", 25000),
	}
}

func syncConfig() *Config {
	return &Config{
		Method:          FIFO,
		Rate:            decimal.NewFromFloat(0.26),
		ThresholdByYear: map[int]decimal.Decimal{2023: decimal.NewFromInt(2000)},
	}
}

// quantities and money compare by value, not representation.
var cmpDecimals = cmp.Options{
	cmp.Comparer(func(a, b Quantity) bool { return a.Equal(b) }),
	cmp.Comparer(func(a, b Money) bool { return a.Equal(b) }),
	cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
}

func TestSynchronizeAndCompute(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	source := &fakeSource{
		name:    "fake",
		raws:    tradeRaws(),
		balance: map[string]Quantity{},
	}

	res, err := SynchronizeAndCompute(syncConfig(), store, source)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Report.Years) != 1 {
		t.Fatalf("years = %+v", res.Report.Years)
	}
	y := res.Report.Years[0]
	if y.Year != 2023 || !y.Taxable.Equal(M(13000)) || !y.TaxDue.Equal(M(3380)) {
		t.Errorf("summary = %+v, want 2023 taxable 13000 tax 3380", y)
	}

	// State survived the run.
	l, err := store.LoadLedger()
	if err != nil {
		t.Fatal(err)
	}
	if l.Len() != 4 {
		t.Errorf("persisted %d entries, want 4", l.Len())
	}
	if w, ok := l.Watermark("fake"); !ok || !w.Equal(at("2023-06-01T10:00:00Z")) {
		t.Errorf("persisted watermark = %s", w)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	store, _ := OpenStore(t.TempDir())
	source := &fakeSource{name: "fake", raws: tradeRaws(), balance: map[string]Quantity{}}

	first, err := SynchronizeAndCompute(syncConfig(), store, source)
	if err != nil {
		t.Fatal(err)
	}
	// The source keeps returning the same batch; nothing may change.
	second, err := SynchronizeAndCompute(syncConfig(), store, source)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(first.Report, second.Report, cmpDecimals); diff != "" {
		t.Errorf("report changed on re-sync (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Events, second.Events, cmpDecimals); diff != "" {
		t.Errorf("events changed on re-sync (-first +second):\n%s", diff)
	}

	l, _ := store.LoadLedger()
	if l.Len() != 4 {
		t.Errorf("ledger grew to %d entries on re-sync", l.Len())
	}

	// The second fetch started from the first run's watermark.
	if len(source.since) != 2 || !source.since[1].Equal(at("2023-06-01T10:00:00Z")) {
		t.Errorf("fetch lower bounds = %v", source.since)
	}
}

func TestSyncTransportFailureLeavesStateUntouched(t *testing.T) {
	dir := t.TempDir()
	store, _ := OpenStore(dir)
	source := &fakeSource{name: "fake", raws: tradeRaws(), balance: map[string]Quantity{}}

	if _, err := SynchronizeAndCompute(syncConfig(), store, source); err != nil {
		t.Fatal(err)
	}

	// The next pull fails on the wire.
	source.err = &TransportError{Source: "fake", Op: "fetch activity", Err: errors.New("boom")}
	source.raws = append(tradeRaws(),
		raw("LDG-5", "", "2023-07-01T10:00:00Z", "deposit", "XBT", 1))

	_, err := SynchronizeAndCompute(syncConfig(), store, source)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want a transport error", err)
	}

	// Reopen: the state still reflects the successful run only.
	reopened, _ := OpenStore(dir)
	l, err := reopened.LoadLedger()
	if err != nil {
		t.Fatal(err)
	}
	if l.Len() != 4 {
		t.Errorf("ledger has %d entries after failed sync, want 4", l.Len())
	}
	if w, _ := l.Watermark("fake"); !w.Equal(at("2023-06-01T10:00:00Z")) {
		t.Errorf("watermark moved on a failed sync: %s", w)
	}
}

func TestSyncReportsBalanceDrift(t *testing.T) {
	store, _ := OpenStore(t.TempDir())
	source := &fakeSource{
		name: "fake",
		raws: tradeRaws(),
		// The exchange claims a bitcoin the ledger does not account for.
		balance: map[string]Quantity{"XXBT": Q(1)},
	}

	res, err := SynchronizeAndCompute(syncConfig(), store, source)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, w := range res.Warnings {
		if w.Kind == WarnBalanceDrift && w.Asset == "XXBT" {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want a balance-drift for XXBT", res.Warnings)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	store, _ := OpenStore(t.TempDir())
	source := &fakeSource{name: "fake", raws: tradeRaws(), balance: map[string]Quantity{}}
	if _, err := SynchronizeAndCompute(syncConfig(), store, source); err != nil {
		t.Fatal(err)
	}

	first, err := Compute(syncConfig(), store)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Compute(syncConfig(), store)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second, cmpDecimals); diff != "" {
		t.Errorf("offline computation is not deterministic (-first +second):\n%s", diff)
	}
}

func TestComputeOnEmptyState(t *testing.T) {
	store, _ := OpenStore(t.TempDir())
	res, err := Compute(syncConfig(), store)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Events) != 0 || len(res.Report.Years) != 0 {
		t.Errorf("empty state produced %+v", res)
	}
}
