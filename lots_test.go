package cryptotax

import "testing"

func TestConsumeFIFOvsLIFO(t *testing.T) {
	// Two unit lots at different costs. The same disposal realizes a gain of
	// 50 under FIFO and a loss of 50 under LIFO when sold for 150.
	build := func() *lots {
		var l lots
		l.push(at("2023-01-01T00:00:00Z"), "L1", Q(1), M(100))
		l.push(at("2023-02-01T00:00:00Z"), "L2", Q(1), M(200))
		return &l
	}

	fifo := build()
	matched, short := fifo.consume(Q(1), FIFO)
	if !short.IsZero() || len(matched) != 1 || matched[0].OriginRef != "L1" {
		t.Fatalf("FIFO matched %v short %s, want lot L1", matched, short)
	}
	if gain := M(150).Sub(matched[0].Cost()); !gain.Equal(M(50)) {
		t.Errorf("FIFO gain = %s, want 50", gain)
	}

	lifo := build()
	matched, short = lifo.consume(Q(1), LIFO)
	if !short.IsZero() || len(matched) != 1 || matched[0].OriginRef != "L2" {
		t.Fatalf("LIFO matched %v short %s, want lot L2", matched, short)
	}
	if gain := M(150).Sub(matched[0].Cost()); !gain.Equal(M(-50)) {
		t.Errorf("LIFO gain = %s, want -50", gain)
	}
}

func TestConsumeSplitsLot(t *testing.T) {
	var l lots
	l.push(at("2023-01-01T00:00:00Z"), "L1", Q(2), M(100))

	matched, short := l.consume(Q(0.5), FIFO)
	if !short.IsZero() || len(matched) != 1 {
		t.Fatalf("matched %v short %s", matched, short)
	}
	if !matched[0].Quantity.Equal(Q(0.5)) || !matched[0].UnitCost.Equal(M(100)) {
		t.Errorf("fragment = %+v, want 0.5 at unit cost 100", matched[0])
	}
	if !l.total().Equal(Q(1.5)) {
		t.Errorf("remaining = %s, want 1.5", l.total())
	}
	// The split lot keeps its identity for the next disposal.
	matched, _ = l.consume(Q(1.5), FIFO)
	if len(matched) != 1 || matched[0].OriginRef != "L1" || len(l) != 0 {
		t.Errorf("second consume = %v, open lots %d", matched, len(l))
	}
}

func TestConsumeSpansLots(t *testing.T) {
	var l lots
	l.push(at("2023-01-01T00:00:00Z"), "L1", Q(1), M(100))
	l.push(at("2023-02-01T00:00:00Z"), "L2", Q(1), M(200))

	matched, short := l.consume(Q(1.5), FIFO)
	if !short.IsZero() || len(matched) != 2 {
		t.Fatalf("matched %v short %s, want two fragments", matched, short)
	}
	cost := matched[0].Cost().Add(matched[1].Cost())
	if !cost.Equal(M(200)) { // 1*100 + 0.5*200
		t.Errorf("cost basis = %s, want 200", cost)
	}
	if !l.total().Equal(Q(0.5)) {
		t.Errorf("remaining = %s, want 0.5", l.total())
	}
}

func TestConsumeRunsShort(t *testing.T) {
	var l lots
	l.push(at("2023-01-01T00:00:00Z"), "L1", Q(1), M(100))

	matched, short := l.consume(Q(2), FIFO)
	if len(matched) != 1 || !matched[0].Quantity.Equal(Q(1)) {
		t.Fatalf("matched = %v", matched)
	}
	if !short.Equal(Q(1)) {
		t.Errorf("short = %s, want 1", short)
	}
	if len(l) != 0 {
		t.Errorf("open lots = %d, want 0", len(l))
	}
}

func TestConsumeTiesBreakByOriginRef(t *testing.T) {
	// Same acquisition instant: the tie breaks by ascending reference id under
	// both methods.
	for _, method := range []MatchingMethod{FIFO, LIFO} {
		var l lots
		l.push(at("2023-01-01T00:00:00Z"), "A1", Q(1), M(100))
		l.push(at("2023-01-01T00:00:00Z"), "A2", Q(1), M(200))

		matched, _ := l.consume(Q(1), method)
		if len(matched) != 1 || matched[0].OriginRef != "A1" {
			t.Errorf("%s: consumed %v, want lot A1", method, matched)
		}
	}
}

func TestConsumeLIFOTieGroupBehindNewerLot(t *testing.T) {
	var l lots
	l.push(at("2023-01-01T00:00:00Z"), "A1", Q(1), M(100))
	l.push(at("2023-02-01T00:00:00Z"), "B1", Q(1), M(200))
	l.push(at("2023-02-01T00:00:00Z"), "B2", Q(1), M(300))

	// LIFO picks the newest acquisition time, then the lowest reference id
	// within that tie group.
	matched, _ := l.consume(Q(2), LIFO)
	if len(matched) != 2 || matched[0].OriginRef != "B1" || matched[1].OriginRef != "B2" {
		t.Fatalf("matched = %v, want B1 then B2", matched)
	}
	if !l.total().Equal(Q(1)) || l[0].originRef != "A1" {
		t.Errorf("remaining lot = %s", l[0].originRef)
	}
}

func TestZeroBasisFragmentCost(t *testing.T) {
	frag := Fragment{Quantity: Q(3), ZeroBasis: true}
	if !frag.Cost().IsZero() {
		t.Errorf("zero-basis fragment cost = %s, want 0", frag.Cost())
	}
}
