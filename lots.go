package cryptotax

import "time"

// lot represents a single open acquisition of an asset, used for cost basis
// calculations. It is shrunk in place as disposals consume it.
type lot struct {
	acquiredAt time.Time
	originRef  string // reference id of the acquiring entry
	original   Quantity
	remaining  Quantity
	unitCost   Money // EUR per unit
}

// lots is the ordered collection of open lots of one asset. Acquisitions
// arrive in ledger order (timestamp, then reference id), so the slice is
// always sorted oldest first regardless of the matching method.
type lots []*lot

// push opens a new lot at the end of the collection.
func (l *lots) push(acquiredAt time.Time, originRef string, quantity Quantity, unitCost Money) {
	*l = append(*l, &lot{
		acquiredAt: acquiredAt,
		originRef:  originRef,
		original:   quantity,
		remaining:  quantity,
		unitCost:   unitCost,
	})
}

// total sums the remaining quantity across all open lots.
func (l lots) total() Quantity {
	var sum Quantity
	for _, lt := range l {
		sum = sum.Add(lt.remaining)
	}
	return sum
}

// Fragment is one slice of a lot consumed by a disposal.
type Fragment struct {
	OriginRef  string    `json:"originRef,omitempty"`
	AcquiredAt time.Time `json:"acquiredAt,omitzero"`
	Quantity   Quantity  `json:"quantity"`
	UnitCost   Money     `json:"unitCost"`
	// ZeroBasis marks the unmatched remainder of an insufficient-lot
	// disposal: full proceeds count as gain.
	ZeroBasis bool `json:"zeroBasis,omitempty"`
}

// Cost returns the cost basis of the fragment.
func (f Fragment) Cost() Money { return f.UnitCost.Mul(f.Quantity) }

// consume matches a disposed quantity against the open lots in the order the
// method dictates: FIFO pops from the oldest acquisition, LIFO from the
// newest. The last lot touched is split when it only partially covers the
// remaining amount. It returns the consumed fragments in matching order and
// the quantity left unmatched when the lots run out.
func (l *lots) consume(quantity Quantity, method MatchingMethod) (matched []Fragment, short Quantity) {
	remaining := quantity
	for !remaining.IsZero() && len(*l) > 0 {
		idx := 0
		if method == LIFO {
			idx = len(*l) - 1
			// Equal acquisition times break by ascending origin reference
			// id, regardless of the matching method. Lots are sorted by
			// (time, reference id), so the tie group is contiguous.
			for idx > 0 && (*l)[idx-1].acquiredAt.Equal((*l)[idx].acquiredAt) {
				idx--
			}
		}
		current := (*l)[idx]

		if current.remaining.GreaterThan(remaining) {
			// Partial consumption: split the lot.
			matched = append(matched, Fragment{
				OriginRef:  current.originRef,
				AcquiredAt: current.acquiredAt,
				Quantity:   remaining,
				UnitCost:   current.unitCost,
			})
			current.remaining = current.remaining.Sub(remaining)
			return matched, Q(0)
		}

		// Full consumption: the lot is exhausted and removed.
		matched = append(matched, Fragment{
			OriginRef:  current.originRef,
			AcquiredAt: current.acquiredAt,
			Quantity:   current.remaining,
			UnitCost:   current.unitCost,
		})
		remaining = remaining.Sub(current.remaining)
		*l = append((*l)[:idx], (*l)[idx+1:]...)
	}
	return matched, remaining
}
