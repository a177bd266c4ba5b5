package cryptotax

import (
	"encoding/json"
	"fmt"
)

// MatchingMethod defines the order in which open lots are consumed by a disposal.
type MatchingMethod int

const (
	// FIFO (First-In, First-Out) consumes the oldest acquisition lots first.
	FIFO MatchingMethod = iota
	// LIFO (Last-In, First-Out) consumes the most recent acquisition lots first.
	LIFO
)

func (m MatchingMethod) String() string {
	switch m {
	case FIFO:
		return "fifo"
	case LIFO:
		return "lifo"
	default:
		return "unknown"
	}
}

// ParseMatchingMethod parses a string into a MatchingMethod.
func ParseMatchingMethod(s string) (MatchingMethod, error) {
	switch s {
	case "fifo":
		return FIFO, nil
	case "lifo":
		return LIFO, nil
	default:
		return 0, fmt.Errorf("unknown matching method: %q", s)
	}
}

func (m MatchingMethod) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *MatchingMethod) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseMatchingMethod(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
