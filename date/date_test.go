package date

import (
	"testing"
	"time"
)

func TestNewNormalizes(t *testing.T) {
	// Overflowing day rolls into the next month.
	d := New(2023, time.January, 32)
	if got, want := d.String(), "2023-02-01"; got != want {
		t.Errorf("New(2023, January, 32) = %s, want %s", got, want)
	}
}

func TestFromTimeUsesUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 2023-06-02 01:00 in UTC+9 is still 2023-06-01 in UTC.
	d := FromTime(time.Date(2023, time.June, 2, 1, 0, 0, 0, loc))
	if got, want := d.String(), "2023-06-01"; got != want {
		t.Errorf("FromTime = %s, want %s", got, want)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2023-06-01", "2023-06-01", true},
		{"2023-6-1", "2023-06-01", true},
		{"not-a-date", "", false},
	}
	for _, tt := range tests {
		d, err := Parse(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("Parse(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && d.String() != tt.want {
			t.Errorf("Parse(%q) = %s, want %s", tt.in, d, tt.want)
		}
	}
}

func TestAddSub(t *testing.T) {
	a := New(2023, time.December, 30)
	b := a.Add(3)
	if got, want := b.String(), "2024-01-02"; got != want {
		t.Errorf("Add(3) = %s, want %s", got, want)
	}
	if got := b.Sub(a); got != 3 {
		t.Errorf("Sub = %d, want 3", got)
	}
}

func TestEndOfYear(t *testing.T) {
	if got, want := EndOfYear(2021).String(), "2021-12-31"; got != want {
		t.Errorf("EndOfYear(2021) = %s, want %s", got, want)
	}
}
