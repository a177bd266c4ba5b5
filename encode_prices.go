package cryptotax

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// EncodePrices persists the price table to an io.Writer in JSONL format, one
// point per line, sorted by asset then day for canonical output.
func EncodePrices(w io.Writer, p *PriceSeries) error {
	for _, asset := range p.Assets() {
		for day, close := range p.histories[asset].Values() {
			line, err := json.Marshal(PricePoint{Asset: asset, Day: day, Close: close})
			if err != nil {
				return fmt.Errorf("failed to marshal price point %s %s: %w", asset, day, err)
			}
			if _, err := w.Write(append(line, '\n')); err != nil {
				return fmt.Errorf("failed to write price point: %w", err)
			}
		}
	}
	return nil
}

// DecodePrices reads a JSONL stream of price points into a price table.
func DecodePrices(r io.Reader) (*PriceSeries, error) {
	p := NewPriceSeries()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	n := 0
	for scanner.Scan() {
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue
		}
		n++
		var pt PricePoint
		if err := json.Unmarshal(lineBytes, &pt); err != nil {
			return nil, fmt.Errorf("price line %d: %w", n, err)
		}
		if pt.Asset == "" {
			return nil, fmt.Errorf("price line %d: missing asset", n)
		}
		p.history(pt.Asset).Append(pt.Day, pt.Close)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading prices: %w", err)
	}
	return p, nil
}
