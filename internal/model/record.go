package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Field names the exporter reads from trade and order payloads.
const (
	FieldSymbol  = "symbol"
	FieldID      = "id"
	FieldOrderID = "orderId"
	FieldTime    = "time"
)

const (
	hasSymbol uint8 = 1 << iota
	hasID
	hasOrderID
	hasTime
)

// Record is a trade or order exactly as Binance returned it.
// Only symbol, id, orderId and time are interpreted; every other field is kept
// verbatim. Two records are the same record when their canonical encodings match.
type Record struct {
	raw     json.RawMessage // canonical: object keys sorted, numbers as sent
	symbol  string
	id      int64
	orderID int64
	time    int64
	present uint8
}

// NewRecord builds a Record from a decoded JSON object.
// Numbers should be json.Number (decoder.UseNumber) to survive untouched.
func NewRecord(fields map[string]any) (Record, error) {
	if fields == nil {
		return Record{}, fmt.Errorf("record is not a json object")
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return Record{}, fmt.Errorf("encode record: %w", err)
	}

	r := Record{raw: raw}
	if s, ok := fields[FieldSymbol].(string); ok {
		r.symbol = s
		r.present |= hasSymbol
	}
	if v, ok := intField(fields[FieldID]); ok {
		r.id = v
		r.present |= hasID
	}
	if v, ok := intField(fields[FieldOrderID]); ok {
		r.orderID = v
		r.present |= hasOrderID
	}
	if v, ok := intField(fields[FieldTime]); ok {
		r.time = v
		r.present |= hasTime
	}
	return r, nil
}

// ParseRecord decodes a single JSON object into a Record.
func ParseRecord(data []byte) (Record, error) {
	var fields map[string]any
	if err := decodeNumbers(data, &fields); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return NewRecord(fields)
}

// DecodeRecords decodes a JSON array of objects, the shape of every
// history endpoint response.
func DecodeRecords(data []byte) ([]Record, error) {
	var items []map[string]any
	if err := decodeNumbers(data, &items); err != nil {
		return nil, fmt.Errorf("decode record list: %w", err)
	}
	if items == nil {
		return nil, fmt.Errorf("decode record list: not a json array")
	}

	records := make([]Record, 0, len(items))
	for i, item := range items {
		r, err := NewRecord(item)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, r)
	}
	return records, nil
}

func (r Record) Symbol() string { return r.symbol }
func (r Record) ID() int64 { return r.id }
func (r Record) OrderID() int64 { return r.orderID }
func (r Record) Time() int64 { return r.time }

// Key is the canonical encoding, usable as a map key for full-record equality.
func (r Record) Key() string { return string(r.raw) }

func (r Record) Equal(other Record) bool { return bytes.Equal(r.raw, other.raw) }

// Missing reports which of the given interpreted fields are absent or not
// of the expected type.
func (r Record) Missing(fields ...string) []string {
	var missing []string
	for _, f := range fields {
		var bit uint8
		switch f {
		case FieldSymbol:
			bit = hasSymbol
		case FieldID:
			bit = hasID
		case FieldOrderID:
			bit = hasOrderID
		case FieldTime:
			bit = hasTime
		}
		if bit == 0 || r.present&bit == 0 {
			missing = append(missing, f)
		}
	}
	return missing
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r.raw == nil {
		return []byte("null"), nil
	}
	return r.raw, nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	parsed, err := ParseRecord(data)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func intField(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}
