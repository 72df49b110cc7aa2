package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SlotLedger maps a slot date to the time labels already booked on it.
// Labels are opaque strings compared by equality.
type SlotLedger map[string][]string

// Contains reports whether time is booked on date.
func (l SlotLedger) Contains(date, time string) bool {
	for _, t := range l[date] {
		if t == time {
			return true
		}
	}
	return false
}

// Add appends time to date. It returns false and leaves the ledger
// untouched when the label is already present.
func (l *SlotLedger) Add(date, time string) bool {
	if *l == nil {
		*l = SlotLedger{}
	}
	if l.Contains(date, time) {
		return false
	}
	(*l)[date] = append((*l)[date], time)
	return true
}

// Remove drops time from date, preserving the order of the remaining labels.
// Removing an absent label is a no-op that returns false.
func (l SlotLedger) Remove(date, time string) bool {
	times, ok := l[date]
	if !ok {
		return false
	}
	kept := make([]string, 0, len(times))
	removed := false
	for _, t := range times {
		if t == time {
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	if !removed {
		return false
	}
	l[date] = kept
	return true
}

// Clone returns a deep copy.
func (l SlotLedger) Clone() SlotLedger {
	out := make(SlotLedger, len(l))
	for date, times := range l {
		out[date] = append([]string(nil), times...)
	}
	return out
}

// Value implements the driver.Valuer interface
func (l SlotLedger) Value() (driver.Value, error) {
	if l == nil {
		return "{}", nil
	}
	data, err := json.Marshal(map[string][]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the sql.Scanner interface
func (l *SlotLedger) Scan(value interface{}) error {
	if value == nil {
		*l = SlotLedger{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal SlotLedger: unsupported type %T", value)
	}
	if len(data) == 0 {
		*l = SlotLedger{}
		return nil
	}

	decoded := map[string][]string{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*l = decoded
	return nil
}
