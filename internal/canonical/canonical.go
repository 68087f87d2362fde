// Package canonical produces the deterministic byte encoding used for
// evidence hashing. The encoding is a versioned wire contract: every
// implementation that will ever verify a chain produced by another must
// encode identically, so the rules below are fixed, not conventions.
//
// ContractV1:
//   - JSON with object keys sorted lexicographically and no incidental
//     whitespace.
//   - Monetary values as normalized fixed-point strings with exactly two
//     fraction digits, no sign, no exponent ("15000.00").
//   - Timestamps in UTC RFC3339 with millisecond precision
//     ("2006-01-02T15:04:05.000Z").
//   - Absent optional sections are omitted entirely, never encoded as null.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"sealproof/pkg/domain"
)

// ContractV1 names the canonical encoding contract implemented by this
// package. It is recorded in every snapshot's snapshot_version seal field.
const ContractV1 = "sealproof.canonical.v1"

// TimeLayout is the fixed textual timestamp format of ContractV1.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Canonicalize encodes v into deterministic bytes. v must be built from
// map[string]any, []any, strings, bools, and json-encodable scalars; callers
// assemble records as maps so key order is controlled here, not by struct
// definition order.
func Canonicalize(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := encode(buf, v); err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encode(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, vv := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, vv); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case []string:
		buf.WriteByte('[')
		for i, vv := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, vv); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case time.Time:
		return encode(buf, TimeString(t))
	case domain.Amount:
		return encode(buf, AmountString(t))
	case float32, float64:
		// Floats have no canonical textual form; monetary values must arrive
		// as domain.Amount and everything else as strings or integers.
		return fmt.Errorf("float values are not canonicalizable")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}

// AmountString renders an amount in the fixed-point form of ContractV1.
func AmountString(a domain.Amount) string { return a.String() }

// TimeString renders a timestamp in the fixed textual form of ContractV1.
func TimeString(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
