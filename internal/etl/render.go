package etl

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"docexport/internal/domain"
)

// ── Textual rendering ──────────────────────────────────────
// ScalarText turns a leaf value into a cell. CanonicalString renders a whole
// list (or map inside a list) to one deterministic, JSON-compatible string:
//
//	[1, 2, {"x": 3}]

// ScalarText returns the cell text for a non-container value.
// Containers fall back to their canonical form.
func ScalarText(v domain.Value) string {
	switch x := v.(type) {
	case nil, domain.Null:
		return ""
	case domain.Bool:
		return strconv.FormatBool(bool(x))
	case domain.Integer:
		return strconv.FormatInt(int64(x), 10)
	case domain.Double:
		return formatDouble(float64(x))
	case domain.String:
		return string(x)
	case domain.Timestamp:
		return formatTimestamp(x)
	case domain.Bytes:
		return base64.StdEncoding.EncodeToString(x)
	case domain.Reference:
		return string(x)
	default:
		s, _ := CanonicalString(v, 0)
		return s
	}
}

// CanonicalString renders v in canonical form. maxDepth bounds container
// nesting; 0 means unbounded.
func CanonicalString(v domain.Value, maxDepth int) (string, error) {
	var b strings.Builder
	if err := writeCanonical(&b, v, 1, maxDepth); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeCanonical(b *strings.Builder, v domain.Value, depth, maxDepth int) error {
	switch x := v.(type) {
	case domain.List:
		if maxDepth > 0 && depth > maxDepth {
			return ErrTooDeep
		}
		b.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := writeCanonical(b, e, depth+1, maxDepth); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case domain.Map:
		if maxDepth > 0 && depth > maxDepth {
			return ErrTooDeep
		}
		b.WriteByte('{')
		for i, e := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quoteJSON(e.Key))
			b.WriteString(": ")
			if err := writeCanonical(b, e.Value, depth+1, maxDepth); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case nil, domain.Null:
		b.WriteString("null")
	case domain.Bool, domain.Integer, domain.Double:
		b.WriteString(ScalarText(x))
	case domain.String, domain.Timestamp, domain.Bytes, domain.Reference:
		b.WriteString(quoteJSON(ScalarText(x)))
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

// formatDouble prints the shortest decimal that round-trips, switching to
// exponent form for very small or very large magnitudes.
func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatTimestamp(t domain.Timestamp) string {
	return time.Time(t).UTC().Format(time.RFC3339Nano)
}

// quoteJSON quotes s as a JSON string without HTML escaping.
func quoteJSON(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
