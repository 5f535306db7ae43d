package fundtrade

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/shopspring/decimal"
)

// jsonObjectWriter builds a JSON object with a fixed field order.
// Its zero value is ready to use.
type jsonObjectWriter struct {
	bytes.Buffer
	err error
}

// Append adds a key-value pair, the value is encoded with json.Marshal.
func (w *jsonObjectWriter) Append(key string, value any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	valBytes, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("failed to marshal value for key %q: %w", key, err)
		return w
	}
	fmt.Fprintf(w, "%q:", key)
	w.Write(valBytes)
	w.WriteString(",")
	return w
}

// Optional appends the pair only if value is not its type's zero value.
func (w *jsonObjectWriter) Optional(key string, value any) *jsonObjectWriter {
	v := reflect.ValueOf(value)
	if !v.IsValid() || v.IsZero() {
		return w
	}
	return w.Append(key, value)
}

// Decimal appends d as a bare JSON number rather than the quoted string
// decimal.Decimal produces by default.
func (w *jsonObjectWriter) Decimal(key string, d decimal.Decimal) *jsonObjectWriter {
	return w.Append(key, json.Number(d.String()))
}

// OptionalDecimal appends d only when it is not zero.
func (w *jsonObjectWriter) OptionalDecimal(key string, d decimal.Decimal) *jsonObjectWriter {
	if d.IsZero() {
		return w
	}
	return w.Decimal(key, d)
}

// MarshalJSON wraps the accumulated fields in braces.
func (w *jsonObjectWriter) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	content := bytes.TrimSuffix(w.Bytes(), []byte(","))
	final := make([]byte, 0, len(content)+2)
	final = append(final, '{')
	final = append(final, content...)
	final = append(final, '}')
	return final, nil
}
