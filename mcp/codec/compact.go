package codec

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Compact returns the compact JSON text of the value,
// non-ASCII characters and HTML are not escaped.
func Compact(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", errors.Wrap(err, "failed to encode value")
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
