// Package jsonutil extracts well-formed JSON out of noisy LLM chat output.
package jsonutil

import (
	"encoding/json"
	"io"
	"strings"
)

// ExtractJSONValue trims surrounding prose from s: it keeps the span from
// the first '{' or '[' (whichever comes first) to the last matching '}' or
// ']'. If no delimiter pair is found, or that span is not valid JSON, s is
// returned trimmed of whitespace but otherwise unchanged so the caller's own
// Unmarshal reports the real error. Two or more values inside the span are
// not split apart; the span is returned as a whole.
func ExtractJSONValue(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return raw
	}

	objStart := strings.Index(raw, "{")
	arrStart := strings.Index(raw, "[")
	start, end := -1, -1
	switch {
	case objStart >= 0 && (arrStart < 0 || objStart < arrStart):
		start = objStart
		end = strings.LastIndex(raw, "}")
	case arrStart >= 0:
		start = arrStart
		end = strings.LastIndex(raw, "]")
	}
	if start >= 0 && end > start {
		raw = raw[start : end+1]
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return strings.TrimSpace(s)
	}
	d, ok := tok.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return strings.TrimSpace(s)
	}

	for {
		if _, err := dec.Token(); err != nil {
			if err == io.EOF {
				break
			}
			return strings.TrimSpace(s)
		}
	}
	return raw
}
