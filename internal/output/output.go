// Package output renders command results. All command output goes to
// stdout; running the same command twice on identical inputs yields
// byte-identical bytes in every format.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	staterr "statik/internal/errors"
)

// Format selects the output rendering.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatCompact Format = "compact"
	FormatCSV     Format = "csv"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "text", "json", "compact", "csv":
		return Format(s), nil
	default:
		return "", staterr.Newf(staterr.ConfigInvalid, "invalid format %q (expected text, json, compact, or csv)", s)
	}
}

// EncodeJSON marshals a value with stable key order, no HTML escaping, and
// two-space indentation.
func EncodeJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeCompact marshals a value as single-line JSON.
func EncodeCompact(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Doc couples a result value with its optional text and CSV renderings.
type Doc struct {
	Value interface{}
	// Text renders the human-readable form; nil falls back to JSON.
	Text func(w io.Writer) error
	// CSV returns header+rows; nil means the command has no tabular form.
	CSV func() [][]string
}

// Emit writes the document in the requested format.
func Emit(w io.Writer, format Format, doc Doc) error {
	switch format {
	case FormatJSON:
		data, err := EncodeJSON(doc.Value)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatCompact:
		data, err := EncodeCompact(doc.Value)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatCSV:
		if doc.CSV == nil {
			return staterr.Newf(staterr.ConfigInvalid, "csv output is not available for this command")
		}
		cw := csv.NewWriter(w)
		if err := cw.WriteAll(doc.CSV()); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	default:
		if doc.Text == nil {
			data, err := EncodeJSON(doc.Value)
			if err != nil {
				return err
			}
			_, err = w.Write(data)
			return err
		}
		return doc.Text(w)
	}
}

// Line writes one formatted text line.
func Line(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}
