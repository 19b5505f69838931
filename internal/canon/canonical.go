package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON.
//
// Supported inputs are the shapes produced by decoding JSON documents with
// json.Decoder.UseNumber: nil, string, bool, json.Number, float64, int,
// int64, []any and map[string]any. Named map and slice types with the same
// underlying shape (dataset.Row, for example) are accepted as well.
func MarshalCanonical(v any) ([]byte, error) {
	e := encoder{normalize: true}
	if err := e.writeValue(v); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

// MarshalData encodes v with canonical key order and escaping but keeps
// values exactly as decoded: strings are not NFC normalized and
// json.Number text is written verbatim. Use it for data handed back to
// users; use MarshalCanonical for anything that is hashed or compared.
func MarshalData(v any) ([]byte, error) {
	var e encoder
	if err := e.writeValue(v); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

type encoder struct {
	buf bytes.Buffer
	// normalize selects the canonical spelling of strings and numbers.
	normalize bool
}

func (e *encoder) writeValue(v any) error {
	switch val := v.(type) {
	case nil:
		e.buf.WriteString("null")
	case string:
		e.writeString(val)
	case bool:
		if val {
			e.buf.WriteString("true")
		} else {
			e.buf.WriteString("false")
		}
	case int:
		e.buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		e.buf.WriteString(strconv.FormatInt(val, 10))
	case float64:
		s, err := formatFloat(val)
		if err != nil {
			return err
		}
		e.buf.WriteString(s)
	case json.Number:
		s, err := e.formatNumber(val)
		if err != nil {
			return err
		}
		e.buf.WriteString(s)
	case []any:
		return e.writeArray(val)
	case map[string]any:
		return e.writeObject(val)
	default:
		return e.writeReflect(v)
	}
	return nil
}

// writeReflect handles named map/slice types by converting them to their
// plain counterparts.
func (e *encoder) writeReflect(v any) error {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("unsupported map key type for canonical JSON: %T", v)
		}
		obj := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			obj[iter.Key().String()] = iter.Value().Interface()
		}
		return e.writeObject(obj)
	case reflect.Slice, reflect.Array:
		arr := make([]any, rv.Len())
		for i := range arr {
			arr[i] = rv.Index(i).Interface()
		}
		return e.writeArray(arr)
	case reflect.String:
		e.writeString(rv.String())
		return nil
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

func (e *encoder) writeArray(arr []any) error {
	buf := &e.buf
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := e.writeValue(elem); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func (e *encoder) writeObject(obj map[string]any) error {
	buf := &e.buf
	buf.WriteByte('{')
	for i, k := range SortedKeys(obj) {
		if i > 0 {
			buf.WriteByte(',')
		}
		e.writeString(k)
		buf.WriteByte(':')
		if err := e.writeValue(obj[k]); err != nil {
			return fmt.Errorf("%q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

const hexDigits = "0123456789abcdef"

// writeString writes a JSON string, NFC normalized when the encoder
// normalizes. Only the quote, the backslash and control characters are
// escaped.
func (e *encoder) writeString(s string) {
	if e.normalize {
		s = norm.NFC.String(s)
	}
	buf := &e.buf
	buf.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if c < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[c>>4])
				buf.WriteByte(hexDigits[c&0xf])
				continue
			}
			buf.WriteByte(c)
		}
	}
	buf.WriteByte('"')
}

// formatNumber normalizes a decoded JSON number so 1, 1.0 and 1e0 share one
// canonical spelling. Without normalization the text is only checked.
func (e *encoder) formatNumber(n json.Number) (string, error) {
	if !e.normalize {
		if n == "" || (n[0] != '-' && (n[0] < '0' || n[0] > '9')) || !json.Valid([]byte(n)) {
			return "", fmt.Errorf("invalid number %q", n.String())
		}
		return n.String(), nil
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	f, err := n.Float64()
	if err != nil {
		return "", fmt.Errorf("invalid number %q: %w", n.String(), err)
	}
	return formatFloat(f)
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite number forbidden in canonical JSON: %v", f)
	}
	if f == 0 {
		return "0", nil
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}

// SortedKeys returns the keys of obj in RFC 8785 order (UTF-16 code units).
// Go's string comparison works on UTF-8 bytes and orders some keys
// differently.
func SortedKeys[V any](obj map[string]V) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, CompareKeys)
	return keys
}

// CompareKeys compares two strings by UTF-16 code units.
func CompareKeys(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
