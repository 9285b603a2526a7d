package object

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// toJSONKey is the property consulted before serializing a receiver.
const toJSONKey = "toJSON"

// Marshal serializes v following JSON.stringify rules:
//
//   - a receiver whose toJSON property is a Function is replaced by the
//     result of calling it with the property key as its only argument
//   - receivers serialize their own enumerable properties in insertion order
//   - functions are omitted from objects and become null inside arrays
//   - NaN and infinities become null
//
// A top-level value with no JSON representation (a Function) yields an error
// wrapping ErrUnsupported. Cycles yield an error wrapping ErrCyclic.
func Marshal(v Value) ([]byte, error) {
	e := &encoder{}
	raw, ok, err := e.encode("", v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &TypeError{Op: "marshal", Err: ErrUnsupported}
	}
	return raw, nil
}

// encoder tracks the receivers currently being serialized.
type encoder struct {
	stack []Receiver
}

func (e *encoder) encode(key string, v Value) ([]byte, bool, error) {
	r, ok := v.(Receiver)
	if !ok {
		return e.encodeValue(key, v)
	}

	if e.onStack(r) {
		return nil, false, &TypeError{Op: "marshal", Key: key, Err: ErrCyclic}
	}
	e.stack = append(e.stack, r)
	defer e.pop()

	hook, err := r.Get(toJSONKey)
	if err != nil {
		return nil, false, err
	}
	fn, ok := hook.(Function)
	if !ok || fn == nil {
		return e.encodeFields(r)
	}

	out, err := fn(r, key)
	if err != nil {
		return nil, false, err
	}
	if or, ok := out.(Receiver); ok && sameReceiver(or, r) {
		return e.encodeFields(r)
	}
	return e.encodeValue(key, out)
}

// encodeValue serializes v without consulting a toJSON hook on v itself.
func (e *encoder) encodeValue(key string, v Value) ([]byte, bool, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), true, nil
	case Function:
		return nil, false, nil
	case bool:
		return []byte(strconv.FormatBool(val)), true, nil
	case int:
		return []byte(strconv.Itoa(val)), true, nil
	case int64:
		return []byte(strconv.FormatInt(val, 10)), true, nil
	case float64:
		return encodeFloat(val)
	case float32:
		return encodeFloat(float64(val))
	case Receiver:
		if e.onStack(val) {
			return nil, false, &TypeError{Op: "marshal", Key: key, Err: ErrCyclic}
		}
		e.stack = append(e.stack, val)
		defer e.pop()
		return e.encodeFields(val)
	case []Value:
		return e.encodeArray(val)
	case map[string]Value:
		return e.encodeMap(val)
	case json.Marshaler:
		raw, err := val.MarshalJSON()
		if err != nil {
			return nil, false, err
		}
		if !gjson.ValidBytes(raw) {
			return nil, false, &TypeError{Op: "marshal", Key: key, Err: fmt.Errorf("%w: invalid JSON from %T", ErrUnsupported, v)}
		}
		return raw, true, nil
	default:
		return encodeScalar(key, v)
	}
}

// encodeFields serializes the own enumerable properties of r.
func (e *encoder) encodeFields(r Receiver) ([]byte, bool, error) {
	buf := []byte("{}")
	for _, k := range OwnEnumerableKeys(r) {
		v, err := r.Get(k)
		if err != nil {
			return nil, false, err
		}
		raw, ok, err := e.encode(k, v)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		if buf, err = setMember(buf, k, raw); err != nil {
			return nil, false, err
		}
	}
	return buf, true, nil
}

func (e *encoder) encodeArray(items []Value) ([]byte, bool, error) {
	buf := []byte("[]")
	for i, item := range items {
		raw, ok, err := e.encode(strconv.Itoa(i), item)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			raw = []byte("null")
		}
		if buf, err = sjson.SetRawBytes(buf, "-1", raw); err != nil {
			return nil, false, err
		}
	}
	return buf, true, nil
}

func (e *encoder) encodeMap(m map[string]Value) ([]byte, bool, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := []byte("{}")
	for _, k := range keys {
		raw, ok, err := e.encode(k, m[k])
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		if buf, err = setMember(buf, k, raw); err != nil {
			return nil, false, err
		}
	}
	return buf, true, nil
}

func (e *encoder) onStack(r Receiver) bool {
	for _, s := range e.stack {
		if sameReceiver(s, r) {
			return true
		}
	}
	return false
}

func (e *encoder) pop() {
	e.stack = e.stack[:len(e.stack)-1]
}

// sameReceiver compares receivers without panicking on uncomparable types.
func sameReceiver(a, b Receiver) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func encodeFloat(f float64) ([]byte, bool, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), true, nil
	}
	return encodeScalar("", f)
}

func encodeScalar(key string, v Value) ([]byte, bool, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, false, &TypeError{Op: "marshal", Key: key, Err: fmt.Errorf("%w: %v", ErrUnsupported, err)}
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), true, nil
}

// setMember appends key:raw to the JSON object in buf.
func setMember(buf []byte, key string, raw []byte) ([]byte, error) {
	if key == "" {
		// sjson paths cannot address the empty key.
		member := append([]byte(`"":`), raw...)
		if len(buf) > 2 {
			member = append([]byte(","), member...)
		}
		out := make([]byte, 0, len(buf)+len(member))
		out = append(out, buf[:len(buf)-1]...)
		out = append(out, member...)
		return append(out, '}'), nil
	}
	return sjson.SetRawBytes(buf, EscapePath(key), raw)
}

// EscapePath escapes a property name for use as a single sjson/gjson path
// component.
func EscapePath(key string) string {
	var b bytes.Buffer
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c < 0x80 && !isPathSafe(c) {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isPathSafe(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
