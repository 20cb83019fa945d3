// Package bencode decodes bencoded data into a tagged union of values.
// Input is checked against size and nesting limits before it is handed to the decoder,
// so hostile input cannot exhaust memory or the goroutine stack.
package bencode

import (
	"errors"
	"fmt"

	"github.com/zeebo/bencode"
)

// Kind is the type tag of a Value.
type Kind int

// Kinds of bencode values.
const (
	Integer Kind = iota + 1
	ByteString
	List
	Dictionary
)

var kindStrings = map[Kind]string{
	Integer:    "integer",
	ByteString: "byte string",
	List:       "list",
	Dictionary: "dictionary",
}

func (k Kind) String() string {
	s, ok := kindStrings[k]
	if !ok {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return s
}

// Value is a decoded bencode value. Only the field matching Kind is set.
type Value struct {
	Kind  Kind
	Int   int64
	Bytes string
	List  []Value
	Dict  map[string]Value
}

// Limits bound the work done while decoding untrusted input.
type Limits struct {
	// Maximum number of input bytes.
	MaxSize int
	// Maximum nesting of lists and dictionaries.
	MaxDepth int
}

// DefaultLimits are used when zero Limits are passed to Parse.
var DefaultLimits = Limits{
	MaxSize:  10 << 20,
	MaxDepth: 64,
}

var (
	// ErrTooLarge is returned when the input exceeds Limits.MaxSize.
	ErrTooLarge = errors.New("bencode: input too large")
	// ErrTooDeep is returned when the input exceeds Limits.MaxDepth.
	ErrTooDeep = errors.New("bencode: nesting too deep")
)

// SyntaxError describes malformed input at a byte offset.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("bencode: %s at offset %d", e.Msg, e.Offset)
}

// Parse decodes exactly one value from b.
func Parse(b []byte, lim Limits) (Value, error) {
	if lim.MaxSize <= 0 {
		lim.MaxSize = DefaultLimits.MaxSize
	}
	if lim.MaxDepth <= 0 {
		lim.MaxDepth = DefaultLimits.MaxDepth
	}
	if len(b) > lim.MaxSize {
		return Value{}, ErrTooLarge
	}
	if err := scan(b, lim.MaxDepth); err != nil {
		return Value{}, err
	}
	var raw interface{}
	if err := bencode.DecodeBytes(b, &raw); err != nil {
		return Value{}, fmt.Errorf("bencode: %w", err)
	}
	return fromInterface(raw)
}

func fromInterface(raw interface{}) (Value, error) {
	switch v := raw.(type) {
	case int64:
		return Value{Kind: Integer, Int: v}, nil
	case int:
		return Value{Kind: Integer, Int: int64(v)}, nil
	case string:
		return Value{Kind: ByteString, Bytes: v}, nil
	case []byte:
		return Value{Kind: ByteString, Bytes: string(v)}, nil
	case []interface{}:
		l := make([]Value, 0, len(v))
		for _, item := range v {
			iv, err := fromInterface(item)
			if err != nil {
				return Value{}, err
			}
			l = append(l, iv)
		}
		return Value{Kind: List, List: l}, nil
	case map[string]interface{}:
		d := make(map[string]Value, len(v))
		for key, item := range v {
			iv, err := fromInterface(item)
			if err != nil {
				return Value{}, err
			}
			d[key] = iv
		}
		return Value{Kind: Dictionary, Dict: d}, nil
	default:
		return Value{}, fmt.Errorf("bencode: unexpected decoded type %T", raw)
	}
}

// Interface converts the value back into the plain Go types used by the encoder.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case Integer:
		return v.Int
	case ByteString:
		return v.Bytes
	case List:
		l := make([]interface{}, 0, len(v.List))
		for _, item := range v.List {
			l = append(l, item.Interface())
		}
		return l
	case Dictionary:
		d := make(map[string]interface{}, len(v.Dict))
		for key, item := range v.Dict {
			d[key] = item.Interface()
		}
		return d
	}
	return nil
}

// Encode returns the canonical bencoding of v. Dictionary keys are sorted.
func Encode(v Value) ([]byte, error) {
	if v.Kind == 0 {
		return nil, errors.New("bencode: cannot encode zero value")
	}
	return bencode.EncodeBytes(v.Interface())
}

// Get returns the dictionary entry for key.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != Dictionary {
		return Value{}, false
	}
	item, ok := v.Dict[key]
	return item, ok
}

// NewInt returns an Integer value.
func NewInt(i int64) Value { return Value{Kind: Integer, Int: i} }

// NewString returns a ByteString value.
func NewString(s string) Value { return Value{Kind: ByteString, Bytes: s} }

// NewList returns a List value.
func NewList(l ...Value) Value { return Value{Kind: List, List: l} }

// NewDict returns a Dictionary value.
func NewDict(d map[string]Value) Value {
	if d == nil {
		d = make(map[string]Value)
	}
	return Value{Kind: Dictionary, Dict: d}
}
