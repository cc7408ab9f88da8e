// FILE: lixenwraith/propcfg/coerce.go
package propcfg

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-viper/mapstructure/v2"
)

// Char is the character type: coercion keeps the first rune of the string form
type Char rune

// String implements fmt.Stringer
func (c Char) String() string {
	if c == 0 {
		return ""
	}
	return string(rune(c))
}

var (
	durationType = reflect.TypeFor[time.Duration]()
	charType     = reflect.TypeFor[Char]()
	timeType     = reflect.TypeFor[time.Time]()
	ipType       = reflect.TypeFor[net.IP]()
	ipNetType    = reflect.TypeFor[net.IPNet]()
	urlType      = reflect.TypeFor[url.URL]()
)

// Coerce converts raw into a value of type t, applying in order:
// assignable values as-is, nil to the zero value, numeric parsing with
// saturation to the exact width, permissive booleans, first-rune characters,
// string forms, and finally structured decoding (decode hooks or JSON).
// Only numeric parse failures and undecodable structured values are errors.
func Coerce(raw any, t reflect.Type) (any, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil target type", ErrCoercion)
	}
	if raw == nil {
		return reflect.Zero(t).Interface(), nil
	}

	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(t) {
		if t.Kind() == reflect.Interface {
			return raw, nil
		}
		return rv.Convert(t).Interface(), nil
	}

	if t.Kind() == reflect.Ptr {
		elem, err := Coerce(raw, t.Elem())
		if err != nil {
			return nil, err
		}
		ptr := reflect.New(t.Elem())
		if elem != nil {
			ptr.Elem().Set(reflect.ValueOf(elem))
		}
		return ptr.Interface(), nil
	}

	if t == durationType {
		if s, ok := raw.(string); ok {
			if d, err := time.ParseDuration(s); err == nil {
				return d, nil
			}
		}
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		if t == charType {
			return coerceChar(raw), nil
		}
		return coerceNumber(raw, t)

	case reflect.Bool:
		out := reflect.New(t).Elem()
		out.SetBool(strings.EqualFold(stringForm(raw), "true"))
		return out.Interface(), nil

	case reflect.String:
		out := reflect.New(t).Elem()
		out.SetString(stringForm(raw))
		return out.Interface(), nil
	}

	return coerceStructured(raw, t)
}

// stringForm renders raw the way it would be written on a command line
func stringForm(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	}
	return fmt.Sprint(raw)
}

func coerceChar(raw any) Char {
	if r, ok := raw.(rune); ok {
		return Char(r)
	}
	r, size := utf8.DecodeRuneInString(stringForm(raw))
	if size == 0 {
		return 0
	}
	return Char(r)
}

// number is a parsed numeric value before it is fitted to a target width.
// u is used only for unsigned values above math.MaxInt64.
type number struct {
	kind numberKind
	i    int64
	u    uint64
	f    float64
}

type numberKind int

const (
	numberInt numberKind = iota
	numberUint
	numberFloat
)

// parseNumber reads raw as a number. Strings are trimmed; an empty string is 0.
func parseNumber(raw any, t reflect.Type) (number, error) {
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{kind: numberInt, i: rv.Int()}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if u := rv.Uint(); u > math.MaxInt64 {
			return number{kind: numberUint, u: u}, nil
		}
		return number{kind: numberInt, i: int64(rv.Uint())}, nil
	case reflect.Float32, reflect.Float64:
		return number{kind: numberFloat, f: rv.Float()}, nil
	case reflect.Bool:
		if rv.Bool() {
			return number{kind: numberInt, i: 1}, nil
		}
		return number{}, nil
	}

	s := strings.TrimSpace(stringForm(raw))
	if s == "" {
		return number{}, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return number{kind: numberInt, i: n}, nil
	}
	if u, uerr := strconv.ParseUint(s, 10, 64); uerr == nil {
		return number{kind: numberUint, u: u}, nil
	}
	// ParseFloat reports overflow as ErrRange with a signed infinity
	if x, ferr := strconv.ParseFloat(s, 64); ferr == nil || errors.Is(ferr, strconv.ErrRange) {
		return number{kind: numberFloat, f: x}, nil
	}
	return number{}, fmt.Errorf("%w: cannot parse %q as %s: %w", ErrCoercion, s, t, err)
}

func (n number) float() float64 {
	switch n.kind {
	case numberInt:
		return float64(n.i)
	case numberUint:
		return float64(n.u)
	}
	return n.f
}

// signed saturates n into [lo, hi]; NaN is 0 and fractions truncate toward zero
func (n number) signed(lo, hi int64) int64 {
	switch n.kind {
	case numberUint:
		return hi
	case numberFloat:
		switch {
		case math.IsNaN(n.f):
			return 0
		case n.f <= float64(lo):
			return lo
		case n.f >= float64(hi):
			return hi
		}
		return int64(n.f)
	}
	return min(max(n.i, lo), hi)
}

// unsigned saturates n into [0, hi]
func (n number) unsigned(hi uint64) uint64 {
	switch n.kind {
	case numberUint:
		return min(n.u, hi)
	case numberFloat:
		switch {
		case math.IsNaN(n.f) || n.f <= 0:
			return 0
		case n.f >= float64(hi):
			return hi
		}
		return uint64(n.f)
	}
	if n.i < 0 {
		return 0
	}
	return min(uint64(n.i), hi)
}

// coerceNumber parses raw and stores it in a fresh value of t.
// 32- and 64-bit integers saturate at the bounds of their width. Narrower
// integers saturate to 32 bits first and then keep only their low bits.
func coerceNumber(raw any, t reflect.Type) (any, error) {
	n, err := parseNumber(raw, t)
	if err != nil {
		return nil, err
	}

	out := reflect.New(t).Elem()
	bits := t.Bits()
	switch t.Kind() {
	case reflect.Float32, reflect.Float64:
		out.SetFloat(n.float())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if bits < 32 {
			out.SetInt(n.signed(math.MinInt32, math.MaxInt32))
			break
		}
		out.SetInt(n.signed(-1<<(bits-1), 1<<(bits-1)-1))
	default:
		if bits < 32 {
			out.SetUint(uint64(n.signed(math.MinInt32, math.MaxInt32)))
			break
		}
		out.SetUint(n.unsigned(math.MaxUint64 >> (64 - bits)))
	}
	return out.Interface(), nil
}

// isHookType reports whether t is decoded by one of the string decode hooks
func isHookType(t reflect.Type) bool {
	switch t {
	case ipType, ipNetType, urlType, timeType:
		return true
	}
	return false
}

// coerceStructured runs the decode hooks for well-known string types, parses
// other strings as JSON, and decodes maps and slices with mapstructure
func coerceStructured(raw any, t reflect.Type) (any, error) {
	if s, isString := raw.(string); isString {
		if !isHookType(t) {
			target := reflect.New(t)
			if err := json.Unmarshal([]byte(s), target.Interface()); err != nil {
				return nil, fmt.Errorf("%w: cannot decode %q as %s: %w", ErrCoercion, s, t, err)
			}
			return target.Elem().Interface(), nil
		}

		converted, err := mapstructure.DecodeHookExec(decodeHook(), reflect.ValueOf(raw), reflect.New(t).Elem())
		if err != nil {
			return nil, fmt.Errorf("%w: cannot decode %q as %s: %w", ErrCoercion, s, t, err)
		}
		if converted == nil || !reflect.TypeOf(converted).AssignableTo(t) {
			return nil, fmt.Errorf("%w: cannot decode %q as %s", ErrCoercion, s, t)
		}
		return converted, nil
	}

	target := reflect.New(t)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target.Interface(),
		WeaklyTypedInput: true,
		DecodeHook:       decodeHook(),
		ZeroFields:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: decoder creation failed: %w", ErrCoercion, err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: cannot decode %T as %s: %w", ErrCoercion, raw, t, err)
	}
	return target.Elem().Interface(), nil
}

// decodeHook returns the composite decode hook for structured conversions
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		stringHook(45, parseIP), // max IPv6 text length
		stringHook(49, parseCIDR),
		stringHook(2048, url.Parse),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// stringHook decodes strings of at most maxLen bytes into T or *T
func stringHook[T any](maxLen int, parse func(string) (*T, error)) mapstructure.DecodeHookFunc {
	want := reflect.TypeFor[T]()
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Ptr
		if isPtr {
			t = t.Elem()
		}
		if t != want {
			return data, nil
		}

		str := data.(string)
		if len(str) > maxLen {
			return nil, fmt.Errorf("%s input too long: %d bytes", want, len(str))
		}
		v, err := parse(str)
		if err != nil {
			return nil, err
		}
		if isPtr {
			return v, nil
		}
		return *v, nil
	}
}

func parseIP(s string) (*net.IP, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("invalid IP address: %s", s)
	}
	return &ip, nil
}

func parseCIDR(s string) (*net.IPNet, error) {
	_, ipnet, err := net.ParseCIDR(s)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR: %w", err)
	}
	return ipnet, nil
}
