// Package metadata defines the wire-level model of the metadata store:
// typed attribute values, tags and their headers, selectors, search
// expressions, and the tag-update operations. Everything in this package is
// pure data and pure functions; persistence lives in the DAL.
package metadata

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BasicType enumerates the value types an attribute may carry.
type BasicType string

const (
	BasicTypeInvalid  BasicType = ""
	BasicTypeBoolean  BasicType = "BOOLEAN"
	BasicTypeInteger  BasicType = "INTEGER"
	BasicTypeFloat    BasicType = "FLOAT"
	BasicTypeString   BasicType = "STRING"
	BasicTypeDecimal  BasicType = "DECIMAL"
	BasicTypeDate     BasicType = "DATE"
	BasicTypeDatetime BasicType = "DATETIME"
	BasicTypeArray    BasicType = "ARRAY"
)

func (t BasicType) IsValid() bool {
	switch t {
	case BasicTypeBoolean, BasicTypeInteger, BasicTypeFloat, BasicTypeString,
		BasicTypeDecimal, BasicTypeDate, BasicTypeDatetime, BasicTypeArray:
		return true
	}
	return false
}

// IsOrdered reports whether values of this type have a total order usable
// by the GT/GE/LT/LE search operators.
func (t BasicType) IsOrdered() bool {
	switch t {
	case BasicTypeInteger, BasicTypeFloat, BasicTypeDecimal, BasicTypeDate, BasicTypeDatetime:
		return true
	}
	return false
}

func (t BasicType) String() string {
	return string(t)
}

// TypeDescriptor describes a value type. Elem is set only for arrays and
// names the element type; nested arrays are not allowed.
type TypeDescriptor struct {
	Basic BasicType       `json:"basic"`
	Elem  *TypeDescriptor `json:"elem,omitempty"`
}

func ScalarType(t BasicType) TypeDescriptor {
	return TypeDescriptor{Basic: t}
}

func ArrayType(elem BasicType) TypeDescriptor {
	return TypeDescriptor{Basic: BasicTypeArray, Elem: &TypeDescriptor{Basic: elem}}
}

func (td TypeDescriptor) IsArray() bool {
	return td.Basic == BasicTypeArray
}

// ElemType returns the element type for arrays and the basic type itself
// for scalars.
func (td TypeDescriptor) ElemType() BasicType {
	if td.Basic == BasicTypeArray {
		if td.Elem == nil {
			return BasicTypeInvalid
		}
		return td.Elem.Basic
	}
	return td.Basic
}

func (td TypeDescriptor) Equal(other TypeDescriptor) bool {
	if td.Basic != other.Basic {
		return false
	}
	if td.Basic == BasicTypeArray {
		return td.ElemType() == other.ElemType()
	}
	return true
}

func (td TypeDescriptor) Validate() error {
	if td.Basic == BasicTypeArray {
		if td.Elem == nil || !td.Elem.Basic.IsValid() {
			return ErrInvalidValue.Msg("array type requires a valid element type")
		}
		if td.Elem.Basic == BasicTypeArray {
			return ErrInvalidValue.Msg("nested arrays are not supported")
		}
		if td.Elem.Basic == BasicTypeBoolean {
			return ErrInvalidValue.Msg("boolean arrays are not supported")
		}
		return nil
	}
	if !td.Basic.IsValid() {
		return ErrInvalidValue.Msg("invalid basic type")
	}
	return nil
}

// Value is a typed attribute value: either a scalar of one of the basic
// types or an ordered array of scalars sharing one element type. The zero
// Value is invalid. Values are immutable once constructed; all constructors
// normalize their input (timestamps truncated to microseconds, UTC).
type Value struct {
	typ     TypeDescriptor
	boolVal bool
	intVal  int64
	fltVal  float64
	strVal  string
	decVal  decimal.Decimal
	timeVal time.Time
	items   []Value
}

func BoolValue(v bool) Value {
	return Value{typ: ScalarType(BasicTypeBoolean), boolVal: v}
}

func IntValue(v int64) Value {
	return Value{typ: ScalarType(BasicTypeInteger), intVal: v}
}

func FloatValue(v float64) Value {
	return Value{typ: ScalarType(BasicTypeFloat), fltVal: v}
}

func StringValue(v string) Value {
	return Value{typ: ScalarType(BasicTypeString), strVal: v}
}

func DecimalValue(v decimal.Decimal) Value {
	return Value{typ: ScalarType(BasicTypeDecimal), decVal: v}
}

// DateValue truncates the given time to its calendar date in UTC.
func DateValue(v time.Time) Value {
	y, m, d := v.UTC().Date()
	return Value{typ: ScalarType(BasicTypeDate), timeVal: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DatetimeValue truncates the given time to microsecond precision, UTC.
// Storage and query timestamps live on the same microsecond grid.
func DatetimeValue(v time.Time) Value {
	return Value{typ: ScalarType(BasicTypeDatetime), timeVal: v.UTC().Truncate(time.Microsecond)}
}

// ArrayValue builds an array of the given element type. Every item must be
// a scalar of that type. Boolean arrays are rejected.
func ArrayValue(elem BasicType, items []Value) (Value, error) {
	td := ArrayType(elem)
	if err := td.Validate(); err != nil {
		return Value{}, err
	}
	for _, it := range items {
		if it.typ.IsArray() || it.typ.Basic != elem {
			return Value{}, ErrInvalidValue.Msg(
				fmt.Sprintf("array of %s cannot hold element of type %s", elem, it.typ.Basic))
		}
	}
	v := Value{typ: td, items: make([]Value, len(items))}
	copy(v.items, items)
	return v, nil
}

func (v Value) Type() TypeDescriptor {
	return v.typ
}

func (v Value) BasicType() BasicType {
	return v.typ.Basic
}

func (v Value) IsArray() bool {
	return v.typ.IsArray()
}

func (v Value) IsValid() bool {
	return v.typ.Basic.IsValid()
}

// Items returns the array elements; nil for scalars.
func (v Value) Items() []Value {
	return v.items
}

func (v Value) Bool() bool               { return v.boolVal }
func (v Value) Int() int64               { return v.intVal }
func (v Value) Float() float64           { return v.fltVal }
func (v Value) Str() string              { return v.strVal }
func (v Value) Decimal() decimal.Decimal { return v.decVal }
func (v Value) Time() time.Time          { return v.timeVal }

// Equal reports logical equality. Arrays are equal elementwise; decimals
// compare numerically, independent of scale.
func (v Value) Equal(other Value) bool {
	if !v.typ.Equal(other.typ) {
		return false
	}
	if v.typ.IsArray() {
		if len(v.items) != len(other.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(other.items[i]) {
				return false
			}
		}
		return true
	}
	switch v.typ.Basic {
	case BasicTypeBoolean:
		return v.boolVal == other.boolVal
	case BasicTypeInteger:
		return v.intVal == other.intVal
	case BasicTypeFloat:
		return v.fltVal == other.fltVal
	case BasicTypeString:
		return v.strVal == other.strVal
	case BasicTypeDecimal:
		return v.decVal.Cmp(other.decVal) == 0
	case BasicTypeDate, BasicTypeDatetime:
		return v.timeVal.Equal(other.timeVal)
	}
	return false
}

// Compare orders two scalar values of the same ordered type. Returns
// -1, 0 or +1. Comparing arrays, booleans, strings or mismatched types is
// an error.
func (v Value) Compare(other Value) (int, error) {
	if !v.typ.Equal(other.typ) {
		return 0, ErrInvalidValue.Msg("cannot compare values of different types")
	}
	if !v.typ.Basic.IsOrdered() {
		return 0, ErrInvalidValue.Msg(fmt.Sprintf("type %s has no ordering", v.typ.Basic))
	}
	switch v.typ.Basic {
	case BasicTypeInteger:
		return cmpOrdered(v.intVal, other.intVal), nil
	case BasicTypeFloat:
		return cmpOrdered(v.fltVal, other.fltVal), nil
	case BasicTypeDecimal:
		return v.decVal.Cmp(other.decVal), nil
	case BasicTypeDate, BasicTypeDatetime:
		return v.timeVal.Compare(other.timeVal), nil
	}
	return 0, ErrInvalidValue.Msg("unreachable")
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Contains reports whether an array value holds an element equal to the
// given scalar. False for scalars and type mismatches.
func (v Value) Contains(elem Value) bool {
	if !v.typ.IsArray() || elem.typ.IsArray() {
		return false
	}
	if v.typ.ElemType() != elem.typ.Basic {
		return false
	}
	for _, it := range v.items {
		if it.Equal(elem) {
			return true
		}
	}
	return false
}

const (
	dateFormat     = "2006-01-02"
	datetimeFormat = "2006-01-02T15:04:05.000000Z"
)

// Canonical returns the canonical string encoding of the value. Logically
// identical values produced through any constructor path encode to the same
// bytes: datetimes are already truncated to microseconds UTC, floats use the
// shortest round-trip form, decimals preserve their scale.
func (v Value) Canonical() string {
	if v.typ.IsArray() {
		parts := make([]string, len(v.items))
		for i, it := range v.items {
			if it.typ.Basic == BasicTypeString {
				parts[i] = strconv.Quote(it.strVal)
			} else {
				parts[i] = it.Canonical()
			}
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	switch v.typ.Basic {
	case BasicTypeBoolean:
		return strconv.FormatBool(v.boolVal)
	case BasicTypeInteger:
		return strconv.FormatInt(v.intVal, 10)
	case BasicTypeFloat:
		return strconv.FormatFloat(v.fltVal, 'g', -1, 64)
	case BasicTypeString:
		return v.strVal
	case BasicTypeDecimal:
		return v.decVal.String()
	case BasicTypeDate:
		return v.timeVal.Format(dateFormat)
	case BasicTypeDatetime:
		return v.timeVal.UTC().Format(datetimeFormat)
	}
	return ""
}

func (v Value) String() string {
	return v.Canonical()
}

// ParseScalar decodes the canonical string encoding of a scalar value of
// the given type. It is the inverse of Canonical for scalars and is what
// the DAL uses to rehydrate attribute rows.
func ParseScalar(t BasicType, s string) (Value, error) {
	switch t {
	case BasicTypeBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, ErrInvalidValue.Msg("invalid boolean: " + s)
		}
		return BoolValue(b), nil
	case BasicTypeInteger:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, ErrInvalidValue.Msg("invalid integer: " + s)
		}
		return IntValue(i), nil
	case BasicTypeFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, ErrInvalidValue.Msg("invalid float: " + s)
		}
		return FloatValue(f), nil
	case BasicTypeString:
		return StringValue(s), nil
	case BasicTypeDecimal:
		d, err := decimal.NewFromString(s)
		if err != nil {
			return Value{}, ErrInvalidValue.Msg("invalid decimal: " + s)
		}
		return DecimalValue(d), nil
	case BasicTypeDate:
		t, err := time.ParseInLocation(dateFormat, s, time.UTC)
		if err != nil {
			return Value{}, ErrInvalidValue.Msg("invalid date: " + s)
		}
		return DateValue(t), nil
	case BasicTypeDatetime:
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return Value{}, ErrInvalidValue.Msg("invalid datetime: " + s)
		}
		return DatetimeValue(t), nil
	}
	return Value{}, ErrInvalidValue.Msg("invalid basic type: " + string(t))
}

// Single wraps a scalar into a one-element array of the same element type.
func (v Value) Single() (Value, error) {
	if v.typ.IsArray() {
		return v, nil
	}
	return ArrayValue(v.typ.Basic, []Value{v})
}
