package metadata

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Wire form of a value: the type descriptor plus a native JSON rendering of
// the payload. Decimals travel as strings so scale survives the trip.
type valueWire struct {
	Type  TypeDescriptor  `json:"type"`
	Value json.RawMessage `json:"value"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	raw, err := v.marshalPayload()
	if err != nil {
		return nil, err
	}
	return json.Marshal(valueWire{Type: v.typ, Value: raw})
}

func (v Value) marshalPayload() (json.RawMessage, error) {
	if v.typ.IsArray() {
		parts := make([]json.RawMessage, len(v.items))
		for i, it := range v.items {
			p, err := it.marshalPayload()
			if err != nil {
				return nil, err
			}
			parts[i] = p
		}
		return json.Marshal(parts)
	}
	switch v.typ.Basic {
	case BasicTypeBoolean:
		return json.Marshal(v.boolVal)
	case BasicTypeInteger:
		return json.Marshal(v.intVal)
	case BasicTypeFloat:
		return json.Marshal(v.fltVal)
	case BasicTypeString:
		return json.Marshal(v.strVal)
	case BasicTypeDecimal, BasicTypeDate, BasicTypeDatetime:
		return json.Marshal(v.Canonical())
	}
	return nil, ErrInvalidValue.Msg("cannot marshal invalid value")
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var w valueWire
	if err := json.Unmarshal(data, &w); err != nil {
		return ErrInvalidValue.Msg("malformed value").Err(err)
	}
	if err := w.Type.Validate(); err != nil {
		return err
	}
	parsed, err := unmarshalPayload(w.Type, w.Value)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func unmarshalPayload(td TypeDescriptor, raw json.RawMessage) (Value, error) {
	if td.IsArray() {
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil {
			return Value{}, ErrInvalidValue.Msg("malformed array value").Err(err)
		}
		items := make([]Value, len(parts))
		for i, p := range parts {
			it, err := unmarshalPayload(ScalarType(td.ElemType()), p)
			if err != nil {
				return Value{}, err
			}
			items[i] = it
		}
		return ArrayValue(td.ElemType(), items)
	}
	switch td.Basic {
	case BasicTypeBoolean:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, ErrInvalidValue.Msg("malformed boolean value").Err(err)
		}
		return BoolValue(b), nil
	case BasicTypeInteger:
		var i int64
		if err := json.Unmarshal(raw, &i); err != nil {
			return Value{}, ErrInvalidValue.Msg("malformed integer value").Err(err)
		}
		return IntValue(i), nil
	case BasicTypeFloat:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return Value{}, ErrInvalidValue.Msg("malformed float value").Err(err)
		}
		return FloatValue(f), nil
	case BasicTypeString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, ErrInvalidValue.Msg("malformed string value").Err(err)
		}
		return StringValue(s), nil
	case BasicTypeDecimal:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, ErrInvalidValue.Msg("malformed decimal value").Err(err)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return Value{}, ErrInvalidValue.Msg("invalid decimal: " + s)
		}
		return DecimalValue(d), nil
	case BasicTypeDate, BasicTypeDatetime:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, ErrInvalidValue.Msg("malformed time value").Err(err)
		}
		return ParseScalar(td.Basic, s)
	}
	return Value{}, ErrInvalidValue.Msg("invalid basic type")
}
