package amap

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/triproute/triproute/internal/routing"
	"github.com/triproute/triproute/pkg/polyline"
)

// object is a loosely typed provider JSON object. AMap mixes strings, numbers,
// empty arrays and nested objects for the same logical field, so every read
// goes through the tolerant accessors below.
type object map[string]json.RawMessage

// asObject decodes raw as an object, or returns nil for any other JSON value.
func asObject(raw json.RawMessage) object {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil
	}
	return o
}

// scalar renders a JSON string or number as text. Arrays, objects, booleans
// and null yield false.
func scalar(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(raw), true
	default:
		return "", false
	}
}

// str returns the first non-empty scalar among keys.
func (o object) str(keys ...string) string {
	for _, key := range keys {
		if s, ok := scalar(o[key]); ok && s != "" && s != "[]" {
			return s
		}
	}
	return ""
}

// number returns the first of keys holding a usable number, or 0. Present but
// blank or malformed values fall through to the next alias.
func (o object) number(keys ...string) float64 {
	for _, key := range keys {
		s, ok := scalar(o[key])
		if !ok {
			continue
		}
		if v := routing.ParseNumberOr(s, math.NaN()); !math.IsNaN(v) && v != 0 {
			return v
		}
	}
	return 0
}

// optionalNumber is like number but distinguishes an absent field from zero.
func (o object) optionalNumber(keys ...string) (float64, bool) {
	for _, key := range keys {
		s, ok := scalar(o[key])
		if !ok {
			continue
		}
		if v := routing.ParseNumberOr(s, math.NaN()); !math.IsNaN(v) {
			return v, true
		}
	}
	return 0, false
}

func (o object) object(key string) object {
	return asObject(o[key])
}

// objects returns the object elements of an array field.
func (o object) objects(key string) []object {
	raw := bytes.TrimSpace(o[key])
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]object, 0, len(items))
	for _, item := range items {
		if obj := asObject(item); obj != nil {
			out = append(out, obj)
		}
	}
	return out
}

// count returns the length of an array field, or 0.
func (o object) count(key string) int {
	raw := bytes.TrimSpace(o[key])
	if len(raw) == 0 || raw[0] != '[' {
		return 0
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return 0
	}
	return len(items)
}

// durationOf reads a duration from aliases, then from the nested cost object
// that v5 endpoints use when show_fields=cost.
func (o object) durationOf(aliases ...string) float64 {
	if d := o.number(aliases...); d > 0 {
		return d
	}
	return o.object("cost").number("duration")
}

func coordinate(s string) *routing.Coordinate {
	c, ok := routing.ParseCoordinate(s)
	if !ok {
		return nil
	}
	return &c
}

// encodePolyline converts AMap "lon,lat;lon,lat" geometry to an encoded polyline.
func encodePolyline(pairs string) string {
	coords := polyline.ParsePairs(pairs)
	if len(coords) < 2 {
		return ""
	}
	return polyline.Encode(coords)
}

func positive(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}

func flag(s string) *bool {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &v
}
