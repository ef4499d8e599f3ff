package model

import (
	"bytes"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

// Extra holds the JSON members of a record that have no struct field, such as
// keypoint skeletons on categories or tool-specific attributes. They are
// written back verbatim.
type Extra map[string]json.RawMessage

// Clone returns a deep copy.
func (e Extra) Clone() Extra {
	if e == nil {
		return nil
	}
	out := make(Extra, len(e))
	for k, v := range e {
		out[k] = slices.Clone(v)
	}
	return out
}

var knownFields sync.Map // reflect.Type -> map[string]struct{}

// jsonFields returns the member names t declares through its json tags.
func jsonFields(t reflect.Type) map[string]struct{} {
	if v, ok := knownFields.Load(t); ok {
		return v.(map[string]struct{})
	}
	fields := make(map[string]struct{}, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		fields[name] = struct{}{}
	}
	knownFields.Store(t, fields)
	return fields
}

// decodeRecord unmarshals data into the struct v points to and returns the
// members v has no field for.
func decodeRecord(data []byte, v any) (Extra, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}
	known := jsonFields(reflect.TypeOf(v).Elem())
	var extra Extra
	for k, raw := range members {
		if _, ok := known[k]; ok {
			continue
		}
		if extra == nil {
			extra = make(Extra)
		}
		extra[k] = raw
	}
	return extra, nil
}

// encodeRecord marshals the struct v and appends the extra members in key
// order. Members that collide with a field of v are skipped.
func encodeRecord(v any, extra Extra) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	known := jsonFields(reflect.TypeOf(v))

	var buf bytes.Buffer
	buf.Grow(len(data) + 64*len(extra))
	buf.Write(data[:len(data)-1])
	for _, k := range slices.Sorted(maps.Keys(extra)) {
		if _, ok := known[k]; ok {
			continue
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.Write(name)
		buf.WriteByte(':')
		if raw := extra[k]; len(raw) > 0 {
			buf.Write(raw)
		} else {
			buf.WriteString("null")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
