package document

import (
	"bytes"
	"encoding/json"
)

// Settings is an ordered mapping of setting name to value. The zero value is
// not usable; construct with NewSettings. A nil *Settings behaves as empty
// for all read operations.
type Settings struct {
	keys   []string
	values map[string]Value
}

// NewSettings returns an empty settings map.
func NewSettings() *Settings {
	return &Settings{values: make(map[string]Value)}
}

// SettingsOf builds settings from alternating key, value pairs in order.
func SettingsOf(pairs ...any) *Settings {
	s := NewSettings()
	for i := 0; i+1 < len(pairs); i += 2 {
		key, _ := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case Value:
			s.Set(key, v)
		case string:
			if IsColor(v) {
				s.Set(key, ColorValue(v))
			} else {
				s.Set(key, TextValue(v))
			}
		case bool:
			s.Set(key, BoolValue(v))
		case int:
			s.Set(key, NumberValue(float64(v)))
		case float64:
			s.Set(key, NumberValue(v))
		}
	}
	return s
}

// Len returns the number of keys.
func (s *Settings) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Get returns the value for key.
func (s *Settings) Get(key string) (Value, bool) {
	if s == nil {
		return Value{}, false
	}
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether key is present.
func (s *Settings) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Set stores v under key. New keys are appended; existing keys keep their position.
func (s *Settings) Set(key string, v Value) {
	if s.values == nil {
		s.values = make(map[string]Value)
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = v
}

// Delete removes key and reports whether it was present.
func (s *Settings) Delete(key string) bool {
	if s == nil {
		return false
	}
	if _, ok := s.values[key]; !ok {
		return false
	}
	delete(s.values, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the keys in insertion order.
func (s *Settings) Keys() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.keys...)
}

// Range calls fn for each entry in order until fn returns false.
func (s *Settings) Range(fn func(key string, v Value) bool) {
	if s == nil {
		return
	}
	for _, k := range s.keys {
		if !fn(k, s.values[k]) {
			return
		}
	}
}

// Merge copies every entry of other into s, overwriting existing keys.
func (s *Settings) Merge(other *Settings) {
	other.Range(func(k string, v Value) bool {
		s.Set(k, v.Clone())
		return true
	})
}

// Clone returns a deep copy.
func (s *Settings) Clone() *Settings {
	out := NewSettings()
	if s == nil {
		return out
	}
	out.keys = make([]string, len(s.keys))
	copy(out.keys, s.keys)
	for k, v := range s.values {
		out.values[k] = v.Clone()
	}
	return out
}

// MarshalJSON encodes the settings as an object in key order.
func (s *Settings) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := s.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
