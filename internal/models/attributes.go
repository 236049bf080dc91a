package models

import (
	"bytes"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Attributes is a string map that remembers insertion order. The zero value is
// ready to use. Values are never modified in place; Add returns a copy.
type Attributes struct {
	m *orderedmap.OrderedMap[string, string]
}

// NewAttributes builds an Attributes from alternating key/value pairs.
func NewAttributes(pairs ...string) Attributes {
	var a Attributes
	for i := 0; i+1 < len(pairs); i += 2 {
		a = a.Add(pairs[i], pairs[i+1])
	}
	return a
}

// Add returns a copy with key set to value. If key is already present the
// existing value is kept.
func (a Attributes) Add(key, value string) Attributes {
	if a.Has(key) {
		return a
	}
	out := a.Clone()
	if out.m == nil {
		out.m = orderedmap.New[string, string]()
	}
	out.m.Set(key, value)
	return out
}

func (a Attributes) Has(key string) bool {
	_, ok := a.Get(key)
	return ok
}

func (a Attributes) Get(key string) (string, bool) {
	if a.m == nil {
		return "", false
	}
	return a.m.Get(key)
}

func (a Attributes) Len() int {
	if a.m == nil {
		return 0
	}
	return a.m.Len()
}

// Keys returns the keys in insertion order.
func (a Attributes) Keys() []string {
	if a.m == nil {
		return nil
	}
	keys := make([]string, 0, a.m.Len())
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Map returns an unordered copy of the attributes.
func (a Attributes) Map() map[string]string {
	out := make(map[string]string, a.Len())
	if a.m == nil {
		return out
	}
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}

func (a Attributes) Clone() Attributes {
	if a.m == nil {
		return Attributes{}
	}
	out := orderedmap.New[string, string](a.m.Len())
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, pair.Value)
	}
	return Attributes{m: out}
}

// MarshalJSON writes the attributes as an object in insertion order.
func (a Attributes) MarshalJSON() ([]byte, error) {
	if a.m == nil || a.m.Len() == 0 {
		return []byte("{}"), nil
	}
	return a.m.MarshalJSON()
}

// UnmarshalJSON reads an object keeping the key order of the input. A
// repeated key keeps its first position and takes the last value.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = Attributes{}
		return nil
	}

	m := orderedmap.New[string, string]()
	if err := m.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("attributes must be an object of strings: %w", err)
	}

	*a = Attributes{m: m}
	return nil
}
