package instruments

import (
	"fmt"
	"sort"
)

var registry = map[string]*Adapter{}

func register(a *Adapter) {
	if _, dup := registry[a.Key()]; dup {
		panic("duplicate instrument " + a.Key())
	}
	registry[a.Key()] = a
}

// Lookup resolves an adapter by platform and name.
func Lookup(platform, name string) (*Adapter, error) {
	a, ok := registry[platform+"/"+name]
	if !ok {
		return nil, fmt.Errorf("unknown instrument %s/%s", platform, name)
	}
	return a, nil
}

// All returns every registered adapter sorted by key.
func All() []*Adapter {
	out := make([]*Adapter, 0, len(registry))
	for _, a := range registry {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
