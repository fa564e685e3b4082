package entrycache

import "encoding/json"

// Copier produces an independent copy of a value for store-by-value caches.
// Values are copied on put and again on get so neither the caller nor the
// cache can alias the other's copy.
type Copier[V any] interface {
	Copy(value V) (V, error)
}

// CopierFunc adapts a function to the Copier interface.
type CopierFunc[V any] func(value V) (V, error)

func (f CopierFunc[V]) Copy(value V) (V, error) {
	return f(value)
}

// jsonCopier is the default Copier: a JSON round-trip. It handles every
// value shape the engine stores by default and keeps the copy fully
// detached from the original.
type jsonCopier[V any] struct{}

func (jsonCopier[V]) Copy(value V) (V, error) {
	var out V
	body, err := json.Marshal(value)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, err
	}
	return out, nil
}
