package authpublic

import "sync"

// Extensions is a small typed bag of values scoped to a single request.
type Extensions struct {
	mu     sync.RWMutex
	values map[any]any
}

func NewExtensions() *Extensions {
	return &Extensions{
		values: make(map[any]any),
	}
}

func (e *Extensions) Get(key any) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v, ok := e.values[key]
	return v, ok
}

func (e *Extensions) Set(key any, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.values[key] = value
}

// LoadOrStore returns the value stored under key, storing value first if
// there is none.
func (e *Extensions) LoadOrStore(key any, value any) any {
	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.values[key]; ok {
		return existing
	}
	e.values[key] = value
	return value
}

func (e *Extensions) Delete(key any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.values, key)
}

func (e *Extensions) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.values)
}

// typeKey gives every T its own slot in the bag.
type typeKey[T any] struct{}

// ExtensionGet returns the value of type T stored with ExtensionSet.
func ExtensionGet[T any](e *Extensions) (T, bool) {
	v, ok := e.Get(typeKey[T]{})
	if !ok {
		var zero T
		return zero, false
	}

	t, ok := v.(T)
	return t, ok
}

// ExtensionSet stores value under the identity of its type.
func ExtensionSet[T any](e *Extensions, value T) {
	e.Set(typeKey[T]{}, value)
}

// ExtensionDelete removes the value of type T.
func ExtensionDelete[T any](e *Extensions) {
	e.Delete(typeKey[T]{})
}
