// Package symbol 负责把宿主内部类型与字段的逻辑名映射到当前宿主版本中的具体形式
package symbol

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Symbol is one concrete host type, optionally with a constructor and, for
// enum-like types, its ordered constants.
type Symbol struct {
	Name string
	Type reflect.Type

	ctor      reflect.Value
	enumNames []string
	enumVals  []any
}

// New builds an instance through the registered constructor. Arguments must
// match the constructor's parameters in count; each one must be assignable to
// its parameter, numeric values are converted between numeric kinds.
func (s *Symbol) New(args ...any) (any, error) {
	if !s.ctor.IsValid() {
		return nil, fmt.Errorf("%s: %w: no constructor", s.Name, ErrBadConstructor)
	}
	ft := s.ctor.Type()
	if ft.IsVariadic() || ft.NumIn() != len(args) {
		return nil, fmt.Errorf("%s: %w: want %d arguments, got %d", s.Name, ErrBadConstructor, ft.NumIn(), len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		v, ok := coerce(arg, ft.In(i))
		if !ok {
			return nil, fmt.Errorf("%s: %w: argument %d (%T) not assignable to %s", s.Name, ErrBadConstructor, i, arg, ft.In(i))
		}
		in[i] = v
	}
	out := s.ctor.Call(in)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, fmt.Errorf("%s: construct: %w", s.Name, out[1].Interface().(error))
	}
	return out[0].Interface(), nil
}

// Accepts reports whether the constructor takes exactly the given parameter types.
func (s *Symbol) Accepts(params ...reflect.Type) bool {
	if !s.ctor.IsValid() {
		return false
	}
	ft := s.ctor.Type()
	if ft.NumIn() != len(params) {
		return false
	}
	for i, p := range params {
		if p == nil || !p.AssignableTo(ft.In(i)) {
			return false
		}
	}
	return true
}

// IsInstance reports whether v is of this symbol's type. Interface symbols
// match every implementation.
func (s *Symbol) IsInstance(v any) bool {
	if v == nil || s.Type == nil {
		return false
	}
	t := reflect.TypeOf(v)
	if s.Type.Kind() == reflect.Interface {
		return t.Implements(s.Type)
	}
	return t == s.Type
}

// Enum returns the ordinal-th constant of an enum-like symbol.
func (s *Symbol) Enum(ordinal int) (any, error) {
	if ordinal < 0 || ordinal >= len(s.enumVals) {
		return nil, fmt.Errorf("%s: enum ordinal %d out of range (%d constants)", s.Name, ordinal, len(s.enumVals))
	}
	return s.enumVals[ordinal], nil
}

// EnumByName returns the constant declared under name.
func (s *Symbol) EnumByName(name string) (any, error) {
	for i, n := range s.enumNames {
		if n == name {
			return s.enumVals[i], nil
		}
	}
	return nil, fmt.Errorf("%s: no enum constant %q", s.Name, name)
}

func coerce(arg any, want reflect.Type) (reflect.Value, bool) {
	if arg == nil {
		switch want.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(want), true
		}
		return reflect.Value{}, false
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(want) {
		return v, true
	}
	if isNumeric(v.Kind()) && isNumeric(want.Kind()) {
		return v.Convert(want), true
	}
	return reflect.Value{}, false
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// Source is where resolution candidates are looked up.
type Source interface {
	Lookup(qualifiedName string) (*Symbol, bool)
}

// Registry is a Source the host fills with its types under qualified names.
type Registry struct {
	mu      sync.RWMutex
	symbols map[string]*Symbol
}

func NewRegistry() *Registry {
	return &Registry{symbols: make(map[string]*Symbol)}
}

// Register records t under name. ctor may be nil; otherwise it must be a
// function returning a value, or a value and an error.
func (r *Registry) Register(name string, t reflect.Type, ctor any) (*Symbol, error) {
	sym := &Symbol{Name: name, Type: t}
	if ctor != nil {
		cv := reflect.ValueOf(ctor)
		if cv.Kind() != reflect.Func {
			return nil, fmt.Errorf("register %s: %w: constructor is %T", name, ErrBadConstructor, ctor)
		}
		ct := cv.Type()
		switch {
		case ct.NumOut() == 1:
		case ct.NumOut() == 2 && ct.Out(1) == reflect.TypeFor[error]():
		default:
			return nil, fmt.Errorf("register %s: %w: constructor must return (T) or (T, error)", name, ErrBadConstructor)
		}
		sym.ctor = cv
	}
	r.mu.Lock()
	r.symbols[name] = sym
	r.mu.Unlock()
	return sym, nil
}

// RegisterEnum records an enum-like type and its constants in declaration order.
func (r *Registry) RegisterEnum(name string, t reflect.Type, names []string, values []any) (*Symbol, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("register enum %s: %d names for %d values", name, len(names), len(values))
	}
	sym := &Symbol{Name: name, Type: t, enumNames: names, enumVals: values}
	r.mu.Lock()
	r.symbols[name] = sym
	r.mu.Unlock()
	return sym, nil
}

func (r *Registry) Lookup(name string) (*Symbol, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sym, ok := r.symbols[name]
	return sym, ok
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.symbols))
	for n := range r.symbols {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
