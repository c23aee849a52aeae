package symbol

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/atomic"

	"github.com/Versifine/hamster/internal/rawfield"
)

// Resolver memoizes logical-name and field resolutions for the lifetime of
// the process. Entries are never invalidated: the host release does not
// change while the process runs.
type Resolver struct {
	src    Source
	probes []Probe

	types  sync.Map // logical name -> *resolution
	fields sync.Map // fieldKey -> *fieldResolution

	sweeps atomic.Int64
	scans  atomic.Int64
}

type resolution struct {
	sym        *Symbol
	candidates []string
}

type fieldKey struct {
	runtime reflect.Type
	want    reflect.Type
	ordinal int
}

type fieldResolution struct {
	field Field
	ok    bool
}

// Stats counts the expensive work the resolver has done.
type Stats struct {
	Sweeps int64 // candidate sweeps run by Resolve
	Scans  int64 // declared-field scans run by ResolveField
}

// New builds a resolver trying probes in order.
func New(src Source, probes ...Probe) *Resolver {
	return &Resolver{src: src, probes: probes}
}

// NewMinecraft resolves names below net.minecraft: the modern unversioned
// form first, then the versioned legacy package, then known renames.
func NewMinecraft(src Source, version string, renames map[string][]string) *Resolver {
	probes := []Probe{
		ModernProbe(MinecraftPrefix),
		LegacyProbe(MinecraftLegacyPrefix, version),
	}
	probes = append(probes, RenameProbes(MinecraftPrefix, renames)...)
	return New(src, probes...)
}

// Resolve maps a logical name to the first candidate the source knows.
// Misses are cached too, so the sweep runs once per name.
func (r *Resolver) Resolve(logical string) (*Symbol, error) {
	if v, ok := r.types.Load(logical); ok {
		return v.(*resolution).result(logical)
	}
	v, _ := r.types.LoadOrStore(logical, r.sweep(logical))
	return v.(*resolution).result(logical)
}

// Type is Resolve returning only the concrete type.
func (r *Resolver) Type(logical string) (reflect.Type, error) {
	sym, err := r.Resolve(logical)
	if err != nil {
		return nil, err
	}
	return sym.Type, nil
}

func (r *Resolver) sweep(logical string) *resolution {
	r.sweeps.Inc()
	res := &resolution{}
	for _, probe := range r.probes {
		name := probe(logical)
		if name == "" {
			continue
		}
		res.candidates = append(res.candidates, name)
		if sym, ok := r.src.Lookup(name); ok {
			res.sym = sym
			return res
		}
	}
	return res
}

func (res *resolution) result(logical string) (*Symbol, error) {
	if res.sym == nil {
		return nil, &ResolutionError{Name: logical, Candidates: res.candidates, Err: ErrNotFound}
	}
	return res.sym, nil
}

// Stats reports how many sweeps and scans have run.
func (r *Resolver) Stats() Stats {
	return Stats{Sweeps: r.sweeps.Load(), Scans: r.scans.Load()}
}

// ResolveField finds the ordinal-th field of obj whose declared type is
// assignable to want. Fields of the struct itself come first, then those of
// its embedded structs, in declaration order.
func (r *Resolver) ResolveField(obj any, want reflect.Type, ordinal int) (Field, error) {
	if obj == nil {
		return Field{}, ErrNilObject
	}
	if want == nil {
		return Field{}, ErrNilFieldType
	}
	rt := reflect.TypeOf(obj)
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	key := fieldKey{runtime: rt, want: want, ordinal: ordinal}
	v, ok := r.fields.Load(key)
	if !ok {
		r.scans.Inc()
		f, found := scanFields(rt, want, ordinal)
		v, _ = r.fields.LoadOrStore(key, &fieldResolution{field: f, ok: found})
	}
	fr := v.(*fieldResolution)
	if !fr.ok {
		return Field{}, &ResolutionError{
			Name: fmt.Sprintf("%s field #%d of type %s", rt, ordinal, want),
			Err:  ErrNotFound,
		}
	}
	return fr.field, nil
}

// FieldValue resolves a field like ResolveField and returns its current value.
func (r *Resolver) FieldValue(obj any, want reflect.Type, ordinal int) (any, error) {
	f, err := r.ResolveField(obj, want, ordinal)
	if err != nil {
		return nil, err
	}
	return f.Get(obj)
}

// FieldValueOf resolves the field type itself through the resolver first.
func (r *Resolver) FieldValueOf(obj any, logical string, ordinal int) (any, error) {
	t, err := r.Type(logical)
	if err != nil {
		return nil, err
	}
	return r.FieldValue(obj, t, ordinal)
}

// Field is a resolved struct field.
type Field struct {
	Name  string
	Type  reflect.Type
	Index []int
}

// Get reads the field from obj, which may be a struct or a pointer to one.
func (f Field) Get(obj any) (any, error) {
	v, err := addressable(obj)
	if err != nil {
		return nil, err
	}
	fv, err := v.FieldByIndexErr(f.Index)
	if err != nil {
		return nil, fmt.Errorf("read field %s: %w", f.Name, err)
	}
	rv, ok := rawfield.Read(fv)
	if !ok {
		return nil, fmt.Errorf("read field %s: %w", f.Name, rawfield.ErrNotAddressable)
	}
	return rv.Interface(), nil
}

func addressable(obj any) (reflect.Value, error) {
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, ErrNilObject
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%s is not a struct", v.Type())
	}
	if !v.CanAddr() {
		cp := reflect.New(v.Type()).Elem()
		cp.Set(v)
		v = cp
	}
	return v, nil
}

func scanFields(rt, want reflect.Type, ordinal int) (Field, bool) {
	if rt.Kind() != reflect.Struct {
		return Field{}, false
	}
	seen := 0
	var walk func(t reflect.Type, prefix []int) (Field, bool)
	walk = func(t reflect.Type, prefix []int) (Field, bool) {
		var embedded []reflect.StructField
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if sf.Anonymous && embeddedStruct(sf.Type) != nil {
				embedded = append(embedded, sf)
				continue
			}
			if !sf.Type.AssignableTo(want) {
				continue
			}
			if seen == ordinal {
				return Field{Name: sf.Name, Type: sf.Type, Index: appendIndex(prefix, i)}, true
			}
			seen++
		}
		for _, sf := range embedded {
			if f, ok := walk(embeddedStruct(sf.Type), appendIndex(prefix, sf.Index[0])); ok {
				return f, true
			}
		}
		return Field{}, false
	}
	return walk(rt, nil)
}

func embeddedStruct(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

func appendIndex(prefix []int, i int) []int {
	out := make([]int, len(prefix), len(prefix)+1)
	copy(out, prefix)
	return append(out, i)
}
