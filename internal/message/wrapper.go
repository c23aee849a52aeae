// Package message 负责按字段名、按类型访问布局只在运行时可知的消息对象
//
// 读取从不失败：字段不存在或类型不符时返回对应类型的零值（0、false、0.0、"" 或 nil），
// 与字段本身恰好为零值无法区分。
//
// 写入先走反射，字段不可设置（未导出字段）时退回按偏移直接写内存；
// 类型不符或数值超出字段范围、两条路径都无法完成的写入会被静默丢弃，需要确认时请重新读取。
//
// Wrapper 不是并发安全的。
package message

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/Versifine/hamster/internal/item"
	"github.com/Versifine/hamster/internal/rawfield"
	"github.com/Versifine/hamster/internal/symbol"
)

// KeySymbol is the logical name of the host's namespaced-key type, which
// reads as text.
const KeySymbol = "resources.MinecraftKey"

var (
	ErrNoField      = errors.New("no such field")
	ErrWriteRefused = errors.New("field write refused")
)

type Option func(*Wrapper)

// WithResolver lets the wrapper recognise host types (items, namespaced keys).
func WithResolver(r *symbol.Resolver) Option {
	return func(w *Wrapper) { w.resolver = r }
}

// WithItemConverter sets the converter used by Item and WriteItem.
func WithItemConverter(c item.Converter) Option {
	return func(w *Wrapper) { w.converter = c }
}

// Eager reads every field at construction instead of on first access.
func Eager() Option {
	return func(w *Wrapper) { w.eager = true }
}

type Wrapper struct {
	msg      any
	name     string
	root     reflect.Value
	writable bool

	resolver  *symbol.Resolver
	converter item.Converter
	eager     bool

	cache map[string]*entry
	items map[string]*item.Stack
	keys  []string
}

type entry struct {
	present bool
	sf      reflect.StructField
	index   []int
	loaded  bool
	value   any
}

// Wrap wraps msg. Writes only reach msg when it is a pointer to a struct.
func Wrap(msg any, opts ...Option) *Wrapper {
	w := &Wrapper{
		msg:   msg,
		cache: make(map[string]*entry),
		items: make(map[string]*item.Stack),
	}
	for _, opt := range opts {
		opt(w)
	}
	if msg == nil {
		return w
	}
	v := reflect.ValueOf(msg)
	for v.Kind() == reflect.Pointer && !v.IsNil() {
		w.writable = true
		v = v.Elem()
	}
	w.name = v.Type().Name()
	if v.Kind() != reflect.Struct {
		return w
	}
	if !v.CanAddr() {
		cp := reflect.New(v.Type()).Elem()
		cp.Set(v)
		v = cp
		w.writable = false
	}
	w.root = v
	if w.eager {
		for _, k := range w.Fields() {
			w.load(k)
		}
	}
	return w
}

// Name is the simple type name of the message.
func (w *Wrapper) Name() string {
	return w.name
}

// Message returns the wrapped object.
func (w *Wrapper) Message() any {
	return w.msg
}

// Is reports whether the message's simple type name is name.
func (w *Wrapper) Is(name string) bool {
	return w.name == name
}

// Contains reports whether the message's simple type name contains fragment.
func (w *Wrapper) Contains(fragment string) bool {
	return strings.Contains(w.name, fragment)
}

func (w *Wrapper) String() string {
	if !w.root.IsValid() {
		return fmt.Sprintf("%v", w.msg)
	}
	return fmt.Sprintf("%s%+v", w.name, w.root)
}

// Fields lists the field names of the message: its own fields first, then
// those of embedded structs.
func (w *Wrapper) Fields() []string {
	if w.keys != nil || !w.root.IsValid() {
		return w.keys
	}
	var keys []string
	walkFields(w.root.Type(), nil, func(sf reflect.StructField, _ []int) bool {
		keys = append(keys, sf.Name)
		return false
	})
	w.keys = keys
	return keys
}

// Value returns the raw field value, or nil.
func (w *Wrapper) Value(key string) any {
	e := w.load(key)
	if !e.present {
		return nil
	}
	return e.value
}

// Int reads any integer kind, or 0.
func (w *Wrapper) Int(key string) int64 {
	rv := reflect.ValueOf(w.Value(key))
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int64(rv.Uint())
	}
	return 0
}

// Bool reads a bool kind, or false.
func (w *Wrapper) Bool(key string) bool {
	rv := reflect.ValueOf(w.Value(key))
	if rv.Kind() == reflect.Bool {
		return rv.Bool()
	}
	return false
}

// Float reads a float kind, or 0.
func (w *Wrapper) Float(key string) float64 {
	rv := reflect.ValueOf(w.Value(key))
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return 0
}

// Text reads a string kind, or a host namespaced key rendered as text, or "".
func (w *Wrapper) Text(key string) string {
	v := w.Value(key)
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	if w.isKey(v) {
		return v.(fmt.Stringer).String()
	}
	return ""
}

func (w *Wrapper) isKey(v any) bool {
	if w.resolver == nil || v == nil {
		return false
	}
	if _, ok := v.(fmt.Stringer); !ok {
		return false
	}
	sym, err := w.resolver.Resolve(KeySymbol)
	return err == nil && sym.IsInstance(v)
}

// Item reads a host item converted to a Stack, or nil.
func (w *Wrapper) Item(key string) *item.Stack {
	if s, ok := w.items[key]; ok {
		return s
	}
	v := w.Value(key)
	if v == nil || w.converter == nil {
		return nil
	}
	if w.resolver != nil {
		sym, err := w.resolver.Resolve(item.SymbolName)
		if err != nil || !sym.IsInstance(v) {
			return nil
		}
	}
	s, err := w.converter.FromWire(v)
	if err != nil {
		return nil
	}
	w.items[key] = s
	return s
}

// Write sets field key to value. See the package doc for the fallback order.
func (w *Wrapper) Write(key string, value any) {
	_ = w.write(key, value)
}

// WriteItem converts s to the host item and writes it to key.
func (w *Wrapper) WriteItem(key string, s *item.Stack) {
	if w.converter == nil {
		return
	}
	v, err := w.converter.ToWire(s)
	if err != nil {
		return
	}
	if w.write(key, v) == nil {
		w.items[key] = s
	}
}

func (w *Wrapper) write(key string, value any) error {
	e := w.locate(key)
	if !e.present {
		return fmt.Errorf("%s.%s: %w", w.name, key, ErrNoField)
	}
	if !w.writable {
		return fmt.Errorf("%s.%s: %w: message is not addressable", w.name, key, ErrWriteRefused)
	}
	parent := w.root
	if len(e.index) > 1 {
		p, err := w.root.FieldByIndexErr(e.index[:len(e.index)-1])
		if err != nil {
			return fmt.Errorf("%s.%s: %w: %v", w.name, key, ErrWriteRefused, err)
		}
		parent = p
	}
	fv := parent.Field(e.index[len(e.index)-1])
	rv := reflect.ValueOf(value)
	if err := setStandard(fv, rv); err != nil {
		if err := rawfield.Write(parent, e.sf, rv); err != nil {
			return fmt.Errorf("%s.%s: %w: %v", w.name, key, ErrWriteRefused, err)
		}
	}
	if cur, ok := rawfield.Read(fv); ok {
		e.value = cur.Interface()
	} else {
		e.value = value
	}
	e.loaded = true
	delete(w.items, key)
	return nil
}

func setStandard(fv, rv reflect.Value) error {
	if !fv.CanSet() {
		return ErrWriteRefused
	}
	v, ok := rawfield.Fit(rv, fv.Type())
	if !ok {
		return rawfield.ErrTypeMismatch
	}
	fv.Set(v)
	return nil
}

func (w *Wrapper) load(key string) *entry {
	e := w.locate(key)
	if !e.present || e.loaded {
		return e
	}
	e.loaded = true
	fv, err := w.root.FieldByIndexErr(e.index)
	if err != nil {
		return e
	}
	if rv, ok := rawfield.Read(fv); ok {
		e.value = rv.Interface()
	}
	return e
}

func (w *Wrapper) locate(key string) *entry {
	if e, ok := w.cache[key]; ok {
		return e
	}
	e := &entry{}
	if w.root.IsValid() {
		walkFields(w.root.Type(), nil, func(sf reflect.StructField, index []int) bool {
			if sf.Name != key {
				return false
			}
			e.present, e.sf, e.index = true, sf, index
			return true
		})
	}
	w.cache[key] = e
	return e
}

// walkFields visits the fields of t, then those of its embedded structs,
// until visit returns true.
func walkFields(t reflect.Type, prefix []int, visit func(reflect.StructField, []int) bool) bool {
	var embedded []reflect.StructField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous && structType(sf.Type) != nil {
			embedded = append(embedded, sf)
			continue
		}
		if visit(sf, index(prefix, i)) {
			return true
		}
	}
	for _, sf := range embedded {
		if walkFields(structType(sf.Type), index(prefix, sf.Index[0]), visit) {
			return true
		}
	}
	return false
}

func structType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

func index(prefix []int, i int) []int {
	out := make([]int, len(prefix), len(prefix)+1)
	copy(out, prefix)
	return append(out, i)
}
