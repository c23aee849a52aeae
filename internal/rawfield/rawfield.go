// Package rawfield 是唯一直接读写结构体内存的地方，用于反射拒绝访问的字段（如宿主消息类型的未导出字段）
package rawfield

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"unsafe"
)

var (
	ErrNotAddressable = errors.New("field is not addressable")
	ErrTypeMismatch   = errors.New("value does not fit field type")
)

// Read returns a readable view of v. Values reached through unexported fields
// are re-derived from their address; unaddressable ones cannot be recovered.
func Read(v reflect.Value) (reflect.Value, bool) {
	if !v.IsValid() {
		return reflect.Value{}, false
	}
	if v.CanInterface() {
		return v, true
	}
	if !v.CanAddr() {
		return reflect.Value{}, false
	}
	return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem(), true
}

// Fit adapts value to t. Assignable values pass through; integers convert to
// any integer or float kind, floats to float kinds, strings to string kinds.
// A number t cannot hold, including a negative one for an unsigned kind, does
// not fit. A nil value fits every nilable kind as its zero.
func Fit(value reflect.Value, t reflect.Type) (reflect.Value, bool) {
	if !value.IsValid() {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), true
		}
		return reflect.Value{}, false
	}
	if value.Type().AssignableTo(t) {
		return value, true
	}
	from, to := family(value.Kind()), family(t.Kind())
	switch {
	case from == famInt && to == famInt:
		if !intFits(value, t) {
			return reflect.Value{}, false
		}
	case from == famInt && to == famFloat:
	case from == famFloat && to == famFloat:
		if t.OverflowFloat(value.Float()) {
			return reflect.Value{}, false
		}
	case from == famString && to == famString:
	default:
		return reflect.Value{}, false
	}
	return value.Convert(t), true
}

// Write stores value into field sf of parent at parent's address plus the
// field offset, using the store width of the field's kind. parent must be an
// addressable struct value.
func Write(parent reflect.Value, sf reflect.StructField, value reflect.Value) error {
	if parent.Kind() != reflect.Struct || !parent.CanAddr() {
		return fmt.Errorf("%s: %w", sf.Name, ErrNotAddressable)
	}
	v, ok := Fit(value, sf.Type)
	if !ok {
		return fmt.Errorf("%s: %w: %s into %s", sf.Name, ErrTypeMismatch, typeName(value), sf.Type)
	}
	p := unsafe.Add(unsafe.Pointer(parent.UnsafeAddr()), sf.Offset)
	switch sf.Type.Kind() {
	case reflect.Bool:
		*(*bool)(p) = v.Bool()
	case reflect.Int:
		*(*int)(p) = int(v.Int())
	case reflect.Int8:
		*(*int8)(p) = int8(v.Int())
	case reflect.Int16:
		*(*int16)(p) = int16(v.Int())
	case reflect.Int32:
		*(*int32)(p) = int32(v.Int())
	case reflect.Int64:
		*(*int64)(p) = v.Int()
	case reflect.Uint:
		*(*uint)(p) = uint(v.Uint())
	case reflect.Uint8:
		*(*uint8)(p) = uint8(v.Uint())
	case reflect.Uint16:
		*(*uint16)(p) = uint16(v.Uint())
	case reflect.Uint32:
		*(*uint32)(p) = uint32(v.Uint())
	case reflect.Uint64:
		*(*uint64)(p) = v.Uint()
	case reflect.Uintptr:
		*(*uintptr)(p) = uintptr(v.Uint())
	case reflect.Float32:
		*(*float32)(p) = float32(v.Float())
	case reflect.Float64:
		*(*float64)(p) = v.Float()
	case reflect.String:
		*(*string)(p) = v.String()
	default:
		// Reference kinds go through a typed store so the GC sees the write.
		reflect.NewAt(sf.Type, p).Elem().Set(v)
	}
	return nil
}

type kindFamily int

const (
	famOther kindFamily = iota
	famInt
	famFloat
	famString
)

func family(k reflect.Kind) kindFamily {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return famInt
	case reflect.Float32, reflect.Float64:
		return famFloat
	case reflect.String:
		return famString
	}
	return famOther
}

func intFits(value reflect.Value, t reflect.Type) bool {
	if signed(value.Kind()) {
		n := value.Int()
		if signed(t.Kind()) {
			return !t.OverflowInt(n)
		}
		return n >= 0 && !t.OverflowUint(uint64(n))
	}
	u := value.Uint()
	if signed(t.Kind()) {
		return u <= math.MaxInt64 && !t.OverflowInt(int64(u))
	}
	return !t.OverflowUint(u)
}

func signed(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func typeName(v reflect.Value) string {
	if !v.IsValid() {
		return "nil"
	}
	return v.Type().String()
}
