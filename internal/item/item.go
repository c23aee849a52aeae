// Package item 定义插件代码使用的物品数据，以及它与宿主内部物品对象之间的转换
package item

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/Versifine/hamster/internal/symbol"
)

// SymbolName is the logical name of the host's internal item type.
const SymbolName = "world.item.ItemStack"

var ErrNotAnItem = errors.New("value is not a host item")

// Stack is an item as seen by plugin code.
type Stack struct {
	ID    string
	Count int32
}

func (s *Stack) String() string {
	if s == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s x%d", s.ID, s.Count)
}

// Converter maps between Stack and the host's internal item object.
type Converter interface {
	ToWire(s *Stack) (any, error)
	FromWire(v any) (*Stack, error)
}

// SymbolConverter converts through the resolved host item type: its
// constructor takes (id string, count int32), and the id and count are read
// back as the first string and first int32 field.
type SymbolConverter struct {
	Resolver *symbol.Resolver
}

func NewSymbolConverter(r *symbol.Resolver) *SymbolConverter {
	return &SymbolConverter{Resolver: r}
}

func (c *SymbolConverter) ToWire(s *Stack) (any, error) {
	if s == nil {
		return nil, nil
	}
	sym, err := c.Resolver.Resolve(SymbolName)
	if err != nil {
		return nil, err
	}
	return sym.New(s.ID, s.Count)
}

func (c *SymbolConverter) FromWire(v any) (*Stack, error) {
	if v == nil {
		return nil, nil
	}
	sym, err := c.Resolver.Resolve(SymbolName)
	if err != nil {
		return nil, err
	}
	if !sym.IsInstance(v) {
		return nil, fmt.Errorf("%T: %w", v, ErrNotAnItem)
	}
	id, err := c.Resolver.FieldValue(v, reflect.TypeFor[string](), 0)
	if err != nil {
		return nil, fmt.Errorf("item id: %w", err)
	}
	count, err := c.Resolver.FieldValue(v, reflect.TypeFor[int32](), 0)
	if err != nil {
		return nil, fmt.Errorf("item count: %w", err)
	}
	return &Stack{ID: reflect.ValueOf(id).String(), Count: int32(reflect.ValueOf(count).Int())}, nil
}
