package wire

import (
	"fmt"
	"strings"
)

// Component is a chat component in its serialized JSON form.
type Component struct {
	json string
}

func NewComponent(json string) *Component {
	return &Component{json: json}
}

func (c *Component) JSON() string {
	if c == nil {
		return "null"
	}
	return c.json
}

func (c *Component) String() string { return c.JSON() }

// ResourceLocation is a namespaced key such as minecraft:stone.
type ResourceLocation struct {
	namespace string
	path      string
}

// ParseResourceLocation splits s at the first colon; a bare path gets the
// minecraft namespace.
func ParseResourceLocation(s string) *ResourceLocation {
	ns, path, ok := strings.Cut(s, ":")
	if !ok {
		return &ResourceLocation{namespace: "minecraft", path: s}
	}
	return &ResourceLocation{namespace: ns, path: path}
}

func (r *ResourceLocation) String() string {
	return fmt.Sprintf("%s:%s", r.namespace, r.path)
}

// ItemStack is the host's item object.
type ItemStack struct {
	item  string
	count int32
}

func NewItemStack(id string, count int32) *ItemStack {
	return &ItemStack{item: id, count: count}
}

// ChatType is the position a legacy chat message is shown at.
type ChatType int8

const (
	ChatTypeChat ChatType = iota
	ChatTypeSystem
	ChatTypeGameInfo
)

// TitleAction selects what a legacy title packet updates.
type TitleAction int32

const (
	TitleActionTitle TitleAction = iota
	TitleActionSubtitle
	TitleActionTimes
	TitleActionClear
	TitleActionReset
)
