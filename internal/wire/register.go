package wire

import (
	"reflect"
	"strings"

	"github.com/Versifine/hamster/internal/symbol"
	"github.com/google/uuid"
)

// PacketIDs are the clientbound play ids a profile encodes with. Zero means
// the profile has no such packet.
type PacketIDs struct {
	Chat            int32
	SystemChat      int32
	Title           int32
	TitleText       int32
	SubtitleText    int32
	TitlesAnimation int32
	Disconnect      int32
}

// Profile describes one host release: the names its types live under and the
// packets it knows.
type Profile struct {
	Name     string
	Version  string // legacy package version, "" for unversioned releases
	Protocol int32
	IDs      PacketIDs
	// ChatSender selects the chat constructor that takes a ChatType and a
	// sender instead of a position byte.
	ChatSender bool
}

var (
	// ProfileLegacy is the 1.8 layout: every type in one versioned package.
	ProfileLegacy = Profile{
		Name:     "1.8.8",
		Version:  "v1_8_R3",
		Protocol: 47,
		IDs:      PacketIDs{Chat: 0x02, Title: 0x45, Disconnect: 0x40},
	}
	// ProfileNether is 1.16: still versioned, chat carries its sender.
	ProfileNether = Profile{
		Name:       "1.16.5",
		Version:    "v1_16_R3",
		Protocol:   754,
		IDs:        PacketIDs{Chat: 0x0E, Title: 0x4F, Disconnect: 0x19},
		ChatSender: true,
	}
	// ProfileModern uses unversioned, renamed packages and split title packets.
	ProfileModern = Profile{
		Name:     "1.19.4",
		Protocol: 762,
		IDs: PacketIDs{
			SystemChat:      0x64,
			TitleText:       0x5D,
			SubtitleText:    0x5B,
			TitlesAnimation: 0x5E,
			Disconnect:      0x1A,
		},
	}
)

// Profiles lists the known profiles, newest first.
var Profiles = []Profile{ProfileModern, ProfileNether, ProfileLegacy}

// ProfileFor picks the newest profile not newer than protocol.
func ProfileFor(protocol int32) Profile {
	for _, p := range Profiles {
		if protocol >= p.Protocol {
			return p
		}
	}
	return ProfileLegacy
}

// Legacy reports whether the profile uses the versioned package layout.
func (p Profile) Legacy() bool { return p.Version != "" }

// Qualify returns the name the profile registers logical under.
func (p Profile) Qualify(logical string) string {
	if p.Legacy() {
		return symbol.MinecraftLegacyPrefix + p.Version + "." + lastSegment(logical)
	}
	if alts := symbol.DefaultRenames[logical]; len(alts) > 0 {
		return symbol.MinecraftPrefix + alts[0]
	}
	return symbol.MinecraftPrefix + logical
}

// Logical names of the host types.
const (
	SymPlayerConnection = "server.network.PlayerConnection"
	SymNetworkManager   = "network.NetworkManager"
	SymPacket           = "network.protocol.Packet"
	SymComponent        = "network.chat.IChatBaseComponent"
	SymChatType         = "network.chat.ChatMessageType"
	SymItemStack        = "world.item.ItemStack"
	SymKey              = "resources.MinecraftKey"
	SymSystemChat       = "network.protocol.game.ClientboundSystemChatPacket"
	SymTitlesAnimation  = "network.protocol.game.ClientboundSetTitlesAnimationPacket"
	SymTitleText        = "network.protocol.game.ClientboundSetTitleTextPacket"
	SymSubtitleText     = "network.protocol.game.ClientboundSetSubtitleTextPacket"
	SymCommonDisconnect = "network.protocol.common.ClientboundDisconnectPacket"
	SymChat             = "network.protocol.game.PacketPlayOutChat"
	SymTitle            = "network.protocol.game.PacketPlayOutTitle"
	SymTitleAction      = "network.protocol.game.PacketPlayOutTitle$EnumTitleAction"
	SymKick             = "network.protocol.game.PacketPlayOutKickDisconnect"
)

type entry struct {
	logical string
	typ     reflect.Type
	ctor    any
}

// Register records the types of prof in reg.
func Register(reg *symbol.Registry, prof Profile) error {
	ids := prof.IDs
	entries := []entry{
		{SymPacket, reflect.TypeFor[Packet](), nil},
		{SymComponent, reflect.TypeFor[*Component](), NewComponent},
		{SymItemStack, reflect.TypeFor[*ItemStack](), NewItemStack},
		{SymKey, reflect.TypeFor[*ResourceLocation](), ParseResourceLocation},
	}
	if prof.Legacy() {
		if prof.ChatSender {
			entries = append(entries, entry{SymChat, reflect.TypeFor[*LegacyChat](),
				func(c *Component, t ChatType, sender uuid.UUID) *LegacyChat {
					return &LegacyChat{id: ids.Chat, message: c, position: byte(t), sender: sender, hasSender: true}
				}})
		} else {
			entries = append(entries, entry{SymChat, reflect.TypeFor[*LegacyChat](),
				func(c *Component, position byte) *LegacyChat {
					return &LegacyChat{id: ids.Chat, message: c, position: position}
				}})
		}
		entries = append(entries,
			entry{SymTitle, reflect.TypeFor[*LegacyTitle](),
				func(a TitleAction, c *Component, fadeIn, stay, fadeOut int32) *LegacyTitle {
					return &LegacyTitle{id: ids.Title, action: a, text: c, fadeIn: fadeIn, stay: stay, fadeOut: fadeOut}
				}},
			entry{SymKick, reflect.TypeFor[*LegacyKick](),
				func(c *Component) *LegacyKick { return &LegacyKick{id: ids.Disconnect, reason: c} }},
		)
	} else {
		entries = append(entries,
			entry{SymSystemChat, reflect.TypeFor[*SystemChat](),
				func(c *Component, overlay bool) *SystemChat {
					return &SystemChat{id: ids.SystemChat, content: c, overlay: overlay}
				}},
			entry{SymTitlesAnimation, reflect.TypeFor[*TitlesAnimation](),
				func(fadeIn, stay, fadeOut int32) *TitlesAnimation {
					return &TitlesAnimation{id: ids.TitlesAnimation, fadeIn: fadeIn, stay: stay, fadeOut: fadeOut}
				}},
			entry{SymTitleText, reflect.TypeFor[*TitleText](),
				func(c *Component) *TitleText { return &TitleText{id: ids.TitleText, text: c} }},
			entry{SymSubtitleText, reflect.TypeFor[*SubtitleText](),
				func(c *Component) *SubtitleText { return &SubtitleText{id: ids.SubtitleText, text: c} }},
			entry{SymCommonDisconnect, reflect.TypeFor[*Disconnect](),
				func(c *Component) *Disconnect { return &Disconnect{id: ids.Disconnect, reason: c} }},
		)
	}
	for _, e := range entries {
		if _, err := reg.Register(prof.Qualify(e.logical), e.typ, e.ctor); err != nil {
			return err
		}
	}

	if prof.Legacy() {
		if _, err := reg.RegisterEnum(prof.Qualify(SymTitleAction), reflect.TypeFor[TitleAction](),
			[]string{"TITLE", "SUBTITLE", "TIMES", "CLEAR", "RESET"},
			[]any{TitleActionTitle, TitleActionSubtitle, TitleActionTimes, TitleActionClear, TitleActionReset},
		); err != nil {
			return err
		}
	}
	if prof.ChatSender {
		if _, err := reg.RegisterEnum(prof.Qualify(SymChatType), reflect.TypeFor[ChatType](),
			[]string{"CHAT", "SYSTEM", "GAME_INFO"},
			[]any{ChatTypeChat, ChatTypeSystem, ChatTypeGameInfo},
		); err != nil {
			return err
		}
	}
	return nil
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
