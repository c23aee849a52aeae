package symbol

import (
	"regexp"
	"slices"
	"strings"
)

// Probe turns a logical name into one candidate qualified name.
// An empty result means the probe does not apply.
type Probe func(logical string) string

const (
	MinecraftPrefix       = "net.minecraft."
	MinecraftLegacyPrefix = "net.minecraft.server."
)

// ModernProbe yields the version-independent form: prefix + logical.
func ModernProbe(prefix string) Probe {
	return func(logical string) string {
		return prefix + logical
	}
}

// LegacyProbe yields prefix + version + "." + last segment of logical, the
// flat versioned package layout of older releases.
func LegacyProbe(prefix, version string) Probe {
	return func(logical string) string {
		if version == "" {
			return ""
		}
		return prefix + version + "." + lastSegment(logical)
	}
}

// RenameProbe yields the nth known historical name of logical. Several
// renames for the same name are tried by registering one probe per index,
// see RenameProbes.
func RenameProbe(prefix string, renames map[string][]string, nth int) Probe {
	return func(logical string) string {
		alts := renames[logical]
		if nth >= len(alts) {
			return ""
		}
		return prefix + alts[nth]
	}
}

// RenameProbes returns one RenameProbe per rename slot in use.
func RenameProbes(prefix string, renames map[string][]string) []Probe {
	depth := 0
	for _, alts := range renames {
		depth = max(depth, len(alts))
	}
	probes := make([]Probe, 0, depth)
	for i := range depth {
		probes = append(probes, RenameProbe(prefix, renames, i))
	}
	return probes
}

// DefaultRenames lists names that changed between host releases.
var DefaultRenames = map[string][]string{
	"network.chat.IChatBaseComponent":                   {"network.chat.Component"},
	"network.NetworkManager":                            {"network.Connection"},
	"server.network.PlayerConnection":                   {"server.network.ServerGamePacketListenerImpl"},
	"network.protocol.game.PacketPlayOutChat":           {"network.protocol.game.ClientboundChatPacket"},
	"network.chat.ChatMessageType":                      {"network.chat.ChatType"},
	"network.protocol.game.PacketPlayOutTitle":          {"network.protocol.game.ClientboundSetTitlesPacket"},
	"network.protocol.game.PacketPlayOutKickDisconnect": {"network.protocol.game.ClientboundDisconnectPacket"},
	"resources.MinecraftKey":                            {"resources.ResourceLocation"},
}

// MergeRenames returns base with the alternatives of extra appended per name.
// Neither argument is modified.
func MergeRenames(base, extra map[string][]string) map[string][]string {
	out := make(map[string][]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = slices.Clone(v)
	}
	for k, v := range extra {
		for _, alt := range v {
			if !slices.Contains(out[k], alt) {
				out[k] = append(out[k], alt)
			}
		}
	}
	return out
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

var versionTag = regexp.MustCompile(`^v\d+_\d+_R\d+$`)

// DetectVersion scans registered names below prefix for a version segment
// such as "v1_8_R3". It returns "" when the host uses unversioned names.
func DetectVersion(r *Registry, prefix string) string {
	for _, name := range r.Names() {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok {
			continue
		}
		seg, _, _ := strings.Cut(rest, ".")
		if versionTag.MatchString(seg) {
			return seg
		}
	}
	return ""
}
