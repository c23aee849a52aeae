// Package chat 负责把带颜色代码的旧式文本转换为客户端渲染的 JSON 文本
package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.minekube.com/common/minecraft/component/codec"
	"go.minekube.com/common/minecraft/component/codec/legacy"
)

// SectionChar is the formatting prefix the client understands.
const SectionChar = '§'

// DefaultAltChar is the prefix users type in configuration and commands.
const DefaultAltChar = '&'

const formatCodes = "0123456789AaBbCcDdEeFfKkLlMmNnOoRrXx"

var ErrConversion = errors.New("text conversion failed")

// Translate replaces alt followed by a valid format code with SectionChar and
// the lowercased code. Other occurrences of alt are left untouched.
func Translate(alt rune, text string) string {
	if !strings.ContainsRune(text, alt) {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 8)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == alt && i+size < len(text) {
			next, nsize := utf8.DecodeRuneInString(text[i+size:])
			if strings.ContainsRune(formatCodes, next) {
				b.WriteRune(SectionChar)
				b.WriteString(strings.ToLower(string(next)))
				i += size + nsize
				continue
			}
		}
		b.WriteRune(r)
		i += size
	}
	return b.String()
}

// Converter turns user text into serialized text components.
type Converter struct {
	// Alt is the alternate colour prefix translated before conversion.
	// Zero means DefaultAltChar.
	Alt rune
}

func NewConverter() *Converter {
	return &Converter{Alt: DefaultAltChar}
}

// ToJSON converts text to component JSON. The styled path parses formatting
// into a component tree; the plain path wraps the translated text in a single
// text object. The error is returned only when both fail.
func (c *Converter) ToJSON(text string) (string, error) {
	alt := c.Alt
	if alt == 0 {
		alt = DefaultAltChar
	}
	colored := Translate(alt, text)

	styled, err1 := styledJSON(colored)
	if err1 == nil {
		return styled, nil
	}
	plain, err2 := plainJSON(colored)
	if err2 == nil {
		return plain, nil
	}
	return "", fmt.Errorf("%w: %w", ErrConversion, errors.Join(err1, err2))
}

func styledJSON(text string) (string, error) {
	comp, err := (&legacy.Legacy{Char: SectionChar}).Unmarshal([]byte(text))
	if err != nil {
		return "", fmt.Errorf("parse legacy text: %w", err)
	}
	var buf bytes.Buffer
	if err := (&codec.Json{}).Marshal(&buf, comp); err != nil {
		return "", fmt.Errorf("marshal component: %w", err)
	}
	return buf.String(), nil
}

func plainJSON(text string) (string, error) {
	if !utf8.ValidString(text) {
		return "", fmt.Errorf("invalid utf-8 in %q", text)
	}
	b, err := json.Marshal(struct {
		Text string `json:"text"`
	}{text})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
