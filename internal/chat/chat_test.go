package chat

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"无格式", "hello", "hello"},
		{"颜色", "&cRed", "§cRed"},
		{"大写转小写", "&LBold", "§lBold"},
		{"多个代码", "&a&lGo", "§a§lGo"},
		{"无效代码保留", "&zx", "&zx"},
		{"末尾前缀保留", "end&", "end&"},
		{"多字节文本", "&e你好", "§e你好"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Translate('&', tt.in); got != tt.want {
				t.Errorf("Translate(%q) = %q, 期望 %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToJSON(t *testing.T) {
	c := NewConverter()
	tests := []struct {
		name     string
		in       string
		contains []string
	}{
		{"纯文本", "Welcome", []string{"Welcome"}},
		{"带颜色", "&cWarning", []string{"Warning", "red"}},
		{"引号", `say "hi"`, []string{`\"hi\"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ToJSON(tt.in)
			if err != nil {
				t.Fatalf("ToJSON 失败: %v", err)
			}
			if !json.Valid([]byte(got)) {
				t.Fatalf("ToJSON(%q) = %q 不是合法 JSON", tt.in, got)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("ToJSON(%q) = %q, 缺少 %q", tt.in, got, want)
				}
			}
		})
	}
}

func TestPlainJSON(t *testing.T) {
	got, err := plainJSON(`§ca"b`)
	if err != nil {
		t.Fatalf("plainJSON 失败: %v", err)
	}
	var out struct{ Text string }
	if err := json.Unmarshal([]byte(got), &out); err != nil {
		t.Fatalf("结果无法解析: %v", err)
	}
	if out.Text != `§ca"b` {
		t.Errorf("text = %q", out.Text)
	}
	if _, err := plainJSON("\xff"); err == nil {
		t.Error("非法 UTF-8 应返回错误")
	}
}

func TestZeroConverterUsesDefaultAlt(t *testing.T) {
	var c Converter
	got, err := c.ToJSON("&aok")
	if err != nil {
		t.Fatalf("ToJSON 失败: %v", err)
	}
	if strings.Contains(got, "&a") {
		t.Errorf("零值 Converter 应翻译 & 代码: %q", got)
	}
}
