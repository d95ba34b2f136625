// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package heading

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasOrdinalPrefix(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"一、总则", true},
		{"十二 附则", true},
		{"亿元收入", true},
		{"3. Scope", true},
		{"2024年度报告", true},
		{"第一章 总则", true},
		{"第3条", true},
		{"第个", false},
		{"第", false},
		{"总则", false},
		{"Introduction", false},
		{"", false},
		{"  1 leading space", false},
		{"３ full-width digit", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, HasOrdinalPrefix(tt.text))
		})
	}
}

func TestLevel(t *testing.T) {
	long := strings.Repeat("字", 20)
	tests := []struct {
		name     string
		text     string
		fontSize float64
		want     int
	}{
		{"ordinal h1", "第一章 总则", 24, 1},
		{"ordinal h2", "第二章 范围", 18, 2},
		{"ordinal h3 long text", "1 " + long, 14, 3},
		{"ordinal h4 short", "1.1 目的", 12, 4},
		{"ordinal h4 too long", "1.1 " + long, 12, 0},
		{"ordinal below h4", "1.1 目的", 11.5, 0},
		{"plain h1 long text", long, 30, 1},
		{"plain h2 long text", long, 18, 2},
		{"plain h3 short", "Overview", 14, 3},
		{"plain h3 too long", long, 14, 0},
		{"plain at h4 size", "Overview", 12, 0},
		{"body text", "Body paragraph", 10.5, 0},
		{"exactly fourteen runes", strings.Repeat("a", 14), 14, 3},
		{"exactly fifteen runes", strings.Repeat("a", 15), 14, 0},
		{"zero size", "Anything", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Level(tt.text, tt.fontSize))
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "\n\n# 第一章 总则\n\n", Format("第一章 总则", 24))
	assert.Equal(t, "\n\n#### 1.1 目的\n\n", Format("1.1 目的", 12))

	body := strings.Repeat("x", 20)
	assert.Equal(t, "\n\n## "+body+"\n\n", Format(body, 18), "h2 has no length cap")
	assert.Equal(t, body, Format(body, 17), "length cap blocks h3 and size misses h2")
}

func TestFormat_TotalAndWrapped(t *testing.T) {
	texts := []string{"", "第一章", "1", "Summary", strings.Repeat("长", 30)}
	sizes := []float64{0, 8, 11.9, 12, 13.9, 14, 17.9, 18, 23.9, 24, 72}

	for _, text := range texts {
		for _, size := range sizes {
			got := Format(text, size)
			again := Format(text, size)
			assert.Equal(t, got, again, "deterministic for %q at %v", text, size)

			if Level(text, size) == 0 {
				assert.Equal(t, text, got)
				continue
			}
			assert.True(t, strings.HasPrefix(got, "\n\n#"), "%q", got)
			assert.True(t, strings.HasSuffix(got, "\n\n"), "%q", got)
		}
	}
}
