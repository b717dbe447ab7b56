// content.go emits the text-drawing operators and decodes annotation colors.
package export

import (
	"fmt"
	"strconv"
	"strings"
)

// writeTextObject appends one BT..ET block. Each annotation gets its own
// block so Td is an absolute position (BT resets the text matrix).
func writeTextObject(sb *strings.Builder, fontKey string, fontSize int, r, g, b, x, y float64, text string) {
	fmt.Fprintf(sb, "BT\n/%s %d Tf\n%s %s %s rg\n%s %s Td\n%s Tj\nET\n",
		fontKey, fontSize,
		fmtNum(r), fmtNum(g), fmtNum(b),
		fmtNum(x), fmtNum(y),
		text)
}

// parseHexColor decodes "#RRGGBB" into a [0,1] RGB triple. Malformed input
// (wrong length, bad digits) decodes to black — the store already rejects
// bad colors, this is the second line of defense for seeded records.
func parseHexColor(hex string) (float64, float64, float64) {
	if hex != "" && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return 0, 0, 0
	}
	r, err1 := strconv.ParseUint(hex[0:2], 16, 8)
	g, err2 := strconv.ParseUint(hex[2:4], 16, 8)
	b, err3 := strconv.ParseUint(hex[4:6], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0
	}
	return float64(r) / 255, float64(g) / 255, float64(b) / 255
}

// escapeLiteral escapes the characters that delimit a PDF literal string.
func escapeLiteral(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', '(', ')':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// foldToLatin reduces text to the single-byte codes the built-in Latin
// font can address, substituting '?' for everything else. This is the
// degraded rendering the fallback path accepts.
func foldToLatin(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r > 0xFF {
			sb.WriteByte('?')
			continue
		}
		sb.WriteByte(byte(r))
	}
	return sb.String()
}

// fmtNum formats a coordinate or color component compactly.
func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
