// pdffont.go builds the PDF font object tree for the export.
//
// The embedded path produces a Type0 / Identity-H composite font: a
// CIDFontType2 descendant whose FontDescriptor carries the raw TrueType
// program as FontFile2, per-glyph widths scaled to a 1000-unit em, and a
// ToUnicode CMap so text extraction from the baked document yields the
// original Unicode. Content streams then address glyphs directly with
// 2-byte CIDs. The fallback path is a plain non-embedded Type1 Helvetica
// dict and literal-string text.
package export

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/michitomo/douroannotate/internal/models"
	"github.com/michitomo/douroannotate/internal/services/font"
)

// pdfFont is a font resolved against one export's document context.
type pdfFont struct {
	font *font.Font
	ref  *types.IndirectRef

	// glyph cache for the embedded path
	buf    *sfnt.Buffer
	glyphs map[rune]sfnt.GlyphIndex
}

// prepareFont registers the resolved font with the document context and
// precomputes the glyph mapping for every rune the annotations use.
func prepareFont(pctx *model.Context, embed font.EmbedResult, anns []models.Annotation) (*pdfFont, error) {
	if embed.Font.Builtin {
		ref, err := pctx.IndRefForNewObject(types.Dict{
			"Type":     types.Name("Font"),
			"Subtype":  types.Name("Type1"),
			"BaseFont": types.Name(embed.Font.Name),
			"Encoding": types.Name("WinAnsiEncoding"),
		})
		if err != nil {
			return nil, err
		}
		return &pdfFont{font: embed.Font, ref: ref}, nil
	}

	pf := &pdfFont{
		font:   embed.Font,
		buf:    &sfnt.Buffer{},
		glyphs: make(map[rune]sfnt.GlyphIndex),
	}
	for _, ann := range anns {
		for _, r := range ann.Text {
			if _, seen := pf.glyphs[r]; seen {
				continue
			}
			gid, err := embed.Font.SFNT.GlyphIndex(pf.buf, r)
			if err != nil {
				gid = 0
			}
			pf.glyphs[r] = gid
		}
	}

	ref, err := embedTrueType(pctx, embed.Font, pf.glyphs)
	if err != nil {
		return nil, err
	}
	pf.ref = ref
	return pf, nil
}

// encodeText produces the PDF string operand for one annotation's text:
// a hex string of 2-byte glyph IDs for the embedded font, an escaped
// literal for the builtin. It fails when the font has a glyph for none of
// the runes — drawing pure tofu is a per-annotation draw failure.
func (pf *pdfFont) encodeText(text string) (string, error) {
	if pf.font.Builtin {
		return "(" + escapeLiteral(foldToLatin(text)) + ")", nil
	}

	var sb strings.Builder
	sb.WriteByte('<')
	usable := 0
	for _, r := range text {
		gid := pf.glyphs[r]
		if gid != 0 {
			usable++
		}
		fmt.Fprintf(&sb, "%04X", uint16(gid))
	}
	sb.WriteByte('>')
	if usable == 0 {
		return "", fmt.Errorf("no glyphs available for %q", text)
	}
	return sb.String(), nil
}

// embedTrueType writes the full Type0 object tree into the context and
// returns the indirect reference content streams address. The font program
// is embedded whole — no subsetting.
func embedTrueType(pctx *model.Context, f *font.Font, glyphs map[rune]sfnt.GlyphIndex) (*types.IndirectRef, error) {
	sf := f.SFNT
	unitsPerEm := sf.UnitsPerEm()
	ppem := fixed.Int26_6(int32(unitsPerEm) << 6)
	buf := &sfnt.Buffer{}

	// FontFile2: the raw TrueType program.
	ff, err := pctx.NewStreamDictForBuf(f.Data)
	if err != nil {
		return nil, err
	}
	ff.Dict["Length1"] = types.Integer(len(f.Data))
	if err := ff.Encode(); err != nil {
		return nil, err
	}
	ffRef, err := pctx.IndRefForNewObject(*ff)
	if err != nil {
		return nil, err
	}

	metrics, err := sf.Metrics(buf, ppem, xfont.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("font metrics: %w", err)
	}
	bounds, err := sf.Bounds(buf, ppem, xfont.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("font bounds: %w", err)
	}
	italic := 0.0
	if post := sf.PostTable(); post != nil {
		italic = post.ItalicAngle
	}

	descriptor := types.Dict{
		"Type":        types.Name("FontDescriptor"),
		"FontName":    types.Name(f.Name),
		"Flags":       types.Integer(4), // non-symbolic
		"ItalicAngle": types.Float(italic),
		"Ascent":      types.Float(scaleFixed(metrics.Ascent, unitsPerEm)),
		"Descent":     types.Float(-scaleFixed(metrics.Descent, unitsPerEm)),
		"CapHeight":   types.Float(scaleFixed(metrics.CapHeight, unitsPerEm)),
		"StemV":       types.Integer(80),
		"FontBBox": types.NewNumberArray(
			scaleFixed(bounds.Min.X, unitsPerEm),
			-scaleFixed(bounds.Max.Y, unitsPerEm),
			scaleFixed(bounds.Max.X, unitsPerEm),
			-scaleFixed(bounds.Min.Y, unitsPerEm),
		),
		"FontFile2": *ffRef,
	}
	descRef, err := pctx.IndRefForNewObject(descriptor)
	if err != nil {
		return nil, err
	}

	cidFont := types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("CIDFontType2"),
		"BaseFont": types.Name(f.Name),
		"CIDSystemInfo": types.Dict{
			"Registry":   types.StringLiteral("Adobe"),
			"Ordering":   types.StringLiteral("Identity"),
			"Supplement": types.Integer(0),
		},
		"FontDescriptor": *descRef,
		"DW":             types.Integer(1000),
		"W":              widthsArray(sf, buf, unitsPerEm, ppem, glyphs),
		"CIDToGIDMap":    types.Name("Identity"),
	}
	cidRef, err := pctx.IndRefForNewObject(cidFont)
	if err != nil {
		return nil, err
	}

	tu, err := pctx.NewStreamDictForBuf(toUnicodeCMap(glyphs))
	if err != nil {
		return nil, err
	}
	if err := tu.Encode(); err != nil {
		return nil, err
	}
	tuRef, err := pctx.IndRefForNewObject(*tu)
	if err != nil {
		return nil, err
	}

	type0 := types.Dict{
		"Type":            types.Name("Font"),
		"Subtype":         types.Name("Type0"),
		"BaseFont":        types.Name(f.Name),
		"Encoding":        types.Name("Identity-H"),
		"DescendantFonts": types.Array{*cidRef},
		"ToUnicode":       *tuRef,
	}
	return pctx.IndRefForNewObject(type0)
}

// widthsArray builds the W entry for the glyphs in use: one [gid [w]] run
// per glyph, gids ascending. Unused glyphs fall back to DW.
func widthsArray(sf *sfnt.Font, buf *sfnt.Buffer, unitsPerEm sfnt.Units, ppem fixed.Int26_6, glyphs map[rune]sfnt.GlyphIndex) types.Array {
	gids := make([]int, 0, len(glyphs))
	seen := make(map[int]bool, len(glyphs))
	for _, gid := range glyphs {
		if gid == 0 || seen[int(gid)] {
			continue
		}
		seen[int(gid)] = true
		gids = append(gids, int(gid))
	}
	sort.Ints(gids)

	w := types.Array{}
	for _, gid := range gids {
		adv, err := sf.GlyphAdvance(buf, sfnt.GlyphIndex(gid), ppem, xfont.HintingNone)
		if err != nil {
			continue
		}
		w = append(w,
			types.Integer(gid),
			types.Array{types.Integer(int(math.Round(scaleFixed(adv, unitsPerEm))))},
		)
	}
	return w
}

// toUnicodeCMap maps the glyph IDs used in content streams back to Unicode
// code points so viewers extract real text from the baked document.
// PDF 1.7 §9.10; one bfchar batch per 100 mappings.
func toUnicodeCMap(glyphs map[rune]sfnt.GlyphIndex) []byte {
	type mapping struct {
		gid sfnt.GlyphIndex
		r   rune
	}
	mappings := make([]mapping, 0, len(glyphs))
	for r, gid := range glyphs {
		if gid == 0 {
			continue
		}
		mappings = append(mappings, mapping{gid, r})
	}
	sort.Slice(mappings, func(i, j int) bool { return mappings[i].gid < mappings[j].gid })

	var sb strings.Builder
	sb.WriteString(`/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CIDSystemInfo
<< /Registry (Adobe)
/Ordering (UCS)
/Supplement 0
>> def
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
`)
	for start := 0; start < len(mappings); start += 100 {
		end := start + 100
		if end > len(mappings) {
			end = len(mappings)
		}
		fmt.Fprintf(&sb, "%d beginbfchar\n", end-start)
		for _, m := range mappings[start:end] {
			if m.r > 0xFFFF {
				// Outside the BMP: write the UTF-16 surrogate pair.
				r1, r2 := utf16Surrogates(m.r)
				fmt.Fprintf(&sb, "<%04X> <%04X%04X>\n", uint16(m.gid), r1, r2)
				continue
			}
			fmt.Fprintf(&sb, "<%04X> <%04X>\n", uint16(m.gid), uint16(m.r))
		}
		sb.WriteString("endbfchar\n")
	}
	sb.WriteString(`endcmap
CMapName currentdict /CMap defineresource pop
end
end
`)
	return []byte(sb.String())
}

func utf16Surrogates(r rune) (uint16, uint16) {
	r -= 0x10000
	return uint16(0xD800 + (r >> 10)), uint16(0xDC00 + (r & 0x3FF))
}

// registerPageFont makes the font addressable from one page's content
// streams and returns the resource key. Inherited resources are copied down
// onto the page before the Font entry is touched, so overriding the
// inheritance chain never strips resources the original content uses.
func registerPageFont(pctx *model.Context, pageDict types.Dict, inherited types.Dict, pf *pdfFont) (string, error) {
	var res types.Dict
	if obj, found := pageDict.Find("Resources"); found && obj != nil {
		d, err := pctx.DereferenceDict(obj)
		if err != nil || d == nil {
			return "", fmt.Errorf("dereference page resources: %w", err)
		}
		res = d
	} else {
		res = types.Dict{}
		for k, v := range inherited {
			res[k] = v
		}
		pageDict["Resources"] = res
	}

	var fonts types.Dict
	if obj, found := res.Find("Font"); found && obj != nil {
		d, err := pctx.DereferenceDict(obj)
		if err != nil || d == nil {
			return "", fmt.Errorf("dereference font resources: %w", err)
		}
		fonts = d
	} else {
		fonts = types.Dict{}
		res["Font"] = fonts
	}

	// First unused FAnn<n> key; colliding with our own earlier registration
	// on a shared resource dict is harmless.
	for i := 0; ; i++ {
		key := fmt.Sprintf("FAnn%d", i)
		if _, found := fonts.Find(key); !found {
			fonts[key] = *pf.ref
			return key, nil
		}
	}
}

func scaleFixed(v fixed.Int26_6, unitsPerEm sfnt.Units) float64 {
	return float64(v) * 1000.0 / (64.0 * float64(unitsPerEm))
}
