package lsp

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// PositionConverter translates between byte offsets in a document's text and
// LSP positions, whose character field counts UTF-16 code units. Built once
// per document snapshot; line metadata is precomputed.
type PositionConverter struct {
	text  string
	lines []lineSpan
}

// lineSpan records where a line's content starts and ends in the text,
// excluding the line terminator.
type lineSpan struct {
	start int
	end   int
}

// NewPositionConverter indexes text for offset translation.
func NewPositionConverter(text string) *PositionConverter {
	pc := &PositionConverter{text: text}
	start := 0
	for {
		i := strings.IndexByte(text[start:], '\n')
		if i < 0 {
			pc.lines = append(pc.lines, lineSpan{start: start, end: len(text)})
			break
		}
		end := start + i
		if end > start && text[end-1] == '\r' {
			end--
		}
		pc.lines = append(pc.lines, lineSpan{start: start, end: end})
		start = start + i + 1
	}
	return pc
}

// LineCount returns the number of lines, at least 1 for any text.
func (pc *PositionConverter) LineCount() int {
	return len(pc.lines)
}

// ToPosition converts a byte offset into a Position. Offsets past the end of
// the text clamp to the final position; offsets inside a multi-byte rune
// snap to the rune start.
func (pc *PositionConverter) ToPosition(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(pc.text) {
		offset = len(pc.text)
	}

	line := pc.lineFor(offset)
	span := pc.lines[line]
	col := offset
	if col > span.end {
		col = span.end
	}

	units := 0
	for _, r := range pc.text[span.start:col] {
		units += utf16Len(r)
	}
	return Position{Line: line, Character: units}
}

// ToOffset converts a Position into a byte offset. Out-of-range lines clamp
// to the last line; characters past the line end clamp to the line end.
func (pc *PositionConverter) ToOffset(pos Position) int {
	if pos.Line < 0 {
		return 0
	}
	if pos.Line >= len(pc.lines) {
		return len(pc.text)
	}

	span := pc.lines[pos.Line]
	units := 0
	for off, r := range pc.text[span.start:span.end] {
		if units >= pos.Character {
			return span.start + off
		}
		units += utf16Len(r)
	}
	return span.end
}

// LineText returns the content of a line without its terminator.
func (pc *PositionConverter) LineText(line int) string {
	if line < 0 || line >= len(pc.lines) {
		return ""
	}
	span := pc.lines[line]
	return pc.text[span.start:span.end]
}

// RangeToOffsets converts a Range to start and end byte offsets.
func (pc *PositionConverter) RangeToOffsets(r Range) (int, int) {
	start := pc.ToOffset(r.Start)
	end := pc.ToOffset(r.End)
	if end < start {
		end = start
	}
	return start, end
}

// lineFor finds the line containing a byte offset by binary search.
func (pc *PositionConverter) lineFor(offset int) int {
	lo, hi := 0, len(pc.lines)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if pc.lines[mid].start <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

func utf16Len(r rune) int {
	if r == utf8.RuneError {
		return 1
	}
	return len(utf16.Encode([]rune{r}))
}

// ApplyEdits rewrites text by applying edits, which must not overlap. Edits
// are applied last-to-first so earlier offsets stay valid.
func ApplyEdits(text string, edits []TextEdit) string {
	if len(edits) == 0 {
		return text
	}
	pc := NewPositionConverter(text)

	type span struct {
		start, end int
		newText    string
	}
	spans := make([]span, 0, len(edits))
	for _, e := range edits {
		start, end := pc.RangeToOffsets(e.Range)
		spans = append(spans, span{start: start, end: end, newText: e.NewText})
	}
	// Insertion sort by start offset, descending. Edit lists are short.
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spans[j].start > spans[j-1].start; j-- {
			spans[j], spans[j-1] = spans[j-1], spans[j]
		}
	}

	out := text
	for _, sp := range spans {
		out = out[:sp.start] + sp.newText + out[sp.end:]
	}
	return out
}
