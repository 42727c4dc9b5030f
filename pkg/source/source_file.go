package source

import "strings"

// File represents a single Waveling source file held in memory.
type File struct {
	// Filename is the name reported in diagnostics; it need not exist on
	// disk (e.g. "<stdin>").
	filename string
	// contents is the full source text, as runes, so that Span indices
	// address characters rather than bytes.
	contents []rune
	// lineStarts[i] is the rune index at which line i+1 (1-based) begins.
	lineStarts []int
}

// NewFile constructs a File from raw bytes, recording line-start offsets for
// later position lookups.
func NewFile(filename string, bytes []byte) *File {
	contents := []rune(string(bytes))
	lineStarts := []int{0}

	for i, r := range contents {
		if r == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}

	return &File{filename, contents, lineStarts}
}

// Filename returns the name associated with this source file.
func (f *File) Filename() string {
	return f.filename
}

// Contents returns the full rune-addressed text of this file.
func (f *File) Contents() []rune {
	return f.contents
}

// Text returns the substring of the source text covered by span.
func (f *File) Text(span Span) string {
	end := span.end
	if end > len(f.contents) {
		end = len(f.contents)
	}

	start := span.start
	if start > end {
		start = end
	}

	return string(f.contents[start:end])
}

// Position converts a rune offset into a 1-based (line, column) pair.
func (f *File) Position(offset int) (line, column int) {
	// Binary search for the last line start <= offset.
	lo, hi := 0, len(f.lineStarts)-1

	for lo < hi {
		mid := (lo + hi + 1) / 2
		if f.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	return lo + 1, offset - f.lineStarts[lo] + 1
}

// LineText returns the full text of the 1-based line number containing
// offset, with any trailing newline stripped.
func (f *File) LineText(offset int) string {
	line, _ := f.Position(offset)

	start := f.lineStarts[line-1]

	end := len(f.contents)
	if line < len(f.lineStarts) {
		end = f.lineStarts[line] - 1
	}

	return strings.TrimRight(string(f.contents[start:end]), "\r")
}
