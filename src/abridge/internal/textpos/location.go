package textpos

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/agda-tools/agda-bridge/src/abridge/internal/agdaversion"
)

// Agda prints source locations as "path:line,col-endCol" or
// "path:line,col-endLine,endCol". From 2.8.0 the separator between line and
// column changed from a comma to a dot.
var _dotSeparatorSince = agdaversion.MustNew(2, 8, 0)

var (
	_commaLocation = regexp.MustCompile(`([^\s:]+):(\d+),(\d+)-(\d+)(?:,(\d+))?`)
	_dotLocation   = regexp.MustCompile(`([^\s:]+):(\d+)\.(\d+)-(\d+)(?:\.(\d+))?`)
)

// LineLookup resolves the text of a single 1-based line of a file. The
// supervisor wires in a file-backed implementation; tests substitute fakes.
type LineLookup interface {
	LineText(path string, line int) (string, error)
}

// SourceLink is one location reference found in diagnostic text. Column and
// EndColumn carry Agda's 1-based code point columns as printed. When the
// referenced lines could be resolved, UnitColumn and UnitEndColumn hold the
// equivalent editor-side UTF-16 columns and Resolved is true.
type SourceLink struct {
	Path      string
	Line      int
	EndLine   int
	Column    CodePoint
	EndColumn CodePoint

	Resolved      bool
	UnitColumn    CodeUnit
	UnitEndColumn CodeUnit
}

// Segment is either literal text (Link nil) or a location reference; Text
// always holds the verbatim input slice so segments concatenate back to the
// scanned string.
type Segment struct {
	Text string
	Link *SourceLink
}

// LinkedText is diagnostic text split into literal runs and source links.
type LinkedText []Segment

// String reassembles the scanned text.
func (lt LinkedText) String() string {
	var b strings.Builder
	for _, s := range lt {
		b.WriteString(s.Text)
	}
	return b.String()
}

// ScanLocations splits free-form diagnostic text into literal segments and
// source-location links, using the separator convention of the given Agda
// version. Each link's columns are translated to editor offsets against the
// referenced file's line text; links whose file or line cannot be resolved
// are kept as unresolved segments rather than dropped.
func ScanLocations(text string, version agdaversion.Version, lines LineLookup) LinkedText {
	pattern := _commaLocation
	if version.GTE(_dotSeparatorSince) {
		pattern = _dotLocation
	}

	var out LinkedText
	rest := 0
	for _, m := range pattern.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > rest {
			out = append(out, Segment{Text: text[rest:m[0]]})
		}
		out = append(out, linkSegment(text, m, lines))
		rest = m[1]
	}
	if rest < len(text) {
		out = append(out, Segment{Text: text[rest:]})
	}
	return out
}

func linkSegment(text string, m []int, lines LineLookup) Segment {
	group := func(i int) string {
		if m[2*i] < 0 {
			return ""
		}
		return text[m[2*i]:m[2*i+1]]
	}

	link := &SourceLink{
		Path: group(1),
		Line: atoi(group(2)),
	}
	link.Column = CodePoint(atoi(group(3)))
	if g5 := group(5); g5 != "" {
		// Four-number form: line,col-endLine,endCol.
		link.EndLine = atoi(group(4))
		link.EndColumn = CodePoint(atoi(g5))
	} else {
		link.EndLine = link.Line
		link.EndColumn = CodePoint(atoi(group(4)))
	}

	if lines != nil {
		resolve(link, lines)
	}
	return Segment{Text: text[m[0]:m[1]], Link: link}
}

func resolve(link *SourceLink, lines LineLookup) {
	startText, err := lines.LineText(link.Path, link.Line)
	if err != nil {
		return
	}
	endText := startText
	if link.EndLine != link.Line {
		if endText, err = lines.LineText(link.Path, link.EndLine); err != nil {
			return
		}
	}
	link.UnitColumn = ToCodeUnit(startText, link.Column)
	link.UnitEndColumn = ToCodeUnit(endText, link.EndColumn)
	link.Resolved = true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// FileLines is a LineLookup backed by the filesystem, caching the line table
// of each file it reads.
type FileLines struct {
	readFile func(string) ([]byte, error)

	mu    sync.Mutex
	cache map[string][]string
}

// NewFileLines returns a LineLookup reading files through readFile
// (typically os.ReadFile).
func NewFileLines(readFile func(string) ([]byte, error)) *FileLines {
	return &FileLines{
		readFile: readFile,
		cache:    make(map[string][]string),
	}
}

// LineText returns the 1-based line of the given file without its terminator.
func (f *FileLines) LineText(path string, line int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	table, ok := f.cache[path]
	if !ok {
		content, err := f.readFile(path)
		if err != nil {
			return "", err
		}
		table = strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")
		f.cache[path] = table
	}
	if line < 1 || line > len(table) {
		return "", fmt.Errorf("%s has no line %d", path, line)
	}
	return table[line-1], nil
}

// Invalidate drops the cached line table for a file, e.g. after a reload.
func (f *FileLines) Invalidate(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cache, path)
}
