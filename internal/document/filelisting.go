package document

import (
	"strings"

	"github.com/MapoMagpie/z7-vui/schema"
	"pkt.systems/pslog"
)

// fieldCount is the number of columns in the archiver's file table
// (date, time, attributes, size, name).
const fieldCount = 5

// colRange bounds one column of the file table, [Start, End) in bytes.
// The last column is open-ended: rows are sliced at its Start only,
// because filenames may contain spaces.
type colRange struct {
	Start int
	End   int
}

// FileLine is one captured file-table row, split at the name column so
// the extraction target can be substituted at render time.
type FileLine struct {
	Filename string
	Prefix   string
}

// Render rebuilds the display row for the given extraction target.
func (f FileLine) Render(extractPath string) string {
	if extractPath == "" {
		return f.Prefix + f.Filename
	}
	if strings.HasSuffix(extractPath, "/") {
		return f.Prefix + extractPath + f.Filename
	}
	return f.Prefix + extractPath + "/" + f.Filename
}

type listingPhase int

const (
	beforeTable listingPhase = iota
	capturing
	afterTable
)

// fileListing recognizes the dashed column rule twice: the first
// occurrence derives the column ranges and begins row capture, the
// second ends capture and marks the very next line as the summary.
// Its identity survives layout switches so names collected during a
// list remain queryable during a later extract.
type fileListing struct {
	phase       listingPhase
	cols        []colRange
	rule        string
	rows        []FileLine
	summary     string
	summaryNext bool
	extractPath string
	log         pslog.Logger
}

func newFileListing(log pslog.Logger) *fileListing {
	return &fileListing{log: log}
}

// reset clears captured state for a fresh listing run.
func (f *fileListing) reset() {
	f.phase = beforeTable
	f.cols = nil
	f.rule = ""
	f.rows = nil
	f.summary = ""
	f.summaryNext = false
}

func (f *fileListing) consume(line string) bool {
	switch f.phase {
	case beforeTable:
		cols, ok := deriveColumns(line)
		if !ok {
			return false
		}
		f.cols = cols
		f.rule = line
		f.phase = capturing
		return true
	case capturing:
		if _, ok := deriveColumns(line); ok {
			f.phase = afterTable
			f.summaryNext = true
			return true
		}
		f.appendRow(line)
		return true
	case afterTable:
		if f.summaryNext {
			f.summary = line
			f.summaryNext = false
			return true
		}
		return false
	}
	return false
}

func (f *fileListing) appendRow(line string) {
	nameAt := f.cols[fieldCount-1].Start
	if !strings.HasPrefix(line, schema.MarkerFileRow) && f.log != nil {
		f.log.Warn("file row without date prefix", "line", line)
	}
	if len(line) <= nameAt {
		// losing one row beats losing the session
		if f.log != nil {
			f.log.Warn("file row shorter than column template", "line", line, "name_at", nameAt)
		}
		if strings.TrimSpace(line) == "" {
			return
		}
		f.rows = append(f.rows, FileLine{Filename: strings.TrimSpace(line)})
		return
	}
	f.rows = append(f.rows, FileLine{
		Prefix:   line[:nameAt],
		Filename: line[nameAt:],
	})
}

func (f *fileListing) render() []string {
	if f.phase == beforeTable {
		return nil
	}
	out := make([]string, 0, len(f.rows)+3)
	out = append(out, f.rule)
	for _, row := range f.rows {
		out = append(out, row.Render(f.extractPath))
	}
	if f.phase == afterTable {
		out = append(out, f.rule)
		if f.summary != "" {
			out = append(out, f.summary)
		}
	}
	return out
}

// files returns the captured file names in table order.
func (f *fileListing) files() []string {
	names := make([]string, 0, len(f.rows))
	for _, row := range f.rows {
		names = append(names, row.Filename)
	}
	return names
}

// deriveColumns parses a dashed rule line into the table's column
// ranges. A rule line consists of exactly fieldCount runs of dashes
// separated by spaces; each range bounds one run.
func deriveColumns(line string) ([]colRange, bool) {
	if line == "" {
		return nil, false
	}
	var cols []colRange
	start := -1
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '-':
			if start < 0 {
				start = i
			}
		case ' ':
			if start >= 0 {
				cols = append(cols, colRange{Start: start, End: i})
				start = -1
			}
		default:
			return nil, false
		}
	}
	if start >= 0 {
		cols = append(cols, colRange{Start: start, End: len(line)})
	}
	if len(cols) != fieldCount {
		return nil, false
	}
	return cols, true
}
