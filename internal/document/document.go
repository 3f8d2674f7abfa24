// Package document reshapes the archiver's raw console lines into the
// structured buffer mirrored to the display collaborator.
package document

import (
	"strings"

	"github.com/MapoMagpie/z7-vui/schema"
	"pkt.systems/pslog"
)

// Document owns the ordered classifier chain for the current layout
// plus a persistent file listing that survives layout switches. Raw
// lines are offered to classifiers in priority order; the first claim
// wins and unclaimed lines are dropped from the rendered output.
type Document struct {
	builders []lineBuilder
	errs     *errorBuilder
	listing  *fileListing
	history  []string
	log      pslog.Logger
}

// New constructs an empty document in the list layout.
func New(log pslog.Logger) *Document {
	d := &Document{
		listing: newFileListing(log),
		log:     log,
	}
	d.LayoutList()
	return d
}

// LayoutList installs the classifier chain for a list run. The file
// listing is reset so a retried list re-captures from scratch instead
// of duplicating rows.
func (d *Document) LayoutList() {
	d.listing.reset()
	d.errs = &errorBuilder{}
	d.builders = []lineBuilder{
		titleBuilder{},
		emptyBuilder{},
		newCapture(schema.InputExtractFile),
		newCapture(schema.MarkerListing),
		newCapture(schema.InputExtractTo),
		emptyBuilder{},
		newCapture(schema.MarkerSize),
		newPassword(d.history),
		&propertyBuilder{},
	}
}

// LayoutExtract installs the classifier chain for an extract run,
// carrying the file listing over so names collected during the list
// stay available.
func (d *Document) LayoutExtract() {
	d.errs = &errorBuilder{}
	d.builders = []lineBuilder{
		titleBuilder{},
		emptyBuilder{},
		newCapture(schema.MarkerExtracting),
		emptyBuilder{},
		newPassword(d.history),
		&propertyBuilder{},
		newCapture(schema.MarkerDone),
	}
}

// Input offers one raw line to the classifier chain.
func (d *Document) Input(line string) {
	for _, b := range d.builders {
		if b.consume(line) {
			return
		}
	}
	if d.errs.consume(line) {
		return
	}
	if d.listing.consume(line) {
		return
	}
	if d.log != nil {
		d.log.Trace("document dropped line", "line", line)
	}
}

// Output renders the full buffer: classifier outputs in fixed order,
// then the error line, a spacer, and the file listing. Consecutive
// duplicate lines are collapsed.
func (d *Document) Output() []string {
	var lines []string
	for _, b := range d.builders {
		lines = append(lines, b.render()...)
	}
	lines = append(lines, d.errs.render()...)
	lines = append(lines, emptyBuilder{}.render()...)
	lines = append(lines, d.listing.render()...)
	return collapseRuns(lines)
}

// Files returns the file names captured by the listing classifier.
func (d *Document) Files() []string {
	return d.listing.files()
}

// SetExtractPath changes the extraction target used when rendering
// already-captured file rows. Retroactive by design: rows are sliced
// once and re-joined at render time.
func (d *Document) SetExtractPath(path string) {
	d.listing.extractPath = path
}

// SetPasswordHistory feeds history file content to the password
// classifier of this and subsequent layouts.
func (d *Document) SetPasswordHistory(entries []string) {
	d.history = append([]string(nil), entries...)
	for _, b := range d.builders {
		if pw, ok := b.(*passwordBuilder); ok {
			pw.history = d.history
		}
	}
}

// ExtractToLine locates the rendered extraction target line.
func (d *Document) ExtractToLine() (int, bool) {
	for i, line := range d.Output() {
		if strings.HasPrefix(line, schema.InputExtractTo) {
			return i, true
		}
	}
	return 0, false
}

// PasswordCursor returns a cursor hint at the end of the rendered
// password input line, or nil when no prompt is visible.
func (d *Document) PasswordCursor() *schema.Cursor {
	for i, line := range d.Output() {
		if strings.HasPrefix(line, schema.InputPassword) {
			return &schema.Cursor{Row: i, Col: len(line)}
		}
	}
	return nil
}

// collapseRuns drops consecutive duplicate lines.
func collapseRuns(lines []string) []string {
	out := lines[:0]
	for i, line := range lines {
		if i > 0 && line == lines[i-1] {
			continue
		}
		out = append(out, line)
	}
	return out
}
