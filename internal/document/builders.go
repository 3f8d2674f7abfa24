package document

import (
	"strings"

	"github.com/MapoMagpie/z7-vui/schema"
)

// lineBuilder is one recognizer in the document's priority chain. A raw
// line is offered to each builder in order; the first consume returning
// true stops propagation. render is called after all input for the
// current turn has been applied and may yield zero or more lines.
type lineBuilder interface {
	consume(line string) bool
	render() []string
}

// Title is the static banner naming the buffer keymaps.
const Title = "7Z-VUI, Shortcuts: `cc`: execute extract; `R`: retry; `Ctrl+c`: quit"

type titleBuilder struct{}

func (titleBuilder) consume(string) bool { return false }
func (titleBuilder) render() []string    { return []string{Title} }

type emptyBuilder struct{}

func (emptyBuilder) consume(string) bool { return false }
func (emptyBuilder) render() []string    { return []string{""} }

// captureBuilder takes the first line containing its pattern. Later
// matches are still claimed so they cannot leak to lower-priority
// builders, but the captured text is never replaced; every command run
// rebuilds the layout, so staleness cannot outlive a run.
type captureBuilder struct {
	pattern string
	text    string
	taken   bool
}

func newCapture(pattern string) *captureBuilder {
	return &captureBuilder{pattern: pattern}
}

func (c *captureBuilder) consume(line string) bool {
	if !strings.Contains(line, c.pattern) {
		return false
	}
	if !c.taken {
		c.text = line
		c.taken = true
	}
	return true
}

func (c *captureBuilder) render() []string {
	if !c.taken {
		return nil
	}
	return []string{c.text}
}

// passwordBuilder accumulates the interactive password prompt and the
// synthetic password bookkeeping lines, plus history suggestions fed
// from the password history file.
type passwordBuilder struct {
	prompt      string
	entered     string
	historyFile string
	saved       string
	history     []string
}

func newPassword(history []string) *passwordBuilder {
	return &passwordBuilder{history: history}
}

func (p *passwordBuilder) consume(line string) bool {
	switch {
	case strings.HasPrefix(line, schema.MarkerPassword):
		p.prompt = line
	case strings.HasPrefix(line, schema.InputPassword):
		p.entered = line
	case strings.HasPrefix(line, schema.InputHistoryFile):
		p.historyFile = line
	case strings.HasPrefix(line, schema.InputSavePassword):
		p.saved = line
	default:
		return false
	}
	return true
}

func (p *passwordBuilder) render() []string {
	if p.prompt == "" && p.entered == "" && p.saved == "" {
		return nil
	}
	var out []string
	if p.prompt != "" {
		out = append(out, p.prompt)
	}
	entered := p.entered
	if entered == "" {
		// keep an editable input line under the prompt
		entered = schema.InputPassword
	}
	out = append(out, entered)
	if p.historyFile != "" {
		out = append(out, p.historyFile)
		out = append(out, p.history...)
	}
	if p.saved != "" {
		out = append(out, p.saved)
	}
	return out
}

// propertyBuilder accumulates the container's Type/Method summary and
// stops claiming once both fields have been seen.
type propertyBuilder struct {
	typ    string
	method string
}

func (p *propertyBuilder) consume(line string) bool {
	if p.typ != "" && p.method != "" {
		return false
	}
	switch {
	case strings.HasPrefix(line, schema.MarkerType):
		p.typ = line
	case strings.HasPrefix(line, schema.MarkerMethod):
		p.method = line
	default:
		return false
	}
	return true
}

func (p *propertyBuilder) render() []string {
	var out []string
	if p.typ != "" {
		out = append(out, p.typ)
	}
	if p.method != "" {
		out = append(out, p.method)
	}
	return out
}

// errorBuilder captures the first line carrying the error marker.
type errorBuilder struct {
	text  string
	taken bool
}

func (e *errorBuilder) consume(line string) bool {
	if !strings.HasPrefix(line, schema.MarkerError) {
		return false
	}
	if !e.taken {
		e.text = line
		e.taken = true
	}
	return true
}

func (e *errorBuilder) render() []string {
	if !e.taken {
		return nil
	}
	return []string{e.text}
}
