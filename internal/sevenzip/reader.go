package sevenzip

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/MapoMagpie/z7-vui/schema"
	"pkt.systems/pslog"
)

// lineReader merges the child's stdout and stderr byte streams into
// ordered logical-line events. The archiver's interactive password
// prompt carries no trailing newline, so a colon flushes the line when
// the accumulator already starts with the prompt marker; backspace
// bytes from progress redraws are swallowed and never end a line.
type lineReader struct {
	events chan schema.RawLine
	wg     sync.WaitGroup
	log    pslog.Logger
}

func newLineReader(ctx context.Context, stdout, stderr io.Reader) *lineReader {
	r := &lineReader{
		events: make(chan schema.RawLine, 1),
		log:    pslog.Ctx(ctx),
	}
	r.wg.Add(2)
	go r.scan(ctx, stdout, schema.SourceStdout)
	go r.scan(ctx, stderr, schema.SourceStderr)
	go func() {
		r.wg.Wait()
		close(r.events)
	}()
	return r
}

func (r *lineReader) scan(ctx context.Context, reader io.Reader, source schema.Source) {
	defer r.wg.Done()
	br := bufio.NewReader(reader)
	var acc []byte
	emit := func() bool {
		line := schema.RawLine{Text: string(acc), Source: source}
		acc = acc[:0]
		select {
		case r.events <- line:
			return true
		case <-ctx.Done():
			return false
		}
	}
	for {
		b, err := br.ReadByte()
		if err != nil {
			// a dead source still flushes its partial line
			if len(acc) > 0 {
				emit()
			}
			if err != io.EOF && r.log != nil {
				r.log.Debug("output stream closed", "source", source, "err", err)
			}
			return
		}
		switch {
		case b == '\n':
			if !emit() {
				return
			}
		case b == '\b':
			// progress redraws; someone already ate the characters
		case b == ':' && strings.HasPrefix(string(acc), schema.MarkerPassword):
			acc = append(acc, b)
			if !emit() {
				return
			}
		default:
			acc = append(acc, b)
		}
	}
}

// Next yields the next logical line, or io.EOF once both streams are
// exhausted. Order within a source is preserved; order between the two
// sources follows arrival.
func (r *lineReader) Next(ctx context.Context) (schema.RawLine, error) {
	select {
	case <-ctx.Done():
		return schema.RawLine{}, ctx.Err()
	case line, ok := <-r.events:
		if !ok {
			return schema.RawLine{}, io.EOF
		}
		return line, nil
	}
}

func (r *lineReader) Close() error {
	return nil
}
