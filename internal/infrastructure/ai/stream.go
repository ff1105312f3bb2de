package ai

import (
	"strings"

	"github.com/nyxlabs/nyx/internal/ports"
)

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// ThinkFilter splits a streamed response into reasoning and answer phases.
// Text inside think tags is forwarded to the display stream as it arrives;
// answer text is forwarded too, with the tags themselves swallowed. Markers
// split across chunk boundaries are handled by holding back a partial tail.
type ThinkFilter struct {
	out      ports.StreamWriter
	thinking bool
	buf      string
}

// NewThinkFilter wraps out. A nil writer yields a filter that discards.
func NewThinkFilter(out ports.StreamWriter) *ThinkFilter {
	return &ThinkFilter{out: out}
}

// Feed processes one streamed chunk.
func (f *ThinkFilter) Feed(chunk string) {
	f.buf += chunk
	for {
		marker := thinkOpen
		if f.thinking {
			marker = thinkClose
		}
		idx := strings.Index(f.buf, marker)
		if idx == -1 {
			emit := holdPartialMarker(f.buf, marker)
			f.write(f.buf[:emit])
			f.buf = f.buf[emit:]
			return
		}
		f.write(f.buf[:idx])
		f.buf = f.buf[idx+len(marker):]
		f.thinking = !f.thinking
	}
}

// Close flushes held-back text and signals completion.
func (f *ThinkFilter) Close() {
	f.write(f.buf)
	f.buf = ""
	if f.out != nil {
		f.out.Done()
	}
}

func (f *ThinkFilter) write(text string) {
	if f.out == nil || text == "" {
		return
	}
	f.out.WriteChunk(text)
}

// holdPartialMarker returns how much of text can be emitted safely when the
// tail might be the start of marker.
func holdPartialMarker(text, marker string) int {
	max := len(marker) - 1
	if max > len(text) {
		max = len(text)
	}
	for n := max; n > 0; n-- {
		if strings.HasPrefix(marker, text[len(text)-n:]) {
			return len(text) - n
		}
	}
	return len(text)
}

// stripThink removes think-tag blocks from a complete response so the JSON
// extractor never sees reasoning text. An unterminated block is dropped to
// the end of the text.
func stripThink(text string) string {
	var b strings.Builder
	for {
		open := strings.Index(text, thinkOpen)
		if open == -1 {
			b.WriteString(text)
			return b.String()
		}
		b.WriteString(text[:open])
		rest := text[open+len(thinkOpen):]
		end := strings.Index(rest, thinkClose)
		if end == -1 {
			return b.String()
		}
		text = rest[end+len(thinkClose):]
	}
}
