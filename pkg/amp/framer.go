package amp

import "bytes"

// LineFramer splits a byte stream into newline-terminated lines. A partial
// line at the end of a chunk is kept until the rest of it arrives.
type LineFramer struct {
	buf []byte
}

// NewLineFramer returns an empty framer
func NewLineFramer() *LineFramer {
	return &LineFramer{}
}

// Feed appends chunk to the buffered fragment and returns every complete
// line, without its terminator, in arrival order. Empty lines are returned
// as-is; filtering them is left to the caller.
func (f *LineFramer) Feed(chunk []byte) []string {
	f.buf = append(f.buf, chunk...)

	var lines []string
	for {
		idx := bytes.IndexByte(f.buf, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, string(f.buf[:idx]))
		f.buf = f.buf[idx+1:]
	}

	// Drop the consumed prefix so the backing array does not grow forever
	if len(f.buf) == 0 {
		f.buf = nil
	} else if cap(f.buf) > 4*len(f.buf)+64 {
		f.buf = append([]byte(nil), f.buf...)
	}

	return lines
}

// Pending returns the buffered partial line
func (f *LineFramer) Pending() string {
	return string(f.buf)
}

// Reset discards the buffered partial line
func (f *LineFramer) Reset() {
	f.buf = nil
}

// DiscardPrefix drops prefix, and any whitespace before it, from the
// buffered partial line. It reports whether the prefix was there.
func (f *LineFramer) DiscardPrefix(prefix string) bool {
	rest := bytes.TrimLeft(f.buf, " \t\r\n")
	if !bytes.HasPrefix(rest, []byte(prefix)) {
		return false
	}
	rest = rest[len(prefix):]
	if len(rest) == 0 {
		f.buf = nil
	} else {
		f.buf = append([]byte(nil), rest...)
	}
	return true
}
