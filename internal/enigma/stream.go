package enigma

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Transform streams src through the engine into dst one rune at a time and
// returns the number of bytes written. Bytes that are not valid UTF-8 are
// copied verbatim. A desync error carries the symbol offset within the whole
// stream.
func (e *Engine) Transform(dst io.Writer, src io.Reader, dir Direction) (int64, error) {
	br := bufio.NewReader(src)
	bw := bufio.NewWriter(dst)
	var written int64
	pos := 0
	for {
		r, size, err := br.ReadRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			_ = bw.Flush()
			return written, fmt.Errorf("read input: %w", err)
		}
		if r == utf8.RuneError && size == 1 {
			if err := br.UnreadRune(); err != nil {
				return written, fmt.Errorf("read input: %w", err)
			}
			c, err := br.ReadByte()
			if err != nil {
				return written, fmt.Errorf("read input: %w", err)
			}
			if err := bw.WriteByte(c); err != nil {
				return written, fmt.Errorf("write output: %w", err)
			}
			written++
			e.passed++
			pos++
			continue
		}
		out := r
		if dir == Decrypt {
			var ok bool
			out, ok = e.DecodeRune(r)
			if !ok {
				if ferr := bw.Flush(); ferr != nil {
					return written, ferr
				}
				return written, &DesyncError{Position: pos, Symbol: r}
			}
		} else {
			out = e.EncodeRune(r)
		}
		n, err := bw.WriteRune(out)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("write output: %w", err)
		}
		pos++
	}
	if err := bw.Flush(); err != nil {
		return written, fmt.Errorf("flush output: %w", err)
	}
	return written, nil
}
