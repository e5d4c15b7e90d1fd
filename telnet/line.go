package telnet

// line.go - line assembly with remote echo.
//
// Interactive peers send one keystroke per packet, so the assembler
// works strictly byte at a time: printables accumulate, CR or LF
// finalises the pending line, backspace erases.  Echo bytes are
// returned to the caller rather than written, keeping the assembler
// free of I/O.

import "strings"

// eraseEcho visually rubs out one character on the peer's terminal.
var eraseEcho = []byte{BS, ' ', BS}

// newlineEcho moves the peer's cursor to a fresh line.
var newlineEcho = []byte{CR, LF}

// LineEvent describes the effect of one byte on the pending line.
type LineEvent struct {
	Ready bool   // a complete line is available in Line
	Line  string // finalised line, trailing whitespace trimmed
	Echo  []byte // bytes to echo back to the sender, nil when echo is off
}

// Assembler accumulates printable bytes into lines.  The zero value is
// ready to use.  Not safe for concurrent use; each session owns one
// assembler, fed only by its handler.
type Assembler struct {
	buf    []byte
	prevCR bool
}

// Feed processes one inbound byte.  echo selects whether the event
// carries bytes to reflect back to the sender.
//
// Printable bytes (0x20..0x7E) accumulate and echo as themselves.  CR
// or LF finalises the line; the LF of a CR LF pair is swallowed so one
// keystroke never yields two lines.  Backspace and DEL remove the last
// accumulated byte, echoing BS SP BS so the peer's terminal erases the
// character.  Every other byte is ignored.
func (a *Assembler) Feed(b byte, echo bool) LineEvent {
	switch {
	case b == CR || b == LF:
		if b == LF && a.prevCR {
			a.prevCR = false
			return LineEvent{}
		}
		a.prevCR = b == CR

		line := strings.TrimRight(string(a.buf), " \t")
		a.buf = a.buf[:0]

		ev := LineEvent{Ready: true, Line: line}
		if echo {
			ev.Echo = newlineEcho
		}
		return ev

	case b == BS || b == DEL:
		a.prevCR = false
		if len(a.buf) == 0 {
			// Nothing to erase; echoing would back over the prompt.
			return LineEvent{}
		}
		a.buf = a.buf[:len(a.buf)-1]

		ev := LineEvent{}
		if echo {
			ev.Echo = eraseEcho
		}
		return ev

	case b >= 0x20 && b <= 0x7E:
		a.prevCR = false
		a.buf = append(a.buf, b)

		ev := LineEvent{}
		if echo {
			ev.Echo = []byte{b}
		}
		return ev

	default:
		a.prevCR = false
		return LineEvent{}
	}
}

// Len returns the number of bytes pending in the unfinalised line.
func (a *Assembler) Len() int { return len(a.buf) }

// Reset discards any pending bytes.
func (a *Assembler) Reset() {
	a.buf = a.buf[:0]
	a.prevCR = false
}
