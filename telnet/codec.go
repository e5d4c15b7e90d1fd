// Package telnet implements the byte-level Telnet protocol machinery
// shared by the server and the client: stream parsing (separating data
// from IAC command sequences), option negotiation, and line assembly
// with remote echo.
//
// The package is I/O-free by design.  Parsers and negotiators consume
// bytes and return bytes; the capability layer decides what to write
// and when.  That keeps every protocol rule testable without sockets.
package telnet

import "fmt"

// Command bytes (RFC 854).  Every command is introduced by IAC.
const (
	SE   byte = 240 // subnegotiation end
	NOP  byte = 241 // no operation
	DM   byte = 242 // data mark
	BRK  byte = 243 // break
	IP   byte = 244 // interrupt process
	AO   byte = 245 // abort output
	AYT  byte = 246 // are you there
	EC   byte = 247 // erase character
	EL   byte = 248 // erase line
	GA   byte = 249 // go ahead
	SB   byte = 250 // subnegotiation begin
	WILL byte = 251
	WONT byte = 252
	DO   byte = 253
	DONT byte = 254
	IAC  byte = 255 // Interpret As Command
)

// Option codes (RFC 855 assignments) this implementation knows by name.
const (
	OptBinary          byte = 0
	OptEcho            byte = 1
	OptSuppressGoAhead byte = 3
	OptStatus          byte = 5
	OptTimingMark      byte = 6
	OptTerminalType    byte = 24
	OptEOR             byte = 25
	OptNAWS            byte = 31 // negotiate about window size
	OptTerminalSpeed   byte = 32
	OptLinemode        byte = 34
	OptNewEnviron      byte = 39
)

// Line-editing bytes recognised by the assembler.
const (
	BS  byte = 0x08 // backspace
	DEL byte = 0x7F // delete, treated like backspace
	CR  byte = '\r'
	LF  byte = '\n'
)

// Command renders the three-byte wire form of a negotiation command.
func Command(verb, option byte) []byte {
	return []byte{IAC, verb, option}
}

// EscapeIAC doubles every 0xFF in data so the peer's parser cannot
// mistake application bytes for commands.  Returns data unchanged
// (same backing array) when no escaping is needed.
func EscapeIAC(data []byte) []byte {
	n := 0
	for _, b := range data {
		if b == IAC {
			n++
		}
	}
	if n == 0 {
		return data
	}
	out := make([]byte, 0, len(data)+n)
	for _, b := range data {
		out = append(out, b)
		if b == IAC {
			out = append(out, IAC)
		}
	}
	return out
}

// ── Names for logging ────────────────────────────────────────────────

var verbNames = map[byte]string{
	WILL: "WILL",
	WONT: "WONT",
	DO:   "DO",
	DONT: "DONT",
}

var commandNames = map[byte]string{
	SE:  "SE",
	NOP: "NOP",
	DM:  "DM",
	BRK: "BRK",
	IP:  "IP",
	AO:  "AO",
	AYT: "AYT",
	EC:  "EC",
	EL:  "EL",
	GA:  "GA",
	SB:  "SB",
}

var optionNames = map[byte]string{
	OptBinary:          "BINARY",
	OptEcho:            "ECHO",
	OptSuppressGoAhead: "SUPPRESS-GO-AHEAD",
	OptStatus:          "STATUS",
	OptTimingMark:      "TIMING-MARK",
	OptTerminalType:    "TERMINAL-TYPE",
	OptEOR:             "EOR",
	OptNAWS:            "NAWS",
	OptTerminalSpeed:   "TERMINAL-SPEED",
	OptLinemode:        "LINEMODE",
	OptNewEnviron:      "NEW-ENVIRON",
}

// VerbName returns the mnemonic for a negotiation verb.
func VerbName(verb byte) string {
	if n, ok := verbNames[verb]; ok {
		return n
	}
	if n, ok := commandNames[verb]; ok {
		return n
	}
	return fmt.Sprintf("CMD-%d", verb)
}

// OptionName returns the mnemonic for an option code.
func OptionName(option byte) string {
	if n, ok := optionNames[option]; ok {
		return n
	}
	return fmt.Sprintf("OPT-%d", option)
}
