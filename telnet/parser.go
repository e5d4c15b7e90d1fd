package telnet

// parser.go - inbound stream classification.
//
// The wire interleaves application data with IAC command sequences.
// TCP gives no framing guarantees, so a command may arrive split
// across any number of reads.  The parser is therefore a per-byte
// state machine whose state persists between Feed calls: a sequence
// truncated at the end of one chunk is completed by the next, and the
// stream never desynchronises.

// EventKind discriminates what the parser extracted from the stream.
type EventKind int

const (
	// EventData is a run of application bytes (IAC IAC collapsed to
	// a literal 0xFF).
	EventData EventKind = iota
	// EventNegotiation is a complete IAC <verb> <option> command.
	EventNegotiation
	// EventControl is a two-byte command such as NOP, GA, or AYT.
	EventControl
)

// Event is one decoded element of the inbound Telnet stream.  Events
// are emitted in wire order, so feeding them to downstream consumers
// preserves the per-connection byte ordering.
type Event struct {
	Kind    EventKind
	Data    []byte // EventData only
	Verb    byte   // EventNegotiation only: WILL, WONT, DO, DONT
	Option  byte   // EventNegotiation only
	Command byte   // EventControl only
}

type parseState int

const (
	stateData   parseState = iota
	stateIAC               // consumed IAC, command byte pending
	stateVerb              // consumed IAC + verb, option byte pending
	stateSB                // inside a subnegotiation frame
	stateSBIAC             // inside a subnegotiation frame, seen IAC
)

// Parser splits the inbound byte stream into data runs and commands.
// The zero value is ready to use.  Not safe for concurrent use; each
// connection owns exactly one parser.
type Parser struct {
	state parseState
	verb  byte // pending verb while waiting for its option byte
}

// Feed consumes one chunk from the wire and returns the events decoded
// from it, in order.  Incomplete trailing commands are carried over to
// the next call; data bytes are never withheld.
//
// Subnegotiation frames (IAC SB ... IAC SE) are consumed and discarded,
// including across chunk boundaries.  Their contents are not
// interpreted, but skipping them whole keeps the payload from being
// misread as data or commands.
func (p *Parser) Feed(chunk []byte) []Event {
	var events []Event
	var data []byte

	flush := func() {
		if len(data) > 0 {
			events = append(events, Event{Kind: EventData, Data: data})
			data = nil
		}
	}

	for _, b := range chunk {
		switch p.state {
		case stateData:
			if b == IAC {
				p.state = stateIAC
				continue
			}
			data = append(data, b)

		case stateIAC:
			switch {
			case b == IAC:
				// Escaped literal 0xFF, part of the data run.
				data = append(data, IAC)
				p.state = stateData
			case b == WILL || b == WONT || b == DO || b == DONT:
				p.verb = b
				p.state = stateVerb
			case b == SB:
				flush()
				p.state = stateSB
			default:
				flush()
				events = append(events, Event{Kind: EventControl, Command: b})
				p.state = stateData
			}

		case stateVerb:
			flush()
			events = append(events, Event{
				Kind:   EventNegotiation,
				Verb:   p.verb,
				Option: b,
			})
			p.verb = 0
			p.state = stateData

		case stateSB:
			if b == IAC {
				p.state = stateSBIAC
			}

		case stateSBIAC:
			if b == SE {
				p.state = stateData
			} else {
				// IAC IAC is an escaped payload byte; anything else
				// is malformed but stays inside the frame rather
				// than corrupting the data stream.
				p.state = stateSB
			}
		}
	}

	flush()
	return events
}

// Pending reports whether the parser is mid-command and waiting for
// more bytes (a truncated sequence at a chunk boundary).
func (p *Parser) Pending() bool {
	return p.state != stateData
}
