package telnet

// options.go - option negotiation state machine.
//
// Each connection tracks a tri-state lifecycle per option code, driven
// by the WILL/WONT/DO/DONT verbs it receives.  The allow-list is fixed:
// echo and suppress-go-ahead may be enabled in either role, terminal-
// type only when this endpoint is the offerer (answering a DO).  Every
// other option is refused, so the peer can never escalate the protocol
// silently.

// OptionState is the negotiation lifecycle of a single option.
type OptionState uint8

const (
	StateUnnegotiated OptionState = iota
	StateEnabled
	StateDisabled
)

func (s OptionState) String() string {
	switch s {
	case StateEnabled:
		return "enabled"
	case StateDisabled:
		return "disabled"
	default:
		return "unnegotiated"
	}
}

// Reaction is the engine's verdict on one received negotiation command.
type Reaction struct {
	Reply   []byte      // counter-command to write; nil for a plain acknowledgment
	State   OptionState // option state after the command
	Changed bool        // state differs from before the command
	Refused bool        // the command asked for an option outside the allow-list
}

// Negotiator drives option negotiation for one connection.  Received
// verbs produce deterministic counter-commands: re-receiving a verb
// for an already-settled option re-emits the same response, so state
// never flaps.  Not safe for concurrent use; each connection owns
// exactly one negotiator, mutated only by its handler.
type Negotiator struct {
	state   [256]OptionState
	offered [256]byte // verb this endpoint proactively sent, 0 if none

	acceptResponder map[byte]bool // options we enable when the peer says WILL
	acceptOfferer   map[byte]bool // options we enable when the peer says DO
}

// NewNegotiator returns a negotiator with the fixed allow-list.
func NewNegotiator() *Negotiator {
	return &Negotiator{
		acceptResponder: map[byte]bool{
			OptEcho:            true,
			OptSuppressGoAhead: true,
		},
		acceptOfferer: map[byte]bool{
			OptEcho:            true,
			OptSuppressGoAhead: true,
			OptTerminalType:    true,
		},
	}
}

// Offer records a locally initiated request and returns its wire form
// for the caller to write.  The peer's eventual answer settles the
// option's state without generating a further counter-command; if two
// of these endpoints acknowledged each other's acknowledgments, a
// single WILL/DO pair would bounce between them forever.
func (n *Negotiator) Offer(verb, option byte) []byte {
	n.offered[option] = verb
	return Command(verb, option)
}

// React applies one received verb/option pair and returns the
// response.  The caller writes Reaction.Reply (when non-nil) back to
// the peer as a fire-and-forget side effect.
func (n *Negotiator) React(verb, option byte) Reaction {
	prev := n.state[option]

	if off := n.offered[option]; off != 0 {
		if acked, enabled := answers(off, verb); acked {
			next := StateDisabled
			if enabled {
				next = StateEnabled
			}
			n.state[option] = next
			return Reaction{State: next, Changed: next != prev}
		}
	}

	var reply byte
	var next OptionState
	var refused bool

	switch verb {
	case WILL:
		if n.acceptResponder[option] {
			reply, next = DO, StateEnabled
		} else {
			reply, next = DONT, StateDisabled
			refused = true
		}
	case WONT:
		reply, next = DONT, StateDisabled
	case DO:
		if n.acceptOfferer[option] {
			reply, next = WILL, StateEnabled
		} else {
			reply, next = WONT, StateDisabled
			refused = true
		}
	case DONT:
		reply, next = WONT, StateDisabled
	default:
		// Not a negotiation verb; nothing to do.
		return Reaction{State: prev}
	}

	n.state[option] = next
	return Reaction{
		Reply:   Command(reply, option),
		State:   next,
		Changed: next != prev,
		Refused: refused,
	}
}

// answers reports whether verb is the peer's answer to a previously
// sent offer verb, and whether that answer is an acceptance.
func answers(offered, verb byte) (acked, enabled bool) {
	switch offered {
	case WILL:
		switch verb {
		case DO:
			return true, true
		case DONT:
			return true, false
		}
	case DO:
		switch verb {
		case WILL:
			return true, true
		case WONT:
			return true, false
		}
	}
	return false, false
}

// Option returns the current state of an option code.
func (n *Negotiator) Option(option byte) OptionState {
	return n.state[option]
}

// EchoEnabled reports whether the echo option has been negotiated on.
func (n *Negotiator) EchoEnabled() bool {
	return n.state[OptEcho] == StateEnabled
}
