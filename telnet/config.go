package telnet

// TerminalSide indicates whether this terminal represents a client or server. Technically
// speaking, telnet is a peer-to-peer protocol, more concerned with "local and remote"
// than "client and server". A tn3270 terminal is always the client, though.
type TerminalSide byte

const (
	SideUnknown TerminalSide = iota
	SideClient
	SideServer
)

func (s TerminalSide) String() string {
	switch s {
	case SideClient:
		return "Client"
	case SideServer:
		return "Server"
	default:
		return "Unknown"
	}
}

type TerminalConfig struct {
	// Side indicates whether this terminal is intended to be the client or server. Even though RFC 854
	// (Telnet Protocol) does not have the concept of a client or server, just local and remote, some TelOpts,
	// such as TTYPE, only make sense in one direction.
	Side TerminalSide

	// TelOpts indicates which TelOpts the terminal should request from the remote, and which the remote
	// should be permitted to request from us. Each code may only be registered once. Any option
	// that is not registered is refused when the remote asks for it.
	TelOpts []TelOptPolicy

	// EventHooks lists hooks that are registered before the terminal starts, so they receive
	// the events raised by startup negotiation.
	EventHooks EventHooks
}
