package telnet

import (
	"fmt"
	"strconv"
)

// TelOptUsage indicates how a particular telopt is supposed to be used by the
// terminal.  Whether it is permitted to be activated locally or on the remote, and
// whether we should request activation locally or on the remote when the Terminal launches.
type TelOptUsage byte

// There's no situation where we'd want to request usage of a telopt but not allow the remote to
// propose it, so the TelOptRequestRemote/Local exposed to consumers includes both flags

const (
	// TelOptAllowRemote - if the remote requests to activate this telopt on their side,
	// we will permit it
	TelOptAllowRemote TelOptUsage = 1 << iota
	telOptOnlyRequestRemote
	// TelOptAllowLocal - if the remote requests that we activate this telopt on our side,
	// we will comply
	TelOptAllowLocal
	telOptOnlyRequestLocal
)

const (
	// TelOptRequestRemote - we will send DO during Terminal startup
	TelOptRequestRemote TelOptUsage = TelOptAllowRemote | telOptOnlyRequestRemote
	// TelOptRequestLocal - we will send WILL during Terminal startup
	TelOptRequestLocal TelOptUsage = TelOptAllowLocal | telOptOnlyRequestLocal
	// TelOptEverywhere requests and accepts the telopt on both sides of the connection
	TelOptEverywhere TelOptUsage = TelOptRequestLocal | TelOptRequestRemote
)

// InitLocal indicates that WILL is sent for this telopt at startup
func (u TelOptUsage) InitLocal() bool { return u&telOptOnlyRequestLocal != 0 }

// InitRemote indicates that DO is sent for this telopt at startup
func (u TelOptUsage) InitRemote() bool { return u&telOptOnlyRequestRemote != 0 }

// AcceptLocal indicates that a DO from the remote is answered with WILL
func (u TelOptUsage) AcceptLocal() bool { return u&TelOptAllowLocal != 0 }

// AcceptRemote indicates that a WILL from the remote is answered with DO
func (u TelOptUsage) AcceptRemote() bool { return u&TelOptAllowRemote != 0 }

// TelOptCode - each telopt has a unique identification number between 0 and 255
type TelOptCode byte

// TelOptSide indicates which end of the connection a telopt state refers to
type TelOptSide byte

const (
	TelOptSideUnknown TelOptSide = iota
	// TelOptSideLocal is our side of the connection, negotiated with DO/DONT from the remote
	TelOptSideLocal
	// TelOptSideRemote is the peer's side of the connection, negotiated with WILL/WONT
	TelOptSideRemote
)

func (s TelOptSide) String() string {
	switch s {
	case TelOptSideLocal:
		return "Local"
	case TelOptSideRemote:
		return "Remote"
	default:
		return "Unknown"
	}
}

// TelOptPolicy is the registration record for a single telopt. The terminal consults
// it to decide how to answer negotiation and subnegotiation from the remote.
type TelOptPolicy struct {
	Code  TelOptCode
	Name  string
	Usage TelOptUsage

	// Subnegotiate is called with the unescaped payload of IAC SB <Code> ... IAC SE once the
	// telopt is active on either side. A non-empty return value is sent back to the remote
	// as a subnegotiation for the same telopt.
	Subnegotiate func(payload []byte) []byte
	// Activated is called when the telopt becomes active on one side of the connection.
	// A non-empty return value is sent to the remote as a subnegotiation.
	Activated func(side TelOptSide) []byte
	// SubnegotiationString creates a legible string for a subnegotiation payload
	SubnegotiationString func(payload []byte) string
}

func (p TelOptPolicy) String() string {
	if p.Name != "" {
		return p.Name
	}

	return "TELOPT " + strconv.Itoa(int(p.Code))
}

// TelOptState indicates whether the telopt is currently active, inactive, or other
type TelOptState byte

const (
	// TelOptUnknown is the zero value for the telopt state value.  This is generally interchangeable with
	// TelOptInactive
	TelOptUnknown TelOptState = iota
	// TelOptInactive indicates that the option is not currently active
	TelOptInactive
	// TelOptRequested indicates that this client has sent a request to activate the telopt to the other party
	// but has not yet heard back
	TelOptRequested
	// TelOptActive indicates that both parties have agreed to use the telopt
	TelOptActive
)

func (s TelOptState) String() string {
	switch s {
	case TelOptInactive:
		return "Inactive"
	case TelOptRequested:
		return "Requested"
	case TelOptActive:
		return "Active"
	default:
		return "Unknown"
	}
}

// OptionState records what has been sent and received about a single telopt. All four
// flags start false for each connection.
type OptionState struct {
	SentWill     bool
	SentDo       bool
	ReceivedWill bool
	ReceivedDo   bool
}

// Local summarizes the state of the telopt on our side of the connection
func (s OptionState) Local() TelOptState {
	switch {
	case s.SentWill && s.ReceivedDo:
		return TelOptActive
	case s.SentWill:
		return TelOptRequested
	default:
		return TelOptInactive
	}
}

// Remote summarizes the state of the telopt on the peer's side of the connection
func (s OptionState) Remote() TelOptState {
	switch {
	case s.SentDo && s.ReceivedWill:
		return TelOptActive
	case s.SentDo:
		return TelOptRequested
	default:
		return TelOptInactive
	}
}

// TelOptEvent is an event raised by the negotiation engine about a telopt
type TelOptEvent interface {
	Option() TelOptCode
	String() string
}

// TelOptStateChangeEvent is raised whenever the local or remote state of a telopt changes
type TelOptStateChangeEvent struct {
	Code     TelOptCode
	Name     string
	Side     TelOptSide
	OldState TelOptState
	NewState TelOptState
}

func (e TelOptStateChangeEvent) Option() TelOptCode {
	return e.Code
}

func (e TelOptStateChangeEvent) String() string {
	return fmt.Sprintf("%s %s state changed from %s to %s", e.Name, e.Side, e.OldState, e.NewState)
}

// TelOptSubnegotiationEvent is raised when a subnegotiation has been received and answered
type TelOptSubnegotiationEvent struct {
	Code     TelOptCode
	Name     string
	Payload  []byte
	Response []byte
}

func (e TelOptSubnegotiationEvent) Option() TelOptCode {
	return e.Code
}

func (e TelOptSubnegotiationEvent) String() string {
	return fmt.Sprintf("%s subnegotiation answered with %d bytes", e.Name, len(e.Response))
}
