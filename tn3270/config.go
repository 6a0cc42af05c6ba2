package tn3270

import (
	"log/slog"

	"github.com/moodclient/tn3270/telnet"
)

// DefaultTerminalType is the model reported through TTYPE: a 24x80 3278 with extended
// attributes
const DefaultTerminalType = "IBM-3278-2-E"

// SessionConfig is passed to NewSession
type SessionConfig struct {
	// Rows and Cols size the screen. Zero uses 24x80. Rows*Cols may not exceed 4096.
	Rows int
	Cols int
	// TerminalType is the name sent in response to TTYPE SEND
	TerminalType string
	// CodePage is the IANA name of the host's EBCDIC code page, IBM037 by default
	CodePage string
	// SendCursorAddress includes the cursor address after the AID in every inbound stream
	SendCursorAddress bool

	// UseSGA negotiates SUPPRESS-GO-AHEAD on both sides
	UseSGA bool
	// UseNAWS offers the screen size through NAWS
	UseNAWS bool
	// UseEcho lets the host take over echo
	UseEcho bool

	// Logger receives data stream diagnostics. Nothing is logged when nil.
	Logger *slog.Logger
	// TerminalHooks are registered on the telnet terminal of every connection
	TerminalHooks telnet.EventHooks
	EventHooks    SessionHooks
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.Rows == 0 {
		c.Rows = DefaultRows
	}

	if c.Cols == 0 {
		c.Cols = DefaultCols
	}

	if c.TerminalType == "" {
		c.TerminalType = DefaultTerminalType
	}

	if c.CodePage == "" {
		c.CodePage = DefaultCodepage
	}

	return c
}
