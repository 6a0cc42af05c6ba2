package telopts

import "github.com/moodclient/tn3270/telnet"

const CodeEOR telnet.TelOptCode = 25

// EOR permits IAC EOR to mark the end of each record. tn3270 data streams are framed
// with it in both directions.
func EOR(usage telnet.TelOptUsage) telnet.TelOptPolicy {
	return flagPolicy(CodeEOR, "EOR", usage)
}
