package telopts

import "github.com/moodclient/tn3270/telnet"

const CodeECHO telnet.TelOptCode = 1

// ECHO indicates whether the local will repeat text sent from the remote back to the remote.
// A 3270 screen is never echoed, so clients generally only allow the remote to claim it.
func ECHO(usage telnet.TelOptUsage) telnet.TelOptPolicy {
	return flagPolicy(CodeECHO, "ECHO", usage)
}
