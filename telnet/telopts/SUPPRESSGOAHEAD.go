package telopts

import "github.com/moodclient/tn3270/telnet"

const CodeSUPPRESSGOAHEAD telnet.TelOptCode = 3

// SUPPRESSGOAHEAD stops the remote from sending IAC GA after each transmission
func SUPPRESSGOAHEAD(usage telnet.TelOptUsage) telnet.TelOptPolicy {
	return flagPolicy(CodeSUPPRESSGOAHEAD, "SUPPRESS-GO-AHEAD", usage)
}
