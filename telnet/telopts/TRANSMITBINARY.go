package telopts

import "github.com/moodclient/tn3270/telnet"

const CodeTRANSMITBINARY telnet.TelOptCode = 0

// TRANSMITBINARY allows 8-bit data on the connection. tn3270 requires it in both
// directions, since EBCDIC uses the full byte range.
func TRANSMITBINARY(usage telnet.TelOptUsage) telnet.TelOptPolicy {
	return flagPolicy(CodeTRANSMITBINARY, "TRANSMIT-BINARY", usage)
}
