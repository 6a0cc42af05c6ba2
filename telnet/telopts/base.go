package telopts

import (
	"fmt"

	"github.com/moodclient/tn3270/telnet"
)

// flagPolicy builds the record for a telopt that carries no subnegotiation and only
// needs a usage setting
func flagPolicy(code telnet.TelOptCode, name string, usage telnet.TelOptUsage) telnet.TelOptPolicy {
	return telnet.TelOptPolicy{
		Code:                 code,
		Name:                 name,
		Usage:                usage,
		SubnegotiationString: rawSubnegotiationString,
	}
}

func rawSubnegotiationString(subnegotiation []byte) string {
	return fmt.Sprintf("%+v", subnegotiation)
}
