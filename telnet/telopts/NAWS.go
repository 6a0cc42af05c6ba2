package telopts

import (
	"fmt"

	"github.com/moodclient/tn3270/telnet"
)

const CodeNAWS telnet.TelOptCode = 31

// NAWS reports our window size to the remote. The size is sent as soon as the telopt
// becomes active locally; later changes can be sent with NAWSPayload and
// Terminal.WriteSubnegotiation.
func NAWS(usage telnet.TelOptUsage, width, height int) telnet.TelOptPolicy {
	return telnet.TelOptPolicy{
		Code:  CodeNAWS,
		Name:  "NAWS",
		Usage: usage,
		Activated: func(side telnet.TelOptSide) []byte {
			if side != telnet.TelOptSideLocal || width <= 0 || height <= 0 {
				return nil
			}

			return NAWSPayload(width, height)
		},
		SubnegotiationString: nawsSubnegotiationString,
	}
}

// NAWSPayload encodes a window size as the four byte NAWS subnegotiation
func NAWSPayload(width, height int) []byte {
	return []byte{
		byte(width >> 8),
		byte(width & 0xff),
		byte(height >> 8),
		byte(height & 0xff),
	}
}

func nawsSubnegotiationString(subnegotiation []byte) string {
	if len(subnegotiation) != 4 {
		return rawSubnegotiationString(subnegotiation)
	}

	width := (int(subnegotiation[0]) << 8) | int(subnegotiation[1])
	height := (int(subnegotiation[2]) << 8) | int(subnegotiation[3])
	return fmt.Sprintf("%dx%d", width, height)
}
