package telopts

import (
	"strings"
	"sync"

	"github.com/moodclient/tn3270/telnet"
)

const CodeTTYPE telnet.TelOptCode = 24

const (
	ttypeIS byte = iota
	ttypeSEND
)

// TTYPE answers the remote's SEND requests with our terminal types, one per request
// in the order given. Once the list is exhausted the last entry is repeated, which
// tells the remote there is nothing more to offer. A tn3270 host selects the screen
// model from this answer, so the first entry should be something like IBM-3278-2-E.
func TTYPE(usage telnet.TelOptUsage, localTerminals ...string) telnet.TelOptPolicy {
	var lock sync.Mutex
	cursor := 0

	return telnet.TelOptPolicy{
		Code:  CodeTTYPE,
		Name:  "TTYPE",
		Usage: usage,
		Activated: func(side telnet.TelOptSide) []byte {
			if side == telnet.TelOptSideLocal {
				lock.Lock()
				cursor = 0
				lock.Unlock()
			}

			return nil
		},
		Subnegotiate: func(subnegotiation []byte) []byte {
			if len(subnegotiation) == 0 || subnegotiation[0] != ttypeSEND {
				return nil
			}

			lock.Lock()
			defer lock.Unlock()

			terminal := "UNKNOWN"
			if len(localTerminals) > 0 {
				index := cursor
				if index >= len(localTerminals) {
					index = len(localTerminals) - 1
				} else {
					cursor++
				}

				terminal = localTerminals[index]
			}

			response := make([]byte, 0, len(terminal)+1)
			response = append(response, ttypeIS)
			return append(response, terminal...)
		},
		SubnegotiationString: ttypeSubnegotiationString,
	}
}

func ttypeSubnegotiationString(subnegotiation []byte) string {
	if len(subnegotiation) == 0 {
		return "<empty>"
	}

	switch subnegotiation[0] {
	case ttypeIS:
		var sb strings.Builder
		sb.WriteString("IS ")
		sb.WriteString(string(subnegotiation[1:]))
		return sb.String()
	case ttypeSEND:
		return "SEND"
	}

	return rawSubnegotiationString(subnegotiation)
}
