package telnet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Telnet opcodes
const (
	// EOF - End of File. Rarely used, but part of the recognized opcode range
	EOF byte = 236
	// SUSP - Suspend the current process
	SUSP byte = 237
	// ABORT - Abort the current process
	ABORT byte = 238
	// EOR - End Of Record. TN3270 uses IAC EOR to mark the end of each data-stream
	// record in both directions. It is not part of the recognized command set
	// on the inbound side, so it is passed upward to the layer above as data.
	EOR byte = 239
	// SE - Subnegotiation End. IAC SE is used to mark the end of a subnegotiation command
	SE byte = 240
	// NOP - No-Op. IAC NOP doesn't indicate anything at all
	NOP byte = 241
	// DM - Data Mark, the data stream portion of a Synch
	DM byte = 242
	// BRK - Break
	BRK byte = 243
	// IP - Interrupt Process
	IP byte = 244
	// AO - Abort Output
	AO byte = 245
	// AYT - Are You There
	AYT byte = 246
	// EC - Erase Character
	EC byte = 247
	// EL - Erase Line
	EL byte = 248
	// GA - Go Ahead.
	GA byte = 249
	// SB - Subnegotiation Begin. IAC SB is used to indicate the beginning of a subnegotiation
	// command. These are telopt-specific commands that have telopt-specific meanings.
	SB byte = 250
	// WILL - IAC WILL is used to indicate that this terminal intends to activate a telopt
	WILL byte = 251
	// WONT - IAC WONT is used to indicate that this terminal refuses to activate a telopt
	WONT byte = 252
	// DO - IAC DO is used to request that the remote terminal activates a telopt
	DO byte = 253
	// DONT - IAC DONT is used to demand that the remote terminal do not activate a telopt
	DONT byte = 254
	// IAC - This opcode indicates the beginning of a new command
	IAC byte = 255
)

var commandCodes = map[byte]string{
	EOF:   "EOF",
	SUSP:  "SUSP",
	ABORT: "ABORT",
	EOR:   "EOR",
	SE:    "SE",
	NOP:   "NOP",
	DM:    "DM",
	BRK:   "BRK",
	IP:    "IP",
	AO:    "AO",
	AYT:   "AYT",
	EC:    "EC",
	EL:    "EL",
	GA:    "GA",
	SB:    "SB",
	WILL:  "WILL",
	WONT:  "WONT",
	DO:    "DO",
	DONT:  "DONT",
	IAC:   "IAC",
}

// recognizedCommands is the set of bytes that, following an inbound IAC, make
// the IAC a command. Any other byte after IAC leaves the IAC in the data stream.
var recognizedCommands = map[byte]struct{}{
	WILL: {}, WONT: {}, DO: {}, DONT: {}, SB: {}, IAC: {},
	GA: {}, EL: {}, EC: {}, AYT: {}, AO: {}, IP: {}, BRK: {}, DM: {}, NOP: {}, SE: {},
}

// IsRecognizedCommand indicates whether the printer treats IAC <b> as a command
func IsRecognizedCommand(b byte) bool {
	_, ok := recognizedCommands[b]
	return ok
}

// Command is a struct that indicates some sort of IAC command either received from
// or sent to the remote. Any possible command can be represented by this struct.
type Command struct {
	// OpCode is the code that comes after IAC in this command. Subnegotiations, which
	// come in the form of IAC SB <bytes> IAC SE, are represented as a single command
	// object with the OpCode of SB. IAC SE is never sent in its own command.
	OpCode byte
	// Option indicates which telopt this command is referring to, if the command has one.
	// IAC WILL/WONT/DO/DONT/SB are always followed by a byte indicating a telopt.
	Option TelOptCode
	// Subnegotiation contains the unescaped bytes, if any, that came between
	// IAC SB <option> and IAC SE.  For non-SB commands, this slice is empty.
	Subnegotiation []byte
}

// hasOption indicates whether the opcode is followed by an option byte on the wire
func (c Command) hasOption() bool {
	return c.OpCode == SB || c.isNegotiation()
}

func (c Command) isNegotiation() bool {
	return c.OpCode == DO || c.OpCode == DONT || c.OpCode == WILL || c.OpCode == WONT
}

// isActivateNegotiation indicates whether this command is a negotiation requesting activation
// of a telopt (DO/WILL).
func (c Command) isActivateNegotiation() bool {
	return c.OpCode == DO || c.OpCode == WILL
}

// isLocalNegotiation indicates whether this command is a negotiation regarding a local
// telopt received from the remote (DO/DONT)
func (c Command) isLocalNegotiation() bool {
	return c.OpCode == DO || c.OpCode == DONT
}

// Bytes produces the wire form of the command. Any IAC inside a subnegotiation
// payload is doubled.
func (c Command) Bytes() []byte {
	size := 2
	if c.hasOption() {
		size++
	}

	if c.OpCode == SB {
		size += len(c.Subnegotiation) + 2
	}

	b := make([]byte, 0, size)
	b = append(b, IAC, c.OpCode)

	if c.hasOption() {
		b = append(b, byte(c.Option))
	}

	if c.OpCode == SB {
		b = AppendEscaped(b, c.Subnegotiation)
		b = append(b, IAC, SE)
	}

	return b
}

// AppendEscaped appends data to dst, doubling every IAC byte so the remote reads
// it as a literal 0xFF
func AppendEscaped(dst []byte, data []byte) []byte {
	for _, b := range data {
		dst = append(dst, b)
		if b == IAC {
			dst = append(dst, IAC)
		}
	}

	return dst
}

// Unescape collapses every IAC IAC pair in data into a single 0xFF. A lone IAC
// is kept as-is.
func Unescape(data []byte) []byte {
	out := make([]byte, 0, len(data))

	for i := 0; i < len(data); i++ {
		out = append(out, data[i])
		if data[i] == IAC && i+1 < len(data) && data[i+1] == IAC {
			i++
		}
	}

	return out
}

// parseCommand decodes a complete command frame as produced by Command.Bytes
func parseCommand(data []byte) (Command, error) {
	if len(data) == 0 || data[0] != IAC {
		return Command{}, fmt.Errorf("command did not begin with IAC: %q", commandStream(data))
	}

	if len(data) < 2 {
		return Command{}, errors.New("command was just a standalone IAC with no opcode")
	}

	c := Command{OpCode: data[1]}
	if !c.hasOption() {
		return c, nil
	}

	if len(data) < 3 {
		return Command{}, fmt.Errorf("command did not contain parameters: %q", commandStream(data))
	}

	c.Option = TelOptCode(data[2])
	if c.OpCode != SB {
		return c, nil
	}

	if len(data) < 5 || data[len(data)-2] != IAC || data[len(data)-1] != SE {
		return Command{}, fmt.Errorf("subnegotiation command did not end with IAC SE: %q", commandStream(data))
	}

	c.Subnegotiation = Unescape(data[3 : len(data)-2])
	return c, nil
}

func commandStream(b []byte) string {
	var sb strings.Builder

	for i := 0; i < len(b); i++ {
		if i > 0 {
			sb.WriteRune(' ')
		}

		code, hasCode := commandCodes[b[i]]
		if !hasCode {
			sb.WriteString(strconv.Itoa(int(b[i])))
		} else {
			sb.WriteString(code)
		}
	}

	return sb.String()
}
