package tn3270

// Command is the first byte of an outbound (host to terminal) record
type Command byte

const (
	CommandWrite                Command = 0xF1
	CommandEraseWrite           Command = 0xF5
	CommandEraseWriteAlternate  Command = 0x7E
	CommandEraseAllUnprotected  Command = 0x6F
	CommandReadBuffer           Command = 0xF2
	CommandReadModified         Command = 0xF6
	CommandReadModifiedAll      Command = 0x6E
	CommandWriteStructuredField Command = 0xF3
)

var commandNames = map[Command]string{
	CommandWrite:                "W",
	CommandEraseWrite:           "EW",
	CommandEraseWriteAlternate:  "EWA",
	CommandEraseAllUnprotected:  "EAU",
	CommandReadBuffer:           "RB",
	CommandReadModified:         "RM",
	CommandReadModifiedAll:      "RMA",
	CommandWriteStructuredField: "WSF",
}

func (c Command) String() string {
	name, ok := commandNames[c]
	if !ok {
		return "unknown"
	}

	return name
}

func (c Command) isWrite() bool {
	switch c {
	case CommandWrite, CommandEraseWrite, CommandEraseWriteAlternate, CommandEraseAllUnprotected:
		return true
	}

	return false
}

func (c Command) isRead() bool {
	switch c {
	case CommandReadBuffer, CommandReadModified, CommandReadModifiedAll:
		return true
	}

	return false
}

// Write control character bits
const (
	WCCResetMDT        byte = 0x01
	WCCKeyboardRestore byte = 0x02
	WCCSoundAlarm      byte = 0x04
)

// Orders that can appear in the data following a write command
const (
	OrderStartField         byte = 0x1D
	OrderStartFieldExtended byte = 0x29
	OrderSetBufferAddress   byte = 0x11
	OrderSetAttribute       byte = 0x28
	OrderInsertCursor       byte = 0x13
	OrderProgramTab         byte = 0x05
	OrderRepeatToAddress    byte = 0x3C
	OrderEraseUnprotected   byte = 0x12
	OrderModifyField        byte = 0x2C
	OrderGraphicEscape      byte = 0x08
)

var orderNames = map[byte]string{
	OrderStartField:         "SF",
	OrderStartFieldExtended: "SFE",
	OrderSetBufferAddress:   "SBA",
	OrderSetAttribute:       "SA",
	OrderInsertCursor:       "IC",
	OrderProgramTab:         "PT",
	OrderRepeatToAddress:    "RA",
	OrderEraseUnprotected:   "EUA",
	OrderModifyField:        "MF",
	OrderGraphicEscape:      "GE",
}

// Attribute types used by SA, SFE and MF
const (
	attrTypeReset        byte = 0x00
	attrTypeHighlighting byte = 0x41
	attrTypeColor        byte = 0x42
	attrTypeCharset      byte = 0x43
	attrTypeBackground   byte = 0x44
	attrTypeTransparency byte = 0x45

	attrTypeBasic      byte = 0xC0
	attrTypeExtHilite  byte = 0xC1
	attrTypeExtColor   byte = 0xC2
	attrTypeExtCharset byte = 0xC3
	attrTypeOutline    byte = 0xC4
	attrTypeExtBack    byte = 0xC5
	attrTypeValidation byte = 0xC6
	attrTypeMDT        byte = 0xC7
	attrTypeIntensity  byte = 0xC8
)
