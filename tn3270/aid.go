package tn3270

import "fmt"

// AID is the attention identifier sent as the first byte of every inbound data stream
type AID byte

const (
	AIDNone   AID = 0x60
	AIDEnter  AID = 0x7D
	AIDPF1    AID = 0xF1
	AIDPF2    AID = 0xF2
	AIDPF3    AID = 0xF3
	AIDPF4    AID = 0xF4
	AIDPF5    AID = 0xF5
	AIDPF6    AID = 0xF6
	AIDPF7    AID = 0xF7
	AIDPF8    AID = 0xF8
	AIDPF9    AID = 0xF9
	AIDPF10   AID = 0x7A
	AIDPF11   AID = 0x7B
	AIDPF12   AID = 0x7C
	AIDPF13   AID = 0xC1
	AIDPF14   AID = 0xC2
	AIDPF15   AID = 0xC3
	AIDPF16   AID = 0xC4
	AIDPF17   AID = 0xC5
	AIDPF18   AID = 0xC6
	AIDPF19   AID = 0xC7
	AIDPF20   AID = 0xC8
	AIDPF21   AID = 0xC9
	AIDPF22   AID = 0x4A
	AIDPF23   AID = 0x4B
	AIDPF24   AID = 0x4C
	AIDPA1    AID = 0x6C
	AIDPA2    AID = 0x6E
	AIDPA3    AID = 0x6B
	AIDClear  AID = 0x6D
	AIDSysReq AID = 0xF0
)

var pfKeys = [24]AID{
	AIDPF1, AIDPF2, AIDPF3, AIDPF4, AIDPF5, AIDPF6, AIDPF7, AIDPF8,
	AIDPF9, AIDPF10, AIDPF11, AIDPF12, AIDPF13, AIDPF14, AIDPF15, AIDPF16,
	AIDPF17, AIDPF18, AIDPF19, AIDPF20, AIDPF21, AIDPF22, AIDPF23, AIDPF24,
}

// PF returns the AID for program function key n, from 1 to 24
func PF(n int) (AID, bool) {
	if n < 1 || n > len(pfKeys) {
		return AIDNone, false
	}

	return pfKeys[n-1], true
}

// PA returns the AID for program attention key n, from 1 to 3
func PA(n int) (AID, bool) {
	switch n {
	case 1:
		return AIDPA1, true
	case 2:
		return AIDPA2, true
	case 3:
		return AIDPA3, true
	}

	return AIDNone, false
}

// AllowedWhileLocked reports the keys a 3270 operator can still press while the keyboard
// is locked
func (a AID) AllowedWhileLocked() bool {
	switch a {
	case AIDClear, AIDPA1, AIDPA2, AIDPA3, AIDSysReq:
		return true
	}

	return false
}

func (a AID) String() string {
	switch a {
	case AIDNone:
		return "NoAID"
	case AIDEnter:
		return "Enter"
	case AIDPA1:
		return "PA1"
	case AIDPA2:
		return "PA2"
	case AIDPA3:
		return "PA3"
	case AIDClear:
		return "Clear"
	case AIDSysReq:
		return "SysReq"
	}

	for i, pf := range pfKeys {
		if pf == a {
			return fmt.Sprintf("PF%d", i+1)
		}
	}

	return fmt.Sprintf("AID(%#02x)", byte(a))
}
