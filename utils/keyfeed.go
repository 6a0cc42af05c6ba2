package utils

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/x/ansi"
	"github.com/moodclient/tn3270/tn3270"
	"github.com/muesli/cancelreader"
)

// KeyAction is an operator action decoded from keyboard input
type KeyAction int

const (
	ActionNone KeyAction = iota
	ActionType
	ActionAID
	ActionTab
	ActionBackTab
	ActionHome
	ActionUp
	ActionDown
	ActionLeft
	ActionRight
	ActionBackspace
	ActionDelete
	ActionEraseEOF
	ActionInsert
	ActionReset
	ActionQuit
)

// KeyEvent is one decoded action. Text is set for ActionType and AID for ActionAID.
type KeyEvent struct {
	Action KeyAction
	Text   string
	AID    tn3270.AID
}

const (
	ctrlA = ansi.SOH
	ctrlC = ansi.ETX
	ctrlE = ansi.ENQ
	ctrlL = ansi.FF
	ctrlR = ansi.DC2
)

// csiTildeKeys maps the numeric parameter of ESC [ n ~ sequences
var csiTildeKeys = map[int]KeyEvent{
	2:  {Action: ActionInsert},
	3:  {Action: ActionDelete},
	11: {Action: ActionAID, AID: tn3270.AIDPF1},
	12: {Action: ActionAID, AID: tn3270.AIDPF2},
	13: {Action: ActionAID, AID: tn3270.AIDPF3},
	14: {Action: ActionAID, AID: tn3270.AIDPF4},
	15: {Action: ActionAID, AID: tn3270.AIDPF5},
	17: {Action: ActionAID, AID: tn3270.AIDPF6},
	18: {Action: ActionAID, AID: tn3270.AIDPF7},
	19: {Action: ActionAID, AID: tn3270.AIDPF8},
	20: {Action: ActionAID, AID: tn3270.AIDPF9},
	21: {Action: ActionAID, AID: tn3270.AIDPF10},
	23: {Action: ActionAID, AID: tn3270.AIDPF11},
	24: {Action: ActionAID, AID: tn3270.AIDPF12},
	25: {Action: ActionAID, AID: tn3270.AIDPF13},
	26: {Action: ActionAID, AID: tn3270.AIDPF14},
	28: {Action: ActionAID, AID: tn3270.AIDPF15},
	29: {Action: ActionAID, AID: tn3270.AIDPF16},
	31: {Action: ActionAID, AID: tn3270.AIDPF17},
	32: {Action: ActionAID, AID: tn3270.AIDPF18},
	33: {Action: ActionAID, AID: tn3270.AIDPF19},
	34: {Action: ActionAID, AID: tn3270.AIDPF20},
}

// ss3Keys are the final bytes of ESC O sequences sent for F1-F4
var ss3Keys = map[byte]tn3270.AID{
	'P': tn3270.AIDPF1,
	'Q': tn3270.AIDPF2,
	'R': tn3270.AIDPF3,
	'S': tn3270.AIDPF4,
}

// KeyDecoder turns raw terminal input into operator actions. Input may be split at
// any byte; partial escape sequences are kept until the rest arrives.
type KeyDecoder struct {
	parser      *ansi.Parser
	parserState byte
	parsedBytes []byte
	events      []KeyEvent
	ss3         bool
}

func NewKeyDecoder() *KeyDecoder {
	return &KeyDecoder{
		parser: ansi.NewParser(32, 1024),
	}
}

// Decode returns the actions completed by data. Consecutive characters are merged
// into one ActionType event.
func (d *KeyDecoder) Decode(data []byte) []KeyEvent {
	d.events = d.events[:0]

	for len(data) > 0 {
		startState := d.parserState

		var parsed []byte
		var width, consumed int
		parsed, width, consumed, d.parserState = ansi.DecodeSequence(data, d.parserState, d.parser)

		if consumed == 0 && startState == ansi.NormalState {
			// Undecodable byte
			consumed = 1
		}
		data = data[consumed:]

		if width > 0 {
			d.text(parsed)
			continue
		}

		d.parsedBytes = append(d.parsedBytes, parsed...)
		if d.parserState != ansi.NormalState {
			continue
		}

		d.sequence(d.parsedBytes)
		d.parsedBytes = d.parsedBytes[:0]
	}

	return append([]KeyEvent(nil), d.events...)
}

func (d *KeyDecoder) emit(event KeyEvent) {
	last := len(d.events) - 1
	if event.Action == ActionType && last >= 0 && d.events[last].Action == ActionType {
		d.events[last].Text += event.Text
		return
	}

	d.events = append(d.events, event)
}

func (d *KeyDecoder) text(grapheme []byte) {
	ss3 := d.ss3
	d.ss3 = false

	if ss3 && len(grapheme) == 1 {
		aid, ok := ss3Keys[grapheme[0]]
		if ok {
			d.emit(KeyEvent{Action: ActionAID, AID: aid})
			return
		}
	}

	d.emit(KeyEvent{Action: ActionType, Text: string(grapheme)})
}

// sequence handles a complete zero-width sequence: a CSI or ESC sequence, or a run
// of control codes
func (d *KeyDecoder) sequence(seq []byte) {
	d.ss3 = false
	if len(seq) == 0 {
		return
	}

	cmd := ansi.Cmd(d.parser.Cmd)

	switch {
	case ansi.HasCsiPrefix(seq):
		if cmd.Command() != 0 {
			d.csi(cmd, ansi.Param(d.parser.Params[0]).Param())
		}
	case ansi.HasEscPrefix(seq):
		if cmd.Command() == 'O' && cmd.Intermediate() == 0 {
			d.ss3 = true
		}
	default:
		for _, code := range seq {
			d.controlCode(code)
		}
	}
}

func (d *KeyDecoder) controlCode(code byte) {
	switch code {
	case ansi.CR, ansi.LF:
		d.emit(KeyEvent{Action: ActionAID, AID: tn3270.AIDEnter})
	case ansi.HT:
		d.emit(KeyEvent{Action: ActionTab})
	case ansi.BS, ansi.DEL:
		d.emit(KeyEvent{Action: ActionBackspace})
	case ctrlA:
		d.emit(KeyEvent{Action: ActionAID, AID: tn3270.AIDPA1})
	case ctrlC:
		d.emit(KeyEvent{Action: ActionQuit})
	case ctrlE:
		d.emit(KeyEvent{Action: ActionEraseEOF})
	case ctrlL:
		d.emit(KeyEvent{Action: ActionAID, AID: tn3270.AIDClear})
	case ctrlR:
		d.emit(KeyEvent{Action: ActionReset})
	}
}

// csi handles a CSI sequence; param is its first parameter, or -1 when it has none
func (d *KeyDecoder) csi(cmd ansi.Cmd, param int) {
	switch cmd.Command() {
	case 'A':
		d.emit(KeyEvent{Action: ActionUp})
	case 'B':
		d.emit(KeyEvent{Action: ActionDown})
	case 'C':
		d.emit(KeyEvent{Action: ActionRight})
	case 'D':
		d.emit(KeyEvent{Action: ActionLeft})
	case 'H':
		d.emit(KeyEvent{Action: ActionHome})
	case 'Z':
		d.emit(KeyEvent{Action: ActionBackTab})
	case '~':
		event, ok := csiTildeKeys[param]
		if ok {
			d.emit(event)
		}
	}
}

// ApplyKey performs one action against a session
func ApplyKey(session *tn3270.Session, event KeyEvent) error {
	screen := session.Screen()

	switch event.Action {
	case ActionType:
		_, err := session.PutString(event.Text)
		return err
	case ActionAID:
		return session.SendAID(event.AID)
	case ActionTab:
		screen.Tab()
	case ActionBackTab:
		screen.BackTab()
	case ActionHome:
		screen.Home()
	case ActionUp:
		screen.Up()
	case ActionDown:
		screen.Down()
	case ActionLeft:
		screen.Left()
	case ActionRight:
		screen.Right()
	case ActionBackspace:
		return screen.Backspace()
	case ActionDelete:
		return screen.Delete()
	case ActionEraseEOF:
		return screen.EraseEOF()
	case ActionInsert:
		screen.ToggleInsert()
	case ActionReset:
		screen.SetKeyboardLocked(false)
		if screen.InsertMode() {
			screen.ToggleInsert()
		}
	}

	return nil
}

// KeyFeed reads the local keyboard and drives a session with it
type KeyFeed struct {
	session  *tn3270.Session
	input    cancelreader.CancelReader
	decoder  *KeyDecoder
	onChange func()
}

// NewKeyFeed wraps input, usually os.Stdin in raw mode, so that FeedLoop can be stopped
// from another goroutine. onChange is called after every batch of keys, to redraw.
func NewKeyFeed(session *tn3270.Session, input io.Reader, onChange func()) (*KeyFeed, error) {
	reader, err := cancelreader.NewReader(input)
	if err != nil {
		return nil, err
	}

	return &KeyFeed{
		session:  session,
		input:    reader,
		decoder:  NewKeyDecoder(),
		onChange: onChange,
	}, nil
}

// FeedLoop applies keys until the operator quits, the input ends, or ctx is cancelled.
// Keys refused because the keyboard is locked are dropped.
func (f *KeyFeed) FeedLoop(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		f.input.Cancel()
	})
	defer stop()

	buffer := make([]byte, 256)
	for {
		n, err := f.input.Read(buffer)
		if n > 0 {
			quit, applyErr := f.apply(buffer[:n])
			if applyErr != nil {
				return applyErr
			}

			if quit {
				return nil
			}
		}

		if errors.Is(err, cancelreader.ErrCanceled) || errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}
	}
}

func (f *KeyFeed) apply(data []byte) (quit bool, err error) {
	for _, event := range f.decoder.Decode(data) {
		if event.Action == ActionQuit {
			return true, nil
		}

		err := ApplyKey(f.session, event)
		if errors.Is(err, tn3270.ErrKeyboardLocked) || errors.Is(err, tn3270.ErrNotConnected) {
			continue
		} else if err != nil {
			return false, err
		}
	}

	if f.onChange != nil {
		f.onChange()
	}

	return false, nil
}

func (f *KeyFeed) Close() error {
	return f.input.Close()
}
