package telnet

import (
	"fmt"
)

func (t *Terminal) initTelopts(policies []TelOptPolicy) error {
	for _, policy := range policies {
		oldPolicy, hasOldPolicy := t.policies[policy.Code]
		if hasOldPolicy {
			return fmt.Errorf("telopt collision: TelOpt %d is already registered as %s. it cannot be registered as %s", policy.Code, oldPolicy, policy)
		}

		t.policies[policy.Code] = policy
	}

	return nil
}

func (t *Terminal) policy(code TelOptCode) (TelOptPolicy, bool) {
	policy, ok := t.policies[code]
	if !ok {
		return TelOptPolicy{Code: code}, false
	}

	return policy, true
}

// writeTelOptRequests sends WILL and DO for every policy that asks for it at startup
func (t *Terminal) writeTelOptRequests() error {
	for code := 0; code < 256; code++ {
		policy, ok := t.policies[TelOptCode(code)]
		if !ok {
			continue
		}

		if policy.Usage.InitLocal() {
			err := t.RequestWill(policy.Code)
			if err != nil {
				return err
			}
		}

		if policy.Usage.InitRemote() {
			err := t.RequestDo(policy.Code)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// OptionState returns a snapshot of the negotiation flags for a single telopt
func (t *Terminal) OptionState(code TelOptCode) OptionState {
	t.optionLock.Lock()
	defer t.optionLock.Unlock()

	return t.options[code]
}

// RequestWill offers to activate a telopt on our side of the connection. Nothing is sent
// while a WILL is outstanding or accepted.
func (t *Terminal) RequestWill(code TelOptCode) error {
	t.optionLock.Lock()
	state := t.options[code]
	if state.SentWill {
		t.optionLock.Unlock()
		return nil
	}

	oldState := state.Local()
	state.SentWill = true
	t.options[code] = state
	err := t.keyboard.WriteCommand(Command{OpCode: WILL, Option: code})
	t.optionLock.Unlock()

	t.localStateChanged(code, oldState, state.Local())
	return err
}

// RequestDo asks the remote to activate a telopt on their side of the connection. Nothing
// is sent while a DO is outstanding or accepted.
func (t *Terminal) RequestDo(code TelOptCode) error {
	t.optionLock.Lock()
	state := t.options[code]
	if state.SentDo {
		t.optionLock.Unlock()
		return nil
	}

	oldState := state.Remote()
	state.SentDo = true
	t.options[code] = state
	err := t.keyboard.WriteCommand(Command{OpCode: DO, Option: code})
	t.optionLock.Unlock()

	t.remoteStateChanged(code, oldState, state.Remote())
	return err
}

func (t *Terminal) processTelOptCommand(c Command) error {
	switch c.OpCode {
	case DO:
		return t.processDo(c.Option)
	case DONT:
		return t.processDont(c.Option)
	case WILL:
		return t.processWill(c.Option)
	case WONT:
		return t.processWont(c.Option)
	case SB:
		return t.processSubnegotiation(c)
	}

	// GA, NOP, AYT and the rest only reach the inbound command hook
	return nil
}

func (t *Terminal) processDo(code TelOptCode) error {
	policy, _ := t.policy(code)

	t.optionLock.Lock()
	state := t.options[code]
	if state.ReceivedDo {
		// Already acknowledged, answering again would start a negotiation loop
		t.optionLock.Unlock()
		return nil
	}

	oldState := state.Local()
	state.ReceivedDo = true

	var err error
	if !policy.Usage.AcceptLocal() {
		state.SentWill = false
		err = t.keyboard.WriteCommand(Command{OpCode: WONT, Option: code})
	} else if !state.SentWill {
		state.SentWill = true
		err = t.keyboard.WriteCommand(Command{OpCode: WILL, Option: code})
	}
	// A DO answering our own WILL completes the negotiation without a reply

	t.options[code] = state
	t.optionLock.Unlock()

	t.localStateChanged(code, oldState, state.Local())
	return err
}

func (t *Terminal) processDont(code TelOptCode) error {
	t.optionLock.Lock()
	state := t.options[code]
	oldState := state.Local()

	if !state.ReceivedDo {
		if state.SentWill {
			// The remote refused our own WILL, which needs no answer
			state.SentWill = false
			t.options[code] = state
		}

		t.optionLock.Unlock()
		t.localStateChanged(code, oldState, state.Local())
		return nil
	}

	state.ReceivedDo = false
	state.SentWill = false
	t.options[code] = state
	err := t.keyboard.WriteCommand(Command{OpCode: WONT, Option: code})
	t.optionLock.Unlock()

	t.localStateChanged(code, oldState, state.Local())
	return err
}

func (t *Terminal) processWill(code TelOptCode) error {
	policy, _ := t.policy(code)

	t.optionLock.Lock()
	state := t.options[code]
	if state.ReceivedWill {
		t.optionLock.Unlock()
		return nil
	}

	oldState := state.Remote()
	state.ReceivedWill = true

	var err error
	if !policy.Usage.AcceptRemote() {
		state.SentDo = false
		err = t.keyboard.WriteCommand(Command{OpCode: DONT, Option: code})
	} else if !state.SentDo {
		state.SentDo = true
		err = t.keyboard.WriteCommand(Command{OpCode: DO, Option: code})
	}

	t.options[code] = state
	t.optionLock.Unlock()

	t.remoteStateChanged(code, oldState, state.Remote())
	return err
}

func (t *Terminal) processWont(code TelOptCode) error {
	t.optionLock.Lock()
	state := t.options[code]
	oldState := state.Remote()

	if !state.ReceivedWill {
		if state.SentDo {
			state.SentDo = false
			t.options[code] = state
		}

		t.optionLock.Unlock()
		t.remoteStateChanged(code, oldState, state.Remote())
		return nil
	}

	state.ReceivedWill = false
	state.SentDo = false
	t.options[code] = state
	err := t.keyboard.WriteCommand(Command{OpCode: DONT, Option: code})
	t.optionLock.Unlock()

	t.remoteStateChanged(code, oldState, state.Remote())
	return err
}

func (t *Terminal) processSubnegotiation(c Command) error {
	policy, hasPolicy := t.policy(c.Option)
	if !hasPolicy || policy.Subnegotiate == nil {
		return nil
	}

	state := t.OptionState(c.Option)
	if state.Local() != TelOptActive && state.Remote() != TelOptActive {
		// Getting subnegotiations for stuff we haven't agreed to
		return nil
	}

	response := policy.Subnegotiate(c.Subnegotiation)
	t.eventPump.TelOptEvent(TelOptSubnegotiationEvent{
		Code:     c.Option,
		Name:     policy.String(),
		Payload:  c.Subnegotiation,
		Response: response,
	})

	if len(response) == 0 {
		return nil
	}

	return t.WriteSubnegotiation(c.Option, response)
}

// WriteSubnegotiation sends IAC SB <code> <payload> IAC SE, doubling any IAC in the payload
func (t *Terminal) WriteSubnegotiation(code TelOptCode, payload []byte) error {
	return t.keyboard.WriteCommand(Command{
		OpCode:         SB,
		Option:         code,
		Subnegotiation: payload,
	})
}

func (t *Terminal) localStateChanged(code TelOptCode, oldState, newState TelOptState) {
	t.stateChanged(code, TelOptSideLocal, oldState, newState)
}

func (t *Terminal) remoteStateChanged(code TelOptCode, oldState, newState TelOptState) {
	t.stateChanged(code, TelOptSideRemote, oldState, newState)
}

func (t *Terminal) stateChanged(code TelOptCode, side TelOptSide, oldState, newState TelOptState) {
	if oldState == newState {
		return
	}

	policy, hasPolicy := t.policy(code)
	t.eventPump.TelOptEvent(TelOptStateChangeEvent{
		Code:     code,
		Name:     policy.String(),
		Side:     side,
		OldState: oldState,
		NewState: newState,
	})

	if !hasPolicy || newState != TelOptActive || policy.Activated == nil {
		return
	}

	payload := policy.Activated(side)
	if len(payload) == 0 {
		return
	}

	err := t.WriteSubnegotiation(code, payload)
	if err != nil {
		t.eventPump.EncounteredError(fmt.Errorf("telopt %s: writing activation subnegotiation: %w", policy, err))
	}
}
