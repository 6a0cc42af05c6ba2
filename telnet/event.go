package telnet

import (
	"context"
)

type eventType byte

const (
	eventUnknown eventType = iota
	eventError
	eventInboundCommand
	eventOutboundCommand
	eventTelOpt
)

type eventsTransport struct {
	eventType eventType
	err       error
	command   Command
	telOpt    TelOptEvent
}

// terminalEventPump moves hook calls off the reader and writer paths so that slow
// handlers never stall the protocol
type terminalEventPump struct {
	events chan eventsTransport
	done   chan struct{}
}

func newEventPump() *terminalEventPump {
	return &terminalEventPump{
		events: make(chan eventsTransport, 100),
		done:   make(chan struct{}),
	}
}

func (p *terminalEventPump) processEvent(terminal *Terminal, event eventsTransport) {
	switch event.eventType {
	case eventError:
		terminal.encounteredErrorHooks.Fire(terminal, event.err)
	case eventInboundCommand:
		terminal.inboundCommandHooks.Fire(terminal, event.command)
	case eventOutboundCommand:
		terminal.outboundCommandHooks.Fire(terminal, event.command)
	case eventTelOpt:
		terminal.telOptEventHooks.Fire(terminal, event.telOpt)
	default:
		panic("invalid event")
	}
}

func (p *terminalEventPump) loopCleanup(terminal *Terminal) {
	close(p.done)

	for {
		select {
		case ev := <-p.events:
			p.processEvent(terminal, ev)
		default:
			return
		}
	}
}

func (p *terminalEventPump) TerminalLoop(ctx context.Context, terminal *Terminal) {
	defer p.loopCleanup(terminal)

	for {
		select {
		case ev := <-p.events:
			p.processEvent(terminal, ev)
		case <-ctx.Done():
			return
		}
	}
}

// Done is closed once the pump has stopped delivering events
func (p *terminalEventPump) Done() <-chan struct{} {
	return p.done
}

func (p *terminalEventPump) send(ev eventsTransport) {
	select {
	case p.events <- ev:
	case <-p.done:
	}
}

func (p *terminalEventPump) EncounteredError(err error) {
	p.send(eventsTransport{
		eventType: eventError,
		err:       err,
	})
}

func (p *terminalEventPump) InboundCommand(c Command) {
	p.send(eventsTransport{
		eventType: eventInboundCommand,
		command:   c,
	})
}

func (p *terminalEventPump) OutboundCommand(c Command) {
	p.send(eventsTransport{
		eventType: eventOutboundCommand,
		command:   c,
	})
}

func (p *terminalEventPump) TelOptEvent(event TelOptEvent) {
	p.send(eventsTransport{
		eventType: eventTelOpt,
		telOpt:    event,
	})
}
