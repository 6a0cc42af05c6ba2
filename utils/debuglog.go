package utils

import (
	"context"
	"log/slog"

	"github.com/moodclient/tn3270/telnet"
	"github.com/moodclient/tn3270/tn3270"
)

const LevelNone slog.Level = -8

type DebugLogConfig struct {
	EncounteredErrorLevel  slog.Level
	IncomingCommandLevel   slog.Level
	OutboundCommandLevel   slog.Level
	TelOptEventLevel       slog.Level
	TelOptStageChangeLevel slog.Level
	ScreenUpdateLevel      slog.Level
	AlarmLevel             slog.Level
}

// DefaultDebugLogConfig logs errors at Error, negotiation at Debug and screen traffic
// at Info
var DefaultDebugLogConfig = DebugLogConfig{
	EncounteredErrorLevel:  slog.LevelError,
	IncomingCommandLevel:   slog.LevelDebug,
	OutboundCommandLevel:   slog.LevelDebug,
	TelOptEventLevel:       slog.LevelDebug,
	TelOptStageChangeLevel: slog.LevelDebug,
	ScreenUpdateLevel:      slog.LevelInfo,
	AlarmLevel:             slog.LevelInfo,
}

// DebugLog writes terminal and session events to a slog.Logger. Events configured
// with LevelNone are not logged.
type DebugLog struct {
	logger *slog.Logger
	config DebugLogConfig
}

func NewDebugLog(logger *slog.Logger, config DebugLogConfig) *DebugLog {
	return &DebugLog{logger: logger, config: config}
}

// TerminalHooks returns hooks to place in a TerminalConfig, or in SessionConfig.TerminalHooks
// so that every connection of a session is logged from its first byte
func (l *DebugLog) TerminalHooks() telnet.EventHooks {
	return telnet.EventHooks{
		EncounteredError: []telnet.ErrorHandler{l.logError},
		InboundCommand:   []telnet.CommandHandler{l.logInboundCommand},
		OutboundCommand:  []telnet.CommandHandler{l.logOutboundCommand},
		TelOptEvent:      []telnet.TelOptEventHandler{l.logTelOptEvent},
	}
}

// SessionHooks returns hooks to place in SessionConfig.EventHooks
func (l *DebugLog) SessionHooks() tn3270.SessionHooks {
	return tn3270.SessionHooks{
		ScreenUpdated:    []tn3270.ScreenUpdatedHandler{l.logScreenUpdate},
		Alarm:            []tn3270.AlarmHandler{l.logAlarm},
		EncounteredError: []tn3270.SessionErrorHandler{l.logSessionError},
	}
}

// RegisterTerminal registers the log's hooks on a terminal that is already running
func (l *DebugLog) RegisterTerminal(terminal *telnet.Terminal) {
	terminal.RegisterEncounteredErrorHook(l.logError)
	terminal.RegisterInboundCommandHook(l.logInboundCommand)
	terminal.RegisterOutboundCommandHook(l.logOutboundCommand)
	terminal.RegisterTelOptEventHook(l.logTelOptEvent)
}

// RegisterSession registers the log's hooks on an existing session
func (l *DebugLog) RegisterSession(session *tn3270.Session) {
	session.RegisterScreenUpdatedHook(l.logScreenUpdate)
	session.RegisterAlarmHook(l.logAlarm)
	session.RegisterEncounteredErrorHook(l.logSessionError)
}

func (l *DebugLog) log(level slog.Level, msg string, attrs ...slog.Attr) {
	if level == LevelNone {
		return
	}

	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func (l *DebugLog) logError(terminal *telnet.Terminal, err error) {
	l.log(l.config.EncounteredErrorLevel, "Encountered error", slog.Any("error", err))
}

func (l *DebugLog) logInboundCommand(terminal *telnet.Terminal, c telnet.Command) {
	l.log(l.config.IncomingCommandLevel, "Received command", slog.String("command", terminal.CommandString(c)))
}

func (l *DebugLog) logOutboundCommand(terminal *telnet.Terminal, c telnet.Command) {
	l.log(l.config.OutboundCommandLevel, "Sent command", slog.String("command", terminal.CommandString(c)))
}

func (l *DebugLog) logTelOptEvent(terminal *telnet.Terminal, event telnet.TelOptEvent) {
	switch typed := event.(type) {
	case telnet.TelOptStateChangeEvent:
		l.log(l.config.TelOptStageChangeLevel, "TelOpt State Change",
			slog.String("option", typed.Name),
			slog.String("oldState", typed.OldState.String()),
			slog.String("newState", typed.NewState.String()),
			slog.String("side", typed.Side.String()),
		)
	default:
		l.log(l.config.TelOptEventLevel, event.String(), slog.Int("option", int(event.Option())))
	}
}

func (l *DebugLog) logScreenUpdate(session *tn3270.Session, update tn3270.ScreenUpdate) {
	row, col := session.Screen().CursorRowCol()
	l.log(l.config.ScreenUpdateLevel, "Screen updated",
		slog.String("command", update.Command.String()),
		slog.Int("bytes", update.Bytes),
		slog.Int("fields", len(session.Screen().Fields())),
		slog.Int("cursorRow", row),
		slog.Int("cursorCol", col),
	)
}

func (l *DebugLog) logAlarm(session *tn3270.Session, update tn3270.ScreenUpdate) {
	l.log(l.config.AlarmLevel, "Alarm", slog.String("command", update.Command.String()))
}

func (l *DebugLog) logSessionError(session *tn3270.Session, err error) {
	l.log(l.config.EncounteredErrorLevel, "Encountered error", slog.Any("error", err))
}
