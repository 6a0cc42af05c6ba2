package tn3270

import "sync"

// SessionHook is a type for function pointers that are registered to receive session events
type SessionHook[T any] func(session *Session, data T)

type sessionPublisher[U any] struct {
	lock sync.Mutex

	registeredHooks []SessionHook[U]
}

func newSessionPublisher[U any, T ~func(session *Session, data U)](hooks []T) *sessionPublisher[U] {
	var convertedHooks []SessionHook[U]

	for _, hook := range hooks {
		convertedHooks = append(convertedHooks, SessionHook[U](hook))
	}

	return &sessionPublisher[U]{
		registeredHooks: convertedHooks,
	}
}

func (e *sessionPublisher[U]) Register(hook SessionHook[U]) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.registeredHooks = append(e.registeredHooks, hook)
}

func (e *sessionPublisher[U]) Fire(session *Session, eventData U) {
	e.lock.Lock()
	hooks := e.registeredHooks
	e.lock.Unlock()

	for _, hook := range hooks {
		hook(session, eventData)
	}
}

// ScreenUpdate describes one record applied to the screen
type ScreenUpdate struct {
	Command Command
	Bytes   int
}

// ScreenUpdatedHandler is an event hook type called after each record from the host has
// been applied to the screen
type ScreenUpdatedHandler func(s *Session, update ScreenUpdate)

// AlarmHandler is an event hook type called when the host sounds the alarm
type AlarmHandler func(s *Session, update ScreenUpdate)

// SessionErrorHandler is an event hook type that receives errors the session recovered from
type SessionErrorHandler func(s *Session, err error)

// SessionHooks is used to pass in a set of pre-registered event hooks through
// SessionConfig. Hooks are called from the session's reader goroutine, so a slow hook
// delays processing of the next record.
type SessionHooks struct {
	ScreenUpdated    []ScreenUpdatedHandler
	Alarm            []AlarmHandler
	EncounteredError []SessionErrorHandler
}
