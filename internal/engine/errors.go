package engine

import (
	"errors"
	"fmt"
)

// Ожидаемые, восстановимые отказы. Отдаются вызывающему как типизированный
// результат и никогда не роняют процесс.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrAlreadyBanned    = errors.New("already banned")
	ErrNotFound         = errors.New("not found")
	ErrMessageTooLong   = errors.New("message too long")
)

// ErrInvalidName is the createRoom/renameRoom flavour of ErrInvalidInput.
var ErrInvalidName = fmt.Errorf("%w: invalid chat name", ErrInvalidInput)

// ErrInternal marks an internal invariant violation (sequence collision, room
// without its creator's membership). It means the exclusive-section discipline
// was broken somewhere; the operation aborts and the condition is logged
// loudly. It is never retried by the engine.
var ErrInternal = errors.New("internal consistency violation")
