package state

import (
	"context"
	"log/slog"
	"sync"
)

// Env can be read from any goroutine. Every function sent through DispatchChannel runs on
// the goroutine that owns the T value, so T itself needs no locking.
type Env[T any] struct {
	DispatchChannel chan<- func(T) error
	Context         context.Context
	Cancel          context.CancelCauseFunc
	Log             *slog.Logger
	// Tasks tracks the goroutines started by RepeatTask
	Tasks sync.WaitGroup
}
