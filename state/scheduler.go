package state

import (
	"fmt"
	"time"
)

// Dispatch Dispatches the function to run on the owner goroutine without waiting for it to complete
func (e *Env[T]) Dispatch(fun func(T) error) {
	defer func() {
		if r := recover(); r != nil {
			e.Cancel(fmt.Errorf("panic: %v", r))
		}
	}()
	select {
	case e.DispatchChannel <- fun:
	case <-e.Context.Done():
	}
}

// DispatchWait Dispatches the function to run on the owner goroutine and wait for it to complete
func (e *Env[T]) DispatchWait(fun func(T) (any, error)) (any, error) {
	ret := make(chan Pair[any, error], 1)
	e.Dispatch(func(s T) error {
		res, err := fun(s)
		ret <- Pair[any, error]{res, err}
		return err
	})
	select {
	case res := <-ret:
		return res.V1, res.V2
	case <-e.Context.Done():
		return nil, e.Context.Err()
	}
}

func (e *Env[T]) ScheduleTask(fun func(T) error, delay time.Duration) {
	time.AfterFunc(delay, func() {
		e.Dispatch(fun)
	})
}

func (e *Env[T]) repeatedTask(fun func(T) error, delay time.Duration) {
	defer e.Tasks.Done()
	for e.Context.Err() == nil {
		e.Dispatch(fun)
		select {
		case <-time.After(delay):
		case <-e.Context.Done():
		}
	}
}

// RepeatTask dispatches fun every delay until the context is cancelled.
func (e *Env[T]) RepeatTask(fun func(T) error, delay time.Duration) {
	e.Tasks.Add(1)
	go e.repeatedTask(fun, delay)
}
