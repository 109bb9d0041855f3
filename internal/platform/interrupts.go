package platform

import (
	"context"
	"os"
	"os/signal"
	"sync"
)

// Interrupter is suspended while the console waits for an interactive
// line.
type Interrupter interface {
	Pause()
	Resume()
}

// Interrupts cancels a context on the first of its signals. While
// paused the signals keep their default action, so an interrupt at the
// prompt ends the process instead of waiting for the script to resume.
type Interrupts struct {
	mu     sync.Mutex
	ch     chan os.Signal
	sigs   []os.Signal
	cancel context.CancelFunc

	// Set once a signal arrived or Stop was called
	done bool
}

// NotifyInterrupts returns a copy of parent that is canceled when one
// of sigs arrives.
func NotifyInterrupts(parent context.Context, sigs ...os.Signal) (context.Context, *Interrupts) {
	ctx, cancel := context.WithCancel(parent)
	i := &Interrupts{
		ch:     make(chan os.Signal, 1),
		sigs:   sigs,
		cancel: cancel,
	}
	signal.Notify(i.ch, sigs...)

	go func() {
		select {
		case <-i.ch:
			i.Stop()
		case <-ctx.Done():
		}
	}()
	return ctx, i
}

// Pause restores the default action of the signals.
func (i *Interrupts) Pause() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.done {
		signal.Stop(i.ch)
	}
}

// Resume catches the signals again.
func (i *Interrupts) Resume() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.done {
		signal.Notify(i.ch, i.sigs...)
	}
}

// Stop releases the signals and cancels the context.
func (i *Interrupts) Stop() {
	i.mu.Lock()
	i.done = true
	signal.Stop(i.ch)
	i.mu.Unlock()
	i.cancel()
}
