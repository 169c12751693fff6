// Package overlay implements a popup that hides itself after a delay.
package overlay

import (
	"sync"
	"time"
)

// Overlay is visible from New until it is dismissed or closed.
type Overlay struct {
	mu        sync.Mutex
	timer     *time.Timer
	visible   bool
	onDismiss func()
	once      sync.Once
}

// New shows an overlay that dismisses itself after delay. onDismiss runs at
// most once, on whichever dismissal comes first. It may be nil.
func New(delay time.Duration, onDismiss func()) *Overlay {
	o := &Overlay{visible: true, onDismiss: onDismiss}
	o.mu.Lock()
	o.timer = time.AfterFunc(delay, o.Dismiss)
	o.mu.Unlock()
	return o
}

// Dismiss hides the overlay early.
func (o *Overlay) Dismiss() {
	if !o.hide() {
		return
	}
	o.once.Do(func() {
		if o.onDismiss != nil {
			o.onDismiss()
		}
	})
}

// Close tears the overlay down without running onDismiss.
func (o *Overlay) Close() {
	o.hide()
	o.once.Do(func() {})
}

func (o *Overlay) hide() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		o.timer.Stop()
	}
	was := o.visible
	o.visible = false
	return was
}

// Visible reports whether the overlay is still showing.
func (o *Overlay) Visible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.visible
}
