package params

import "sync/atomic"

// OneShot is a flag that can be consumed once. A nil OneShot is never armed.
type OneShot struct {
	armed atomic.Bool
}

// NewOneShot creates a flag, armed or not
func NewOneShot(armed bool) *OneShot {
	o := &OneShot{}
	o.armed.Store(armed)
	return o
}

// Consume disarms the flag and reports whether it was armed
func (o *OneShot) Consume() bool {
	if o == nil {
		return false
	}
	return o.armed.CompareAndSwap(true, false)
}

// Armed reports whether the flag has not been consumed yet
func (o *OneShot) Armed() bool {
	return o != nil && o.armed.Load()
}
