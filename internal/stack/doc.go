// Package stack implements the bounded integer stack shared by every
// client of the device node.
//
// # Overview
//
// A Stack is contiguous storage of a fixed capacity plus a count of used
// slots. The top element, when present, sits at index count-1. Push and
// Pop are O(1) and never allocate; Resize is the only operation that
// reallocates, copying min(count, capacity) elements into a fresh buffer
// and swapping it in.
//
// # Concurrency
//
// All access to the buffer, capacity and count happens while holding a
// single lock. The lock is a one-slot channel so that waiting for it can
// be abandoned through a context; an abandoned wait returns ErrInterrupted
// and leaves the stack untouched. No ordering between concurrent callers
// is promised beyond mutual exclusion.
//
// # Shrinking
//
// Resize below the current count keeps the bottom (oldest) elements at
// indices 0..newCapacity and discards the most recently pushed excess.
package stack
