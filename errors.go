package main

import "errors"

// Failure taxonomy for the whole tool.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrBusUnavailable is returned when the uinput device cannot be opened.
	// There is no degraded mode without it.
	ErrBusUnavailable = errors.New("uinput: bus unavailable")

	// ErrPadAllocation is returned when a virtual pad cannot be allocated
	// or configured before registration.
	ErrPadAllocation = errors.New("uinput: pad allocation failed")

	// ErrPadRegistration is returned when the kernel refuses to register a
	// configured virtual pad.
	ErrPadRegistration = errors.New("uinput: pad registration failed")

	// ErrUnknownPad is returned when removing a pad that this bus did not
	// create. Indicates a logic error in the caller.
	ErrUnknownPad = errors.New("uinput: unknown pad")

	// ErrSlotDiscovery is returned when a newly created virtual pad cannot
	// be attributed to any slot within the retry bound.
	ErrSlotDiscovery = errors.New("failed to get index of new virtual pad (timeout)")

	// ErrUnmanagedSlot is returned when freeing a slot that has no managed
	// pad. Indicates a logic error in the caller.
	ErrUnmanagedSlot = errors.New("cannot free unmanaged slot")
)
