package main

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxPlayers is the number of player slots the kernel hands out to gamepads.
const MaxPlayers = 4

// Slot indexes must print as a single digit.
const _ uint = 9 - (MaxPlayers + 1)

// Default bounds for the discovery and unplug-confirmation polls.
const (
	pollTries = 100
	pollDelay = 10 * time.Millisecond
)

// Prober reports whether a controller currently answers at a slot index.
// Results are authoritative but inherently racy: a pad can be plugged or
// pulled between two probes.
type Prober interface {
	Plugged(index int) bool
}

// Bus creates and destroys virtual pads.
type Bus interface {
	AddPad() (*VirtualPad, error)
	RemovePad(*VirtualPad) error
}

// Describer identifies the physical device behind a slot, for log detail
// only. An empty string means no identity could be established.
type Describer interface {
	Describe(index int) string
}

// Slot is the state of a single player slot.
//
// Some combinations are erroneous but observable: a managed pad that no
// longer answers is logged and kept, not repaired in place.
type Slot struct {
	Plugged bool
	Managed *VirtualPad
}

// SlotTable tracks the player slots and drives them toward "every slot but
// the wanted one occupied". All mutation happens on the caller's goroutine.
type SlotTable struct {
	slots  [MaxPlayers]Slot
	prober Prober
	bus    Bus
	desc   Describer

	// poll bounds, defaulted to pollTries/pollDelay
	tries int
	delay time.Duration
}

// NewSlotTable snapshots the current attachment state of every slot. Pads
// that were already plugged at startup are recorded silently.
func NewSlotTable(prober Prober, bus Bus, desc Describer) *SlotTable {
	st := &SlotTable{
		prober: prober,
		bus:    bus,
		desc:   desc,
		tries:  pollTries,
		delay:  pollDelay,
	}
	for i := range st.slots {
		st.slots[i].Plugged = prober.Plugged(i)
	}
	return st
}

// Plugged returns the recorded attachment state of a slot.
func (st *SlotTable) Plugged(index int) bool {
	if index < 0 || index >= MaxPlayers {
		warn.Printf("ERROR: invalid slot: %d", index+1)
		return false
	}
	return st.slots[index].Plugged
}

// Refresh re-probes every slot and updates the records. It reports whether
// any slot changed since the previous refresh.
//
// A managed pad that reads unplugged is an anomaly, reported as a warning.
// Changes on unmanaged slots are ordinary plug/unplug events.
func (st *SlotTable) Refresh() bool {
	changed := false
	for i := range st.slots {
		plugged := st.prober.Plugged(i)
		slot := &st.slots[i]
		if slot.Managed != nil {
			if !plugged {
				warn.Printf("WARNING: virtual pad unplugged on slot %d", i+1)
			}
		} else if slot.Plugged != plugged {
			if plugged {
				if d := st.describe(i); d != "" {
					info.Printf("Pad %d plugged (%s)", i+1, d)
				} else {
					info.Printf("Pad %d plugged", i+1)
				}
			} else {
				info.Printf("Pad %d unplugged", i+1)
			}
		}
		changed = changed || slot.Plugged != plugged
		slot.Plugged = plugged
	}
	return changed
}

// FillAll occupies every unplugged slot with a managed virtual pad.
//
// The number of pads to create is fixed from the recorded state before any
// creation happens: creating a pad changes which slots are free, so reacting
// to intermediate state would make discovery ambiguous. A pad that lands on
// a slot that turns out taken is released again; that is an expected race
// under contention, not a fault.
func (st *SlotTable) FillAll() error {
	free := 0
	for _, slot := range st.slots {
		if !slot.Plugged {
			free++
		}
	}

	for n := 0; n < free; n++ {
		pad, err := st.bus.AddPad()
		if err != nil {
			return err
		}
		index, err := st.pollNewIndex()
		if err != nil {
			// the pad stays in the bus owned set and is released at
			// teardown; no slot refers to it
			return err
		}
		slot := &st.slots[index]
		switch {
		case slot.Managed != nil:
			warn.Printf("WARNING: virtual pad created on an already managed slot: %d", index+1)
			if err := st.bus.RemovePad(pad); err != nil {
				return err
			}
		case slot.Plugged:
			warn.Printf("WARNING: virtual pad created on an already plugged slot: %d", index+1)
			if err := st.bus.RemovePad(pad); err != nil {
				return err
			}
		default:
			slot.Plugged = true
			slot.Managed = pad
		}
	}

	// final check; logs managed pads that read unplugged
	st.Refresh()
	for i := range st.slots {
		if !st.slots[i].Plugged {
			warn.Printf("WARNING: slot %d still unplugged", i+1)
		}
	}
	return nil
}

// pollNewIndex waits for a newly created pad to answer on one of the free
// slots and returns that index.
//
// The kernel does not report which slot a uinput pad landed in and asking
// the device node back races with udev. Assume no pad is manually plugged in
// the meantime and poll the free slots instead.
func (st *SlotTable) pollNewIndex() (int, error) {
	for t := 0; t < st.tries; t++ {
		for i := range st.slots {
			if st.slots[i].Plugged {
				continue // don't probe already plugged slots
			}
			if st.prober.Plugged(i) {
				return i, nil
			}
		}
		time.Sleep(st.delay)
	}
	return 0, ErrSlotDiscovery
}

// FreeSlot releases the managed pad on the given slot, then waits for the
// slot to actually read unplugged: pad teardown is not instantaneous.
func (st *SlotTable) FreeSlot(index int) error {
	if index < 0 || index >= MaxPlayers {
		return fmt.Errorf("invalid slot: %d", index+1)
	}
	slot := &st.slots[index]
	if slot.Managed == nil {
		return fmt.Errorf("%w: %d", ErrUnmanagedSlot, index+1)
	}

	if err := st.bus.RemovePad(slot.Managed); err != nil {
		return err
	}
	slot.Managed = nil

	for t := 0; t < st.tries; t++ {
		slot.Plugged = st.prober.Plugged(index)
		if !slot.Plugged {
			break
		}
		time.Sleep(st.delay)
	}
	if slot.Plugged {
		warn.Printf("WARNING: managed slot %d has been freed but is still plugged", index+1)
	}
	return nil
}

// FillAllButOne fills every slot except the given one. It does nothing when
// every other slot is already plugged, so it is safe to call repeatedly.
//
// The fill pass occupies every free slot, the wanted one included; freeing
// it afterwards re-asserts that it stays open for a real pad.
func (st *SlotTable) FillAllButOne(index int) error {
	for i := range st.slots {
		if i != index && !st.slots[i].Plugged {
			if err := st.FillAll(); err != nil {
				return err
			}
			if err := st.FreeSlot(index); err != nil {
				if !errors.Is(err, ErrUnmanagedSlot) {
					return err
				}
				// a real pad raced onto the wanted slot during the fill
				warn.Printf("ERROR: %v", err)
			}
			return nil
		}
	}
	// nothing to do
	return nil
}

// State returns the current state as a fixed-width row of per-slot symbols:
//
//	x  managed and plugged
//	N  unmanaged pad plugged on slot N
//	X  managed but not plugged (erroneous)
//	-  empty
func (st *SlotTable) State() string {
	b := strings.Builder{}
	b.WriteString("State:")
	for i, slot := range st.slots {
		state := byte('?')
		switch {
		case slot.Plugged && slot.Managed != nil:
			state = 'x'
		case slot.Plugged:
			state = byte('1' + i)
		case slot.Managed != nil:
			state = 'X' // erroneous
		default:
			state = '-'
		}
		fmt.Fprintf(&b, "  %c", state)
	}
	return b.String()
}

// PrintState logs the current state row.
func (st *SlotTable) PrintState() {
	info.Print(st.State())
}

func (st *SlotTable) describe(index int) string {
	if st.desc == nil {
		return ""
	}
	return st.desc.Describe(index)
}
