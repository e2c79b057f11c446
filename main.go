package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gousb"
)

// pollInterval is the cadence of the main reconciliation loop.
const pollInterval = 100 * time.Millisecond

// Progress goes to stdout, warnings and errors to stderr.
var (
	info = log.New(os.Stdout, "", 0)
	warn = log.New(os.Stderr, "", 0)
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [-list] [1-%d]\n", os.Args[0], MaxPlayers)
}

// parseTarget parses the single optional positional argument: a one-digit
// slot number in 1..MaxPlayers. Absent defaults to slot 1.
func parseTarget(args []string) (int, error) {
	switch len(args) {
	case 0:
		return 0, nil
	case 1:
		arg := args[0]
		if len(arg) == 1 && arg[0] >= '1' && arg[0] < '1'+MaxPlayers {
			return int(arg[0] - '1'), nil
		}
		return 0, fmt.Errorf("invalid slot: %q", arg)
	default:
		return 0, fmt.Errorf("too many arguments")
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	listMode := flag.Bool("list", false, "list attached physical pads and exit")
	flag.Usage = usage
	flag.Parse()

	target, err := parseTarget(flag.Args())
	if err != nil {
		usage()
		return 2
	}

	if *listMode {
		ctx := gousb.NewContext()
		defer ctx.Close()
		if err := ListPads(ctx); err != nil {
			warn.Printf("FATAL: %v", err)
			return 1
		}
		return 0
	}

	bus, err := OpenPadBus()
	if err != nil {
		warn.Printf("FATAL: %v", err)
		return 1
	}
	defer bus.Close()

	ctx := gousb.NewContext()
	defer ctx.Close()

	// Release the virtual pads on SIGINT/SIGTERM too: forceSlot watches the
	// channel and returns, so the deferred teardown runs exactly once. A pad
	// left registered keeps its slot occupied until its fd owner dies.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	pads := NewSlotTable(NewJoydevProber(), bus, NewPadDescriber(ctx))

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	switch err := forceSlot(pads, target, ticker.C, sigChan); {
	case err == nil:
		return 0
	case errors.Is(err, errInterrupted):
		return 1
	default:
		warn.Printf("FATAL: %v", err)
		return 1
	}
}

var errInterrupted = errors.New("interrupted")

// forceSlot drives the slot table until the wanted slot is occupied by a
// real pad. If the slot is already plugged nothing is filled at all. The
// loop runs until success, a fatal error, or a receive on stop.
func forceSlot(pads *SlotTable, target int, tick <-chan time.Time, stop <-chan os.Signal) error {
	pads.PrintState()

	if pads.Plugged(target) {
		info.Printf("Pad %d already plugged", target+1)
		return nil
	}

	if err := pads.FillAllButOne(target); err != nil {
		return err
	}
	info.Printf("Waiting pad on slot %d...", target+1)
	pads.PrintState()

	for {
		select {
		case <-stop:
			return errInterrupted
		case <-tick:
		}

		if !pads.Refresh() {
			continue
		}
		if pads.Plugged(target) {
			return nil
		}
		// fill again, in case an unmanaged pad has been unplugged
		if err := pads.FillAllButOne(target); err != nil {
			return err
		}
		pads.PrintState()
	}
}
