package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// JoydevProber answers whether a joystick device currently exists for a
// given slot index, from the jsN entries in the sysfs input class. joydev
// hands a new gamepad the lowest free minor, so the jsN number is the
// player slot.
type JoydevProber struct {
	Root string // sysfs input class directory
}

func NewJoydevProber() *JoydevProber {
	return &JoydevProber{Root: "/sys/class/input"}
}

// Plugged reports whether a controller answers at the given slot.
func (p *JoydevProber) Plugged(index int) bool {
	if index < 0 || index >= MaxPlayers {
		return false
	}
	return exists(filepath.Join(p.Root, fmt.Sprintf("js%d", index)))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func readIntFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
