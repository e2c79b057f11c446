package main

import (
	"fmt"
	"path/filepath"

	"github.com/google/gousb"
)

// Vendors whose devices are recognized as gamepads.
var padVendors = map[gousb.ID]string{
	0x045e: "Microsoft",
	0x046d: "Logitech",
	0x054c: "Sony",
	0x057e: "Nintendo",
	0x28de: "Valve",
	0x2dc8: "8BitDo",
}

// PadDescriber resolves the physical USB device behind a joystick slot.
// Identity detail is decoration for plug-event logs, never load-bearing:
// every failure degrades to "not identified".
type PadDescriber struct {
	ctx  *gousb.Context
	Root string // sysfs input class directory
}

func NewPadDescriber(ctx *gousb.Context) *PadDescriber {
	return &PadDescriber{ctx: ctx, Root: "/sys/class/input"}
}

// Describe returns a short identity string ("Nintendo 057e:2009") for the
// pad on the given slot, or "" when none can be established. Virtual pads
// have no USB ancestor in sysfs and always yield "".
func (pd *PadDescriber) Describe(index int) string {
	start := filepath.Join(pd.Root, fmt.Sprintf("js%d", index), "device")
	bus, addr, err := usbAddress(start)
	if err != nil {
		return ""
	}

	devs, _ := pd.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Bus == bus && desc.Address == addr
	})
	for _, dev := range devs {
		defer dev.Close()
	}
	if len(devs) == 0 {
		return ""
	}

	desc := devs[0].Desc
	s := fmt.Sprintf("%s:%s", desc.Vendor, desc.Product)
	if name, ok := padVendors[desc.Vendor]; ok {
		s = name + " " + s
	}
	return s
}

// usbAddress walks up the sysfs tree from startPath until it finds the
// busnum/devnum files of a USB device.
func usbAddress(startPath string) (bus, addr int, err error) {
	dir, err := filepath.EvalSymlinks(startPath)
	if err != nil {
		return 0, 0, err
	}

	// sysfs is finite but limit the depth anyway
	for i := 0; i < 6; i++ {
		busFile := filepath.Join(dir, "busnum")
		devFile := filepath.Join(dir, "devnum")
		if exists(busFile) && exists(devFile) {
			if bus, err = readIntFile(busFile); err != nil {
				return 0, 0, err
			}
			if addr, err = readIntFile(devFile); err != nil {
				return 0, 0, err
			}
			return bus, addr, nil
		}

		dir = filepath.Clean(filepath.Join(dir, ".."))
		if dir == "/" || dir == "." {
			break
		}
	}
	return 0, 0, fmt.Errorf("no USB device above %s", startPath)
}

// ListPads prints the physical controllers currently attached to the USB
// bus, one line each.
func ListPads(ctx *gousb.Context) error {
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		_, ok := padVendors[desc.Vendor]
		return ok
	})
	for _, dev := range devs {
		defer dev.Close()
	}
	if err != nil && len(devs) == 0 {
		return fmt.Errorf("scanning USB: %w", err)
	}

	if len(devs) == 0 {
		info.Print("No pad attached")
		return nil
	}
	for _, dev := range devs {
		desc := dev.Desc
		detail := ""
		if product, err := dev.Product(); err == nil && product != "" {
			detail = " " + product
		}
		info.Printf("%s %s:%s (bus %d addr %d)%s",
			padVendors[desc.Vendor], desc.Vendor, desc.Product, desc.Bus, desc.Address, detail)
	}
	return nil
}
