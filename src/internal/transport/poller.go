package transport

import (
	"context"
	"strings"
	"time"

	gopsutilnet "github.com/shirou/gopsutil/v3/net"
)

// PollInterval is the default spacing between Internet/USB interface
// scans.
const PollInterval = 5 * time.Second

// usbNameHints are the interface-name substrings platforms commonly use
// for USB-backed network adapters (tethering, ADB, RNDIS). There is no
// portable way to ask gopsutil "is this USB", so this is a naming-
// convention heuristic rather than a bus-topology query.
var usbNameHints = []string{"usb", "rndis", "android"}

// Poll runs until ctx is cancelled, periodically scanning network
// interfaces via gopsutil and feeding SetInternet/SetUSB. It is the
// pack-grounded replacement for an "exact event shape is an
// external contract" placeholder covering Internet and USB.
func Poll(ctx context.Context, t *Tracker, interval time.Duration) error {
	if interval <= 0 {
		interval = PollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	scanOnce(t)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			scanOnce(t)
		}
	}
}

func scanOnce(t *Tracker) {
	interfaces, err := gopsutilnet.Interfaces()
	if err != nil {
		return
	}

	internet, usb := classify(interfaces)
	t.SetInternet(internet)
	t.SetUSB(usb)
}

// classify reports whether any interface looks like an Internet uplink
// (up, non-loopback, carrying an address) and whether any interface
// looks USB-backed by name.
func classify(interfaces []gopsutilnet.InterfaceStat) (internet bool, usb bool) {
	for _, iface := range interfaces {
		if isLoopback(iface) {
			continue
		}

		up := hasFlag(iface, "up")
		if up && len(iface.Addrs) > 0 {
			internet = true
		}

		lower := strings.ToLower(iface.Name)
		for _, hint := range usbNameHints {
			if strings.Contains(lower, hint) {
				usb = true
				break
			}
		}
	}
	return internet, usb
}

func isLoopback(iface gopsutilnet.InterfaceStat) bool {
	return hasFlag(iface, "loopback")
}

func hasFlag(iface gopsutilnet.InterfaceStat, name string) bool {
	for _, f := range iface.Flags {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}
