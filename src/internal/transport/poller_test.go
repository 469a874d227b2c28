package transport

import (
	"testing"

	gopsutilnet "github.com/shirou/gopsutil/v3/net"
)

func TestClassify_LoopbackIgnored(t *testing.T) {
	interfaces := []gopsutilnet.InterfaceStat{
		{
			Name:  "lo",
			Flags: []string{"up", "loopback"},
			Addrs: []gopsutilnet.InterfaceAddr{{Addr: "127.0.0.1/8"}},
		},
	}

	internet, usb := classify(interfaces)
	if internet {
		t.Fatal("expected loopback to not count as an Internet uplink")
	}
	if usb {
		t.Fatal("expected loopback to not count as USB")
	}
}

func TestClassify_UpInterfaceWithAddressIsInternet(t *testing.T) {
	interfaces := []gopsutilnet.InterfaceStat{
		{
			Name:  "eth0",
			Flags: []string{"up", "broadcast"},
			Addrs: []gopsutilnet.InterfaceAddr{{Addr: "192.168.1.10/24"}},
		},
	}

	internet, usb := classify(interfaces)
	if !internet {
		t.Fatal("expected an up interface with an address to count as Internet")
	}
	if usb {
		t.Fatal("expected eth0 to not match the USB naming heuristic")
	}
}

func TestClassify_USBNameHeuristic(t *testing.T) {
	interfaces := []gopsutilnet.InterfaceStat{
		{Name: "usb0", Flags: []string{"up"}},
		{Name: "rndis0", Flags: []string{"down"}},
	}

	_, usb := classify(interfaces)
	if !usb {
		t.Fatal("expected usb0/rndis0 naming to match the USB heuristic")
	}
}

func TestClassify_DownInterfaceWithoutAddressIsNotInternet(t *testing.T) {
	interfaces := []gopsutilnet.InterfaceStat{
		{Name: "eth1", Flags: []string{"down"}},
	}

	internet, _ := classify(interfaces)
	if internet {
		t.Fatal("expected a down interface to not count as an Internet uplink")
	}
}
