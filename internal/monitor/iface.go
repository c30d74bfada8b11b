package monitor

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/netwatch/backend/internal/netstate"
	psnet "github.com/shirou/gopsutil/v3/net"
)

// InterfaceLister returns the host's network interfaces.
type InterfaceLister func(ctx context.Context) (psnet.InterfaceStatList, error)

// InterfaceProviderOptions configures an InterfaceProvider. Zero fields fall
// back to the live system paths and gopsutil.
type InterfaceProviderOptions struct {
	Filter    func(name string) bool // nil admits every non-loopback interface
	SysNetDir string                 // default /sys/class/net
	RouteFile string                 // default /proc/net/route
	Lister    InterfaceLister        // default gopsutil net.InterfacesWithContext
}

// InterfaceProvider derives the active connection from the host's interface
// table. The interface carrying the IPv4 default route is preferred;
// otherwise the first up interface with a routable address is used.
//
// Linux exposes no uniform radio-technology code for cellular modems, so
// mobile snapshots report RadioUnknown.
type InterfaceProvider struct {
	filter    func(name string) bool
	sysNetDir string
	routeFile string
	lister    InterfaceLister
}

func NewInterfaceProvider(opts InterfaceProviderOptions) *InterfaceProvider {
	p := &InterfaceProvider{
		filter:    opts.Filter,
		sysNetDir: opts.SysNetDir,
		routeFile: opts.RouteFile,
		lister:    opts.Lister,
	}
	if p.sysNetDir == "" {
		p.sysNetDir = "/sys/class/net"
	}
	if p.routeFile == "" {
		p.routeFile = "/proc/net/route"
	}
	if p.lister == nil {
		p.lister = psnet.InterfacesWithContext
	}
	return p
}

func (p *InterfaceProvider) Name() string { return "interfaces" }

func (p *InterfaceProvider) ActiveConnection(ctx context.Context) (*netstate.Snapshot, error) {
	ifaces, err := p.candidates(ctx)
	if err != nil {
		return nil, err
	}
	active := p.pickActive(ifaces)
	if active == nil {
		return nil, nil
	}
	snap := &netstate.Snapshot{
		Connected: isUp(*active) && hasRoutableAddr(*active),
		Medium:    p.mediumOf(active.Name),
		Interface: active.Name,
	}
	return snap, nil
}

// Fingerprint summarizes the state of every candidate interface plus the
// default route. It changes whenever anything the provider looks at changes.
func (p *InterfaceProvider) Fingerprint(ctx context.Context) (string, error) {
	ifaces, err := p.candidates(ctx)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(ifaces)+1)
	for _, iface := range ifaces {
		addrs := make([]string, 0, len(iface.Addrs))
		for _, a := range iface.Addrs {
			addrs = append(addrs, a.Addr)
		}
		sort.Strings(addrs)
		flags := append([]string(nil), iface.Flags...)
		sort.Strings(flags)
		parts = append(parts, fmt.Sprintf("%s[%s](%s)", iface.Name, strings.Join(flags, ","), strings.Join(addrs, ",")))
	}
	sort.Strings(parts)
	parts = append(parts, "route="+p.defaultRouteInterface())
	return strings.Join(parts, ";"), nil
}

func (p *InterfaceProvider) candidates(ctx context.Context) (psnet.InterfaceStatList, error) {
	all, err := p.lister(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing interfaces: %w", err)
	}
	var out psnet.InterfaceStatList
	for _, iface := range all {
		if hasFlag(iface, "loopback") {
			continue
		}
		if p.filter != nil && !p.filter(iface.Name) {
			continue
		}
		out = append(out, iface)
	}
	return out, nil
}

func (p *InterfaceProvider) pickActive(ifaces psnet.InterfaceStatList) *psnet.InterfaceStat {
	if route := p.defaultRouteInterface(); route != "" {
		for i := range ifaces {
			if ifaces[i].Name == route {
				return &ifaces[i]
			}
		}
	}
	for i := range ifaces {
		if isUp(ifaces[i]) && hasRoutableAddr(ifaces[i]) {
			return &ifaces[i]
		}
	}
	// An interface that is up but has no address yet is an active
	// connection that is not connected.
	for i := range ifaces {
		if isUp(ifaces[i]) {
			return &ifaces[i]
		}
	}
	return nil
}

// defaultRouteInterface reads the kernel routing table and returns the
// interface of the first IPv4 default route, or "" if none is found.
func (p *InterfaceProvider) defaultRouteInterface() string {
	f, err := os.Open(p.routeFile)
	if err != nil {
		return ""
	}
	defer f.Close()
	return parseDefaultRoute(bufio.NewScanner(f))
}

const rtfUp = 0x1

func parseDefaultRoute(sc *bufio.Scanner) string {
	first := true
	for sc.Scan() {
		if first {
			first = false
			continue // header
		}
		// Iface Destination Gateway Flags RefCnt Use Metric Mask ...
		fields := strings.Fields(sc.Text())
		if len(fields) < 8 || fields[1] != "00000000" || fields[7] != "00000000" {
			continue
		}
		flags, err := strconv.ParseUint(fields[3], 16, 32)
		if err != nil || flags&rtfUp == 0 {
			continue
		}
		return fields[0]
	}
	return ""
}

// mediumOf classifies an interface by its sysfs entries, falling back to
// well-known name prefixes.
func (p *InterfaceProvider) mediumOf(name string) netstate.Medium {
	dir := filepath.Join(p.sysNetDir, name)
	if exists(filepath.Join(dir, "wireless")) || exists(filepath.Join(dir, "phy80211")) {
		return netstate.MediumWifi
	}
	if data, err := os.ReadFile(filepath.Join(dir, "uevent")); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			switch strings.TrimSpace(line) {
			case "DEVTYPE=wlan":
				return netstate.MediumWifi
			case "DEVTYPE=wwan":
				return netstate.MediumMobile
			}
		}
	}
	for _, prefix := range []string{"wwan", "rmnet", "ccmni", "wwp"} {
		if strings.HasPrefix(name, prefix) {
			return netstate.MediumMobile
		}
	}
	if strings.HasPrefix(name, "wl") {
		return netstate.MediumWifi
	}
	return netstate.MediumOther
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func hasFlag(iface psnet.InterfaceStat, flag string) bool {
	for _, f := range iface.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

func isUp(iface psnet.InterfaceStat) bool {
	return hasFlag(iface, "up")
}

// hasRoutableAddr reports whether the interface holds an address other than
// loopback or link-local.
func hasRoutableAddr(iface psnet.InterfaceStat) bool {
	for _, a := range iface.Addrs {
		ip, _, err := net.ParseCIDR(a.Addr)
		if err != nil {
			ip = net.ParseIP(a.Addr)
		}
		if ip == nil {
			continue
		}
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			continue
		}
		return true
	}
	return false
}
