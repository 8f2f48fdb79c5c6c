//go:build !linux

package boardlink

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"

	"go.bug.st/serial/enumerator"
)

// DeviceDir is the directory hotplug watchers watch. Empty where ports are not
// files (windows).
func DeviceDir() string {
	if runtime.GOOS == "windows" {
		return ""
	}
	return "/dev"
}

// ListPorts returns the serial ports reported by the OS, sorted
func ListPorts() ([]string, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerating ports: %w", err)
	}
	ports := make([]string, 0, len(details))
	for _, d := range details {
		if d == nil {
			continue
		}
		ports = append(ports, d.Name)
	}
	sort.Strings(ports)
	return ports, nil
}

// GetPortInfo returns detailed information about a specific port
func GetPortInfo(portPath string) (*PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerating ports: %w", err)
	}
	for _, d := range details {
		if d == nil || d.Name != portPath {
			continue
		}
		name := filepath.Base(d.Name)
		info := &PortInfo{
			Name:        name,
			Path:        d.Name,
			Description: getPortDescription(name),
		}
		if d.IsUSB {
			info.VendorID = d.VID
			info.ProductID = d.PID
			info.SerialNumber = d.SerialNumber
			info.Product = d.Product
		}
		return info, nil
	}
	return nil, ErrDeviceNotFound
}
