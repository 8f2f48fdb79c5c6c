package boardlink

import (
	"strings"
)

// PortInfo describes a serial port and, for USB devices, the device behind it
type PortInfo struct {
	Name            string
	Path            string
	Description     string
	VendorID        string
	ProductID       string
	SerialNumber    string
	InterfaceNumber string
	BusNumber       string
	DeviceNumber    string
	Manufacturer    string
	Product         string
}

// IsUSB reports whether USB metadata was found for the port
func (i PortInfo) IsUSB() bool {
	return i.VendorID != "" && i.ProductID != ""
}

// Key identifies the device across re-enumeration. USB devices with a serial
// number keep their key when the tty path changes; everything else is keyed by path.
func (i PortInfo) Key() string {
	if i.IsUSB() && i.SerialNumber != "" {
		return strings.ToUpper(i.VendorID + ":" + i.ProductID + ":" + i.SerialNumber)
	}
	return i.Path
}

// Label is a short human readable name for choosers and logs
func (i PortInfo) Label() string {
	switch {
	case i.Product != "" && i.Manufacturer != "":
		return i.Manufacturer + " " + i.Product
	case i.Product != "":
		return i.Product
	case i.Description != "":
		return i.Description
	default:
		return i.Name
	}
}

// getPortDescription provides human-readable descriptions for different port types
func getPortDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	case strings.HasPrefix(name, "cu.usbmodem"), strings.HasPrefix(name, "COM"):
		return "USB CDC/ACM Device"
	default:
		return "Serial Port"
	}
}
