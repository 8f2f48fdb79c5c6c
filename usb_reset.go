package boardlink

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// reenumerateDelay is how long a reset device typically needs to come back
var reenumerateDelay = 2 * time.Second

// ResetUSBDevice performs a USB-level reset of the board behind portPath. This can
// recover a board whose USB stack hung without physically unplugging it.
//
// Requires the usbreset utility (usbutils) and, usually, root.
func ResetUSBDevice(ctx context.Context, portPath string) error {
	info, err := GetPortInfo(portPath)
	if err != nil {
		return fmt.Errorf("failed to get port info: %w", err)
	}

	if info.BusNumber == "" || info.DeviceNumber == "" {
		return ErrUSBInfoNotAvailable
	}

	if !IsUSBResetAvailable() {
		return ErrUSBResetNotAvailable
	}

	cmd := exec.CommandContext(ctx, "usbreset", usbDevicePath(info.BusNumber, info.DeviceNumber))
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("usbreset failed: %w (output: %s)", err, string(output))
	}

	select {
	case <-time.After(reenumerateDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// ResetUSBDeviceByKey resets the board whose PortInfo.Key matches key
func ResetUSBDeviceByKey(ctx context.Context, key string) error {
	ports, err := ListPorts()
	if err != nil {
		return err
	}

	for _, portPath := range ports {
		info, err := GetPortInfo(portPath)
		if err != nil {
			continue
		}
		if strings.EqualFold(info.Key(), key) || info.SerialNumber == key {
			return ResetUSBDevice(ctx, portPath)
		}
	}

	return fmt.Errorf("device %s not found", key)
}

// IsUSBResetAvailable checks if usbreset utility is available in PATH
func IsUSBResetAvailable() bool {
	_, err := exec.LookPath("usbreset")
	return err == nil
}

// usbDevicePath formats bus/device numbers the way usbreset expects (BBB/DDD)
func usbDevicePath(bus, device string) string {
	return leftPad(bus, 3) + "/" + leftPad(device, 3)
}

func leftPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
