package boardlink

import "errors"

// Port level errors
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
	ErrPortClosed       = errors.New("serial port is closed")
	ErrReadTimeout      = errors.New("read operation timed out")

	// USB-related errors
	ErrUSBInfoNotAvailable  = errors.New("USB device information not available")
	ErrUSBResetNotAvailable = errors.New("usbreset utility not available")
)

// Connection workflow errors. Only ErrTransportFailure and an explicit disconnect
// tear a session down; the rest leave the workflow in a continuable state.
var (
	ErrPlatformUnavailable  = errors.New("serial access is not available on this host")
	ErrSelectionCancelled   = errors.New("device selection cancelled")
	ErrOpen                 = errors.New("unable to open serial device")
	ErrTransportFailure     = errors.New("serial transport failure")
	ErrSendFailure          = errors.New("serial send failed")
	ErrIdentityProbeFailure = errors.New("device identity probe failed")
)
