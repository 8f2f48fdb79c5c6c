// Package boardlink connects a host to a locally attached microcontroller board over
// its USB serial link.
//
// The root package is the tty layer: it opens a port exclusively at the fixed link
// speed (115200 8N1, DTR asserted) and exposes blocking, cancellable reads and
// writes. The connection workflow built on top of it lives in internal/ and is
// driven by the boardlink command.
//
// # Basic Usage
//
//	port, err := boardlink.Open("/dev/ttyACM0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	n, err := port.Write([]byte("print('hi')\r\n"))
//	buffer := make([]byte, 256)
//	n, err = port.ReadContext(ctx, buffer)
//
// ReadContext returns io.EOF once the device hangs up, which is how an unplugged
// cable surfaces.
//
// # Port Discovery
//
//	ports, err := boardlink.ListPorts()
//	for _, portPath := range ports {
//	    info, _ := boardlink.GetPortInfo(portPath)
//	    fmt.Printf("%s: %s (key %s)\n", info.Path, info.Label(), info.Key())
//	}
//
// On linux USB metadata comes from sysfs; other hosts use the go.bug.st/serial
// enumerator.
//
// # Error Handling
//
// Port errors wrap ErrDeviceNotFound, ErrDeviceInUse or ErrPermissionDenied and
// are checked with errors.Is. The workflow level taxonomy (ErrPlatformUnavailable,
// ErrSelectionCancelled, ErrOpen, ErrTransportFailure, ErrSendFailure,
// ErrIdentityProbeFailure) is declared here so every layer shares it.
package boardlink
