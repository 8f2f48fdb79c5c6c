//go:build linux

package boardlink

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestReadSysfsFile tests the sysfs file reading helper
func TestReadSysfsFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		expected string
		setup    func(string) error
	}{
		{
			name:     "normal file",
			expected: "1234",
			setup: func(path string) error {
				return os.WriteFile(path, []byte("1234\n"), 0644)
			},
		},
		{
			name:     "file with spaces",
			expected: "test value",
			setup: func(path string) error {
				return os.WriteFile(path, []byte("  test value  \n"), 0644)
			},
		},
		{
			name:     "nonexistent file",
			expected: "",
			setup:    func(path string) error { return nil },
		},
		{
			name:     "empty file",
			expected: "",
			setup: func(path string) error {
				return os.WriteFile(path, []byte(""), 0644)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testFile := filepath.Join(tmpDir, tt.name)
			if err := tt.setup(testFile); err != nil {
				t.Fatalf("Setup failed: %v", err)
			}

			result := readSysfsFile(testFile)
			if result != tt.expected {
				t.Errorf("readSysfsFile() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

// mockSysfs builds class/tty/<name>/device -> devices/usb1/1-2/1-2:1.0[/<name>]
// and returns the USB device directory.
func mockSysfs(t *testing.T, root, name string, nested bool) string {
	t.Helper()

	devicePath := filepath.Join(root, "devices", "usb1", "1-2")
	interfacePath := filepath.Join(devicePath, "1-2:1.0")
	target := interfacePath
	if nested {
		target = filepath.Join(interfacePath, name)
	}
	classTtyPath := filepath.Join(root, "class", "tty", name)

	for _, dir := range []string{target, classTtyPath} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	deviceFiles := map[string]string{
		"idVendor":     "239a",
		"idProduct":    "80f4",
		"serial":       "DF625857C74F3B2C",
		"manufacturer": "Raspberry Pi",
		"product":      "Pico",
		"busnum":       "1",
		"devnum":       "14",
	}
	for filename, content := range deviceFiles {
		if err := os.WriteFile(filepath.Join(devicePath, filename), []byte(content+"\n"), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", filename, err)
		}
	}
	if err := os.WriteFile(filepath.Join(interfacePath, "bInterfaceNumber"), []byte("00\n"), 0644); err != nil {
		t.Fatalf("Failed to write interface number: %v", err)
	}
	if err := os.Symlink(target, filepath.Join(classTtyPath, "device")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}
	return devicePath
}

// TestEnrichUSBInfo tests USB metadata extraction for both ttyACM and ttyUSB layouts
func TestEnrichUSBInfo(t *testing.T) {
	for _, tc := range []struct {
		name   string
		nested bool
	}{
		{"ttyACM0", false},
		{"ttyUSB0", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			mockSysfs(t, root, tc.name, tc.nested)

			prev := sysClassTTY
			sysClassTTY = filepath.Join(root, "class", "tty")
			defer func() { sysClassTTY = prev }()

			info := &PortInfo{Name: tc.name, Path: "/dev/" + tc.name}
			enrichUSBInfo(info)

			tests := []struct {
				name     string
				got      string
				expected string
			}{
				{"VendorID", info.VendorID, "239a"},
				{"ProductID", info.ProductID, "80f4"},
				{"SerialNumber", info.SerialNumber, "DF625857C74F3B2C"},
				{"InterfaceNumber", info.InterfaceNumber, "00"},
				{"BusNumber", info.BusNumber, "1"},
				{"DeviceNumber", info.DeviceNumber, "14"},
				{"Manufacturer", info.Manufacturer, "Raspberry Pi"},
				{"Product", info.Product, "Pico"},
			}
			for _, tt := range tests {
				if tt.got != tt.expected {
					t.Errorf("%s = %q, expected %q", tt.name, tt.got, tt.expected)
				}
			}
			if info.Key() != "239A:80F4:DF625857C74F3B2C" {
				t.Errorf("Key() = %q", info.Key())
			}
		})
	}
}

// TestEnrichUSBInfoGracefulFailure tests that enrichUSBInfo handles missing files gracefully
func TestEnrichUSBInfoGracefulFailure(t *testing.T) {
	prev := sysClassTTY
	sysClassTTY = t.TempDir()
	defer func() { sysClassTTY = prev }()

	info := &PortInfo{Name: "ttyUSB999", Path: "/dev/ttyUSB999"}
	enrichUSBInfo(info)

	if info.VendorID != "" || info.ProductID != "" || info.SerialNumber != "" {
		t.Errorf("USB fields should be empty, got %+v", info)
	}
	if info.Key() != "/dev/ttyUSB999" {
		t.Errorf("Key() should fall back to the path, got %q", info.Key())
	}
}

func TestUSBDevicePath(t *testing.T) {
	tests := []struct {
		bus      string
		device   string
		expected string
	}{
		{"5", "7", "005/007"},
		{"1", "2", "001/002"},
		{"123", "456", "123/456"},
		{"1", "10", "001/010"},
	}

	for _, tt := range tests {
		if got := usbDevicePath(tt.bus, tt.device); got != tt.expected {
			t.Errorf("usbDevicePath(%q, %q) = %q, expected %q", tt.bus, tt.device, got, tt.expected)
		}
	}
}

func TestResetUSBDeviceByKeyNotFound(t *testing.T) {
	err := ResetUSBDeviceByKey(context.Background(), "NONEXISTENT_SERIAL")
	if err == nil {
		t.Fatal("Expected error for nonexistent key")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected 'not found' error, got: %v", err)
	}
}

func TestAvailable(t *testing.T) {
	if err := Available(); err != nil {
		t.Errorf("linux hosts with /dev should be available, got %v", err)
	}

	prev := devDir
	devDir = filepath.Join(t.TempDir(), "missing")
	defer func() { devDir = prev }()

	if err := Available(); err == nil {
		t.Error("Expected ErrPlatformUnavailable without a device directory")
	}
}
