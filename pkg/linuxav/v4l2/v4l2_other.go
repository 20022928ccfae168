//go:build !linux

package v4l2

// Supported reports false outside Linux.
func Supported() bool { return false }

// FindDevices reports ErrUnsupported outside Linux.
func FindDevices() ([]DeviceInfo, error) { return nil, ErrUnsupported }

// QueryDevice reports ErrUnsupported outside Linux.
func QueryDevice(string) (DeviceInfo, error) { return DeviceInfo{}, ErrUnsupported }

// GetDevicePathByID reports ErrUnsupported outside Linux.
func GetDevicePathByID(string) (string, error) { return "", ErrUnsupported }

// ListCandidates reports ErrUnsupported outside Linux.
func ListCandidates(string) ([]Candidate, error) { return nil, ErrUnsupported }

// CheckAccess reports ErrUnsupported outside Linux.
func CheckAccess(string) error { return ErrUnsupported }
