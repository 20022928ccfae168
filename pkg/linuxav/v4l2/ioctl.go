//go:build linux

package v4l2

import (
	"syscall"
	"unsafe"
)

func ioctl(fd int, req uint, arg unsafe.Pointer) error {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func openDevice(path string) (int, error) {
	return syscall.Open(path, syscall.O_RDWR|syscall.O_NONBLOCK|syscall.O_CLOEXEC, 0)
}

func closeDevice(fd int) error {
	return syscall.Close(fd)
}

// access(2) mode bits.
const (
	accessRead  = 0x4
	accessWrite = 0x2
)

// CheckAccess reports whether the process may open devicePath read-write.
// It does not open the device.
func CheckAccess(devicePath string) error {
	return syscall.Access(devicePath, accessRead|accessWrite)
}
