//go:build !linux

package affinity

import "errors"

// ErrUnsupported is returned on platforms without thread affinity support
var ErrUnsupported = errors.New("cpu affinity is only supported on linux")

// Set is not supported on this platform
func Set(mask uintptr) error {
	return ErrUnsupported
}

// Get is not supported on this platform
func Get() (uintptr, error) {
	return 0, ErrUnsupported
}
