//go:build !linux && !darwin && !freebsd && !openbsd && !dragonfly && !solaris && !illumos && !netbsd && !windows

package diskspace

import "errors"

// Free is not implemented on this platform.
func Free(path string) (uint64, error) {
	return 0, errors.ErrUnsupported
}
