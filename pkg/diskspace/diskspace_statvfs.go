//go:build solaris || illumos || netbsd

package diskspace

import "golang.org/x/sys/unix"

// Free returns the number of bytes available to unprivileged users.
func Free(path string) (uint64, error) {
	var st unix.Statvfs_t
	if err := unix.Statvfs(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Bavail) * uint64(st.Frsize), nil
}
