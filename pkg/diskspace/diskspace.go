// Package diskspace reports the free space of the filesystem holding a path.
package diskspace

import (
	"errors"
	"fmt"
)

var ErrInsufficient = errors.New("not enough free disk space")

var freeSpace = Free

// Check returns ErrInsufficient if fewer than min bytes are available to the
// current user at path. Platforms without a free space query always pass.
func Check(path string, min uint64) error {
	free, err := freeSpace(path)
	if errors.Is(err, errors.ErrUnsupported) {
		return nil
	}
	if err != nil {
		return err
	}
	if free < min {
		return fmt.Errorf("%w: %s has %d MiB free, want %d MiB", ErrInsufficient, path, free>>20, min>>20)
	}
	return nil
}
