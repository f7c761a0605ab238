package rgbdt

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Output file kinds written on every iteration.
const (
	KindColor        = "rgb"
	KindDepth        = "depth"
	KindAlignedDepth = "aligned_depth"
	KindThermalIT    = "thermal_it"
	KindThermalRGB   = "thermal_rgb"
	KindAlignedRaw   = "bin_aligned_depth"
)

// Session is the output directory of one run. It is named by the wall clock
// time in milliseconds when the run started.
type Session struct {
	Dir     string
	Started time.Time
}

// NewSession creates the session directory under root. It fails if the
// directory already exists so two runs never share a session.
func NewSession(root string, now time.Time) (*Session, error) {
	if root == "" {
		root = "."
	}
	dir := filepath.Join(root, strconv.FormatInt(now.UnixMilli(), 10))
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output root: %w", err)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &Session{Dir: dir, Started: now}, nil
}

// Path returns <dir>/<kind>_<id>.<ext>.
func (s *Session) Path(kind string, id int, ext string) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%d.%s", kind, id, ext))
}
