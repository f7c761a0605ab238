//go:build integration

package videocap

import "testing"

func TestReadFrame(t *testing.T) {
	c, err := Open(0, Options{Width: 640, Height: 480})
	if err != nil {
		t.Skipf("no video device: %v", err)
	}
	defer c.Close()
	for i := 0; i < 3; i++ {
		img, err := c.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		if img.Bounds().Empty() {
			t.Errorf("frame %d is empty", i)
		}
	}
}
