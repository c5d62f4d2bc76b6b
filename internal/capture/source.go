// Frame source adapters over OpenCV capture devices and video files.
// The engine core consumes image.Image; this package is the only place
// that touches gocv.
package capture

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Source yields frames from a live camera or a video file as image.Image.
// A Source is not safe for concurrent use.
type Source struct {
	cap   *gocv.VideoCapture
	mat   gocv.Mat
	label string
}

// Device opens a capture device by index (0 is the default camera).
func Device(id int) (*Source, error) {
	cap, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, fmt.Errorf("open capture device %d: %w", id, err)
	}
	return &Source{cap: cap, mat: gocv.NewMat(), label: fmt.Sprintf("device:%d", id)}, nil
}

// File opens a video file as a frame source.
func File(path string) (*Source, error) {
	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video file %q: %w", path, err)
	}
	return &Source{cap: cap, mat: gocv.NewMat(), label: "file:" + path}, nil
}

// Label identifies the source for logging.
func (s *Source) Label() string { return s.label }

// Read grabs the next frame. It returns an error when the device stops
// delivering frames or the stream ends.
func (s *Source) Read() (image.Image, error) {
	if ok := s.cap.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, fmt.Errorf("%s: no frame available", s.label)
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%s: convert frame: %w", s.label, err)
	}
	return img, nil
}

// Close releases the underlying capture resources.
func (s *Source) Close() error {
	s.mat.Close()
	if err := s.cap.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.label, err)
	}
	return nil
}
