package display

import (
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"wordclock-service/internal/logger"
)

const frameDevicePath = "/dev/spidev0.0"

// FrameWriter pushes a rendered frame to the LED matrix. The state mask
// selects lit words; blink bits flash at the display controller's rate.
type FrameWriter interface {
	WriteFrame(state, blink uint32) error
}

// DeviceFrameWriter shifts frames out over the SPI device feeding the
// LED driver chain. Frames are two little-endian words: state, blink.
type DeviceFrameWriter struct {
	logger *logger.Logger
	mu     sync.Mutex
	path   string
	fd     int
}

func NewDeviceFrameWriter(log *logger.Logger) *DeviceFrameWriter {
	return &DeviceFrameWriter{
		logger: log.WithTag("FrameWriter"),
		path:   frameDevicePath,
		fd:     -1,
	}
}

func (w *DeviceFrameWriter) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	fd, err := unix.Open(w.path, unix.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open frame device %s: %w", w.path, err)
	}
	w.fd = fd
	w.logger.Debugf("Opened frame device %s", w.path)
	return nil
}

func (w *DeviceFrameWriter) WriteFrame(state, blink uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fd < 0 {
		return fmt.Errorf("frame device not open")
	}

	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], state)
	binary.LittleEndian.PutUint32(buf[4:8], blink)

	for offset := 0; offset < len(buf); {
		written, err := unix.Write(w.fd, buf[offset:])
		if err != nil {
			return fmt.Errorf("failed to write frame: %w", err)
		}
		offset += written
	}
	return nil
}

func (w *DeviceFrameWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fd >= 0 {
		unix.Close(w.fd)
		w.fd = -1
	}
}

// NullFrameWriter drops frames. Used when running without the matrix
// attached.
type NullFrameWriter struct{}

func (NullFrameWriter) WriteFrame(state, blink uint32) error { return nil }
