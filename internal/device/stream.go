package device

import (
	"sync"

	"codeberg.org/mutker/thermloop/internal/errors"
)

// Stream is the depth stream of a sensor. The thermal monitor only asks it
// whether it is open.
type Stream struct {
	name string

	mu     sync.RWMutex
	open   bool
	closed bool
}

func NewStream(name string) *Stream {
	return &Stream{name: name}
}

func (s *Stream) Name() string {
	return s.name
}

func (s *Stream) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New().WithData(ErrDeviceClosed, s.name)
	}
	s.open = true
	return nil
}

func (s *Stream) Close() {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
}

func (s *Stream) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

// shutdown closes the stream for good.
func (s *Stream) shutdown() {
	s.mu.Lock()
	s.open = false
	s.closed = true
	s.mu.Unlock()
}
