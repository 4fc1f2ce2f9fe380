package capture

import (
	"encoding/json"
	"sync"

	"github.com/tphakala/dualcapture/internal/audiocore"
)

// SlotID names one of the two capture slots.
type SlotID int32

const (
	SlotA SlotID = iota
	SlotB
)

// Other returns the opposite slot.
func (id SlotID) Other() SlotID {
	return id ^ 1
}

func (id SlotID) String() string {
	if id == SlotA {
		return "A"
	}
	return "B"
}

// MarshalJSON encodes the slot as "A" or "B".
func (id SlotID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// SlotState is the fill state of a slot.
type SlotState int32

const (
	SlotEmpty SlotState = iota
	SlotPartial
	SlotFull
)

func (s SlotState) String() string {
	switch s {
	case SlotEmpty:
		return "empty"
	case SlotPartial:
		return "partial"
	case SlotFull:
		return "full"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the state by name.
func (s SlotState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// slot is a fixed-capacity sample buffer. All fields are guarded by mu.
type slot struct {
	mu     sync.Mutex
	data   []float32
	cursor int
	state  SlotState
}

// appendSamples copies up to the remaining capacity from raw (little-endian
// float32 bytes) or samples, whichever is non-nil, keeping the head of the
// input. It returns the number of samples written and dropped.
func (s *slot) appendSamples(raw []byte, samples []float32, n int) (written, dropped int) {
	written = min(n, len(s.data)-s.cursor)
	dst := s.data[s.cursor : s.cursor+written]
	if raw != nil {
		audiocore.DecodeFloat32LE(dst, raw)
	} else {
		copy(dst, samples)
	}
	s.cursor += written
	return written, n - written
}

// markWritten advances the fill state after a write. A full slot is never downgraded.
func (s *slot) markWritten(fullAt int) {
	switch {
	case s.cursor >= fullAt:
		s.state = SlotFull
	case s.state == SlotEmpty && s.cursor > 0:
		s.state = SlotPartial
	}
}

func (s *slot) clear() {
	s.cursor = 0
	s.state = SlotEmpty
}
