package capture

// SlotStats is a point-in-time view of one slot.
type SlotStats struct {
	Slot   SlotID    `json:"slot"`
	Cursor int       `json:"cursor"`
	State  SlotState `json:"state"`
}

// Stats is a snapshot of engine state and cumulative counters. Slots are read
// one lock at a time, so the two slot views may be from slightly different instants.
type Stats struct {
	EngineID    string       `json:"engine_id"`
	Config      Config       `json:"config"`
	Initialized bool         `json:"initialized"`
	Running     bool         `json:"running"`
	Buffered    bool         `json:"buffered"`
	ActiveSlot  SlotID       `json:"active_slot"`
	Slots       [2]SlotStats `json:"slots"`

	SamplesReceived  uint64 `json:"samples_received"`  // whole samples delivered while running
	SamplesWritten   uint64 `json:"samples_written"`   // samples stored in a slot
	SamplesOverflow  uint64 `json:"samples_overflow"`  // dropped because the target slot was full
	SamplesOversize  uint64 `json:"samples_oversize"`  // dropped from the head of chunks larger than a slot
	SamplesContended uint64 `json:"samples_contended"` // dropped after repeated concurrent hand-offs
	Pulls            uint64 `json:"pulls"`             // successful drains
	PullMisses       uint64 `json:"pull_misses"`       // pulls that found too few samples
	SamplesPulled    uint64 `json:"samples_pulled"`
}

// SamplesDropped is the total of all dropped samples.
func (s *Stats) SamplesDropped() uint64 {
	return s.SamplesOverflow + s.SamplesOversize + s.SamplesContended
}

// Stats returns a snapshot of the engine.
func (e *Engine) Stats() Stats {
	st := Stats{
		EngineID:         e.id,
		Config:           e.Config(),
		Initialized:      e.initialized.Load(),
		Running:          e.running.Load(),
		Buffered:         e.buffered.Load(),
		ActiveSlot:       SlotID(e.active.Load()),
		SamplesReceived:  e.counters.received.Load(),
		SamplesWritten:   e.counters.written.Load(),
		SamplesOverflow:  e.counters.overflow.Load(),
		SamplesOversize:  e.counters.oversize.Load(),
		SamplesContended: e.counters.contended.Load(),
		Pulls:            e.counters.pulls.Load(),
		PullMisses:       e.counters.misses.Load(),
		SamplesPulled:    e.counters.pulled.Load(),
	}
	for i := range e.slots {
		s := &e.slots[i]
		s.mu.Lock()
		st.Slots[i] = SlotStats{Slot: SlotID(i), Cursor: s.cursor, State: s.state}
		s.mu.Unlock()
	}
	return st
}
