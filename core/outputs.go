package core

import (
	"encoding/json"
	"sync"
)

// Outputs is an insertion-ordered map of participant ID to Output. Insertion
// order is completion order, not call order; synthesis iterates it so that
// "first output" is well-defined for a fixed set of completions. It is safe
// for concurrent use, which the Parallel strategy relies on when batch
// members complete from separate goroutines.
type Outputs struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Output
}

// NewOutputs constructs an empty output map.
func NewOutputs() *Outputs {
	return &Outputs{byID: make(map[string]Output)}
}

// Set records an output. The first Set for a participant fixes its position;
// a later Set for the same participant updates the value in place.
func (o *Outputs) Set(out Output) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.byID[out.ParticipantID]; !ok {
		o.order = append(o.order, out.ParticipantID)
	}
	o.byID[out.ParticipantID] = out
}

// Get returns the output for a participant and whether it is present.
func (o *Outputs) Get(participantID string) (Output, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out, ok := o.byID[participantID]
	return out, ok
}

// Len returns the number of recorded outputs.
func (o *Outputs) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.order)
}

// All returns the outputs in completion order as a defensive copy.
func (o *Outputs) All() []Output {
	o.mu.RLock()
	defer o.mu.RUnlock()
	result := make([]Output, 0, len(o.order))
	for _, id := range o.order {
		result = append(result, o.byID[id])
	}
	return result
}

// IDs returns the participant IDs in completion order.
func (o *Outputs) IDs() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	ids := make([]string, len(o.order))
	copy(ids, o.order)
	return ids
}

// Clone returns an independent copy preserving completion order.
func (o *Outputs) Clone() *Outputs {
	clone := NewOutputs()
	for _, out := range o.All() {
		clone.Set(out)
	}
	return clone
}

// MarshalJSON encodes the outputs as an ordered array so persistence
// adapters round-trip completion order.
func (o *Outputs) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.All())
}

// UnmarshalJSON rebuilds the ordered map from the array encoding.
func (o *Outputs) UnmarshalJSON(data []byte) error {
	var outs []Output
	if err := json.Unmarshal(data, &outs); err != nil {
		return err
	}
	o.mu.Lock()
	o.order = nil
	o.byID = make(map[string]Output, len(outs))
	o.mu.Unlock()
	for _, out := range outs {
		o.Set(out)
	}
	return nil
}
