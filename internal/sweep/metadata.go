package sweep

import (
	"encoding/json"
	"fmt"
)

// metadataModule identifies the engine producing a metadata record,
// distinguishing it from metadata emitted by a different build or
// deployment of the sweep engine during cross-instance import.
const metadataModule = "sweepengine"

// ControlledMetadata is one controlled parameter's exported trajectory:
// the instrument it binds to plus its start/stop/step.
type ControlledMetadata struct {
	Instrument string  `json:"instrument"`
	Start      float64 `json:"start"`
	Stop       float64 `json:"stop"`
	Step       float64 `json:"step"`
}

// Metadata is the JSON-serializable description of a sweep's
// configuration, independent of its live Progress. ExportMetadata
// produces one from a running or finished Sweep; DecodeMetadata parses
// one back into a Metadata value. No function rebuilds a Sweep from a
// Metadata.
type Metadata struct {
	Kind          string                        `json:"kind"`
	Module        string                        `json:"module"`
	Controlled    map[string]ControlledMetadata `json:"controlled"`
	Followed      map[string]string             `json:"followed"`
	InterDelayMS  int64                         `json:"inter_delay_ms"`
	OuterDelayMS  int64                         `json:"outer_delay_ms"`
	Mode          string                        `json:"mode,omitempty"`
	Attributes    map[string]any                `json:"attributes,omitempty"`
	ParentSweepID string                        `json:"parent_sweep_id,omitempty"`
}

// exportMetadataLocked builds a Metadata snapshot from a Sweep under its
// own lock (callers must hold s.mu for reading, matching how Progress is
// read).
func (s *Sweep) exportMetadataLocked() Metadata {
	m := Metadata{
		Kind:         s.kind.KindName(),
		Module:       metadataModule,
		InterDelayMS: s.interDelay.Milliseconds(),
		OuterDelayMS: s.outerDelay.Milliseconds(),
		Mode:         modeOf(s.kind).String(),
		Attributes:   s.kind.Attributes(),
	}
	for _, c := range s.kind.Controlled() {
		if m.Controlled == nil {
			m.Controlled = make(map[string]ControlledMetadata)
		}
		m.Controlled[c.Param.Name()] = ControlledMetadata{
			Instrument: c.Param.Identity(),
			Start:      c.Trajectory.Start,
			Stop:       c.Trajectory.Stop,
			Step:       c.Trajectory.Step,
		}
	}
	for _, fp := range s.followSet {
		if m.Followed == nil {
			m.Followed = make(map[string]string)
		}
		m.Followed[fp.Name()] = fp.Identity()
	}
	if s.parent != nil {
		m.ParentSweepID = s.parent.id
	}
	return m
}

// ExportMetadata returns the canonical JSON encoding of this sweep's
// configuration. Decoding it with DecodeMetadata reproduces an equal
// Metadata.
func (s *Sweep) ExportMetadata() ([]byte, error) {
	s.mu.RLock()
	m := s.exportMetadataLocked()
	s.mu.RUnlock()
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("sweep: marshal metadata: %w", err)
	}
	return b, nil
}

// DecodeMetadata parses a previously exported metadata document. It does
// not construct a Sweep — callers re-resolve Parameters against a
// Station and pass the result to a kind constructor, since Kind
// construction is where validation happens.
func DecodeMetadata(b []byte) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(b, &m); err != nil {
		return Metadata{}, fmt.Errorf("sweep: unmarshal metadata: %w", err)
	}
	return m, nil
}
