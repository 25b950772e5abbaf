package sweep

import "time"

type controlKind int

const (
	ctrlStop controlKind = iota
	ctrlKill
	ctrlPause
	ctrlResume
	ctrlFlip
	ctrlSetInterDelay
	ctrlSetOuterDelay
)

// controlMsg is one entry on a Sweep's control channel. The Runner
// drains it between steps (or immediately, for ctrlKill) rather than
// mutating Sweep fields directly from caller goroutines.
type controlMsg struct {
	kind    controlKind
	restart bool
	delay   time.Duration
}
