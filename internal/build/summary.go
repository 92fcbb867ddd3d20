package build

import "github.com/google/uuid"

// Summary reports what a Build run did, for logging and the CLI's
// final status line.
type Summary struct {
	RunID    uuid.UUID
	Inserted uint64
	Dropped  uint64
}

func (b *builder) summary(runID uuid.UUID) *Summary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &Summary{RunID: runID, Inserted: b.inserted, Dropped: b.dropped}
}
