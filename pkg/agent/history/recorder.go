package history

import (
	"fmt"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

// DefaultKeep is how many passes a Recorder retains.
const DefaultKeep = 1000

// Recorder opens the store only while recording, so the CLI can read the
// history while the agent is running.
type Recorder struct {
	Dir  string
	Keep int
}

// Record stores r and prunes old passes.
func (rec Recorder) Record(r *types.PassReport) error {
	s, err := Open(rec.Dir)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Record(r); err != nil {
		return fmt.Errorf("recording pass %s: %w", r.ID, err)
	}
	if rec.Keep > 0 {
		if _, err := s.Prune(rec.Keep); err != nil {
			return fmt.Errorf("pruning history: %w", err)
		}
	}
	return nil
}
