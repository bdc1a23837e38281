package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSnapshot Phase = iota
	RemoveDuplicates
	ApplyPins
	RecordRun
)

func (p Phase) String() string {
	switch p {
	case FetchSnapshot:
		return "fetch_snapshot"
	case RemoveDuplicates:
		return "remove_duplicates"
	case ApplyPins:
		return "apply_pins"
	case RecordRun:
		return "record_run"
	default:
		return ""
	}
}

func fetchSnapshotUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSnapshot,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching playlist snapshot (%s)...", name),
	}
}

func duplicatesRemovedUpdate(step, total, removed int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RemoveDuplicates,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Removed %d duplicate copies", removed),
	}
}

func applyPinUpdate(step, total int, uri string, position int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ApplyPins,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Pinning %s to position %d", step, total, uri, position),
	}
}

func playlistSyncedUpdate(step, total int, name string, result *SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RecordRun,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d inserted, %d moved)", step, total, name, result.Inserts, result.Moves),
		Data:    result,
	}
}

func playlistFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RecordRun,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
