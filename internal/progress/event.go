package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes what an Event reports.
type Stage string

// Supported stages.
const (
	StageScanRecorded Stage = "SCAN_RECORDED"
	StageLookupDone   Stage = "LOOKUP_DONE"
	StageLookupError  Stage = "LOOKUP_ERROR"
)

// Lookup sources reported by StageLookupDone.
const (
	SourceFresh   = "fresh"
	SourceCache   = "cache"
	SourceOffline = "offline"
)

// Event is one milestone of the scan pipeline.
type Event struct {
	// TS is the UTC time the emitter observed the milestone.
	TS      time.Time
	Stage   Stage
	Barcode string
	// ScanID is set for StageScanRecorded.
	ScanID string
	// Category is the waste category id of a recorded scan.
	Category string
	// Pfand reports a deposit on the scanned product.
	Pfand bool
	// Source is one of the Source constants for StageLookupDone.
	Source string
	// ErrorKind is the apperr kind for StageLookupError.
	ErrorKind string
	// Dur is the lookup latency.
	Dur  time.Duration
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.Barcode == "" {
		return errors.New("barcode is required")
	}
	switch e.Stage {
	case StageScanRecorded:
		if e.ScanID == "" {
			return errors.New("scan recorded requires scan id")
		}
		if e.Category == "" {
			return errors.New("scan recorded requires category")
		}
	case StageLookupDone:
		if e.Source == "" {
			return errors.New("lookup done requires source")
		}
	case StageLookupError:
		if e.ErrorKind == "" {
			return errors.New("lookup error requires error kind")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
