package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Supported progress stages.
const (
	StageCrawlStart    Stage = "CRAWL_START"
	StageCrawlProgress Stage = "CRAWL_PROGRESS"
	StageCrawlDone     Stage = "CRAWL_DONE"
	StageCrawlError    Stage = "CRAWL_ERROR"
	StageCodeFound     Stage = "CODE_FOUND"
	StageCodeSkipped   Stage = "CODE_SKIPPED"
	StageCodeMalformed Stage = "CODE_MALFORMED"
	StageCodeFailed    Stage = "CODE_FAILED"
)

// Event captures a single step of crawl progress.
type Event struct {
	// RunID identifies one invocation of the crawler in 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	Stage Stage
	// Kind is the code space being crawled ("carrier", "airport").
	Kind string
	// Code is set for per-code stages.
	Code string
	// Count is the number of records for CODE_FOUND, codes processed for
	// CRAWL_PROGRESS and CRAWL_DONE.
	Count int64
	// Total is the size of the code space.
	Total int64
	Dur   time.Duration
	// Note carries low-volume context such as error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.Kind == "" {
		return errors.New("kind is required")
	}
	switch e.Stage {
	case StageCrawlStart, StageCrawlProgress, StageCrawlDone, StageCrawlError:
	case StageCodeFound, StageCodeSkipped, StageCodeMalformed, StageCodeFailed:
		if e.Code == "" {
			return fmt.Errorf("%s requires code", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Count < 0 || e.Total < 0 {
		return errors.New("counts must be >= 0")
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
