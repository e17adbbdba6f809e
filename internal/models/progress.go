package models

import "time"

// CompletionThreshold is the watched percentage at which a video counts as completed
const CompletionThreshold = 90.0

// VideoProgress is the persisted watch state of one kata
type VideoProgress struct {
	KataID            string  `json:"kataId"`
	CurrentTime       float64 `json:"currentTime"`
	Duration          float64 `json:"duration"`
	WatchedPercentage float64 `json:"watchedPercentage"`
	LastWatched       string  `json:"lastWatched"` // RFC3339
	Completed         bool    `json:"completed"`
}

// LastWatchedAt parses LastWatched, returning the zero time when it is unset or invalid
func (p *VideoProgress) LastWatchedAt() time.Time {
	if p == nil || p.LastWatched == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, p.LastWatched)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ProgressState is the lifecycle position of a kata for a viewer
type ProgressState string

const (
	ProgressUnseen     ProgressState = "unseen"
	ProgressInProgress ProgressState = "in_progress"
	ProgressCompleted  ProgressState = "completed"
)

// StateOf derives the lifecycle state from a progress record (nil means unseen)
func StateOf(p *VideoProgress) ProgressState {
	switch {
	case p == nil:
		return ProgressUnseen
	case p.Completed:
		return ProgressCompleted
	default:
		return ProgressInProgress
	}
}
