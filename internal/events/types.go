// Package events defines the append-only campaign event log. Every
// orchestrator step emits exactly one entry; consumers route entries to
// separate views by category (text vs image).
package events

import (
	"context"
	"time"
)

// EventType represents the kind of event that occurred during a campaign.
type EventType string

const (
	// EventTypeCampaignStarted indicates a campaign run began
	EventTypeCampaignStarted EventType = "campaign_started"
	// EventTypeCampaignFinished indicates a campaign reached a terminal status
	EventTypeCampaignFinished EventType = "campaign_finished"
	// EventTypePhaseStarted indicates a phase became active
	EventTypePhaseStarted EventType = "phase_started"
	// EventTypePhaseCompleted indicates a phase reached a terminal status
	EventTypePhaseCompleted EventType = "phase_completed"
	// EventTypePromptGenerated indicates a prompt was built for an iteration
	EventTypePromptGenerated EventType = "prompt_generated"
	// EventTypeImageGenerating indicates a generation call started
	EventTypeImageGenerating EventType = "image_generating"
	// EventTypeImageComplete indicates a generation call returned an image
	EventTypeImageComplete EventType = "image_complete"
	// EventTypeImageFailed indicates a generation or evaluation call failed
	EventTypeImageFailed EventType = "image_failed"
	// EventTypeImageApproved indicates an evaluation cleared the approval threshold
	EventTypeImageApproved EventType = "image_approved"
	// EventTypeImageRejected indicates an evaluation fell below the threshold
	EventTypeImageRejected EventType = "image_rejected"
	// EventTypeImageSaved indicates a save intent was emitted for an accepted image
	EventTypeImageSaved EventType = "image_saved"
	// EventTypeFeedbackApplied indicates evaluator feedback was carried into the next iteration
	EventTypeFeedbackApplied EventType = "feedback_applied"
	// EventTypeIterationComplete indicates one generate/evaluate pass finished
	EventTypeIterationComplete EventType = "iteration_complete"
	// EventTypePolishStarted indicates a polish call started
	EventTypePolishStarted EventType = "polish_started"
	// EventTypeImagePolished indicates a polished result was adopted
	EventTypeImagePolished EventType = "image_polished"
	// EventTypePolishNoImprovement indicates polish gained less than the improvement gate
	EventTypePolishNoImprovement EventType = "polish_no_improvement"
	// EventTypePolishError indicates a polish or re-evaluation call failed
	EventTypePolishError EventType = "polish_error"
	// EventTypePolishSkipped indicates polishing was skipped (disabled or attempts spent)
	EventTypePolishSkipped EventType = "polish_skipped"
	// EventTypeError indicates a fault (slot or campaign level)
	EventTypeError EventType = "error"
	// EventTypeTimeout indicates a collaborator call hit its deadline
	EventTypeTimeout EventType = "timeout"
)

// Category routes an entry to the text or image view in consumers.
type Category string

const (
	// CategoryText is for narrative/progress entries
	CategoryText Category = "text"
	// CategoryImage is for entries tied to a concrete image artifact
	CategoryImage Category = "image"
)

// defaultCategories maps each event type to the view it belongs in.
var defaultCategories = map[EventType]Category{
	EventTypeCampaignStarted:     CategoryText,
	EventTypeCampaignFinished:    CategoryText,
	EventTypePhaseStarted:        CategoryText,
	EventTypePhaseCompleted:      CategoryText,
	EventTypePromptGenerated:     CategoryText,
	EventTypeImageGenerating:     CategoryImage,
	EventTypeImageComplete:       CategoryImage,
	EventTypeImageFailed:         CategoryImage,
	EventTypeImageApproved:       CategoryImage,
	EventTypeImageRejected:       CategoryImage,
	EventTypeImageSaved:          CategoryImage,
	EventTypeFeedbackApplied:     CategoryText,
	EventTypeIterationComplete:   CategoryText,
	EventTypePolishStarted:       CategoryText,
	EventTypeImagePolished:       CategoryImage,
	EventTypePolishNoImprovement: CategoryText,
	EventTypePolishError:         CategoryText,
	EventTypePolishSkipped:       CategoryText,
	EventTypeError:               CategoryText,
	EventTypeTimeout:             CategoryText,
}

// CategoryFor returns the view category for an event type.
func CategoryFor(t EventType) Category {
	if c, ok := defaultCategories[t]; ok {
		return c
	}
	return CategoryText
}

// Severity represents the severity level of an event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// LogEntry is one record in the campaign event log. Entries are never
// mutated or removed after append; retention is the consumer's policy.
type LogEntry struct {
	// ID is the unique identifier for this entry
	ID string `json:"id"`
	// Timestamp is when the event occurred
	Timestamp time.Time `json:"timestamp"`
	// Type is the event type
	Type EventType `json:"type"`
	// Category routes the entry to the text or image consumer view
	Category Category `json:"category"`
	// CampaignID is the campaign this entry belongs to
	CampaignID string `json:"campaign_id"`
	// Phase is the phase active when the event occurred, if any
	Phase string `json:"phase,omitempty"`
	// SlotIndex is the 0-based slot within the phase, -1 if not slot-scoped
	SlotIndex int `json:"slot_index"`
	// Iteration is the 1-based iteration within the slot, 0 if not iteration-scoped
	Iteration int `json:"iteration"`
	// Severity is the severity level of this entry
	Severity Severity `json:"severity"`
	// Message is a human-readable description
	Message string `json:"message"`
	// Details contains structured, type-specific data (JSON-serializable)
	Details map[string]interface{} `json:"details,omitempty"`
}

// EventStore is the persistence sink for log entries. The in-memory
// Log forwards every appended entry to its store, if one is attached.
type EventStore interface {
	// StoreEntry persists a new log entry
	StoreEntry(ctx context.Context, entry *LogEntry) error

	// GetEntriesByCampaign retrieves all entries for a campaign in append order
	GetEntriesByCampaign(ctx context.Context, campaignID string) ([]*LogEntry, error)

	// GetRecentEntries retrieves the most recent entries up to limit
	GetRecentEntries(ctx context.Context, limit int) ([]*LogEntry, error)
}

// Filter defines criteria for querying entries from a Log.
type Filter struct {
	// Type filters by event type ("" matches all)
	Type EventType
	// Category filters by category ("" matches all)
	Category Category
	// Phase filters by phase ("" matches all)
	Phase string
	// Limit caps the number of entries returned (0 = unlimited)
	Limit int
}
