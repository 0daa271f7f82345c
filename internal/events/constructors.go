package events

import (
	"time"

	"github.com/google/uuid"
)

// NewEntry creates a log entry with the category derived from the type.
// SlotIndex defaults to -1 and Iteration to 0 (not slot/iteration scoped).
func NewEntry(eventType EventType, campaignID string, severity Severity, message string) *LogEntry {
	return &LogEntry{
		ID:         uuid.New().String(),
		Timestamp:  time.Now(),
		Type:       eventType,
		Category:   CategoryFor(eventType),
		CampaignID: campaignID,
		SlotIndex:  -1,
		Severity:   severity,
		Message:    message,
		Details:    make(map[string]interface{}),
	}
}

// NewPhaseEntry creates a phase-scoped entry.
func NewPhaseEntry(eventType EventType, campaignID, phase string, severity Severity, message string, details map[string]interface{}) *LogEntry {
	e := NewEntry(eventType, campaignID, severity, message)
	e.Phase = phase
	if details != nil {
		e.Details = details
	}
	return e
}

// NewSlotEntry creates a slot/iteration-scoped entry.
func NewSlotEntry(eventType EventType, campaignID, phase string, slotIndex, iteration int, severity Severity, message string, details map[string]interface{}) *LogEntry {
	e := NewEntry(eventType, campaignID, severity, message)
	e.Phase = phase
	e.SlotIndex = slotIndex
	e.Iteration = iteration
	if details != nil {
		e.Details = details
	}
	return e
}
