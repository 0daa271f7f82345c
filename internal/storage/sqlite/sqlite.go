// Package sqlite persists the campaign event log and accepted images.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/muralgen/mural/internal/events"
	"github.com/muralgen/mural/internal/types"
)

// Store implements events.EventStore and types.Saver on one SQLite
// database.
type Store struct {
	db *sql.DB
}

var (
	_ events.EventStore = (*Store)(nil)
	_ types.Saver       = (*Store)(nil)
)

// New opens (or creates) the database at path and applies the schema.
func New(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// WAL mode keeps reads (the events command) from blocking the
	// campaign's writes
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// StoreEntry persists one log entry.
func (s *Store) StoreEntry(ctx context.Context, entry *events.LogEntry) error {
	details := "{}"
	if len(entry.Details) > 0 {
		data, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal entry details: %w", err)
		}
		details = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO log_entries (
			id, timestamp, type, category, campaign_id, phase,
			slot_index, iteration, severity, message, details
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID, entry.Timestamp, entry.Type, entry.Category,
		entry.CampaignID, entry.Phase, entry.SlotIndex, entry.Iteration,
		entry.Severity, entry.Message, details,
	)
	if err != nil {
		return fmt.Errorf("failed to insert log entry: %w", err)
	}
	return nil
}

// GetEntriesByCampaign retrieves all entries for a campaign in append order.
func (s *Store) GetEntriesByCampaign(ctx context.Context, campaignID string) ([]*events.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, type, category, campaign_id, phase,
		       slot_index, iteration, severity, message, details
		FROM log_entries
		WHERE campaign_id = ?
		ORDER BY timestamp ASC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query log entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// GetRecentEntries retrieves the most recent entries up to limit.
func (s *Store) GetRecentEntries(ctx context.Context, limit int) ([]*events.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, type, category, campaign_id, phase,
		       slot_index, iteration, severity, message, details
		FROM log_entries
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	// Back into append order
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func scanEntries(rows *sql.Rows) ([]*events.LogEntry, error) {
	var entries []*events.LogEntry
	for rows.Next() {
		var entry events.LogEntry
		var details string
		err := rows.Scan(
			&entry.ID, &entry.Timestamp, &entry.Type, &entry.Category,
			&entry.CampaignID, &entry.Phase, &entry.SlotIndex, &entry.Iteration,
			&entry.Severity, &entry.Message, &details,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		if details != "" && details != "{}" {
			if err := json.Unmarshal([]byte(details), &entry.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal details for entry %s: %w", entry.ID, err)
			}
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// SaveImage persists one accepted image.
func (s *Store) SaveImage(ctx context.Context, intent *types.SaveIntent) error {
	if intent.Image == nil {
		return fmt.Errorf("save intent has no image")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO saved_images (
			id, campaign_id, phase, slot_index, prompt, score,
			used_polished_result, media_type, url, b64_data, saved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		intent.Image.ID, intent.CampaignID, intent.Phase, intent.SlotIndex,
		intent.PromptText, intent.Score, intent.UsedPolishedResult,
		intent.Image.MediaType, intent.Image.URL, intent.Image.B64Data,
		intent.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert saved image: %w", err)
	}
	return nil
}

// SavedImage is one persisted accepted image, without the inline data.
type SavedImage struct {
	ID                 string
	CampaignID         string
	Phase              types.Phase
	SlotIndex          int
	Prompt             string
	Score              int
	UsedPolishedResult bool
	SavedAt            time.Time
}

// ListSavedImages returns the accepted images of a campaign in phase
// precedence order.
func (s *Store) ListSavedImages(ctx context.Context, campaignID string) ([]*SavedImage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, campaign_id, phase, slot_index, prompt, score,
		       used_polished_result, saved_at
		FROM saved_images
		WHERE campaign_id = ?
		ORDER BY saved_at ASC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query saved images: %w", err)
	}
	defer rows.Close()

	var images []*SavedImage
	for rows.Next() {
		var img SavedImage
		err := rows.Scan(
			&img.ID, &img.CampaignID, &img.Phase, &img.SlotIndex,
			&img.Prompt, &img.Score, &img.UsedPolishedResult, &img.SavedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved image: %w", err)
		}
		images = append(images, &img)
	}
	return images, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
