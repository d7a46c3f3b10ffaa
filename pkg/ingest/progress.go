// Package ingest orchestrates the ingest pipeline: it streams records,
// canonicalizes and enriches them, extracts citations, builds the
// citation graph, and writes the five KV tables in checkpointed,
// resumable batches.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TableCounts tracks the per-table row totals the progress record
// carries.
type TableCounts struct {
	Primary   int `json:"primary"`
	Citations int `json:"citations"`
	Reverse   int `json:"reverse"`
	Chains    int `json:"chains"`
}

// Progress is the durable checkpoint record: written atomically via
// temp-file + rename, every CheckpointInterval sections and on
// graceful shutdown.
type Progress struct {
	BuildID       string          `json:"build_id"`
	Input         string          `json:"input"`
	Corpus        string          `json:"corpus"`
	TotalProcessed int            `json:"total_processed"`
	LastLine      int             `json:"last_line"`
	LastID        string          `json:"last_id"`
	TableCounts   TableCounts     `json:"table_counts"`
	StartedAt     time.Time       `json:"started_at"`
	CheckpointAt  time.Time       `json:"checkpoint_at"`
	ProcessedIDs  map[string]bool `json:"processed_ids"`

	path string
}

// progressFileName is the persisted-state file's fixed name.
const progressFileName = "build_progress.json"

// ProgressPath returns the canonical progress-file path for an output
// directory.
func ProgressPath(outDir string) string {
	return filepath.Join(outDir, progressFileName)
}

// LoadOrNew loads an existing progress record for (input, corpus) if
// one exists and matches, renaming an unparseable file to ".backup"
// and starting fresh instead of failing. When resume is false, any
// existing record is ignored and a fresh one is returned without
// being touched on disk.
func LoadOrNew(outDir, input, corpusTag string, buildID string, resume bool) (*Progress, error) {
	path := ProgressPath(outDir)

	if resume {
		if p, err := loadExisting(path); err == nil && p != nil {
			if p.Input == input && p.Corpus == corpusTag {
				return p, nil
			}
			// Different input/model identity: start fresh rather than
			// silently merge two unrelated builds' progress.
		} else if err != nil {
			return nil, err
		}
	}

	return &Progress{
		BuildID:      buildID,
		Input:        input,
		Corpus:       corpusTag,
		StartedAt:    time.Now(),
		ProcessedIDs: make(map[string]bool),
		path:         path,
	}, nil
}

func loadExisting(path string) (*Progress, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ingest: reading progress file: %w", err)
	}

	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		backupPath := path + ".backup"
		if rerr := os.Rename(path, backupPath); rerr != nil {
			return nil, fmt.Errorf("ingest: renaming corrupt progress file: %w", rerr)
		}
		return nil, nil
	}
	if p.ProcessedIDs == nil {
		p.ProcessedIDs = make(map[string]bool)
	}
	p.path = path
	return &p, nil
}

// MarkProcessed records id as durably written, for idempotent resume.
func (p *Progress) MarkProcessed(line int, id string) {
	p.TotalProcessed++
	p.LastLine = line
	p.LastID = id
	p.ProcessedIDs[id] = true
}

// Save atomically persists the record: write to a temp file in the
// same directory, then rename, so readers never observe a partial
// file.
func (p *Progress) Save() error {
	p.CheckpointAt = time.Now()

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ingest: creating output directory: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("ingest: marshaling progress: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".build_progress-*.tmp")
	if err != nil {
		return fmt.Errorf("ingest: creating temp progress file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ingest: writing temp progress file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ingest: closing temp progress file: %w", err)
	}

	if err := os.Rename(tmpPath, p.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ingest: renaming temp progress file: %w", err)
	}
	return nil
}

// Remove deletes the progress file on clean completion.
func (p *Progress) Remove() error {
	err := os.Remove(p.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ingest: removing progress file: %w", err)
	}
	return nil
}
