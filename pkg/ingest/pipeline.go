package ingest

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/IntXgers/ohio-code/internal/config"
	"github.com/IntXgers/ohio-code/internal/signals"
	"github.com/IntXgers/ohio-code/pkg/canon"
	"github.com/IntXgers/ohio-code/pkg/citation"
	"github.com/IntXgers/ohio-code/pkg/corpus"
	"github.com/IntXgers/ohio-code/pkg/enrich"
	"github.com/IntXgers/ohio-code/pkg/graph"
	"github.com/IntXgers/ohio-code/pkg/models"
	"github.com/IntXgers/ohio-code/pkg/records"
	"github.com/IntXgers/ohio-code/pkg/store"
)

// storeFileName is the on-disk KV environment file inside --out.
const storeFileName = "sections.db"

// ErrBadInput wraps failures reading or recognizing the input file
// itself (as opposed to per-line MalformedLine/MalformedHeader
// failures, which are logged and skipped rather than fatal).
var ErrBadInput = fmt.Errorf("ingest: malformed input")

// Stats summarizes one build invocation for the CLI to report.
type Stats struct {
	Read      int
	Skipped   int
	Written   int
	Cancelled bool
}

// prepared is one fully-extracted section, held in memory from the
// end of phase A (extraction) through phase C (write), so phase B can
// compute reverse adjacency and finalize is_clickable before anything
// is committed: the primary table must never reach disk before the
// reverse adjacency it depends on has been computed.
type prepared struct {
	line      int
	taggedID  string
	section   models.Section
	citations []models.Citation
}

// memSnapshotter serves graph.Snapshotter from the in-memory prepared
// set, since chain construction runs before anything is durable.
type memSnapshotter struct {
	byID map[string]*prepared
}

func (m *memSnapshotter) Snapshot(id string) (models.ChainSnapshot, bool) {
	p, ok := m.byID[id]
	if !ok {
		return models.ChainSnapshot{}, false
	}
	return models.ChainSnapshot{
		ID:        p.section.ID,
		Title:     p.section.Title,
		URL:       p.section.SourceURL,
		URLHash:   p.section.SourceHash,
		FullText:  p.section.FullText(),
		WordCount: p.section.WordCount,
	}, true
}

// Run executes one full build: stream and canonicalize every record,
// extract citations and enrich, build the full citation graph, then
// write the five KV tables in checkpointed, resumable batches.
func Run(opts config.BuildOptions, buildID string) (Stats, error) {
	var stats Stats

	c, err := corpus.Parse(opts.Corpus)
	if err != nil {
		return stats, fmt.Errorf("%w: %v", ErrBadInput, err)
	}

	f, err := os.Open(opts.Input)
	if err != nil {
		return stats, fmt.Errorf("%w: opening input: %v", ErrBadInput, err)
	}
	defer f.Close()

	if err := os.MkdirAll(opts.Out, 0o755); err != nil {
		return stats, fmt.Errorf("ingest: creating output directory: %w", err)
	}

	db, err := store.Open(filepath.Join(opts.Out, storeFileName))
	if err != nil {
		return stats, fmt.Errorf("ingest: opening store: %w", err)
	}
	defer db.Close()

	progress, err := LoadOrNew(opts.Out, opts.Input, c.Tag(), buildID, opts.Resume)
	if err != nil {
		return stats, fmt.Errorf("ingest: loading progress: %w", err)
	}

	shutdown := &signals.Flag{}
	stop := shutdown.Watch()
	defer stop()

	// --- Phase A: stream, canonicalize, extract, enrich ---

	var items []*prepared
	byID := make(map[string]*prepared)
	g := graph.New()

	onSkip := func(s records.Skipped) {
		stats.Skipped++
		log.Printf("ingest: skipped line %d: %s: %v", s.Line, s.Reason, s.Err)
	}
	reader := records.New(f, c, onSkip)

	for {
		rec, err := reader.Next()
		if err != nil {
			break // io.EOF or a genuine scan error; both end phase A
		}
		stats.Read++

		can, err := canon.Canonicalize(rec)
		if err != nil {
			stats.Skipped++
			log.Printf("ingest: skipped line %d: %v", rec.Line, err)
			continue
		}

		sec := models.Section{
			ID:          can.TaggedID,
			Corpus:      can.Corpus,
			SourceURL:   can.SourceURL,
			SourceHash:  can.SourceHash,
			Header:      can.Header,
			Title:       can.Title,
			Paragraphs:  can.Paragraphs,
			ScrapedDate: can.ScrapedAt,
		}
		fullText := sec.FullText()
		cites := citation.Extract(can.Corpus, can.TaggedID, fullText, opts.Extraction)

		if opts.Enrich {
			sec.Enrichment = enrich.Enrich(enrich.Input{
				Corpus:               can.Corpus,
				ID:                   can.ID,
				Header:               can.Header,
				Title:                can.Title,
				FullText:             fullText,
				WordCount:            wordCount(can.Paragraphs),
				ParagraphCount:       len(can.Paragraphs),
				ForwardCitationCount: len(cites),
			})
		}

		if err := models.ValidateStruct(sec); err != nil {
			stats.Skipped++
			log.Printf("ingest: skipped line %d: %v", rec.Line, models.FormatValidationErrors(err))
			continue
		}

		p := &prepared{line: rec.Line, taggedID: can.TaggedID, section: sec, citations: cites}
		items = append(items, p)
		byID[can.TaggedID] = p

		targets := make([]string, len(cites))
		for i, cit := range cites {
			targets[i] = cit.TargetID
		}
		g.AddEdges(can.TaggedID, targets)
	}

	// --- Phase B: reverse adjacency, clickability, chains ---

	reverse := g.Reverse()
	snap := &memSnapshotter{byID: byID}
	chainParams := graph.ChainParams{Fanout: opts.ChainFanout, MaxSize: opts.ChainMaxSize, Threshold: opts.ComplexThreshold}

	chainByID := make(map[string]*models.ChainRecord)
	inComplexChain := make(map[string]bool)
	for _, source := range g.Sources() {
		rec := g.BuildChainRecord(source, chainParams, snap)
		if rec == nil {
			continue
		}
		chainByID[source] = rec
		for _, id := range rec.ChainSections {
			inComplexChain[id] = true
		}
	}

	for _, p := range items {
		p.section.Recompute(len(p.citations), len(reverse[p.taggedID]) > 0)
		p.section.InComplexChain = inComplexChain[p.taggedID]
	}

	// --- Phase C: checkpointed, resumable batch writes ---

	sinceCheckpoint := 0
	batch := make([]store.SectionWrite, 0, opts.BatchSize)
	revUpdates := make([]store.ReverseUpdate, 0, opts.BatchSize)
	batchLines := make([]int, 0, opts.BatchSize)
	batchIDs := make([]string, 0, opts.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := db.WriteBatch(batch, revUpdates); err != nil {
			return fmt.Errorf("ingest: writing batch: %w", err)
		}
		for i, id := range batchIDs {
			progress.MarkProcessed(batchLines[i], id)
			stats.Written++
		}
		progress.TableCounts.Primary += len(batch)
		progress.TableCounts.Citations += len(batch)
		for _, w := range batch {
			if w.Chain != nil {
				progress.TableCounts.Chains++
			}
		}
		progress.TableCounts.Reverse += len(revUpdates)
		sinceCheckpoint += len(batch)

		batch = batch[:0]
		revUpdates = revUpdates[:0]
		batchLines = batchLines[:0]
		batchIDs = batchIDs[:0]

		if sinceCheckpoint >= opts.CheckpointInterval {
			sinceCheckpoint = 0
			if err := progress.Save(); err != nil {
				return err
			}
		}
		return nil
	}

	for _, p := range items {
		if shutdown.Raised() {
			stats.Cancelled = true
			break
		}
		if progress.ProcessedIDs[p.taggedID] {
			continue // already durably written by a prior interrupted run
		}

		citRec := buildCitationRecord(p.citations, byID)
		var chain *models.ChainRecord
		if rec, ok := chainByID[p.taggedID]; ok {
			chain = rec
		}

		batch = append(batch, store.SectionWrite{Section: p.section, Citation: citRec, Chain: chain})
		batchIDs = append(batchIDs, p.taggedID)
		batchLines = append(batchLines, p.line)

		for _, cit := range p.citations {
			revUpdates = append(revUpdates, store.ReverseUpdate{
				Target: cit.TargetID,
				Detail: reverseDetailFor(p),
			})
		}

		if len(batch) >= opts.BatchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}

	if err := progress.Save(); err != nil {
		return stats, err
	}

	if stats.Cancelled {
		log.Printf("ingest: shutdown requested, %d/%d sections written; resume with --resume", stats.Written, len(items))
		return stats, nil
	}

	primaryN, citationsN, reverseN, chainsN, err := db.Counts()
	if err != nil {
		return stats, fmt.Errorf("ingest: reading final counts: %w", err)
	}
	info := models.CorpusInfo{
		BuildID:        buildID,
		Corpus:         c,
		BuildDate:      time.Now(),
		CheckpointDate: time.Now(),
		PrimaryCount:   primaryN,
		CitationsCount: citationsN,
		ReverseCount:   reverseN,
		ChainsCount:    chainsN,
		BuildConfig: models.BuildConfig{
			BatchSize:             opts.BatchSize,
			CheckpointInterval:    opts.CheckpointInterval,
			RangeExpansionLimit:   opts.Extraction.RangeExpansionLimit,
			ComplexChainThreshold: opts.ComplexThreshold,
			ChainMaxSize:          opts.ChainMaxSize,
			ChainFanout:           opts.ChainFanout,
			ChapterRefMode:        opts.Extraction.ChapterRefMode,
			EnrichmentEnabled:     opts.Enrich,
		},
	}
	if err := db.PutCorpusInfo(info); err != nil {
		return stats, fmt.Errorf("ingest: writing corpus info: %w", err)
	}

	if err := progress.Remove(); err != nil {
		return stats, err
	}

	return stats, nil
}

func buildCitationRecord(cites []models.Citation, byID map[string]*prepared) models.CitationRecord {
	rec := models.CitationRecord{
		DirectReferences:  make([]string, 0, len(cites)),
		ReferencesDetails: make([]models.CitationDetail, 0, len(cites)),
		ReferenceCount:    len(cites),
	}
	for _, cit := range cites {
		rec.DirectReferences = append(rec.DirectReferences, cit.TargetID)
		detail := models.CitationDetail{
			Target:       cit.TargetID,
			Relationship: cit.Relationship,
			Context:      cit.Context,
			Position:     cit.Position,
		}
		if target, ok := byID[cit.TargetID]; ok {
			detail.Title = target.section.Title
			detail.URL = target.section.SourceURL
			detail.URLHash = target.section.SourceHash
		}
		rec.ReferencesDetails = append(rec.ReferencesDetails, detail)
	}
	return rec
}

func reverseDetailFor(p *prepared) models.ReverseCitationDetail {
	return models.ReverseCitationDetail{
		Source: p.taggedID,
		Title:  p.section.Title,
		URL:    p.section.SourceURL,
	}
}

func wordCount(paragraphs []string) int {
	sec := models.Section{Paragraphs: paragraphs}
	sec.Recompute(0, false)
	return sec.WordCount
}
