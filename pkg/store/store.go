// Package store implements the KV writer and the read-only
// accessors the retriever builds on. It materializes the five
// coordinated tables — primary, citations, reverse_citations, chains,
// metadata — as five buckets inside one bbolt environment.
//
// bbolt gives the memory-mapped, single-writer/multi-reader, B+tree,
// write-ahead-transaction semantics of an embedded LMDB-style store
// without a CGo dependency on a vendored C library; see DESIGN.md for
// why it was chosen over an mdbx binding.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/IntXgers/ohio-code/pkg/graph"
	"github.com/IntXgers/ohio-code/pkg/models"
)

var (
	bucketPrimary     = []byte("primary")
	bucketCitations   = []byte("citations")
	bucketReverse     = []byte("reverse_citations")
	bucketChains      = []byte("chains")
	bucketMetadata    = []byte("metadata")
)

var allBuckets = [][]byte{bucketPrimary, bucketCitations, bucketReverse, bucketChains, bucketMetadata}

// Store wraps one bbolt environment. bbolt grows its mmap on demand
// rather than failing at a fixed map size the way LMDB does; Open sets
// InitialMmapSize to 1 MiB and larger stores are remapped as they grow.
type Store struct {
	db *bbolt.DB
}

// ErrStoreFull names the store-full condition. bbolt does not impose a
// fixed map size, but the on-disk filesystem can still be exhausted;
// no function in this package returns ErrStoreFull, and a full volume
// surfaces as the wrapped bbolt write error.
var ErrStoreFull = fmt.Errorf("store: underlying volume is full")

// ErrIncompatibleStore is returned by Open when an existing store
// carries a schema version this build doesn't understand.
var ErrIncompatibleStore = fmt.Errorf("store: incompatible store version")

// schemaVersion is bumped whenever the five tables' value shapes
// change in a way old readers can't tolerate.
const schemaVersion = 1

var versionKey = []byte("schema_version")

// Open opens or creates the KV store at path. A freshly created store
// is stamped with the current schema version; an existing store whose
// stamp disagrees is rejected with ErrIncompatibleStore rather than
// silently misread.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{
		Timeout:         5 * time.Second,
		InitialMmapSize: 1 << 20,
	})
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		fresh := tx.Bucket(bucketPrimary) == nil
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("creating bucket %s: %w", b, err)
			}
		}

		meta := tx.Bucket(bucketMetadata)
		if fresh {
			return putJSON(meta, versionKey, schemaVersion)
		}
		raw := meta.Get(versionKey)
		if raw == nil {
			return putJSON(meta, versionKey, schemaVersion)
		}
		var stored int
		if err := json.Unmarshal(raw, &stored); err != nil || stored != schemaVersion {
			return ErrIncompatibleStore
		}
		return nil
	})
	if err != nil {
		db.Close()
		if errors.Is(err, ErrIncompatibleStore) {
			return nil, ErrIncompatibleStore
		}
		return nil, fmt.Errorf("store: initializing buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying environment.
func (s *Store) Close() error {
	return s.db.Close()
}

// SectionWrite bundles every per-section row the KV writer commits
// together, so WriteBatch can make them durable atomically (spec
// invariant 6).
type SectionWrite struct {
	Section  models.Section
	Citation models.CitationRecord
	// Chain is nil when the section's chain didn't meet the complex
	// threshold (spec invariant 5): nothing is written to the chains
	// table for it.
	Chain *models.ChainRecord
}

// ReverseUpdate is a (target, detail) pair to merge into target's
// reverse_citations row during a batch commit.
type ReverseUpdate struct {
	Target string
	Detail models.ReverseCitationDetail
}

// WriteBatch commits primary, citations, chains and the supplied
// reverse-citation updates for one batch inside a single bbolt
// transaction. All five logical tables are updated (reverse and
// metadata totals included) or none are, when the transaction
// commits.
func (s *Store) WriteBatch(writes []SectionWrite, reverseUpdates []ReverseUpdate) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		primary := tx.Bucket(bucketPrimary)
		citations := tx.Bucket(bucketCitations)
		reverse := tx.Bucket(bucketReverse)
		chains := tx.Bucket(bucketChains)
		meta := tx.Bucket(bucketMetadata)

		for _, w := range writes {
			if err := putJSON(primary, []byte(w.Section.ID), w.Section); err != nil {
				return err
			}
			if err := putJSON(citations, []byte(w.Section.ID), w.Citation); err != nil {
				return err
			}
			if w.Chain != nil {
				if err := putJSON(chains, []byte(w.Section.ID), *w.Chain); err != nil {
					return err
				}
			}
		}

		if err := applyReverseUpdates(reverse, reverseUpdates); err != nil {
			return err
		}

		if err := incrementInboundCounts(meta, reverseUpdates); err != nil {
			return err
		}

		return nil
	})
}

func putJSON(b *bbolt.Bucket, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", key, err)
	}
	if err := b.Put(key, data); err != nil {
		return fmt.Errorf("putting %s: %w", key, err)
	}
	return nil
}

func applyReverseUpdates(b *bbolt.Bucket, updates []ReverseUpdate) error {
	byTarget := make(map[string][]models.ReverseCitationDetail)
	for _, u := range updates {
		byTarget[u.Target] = append(byTarget[u.Target], u.Detail)
	}

	for target, details := range byTarget {
		var rec models.ReverseCitationRecord
		if raw := b.Get([]byte(target)); raw != nil {
			if err := json.Unmarshal(raw, &rec); err != nil {
				return fmt.Errorf("decoding existing reverse record for %s: %w", target, err)
			}
		}

		existing := make(map[string]bool, len(rec.CitedBy))
		for _, s := range rec.CitedBy {
			existing[s] = true
		}
		for _, d := range details {
			if existing[d.Source] {
				continue
			}
			existing[d.Source] = true
			rec.CitedBy = append(rec.CitedBy, d.Source)
			rec.CitingDetails = append(rec.CitingDetails, d)
		}
		sort.Strings(rec.CitedBy)
		rec.CitedByCount = len(rec.CitedBy)

		if err := putJSON(b, []byte(target), rec); err != nil {
			return err
		}
	}
	return nil
}

// incrementInboundCounts maintains metadata["inbound_count_<id>"] as a
// cheap counter separate from the full reverse-citation detail array.
// A source citing the same target more than once in a batch counts
// once, matching the reverse row's cited_by dedup.
func incrementInboundCounts(meta *bbolt.Bucket, updates []ReverseUpdate) error {
	deltas := make(map[string]int)
	seen := make(map[[2]string]bool)
	for _, u := range updates {
		pair := [2]string{u.Target, u.Detail.Source}
		if seen[pair] {
			continue
		}
		seen[pair] = true
		deltas[u.Target]++
	}
	for target, delta := range deltas {
		key := []byte("inbound_count_" + target)
		count := 0
		if raw := meta.Get(key); raw != nil {
			_ = json.Unmarshal(raw, &count)
		}
		count += delta
		if err := putJSON(meta, key, count); err != nil {
			return err
		}
	}
	return nil
}

// PutCorpusInfo writes the single build-wide metadata record.
func (s *Store) PutCorpusInfo(info models.CorpusInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx.Bucket(bucketMetadata), []byte("corpus_info"), info)
	})
}

// PutSectionMeta writes an auxiliary per-section metadata record under
// metadata["section_<id>_meta"].
func (s *Store) PutSectionMeta(id string, v interface{}) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx.Bucket(bucketMetadata), []byte("section_"+id+"_meta"), v)
	})
}

// --- Read-only accessors, used directly by pkg/retriever ---

// GetSection returns the primary entry for id, or ok=false if absent.
func (s *Store) GetSection(id string) (*models.Section, bool, error) {
	var sec models.Section
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketPrimary).Get([]byte(id))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &sec)
	})
	if err != nil {
		return nil, false, fmt.Errorf("store: reading section %s: %w", id, err)
	}
	if !found {
		return nil, false, nil
	}
	return &sec, true, nil
}

// GetCitations returns the citations entry for id, or ok=false.
func (s *Store) GetCitations(id string) (*models.CitationRecord, bool, error) {
	var rec models.CitationRecord
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketCitations).Get([]byte(id))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &rec)
	})
	if err != nil {
		return nil, false, fmt.Errorf("store: reading citations for %s: %w", id, err)
	}
	if !found {
		return nil, false, nil
	}
	return &rec, true, nil
}

// GetReverse returns the reverse_citations entry for id, or ok=false.
func (s *Store) GetReverse(id string) (*models.ReverseCitationRecord, bool, error) {
	var rec models.ReverseCitationRecord
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketReverse).Get([]byte(id))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &rec)
	})
	if err != nil {
		return nil, false, fmt.Errorf("store: reading reverse citations for %s: %w", id, err)
	}
	if !found {
		return nil, false, nil
	}
	return &rec, true, nil
}

// GetChain returns the chains entry for id, or ok=false.
func (s *Store) GetChain(id string) (*models.ChainRecord, bool, error) {
	var rec models.ChainRecord
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketChains).Get([]byte(id))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &rec)
	})
	if err != nil {
		return nil, false, fmt.Errorf("store: reading chain for %s: %w", id, err)
	}
	if !found {
		return nil, false, nil
	}
	return &rec, true, nil
}

// GetMetadata decodes the metadata entry under key into v.
func (s *Store) GetMetadata(key string, v interface{}) (bool, error) {
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketMetadata).Get([]byte(key))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, v)
	})
	if err != nil {
		return false, fmt.Errorf("store: reading metadata %s: %w", key, err)
	}
	return found, nil
}

// Bundle is the raw set of rows GetCompleteContext needs, read
// inside a single transaction so the four tables are seen as one
// consistent snapshot.
type Bundle struct {
	Section  *models.Section
	Citation *models.CitationRecord
	Reverse  *models.ReverseCitationRecord
	Chain    *models.ChainRecord
}

// GetBundle reads the primary, citations, reverse_citations and chains
// rows for id inside one bbolt read transaction. Returns nil, nil if
// id has no primary entry.
func (s *Store) GetBundle(id string) (*Bundle, error) {
	var b Bundle
	err := s.db.View(func(tx *bbolt.Tx) error {
		if raw := tx.Bucket(bucketPrimary).Get([]byte(id)); raw != nil {
			var sec models.Section
			if err := json.Unmarshal(raw, &sec); err != nil {
				return err
			}
			b.Section = &sec
		}
		if raw := tx.Bucket(bucketCitations).Get([]byte(id)); raw != nil {
			var rec models.CitationRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
			b.Citation = &rec
		}
		if raw := tx.Bucket(bucketReverse).Get([]byte(id)); raw != nil {
			var rec models.ReverseCitationRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
			b.Reverse = &rec
		}
		if raw := tx.Bucket(bucketChains).Get([]byte(id)); raw != nil {
			var rec models.ChainRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
			b.Chain = &rec
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: reading bundle for %s: %w", id, err)
	}
	if b.Section == nil {
		return nil, nil
	}
	return &b, nil
}

// GetRawMetadata returns the undecoded JSON bytes stored under key,
// for callers that don't know the value's shape ahead of time.
func (s *Store) GetRawMetadata(key string) ([]byte, bool, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketMetadata).Get([]byte(key))
		if v == nil {
			return nil
		}
		raw = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("store: reading metadata %s: %w", key, err)
	}
	return raw, raw != nil, nil
}

// InboundCount returns metadata["inbound_count_<id>"], or 0 if absent.
func (s *Store) InboundCount(id string) (int, error) {
	var count int
	found, err := s.GetMetadata("inbound_count_"+id, &count)
	if err != nil || !found {
		return 0, err
	}
	return count, nil
}

// Counts reports the current entry count of each table, used to
// populate CorpusInfo.
func (s *Store) Counts() (primaryN, citationsN, reverseN, chainsN int, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		primaryN = tx.Bucket(bucketPrimary).Stats().KeyN
		citationsN = tx.Bucket(bucketCitations).Stats().KeyN
		reverseN = tx.Bucket(bucketReverse).Stats().KeyN
		chainsN = tx.Bucket(bucketChains).Stats().KeyN
		return nil
	})
	return
}

// ForEach iterates every key/value pair of the named logical table in
// key order, used by the `inspect` CLI and by pkg/retriever's
// diagnostic scans.
func (s *Store) ForEach(table string, fn func(key, value []byte) error) error {
	b, err := bucketFor(table)
	if err != nil {
		return err
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(b).ForEach(fn)
	})
}

func bucketFor(table string) ([]byte, error) {
	switch table {
	case "primary":
		return bucketPrimary, nil
	case "citations":
		return bucketCitations, nil
	case "reverse_citations":
		return bucketReverse, nil
	case "chains":
		return bucketChains, nil
	case "metadata":
		return bucketMetadata, nil
	default:
		return nil, fmt.Errorf("store: unknown table %q", table)
	}
}

// snapshotter adapts a Store to graph.Snapshotter for chain embedding.
type snapshotter struct{ s *Store }

// NewSnapshotter returns a graph.Snapshotter backed by this store's
// already-committed primary entries, for chain construction that runs
// after a prior batch (e.g. cross-batch forward references).
func (s *Store) NewSnapshotter() graph.Snapshotter {
	return &snapshotter{s: s}
}

func (sn *snapshotter) Snapshot(id string) (models.ChainSnapshot, bool) {
	sec, ok, err := sn.s.GetSection(id)
	if err != nil || !ok {
		return models.ChainSnapshot{}, false
	}
	return models.ChainSnapshot{
		ID:        sec.ID,
		Title:     sec.Title,
		URL:       sec.SourceURL,
		URLHash:   sec.SourceHash,
		FullText:  sec.FullText(),
		WordCount: sec.WordCount,
	}, true
}
