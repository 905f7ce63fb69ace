// Package matchstore loads normalized wrestler and match records from a JSON
// or YAML store document into a deduplicated corpus.
package matchstore

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/joshirank/internal/domain/dedupe"
	"github.com/okian/joshirank/internal/domain/model"
	"github.com/okian/joshirank/pkg/logger"
	"github.com/okian/joshirank/pkg/metrics"
)

// Stats summarizes one load.
type Stats struct {
	Wrestlers  int `json:"wrestlers" yaml:"wrestlers"`
	Records    int `json:"records" yaml:"records"`
	Matches    int `json:"matches" yaml:"matches"`
	Duplicates int `json:"duplicates" yaml:"duplicates"`
}

// Reader turns store documents into corpora. It is safe for concurrent use.
type Reader struct {
	dedupeLimit int
	logger      logger.Logger
}

// NewReader creates a Reader.
func NewReader(opts ...Option) *Reader {
	r := &Reader{logger: logger.Get().Named("matchstore")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reads the document at path. Any failure is wrapped in ErrMatchStore.
func (r *Reader) Load(ctx context.Context, path string) (*model.Corpus, Stats, error) {
	if path == "" {
		return nil, Stats{}, fmt.Errorf("%w: no input path", ErrMatchStore)
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, Stats{}, fmt.Errorf("%w: %v", ErrMatchStore, err)
	}
	corpus, stats, err := r.Decode(ctx, data)
	if err != nil {
		return nil, stats, fmt.Errorf("%s: %w", path, err)
	}
	r.logger.Info(ctx, "match store loaded",
		logger.String("path", path),
		logger.Int("wrestlers", stats.Wrestlers),
		logger.Int("matches", stats.Matches),
		logger.Int("duplicates", stats.Duplicates),
	)
	return corpus, stats, nil
}

// Decode parses a JSON or YAML document. JSON is read through the YAML
// decoder, which accepts it as a subset.
func (r *Reader) Decode(ctx context.Context, data []byte) (*model.Corpus, Stats, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, Stats{}, fmt.Errorf("%w: empty document", ErrMatchStore)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, Stats{}, fmt.Errorf("%w: %v", ErrMatchStore, err)
	}
	if doc.empty() {
		return nil, Stats{}, fmt.Errorf("%w: document has no wrestlers, matches or records", ErrMatchStore)
	}
	return r.build(ctx, &doc)
}

func (r *Reader) build(ctx context.Context, doc *document) (*model.Corpus, Stats, error) {
	var opts []dedupe.Option
	if r.dedupeLimit > 0 {
		opts = append(opts, dedupe.WithMaxSize(r.dedupeLimit))
	}
	seen := dedupe.NewInMemoryDeduper(opts...)
	corpus := model.NewCorpus()
	var stats Stats

	// Within one list, the nth unidentified copy of the same content is its
	// own match. Two records listing the same card line up copy for copy.
	add := func(md matchDoc, recordYear int, occurrences map[string]int) {
		m := md.toMatch(recordYear)
		if m.ID == "" {
			key := m.Key()
			occurrences[key]++
			if n := occurrences[key]; n > 1 {
				m.ID = fmt.Sprintf("%s-%d", key, n)
			}
		}
		if seen.SeenAndRecord(ctx, m.Key()) {
			stats.Duplicates++
			metrics.RecordMatchDeduplicated()
			return
		}
		corpus.AddMatch(m)
	}

	for _, w := range doc.Wrestlers {
		corpus.AddWrestler(model.Wrestler{ID: string(w.ID), Name: w.Name})
	}
	top := make(map[string]int)
	for _, md := range doc.Matches {
		add(md, 0, top)
	}
	for _, rec := range doc.Records {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		stats.Records++
		wid := string(rec.WrestlerID)
		corpus.AddWrestler(model.Wrestler{ID: wid, Name: rec.Name})
		occurrences := make(map[string]int)
		for _, md := range rec.Matches {
			add(md, rec.Year, occurrences)
		}
		if wid != "" && rec.PromotionsWorked != nil {
			key := model.WrestlerYear{WrestlerID: wid, Year: rec.Year}
			counts := make(map[string]int, len(rec.PromotionsWorked))
			for k, v := range rec.PromotionsWorked {
				counts[k] = v
			}
			corpus.CachedCounts[key] = counts
		}
	}

	stats.Matches = corpus.Len()
	stats.Wrestlers = len(corpus.WrestlerIDs())
	metrics.RecordMatchesLoaded(stats.Matches)
	return corpus, stats, nil
}
