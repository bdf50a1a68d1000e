package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/contentforge-backend/internal/repos"
	"github.com/yungbote/contentforge-backend/internal/types"
)

const (
	TypeRecord = "record"
	TypeFeed   = "feed"
	TypeStatic = "static"

	excerptMaxChars  = 280
	defaultFetchSize = 5
	recencyHorizon   = 30 * 24 * time.Hour
)

// recordStrategy looks evidence up in the record store by collection and
// tag filter.
type recordStrategy struct {
	records repos.SourceRecordRepo
}

func NewRecordStrategy(records repos.SourceRecordRepo) Strategy {
	return &recordStrategy{records: records}
}

func (s *recordStrategy) Type() string { return TypeRecord }

func (s *recordStrategy) Fetch(ctx context.Context, q Query) ([]Evidence, error) {
	collection := q.Filter["collection"]
	if collection == "" {
		collection = "default"
	}
	tags := splitTags(q.Filter["tags"])
	limit := q.Limit
	if limit <= 0 {
		limit = defaultFetchSize
	}
	rows, err := s.records.FindByCollection(ctx, nil, collection, tags, limit)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	out := make([]Evidence, 0, len(rows))
	for _, row := range rows {
		matched := matchedTagCount(row, tags)
		out = append(out, Evidence{
			SourceType: TypeRecord,
			SourceID:   row.ID.String(),
			Title:      row.Title,
			Excerpt:    Excerpt(row.Body),
			Relevance:  Relevance(now.Sub(row.CreatedAt), matched, len(tags), recencyHorizon),
			FetchedAt:  now,
		})
	}
	return out, nil
}

// feedStrategy returns the most recent records of a collection regardless of
// tags; relevance is pure recency.
type feedStrategy struct {
	records repos.SourceRecordRepo
}

func NewFeedStrategy(records repos.SourceRecordRepo) Strategy {
	return &feedStrategy{records: records}
}

func (s *feedStrategy) Type() string { return TypeFeed }

func (s *feedStrategy) Fetch(ctx context.Context, q Query) ([]Evidence, error) {
	collection := q.Filter["collection"]
	if collection == "" {
		collection = "feed"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultFetchSize
	}
	rows, err := s.records.FindByCollection(ctx, nil, collection, nil, limit)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	out := make([]Evidence, 0, len(rows))
	for _, row := range rows {
		out = append(out, Evidence{
			SourceType: TypeFeed,
			SourceID:   row.ID.String(),
			Title:      row.Title,
			Excerpt:    Excerpt(row.Body),
			Relevance:  Relevance(now.Sub(row.CreatedAt), 1, 1, recencyHorizon),
			FetchedAt:  now,
		})
	}
	return out, nil
}

// StaticDoc is a fixed evidence document for the static strategy.
type StaticDoc struct {
	ID    string   `yaml:"id"`
	Title string   `yaml:"title"`
	Body  string   `yaml:"body"`
	Tags  []string `yaml:"tags"`
}

// LoadStaticDocs reads a YAML document set from disk for the static strategy.
func LoadStaticDocs(path string) ([]StaticDoc, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read static docs: %w", err)
	}
	var docs []StaticDoc
	if err := yaml.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("parse static docs: %w", err)
	}
	return docs, nil
}

// staticStrategy serves a fixed document set. Used for notification context
// blocks and by tests.
type staticStrategy struct {
	docs []StaticDoc
}

func NewStaticStrategy(docs []StaticDoc) Strategy {
	return &staticStrategy{docs: docs}
}

func (s *staticStrategy) Type() string { return TypeStatic }

func (s *staticStrategy) Fetch(ctx context.Context, q Query) ([]Evidence, error) {
	tags := splitTags(q.Filter["tags"])
	now := time.Now()
	out := make([]Evidence, 0, len(s.docs))
	for _, doc := range s.docs {
		matched := 0
		for _, want := range tags {
			for _, have := range doc.Tags {
				if strings.EqualFold(want, have) {
					matched++
					break
				}
			}
		}
		if len(tags) > 0 && matched == 0 {
			continue
		}
		out = append(out, Evidence{
			SourceType: TypeStatic,
			SourceID:   doc.ID,
			Title:      doc.Title,
			Excerpt:    Excerpt(doc.Body),
			Relevance:  Relevance(0, matched, len(tags), recencyHorizon),
			FetchedAt:  now,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Relevance > out[j].Relevance })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Excerpt trims a body down to a short evidence snippet on a word boundary.
func Excerpt(body string) string {
	body = strings.TrimSpace(body)
	if len(body) <= excerptMaxChars {
		return body
	}
	cut := body[:excerptMaxChars]
	if idx := strings.LastIndexByte(cut, ' '); idx > excerptMaxChars/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func matchedTagCount(rec *types.SourceRecord, tags []string) int {
	if rec == nil || len(tags) == 0 || len(rec.Tags) == 0 {
		return 0
	}
	var recTags []string
	if err := json.Unmarshal(rec.Tags, &recTags); err != nil {
		return 0
	}
	n := 0
	for _, want := range tags {
		for _, have := range recTags {
			if strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(have)) {
				n++
				break
			}
		}
	}
	return n
}
