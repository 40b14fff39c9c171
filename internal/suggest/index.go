// Package suggest offers keyword completions from previously analyzed keywords,
// history entries, and related rising queries.
package suggest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/trendlens/internal/models"
)

// Sources of indexed keywords.
const (
	SourceKeyword = "keyword"
	SourceHistory = "history"
	SourceRelated = "related"
)

const (
	defaultLimit = 10
	fuzziness    = 1
	minFuzzyLen  = 4
)

// Suggestion is one completion candidate.
type Suggestion struct {
	Keyword    string  `json:"keyword"`
	Source     string  `json:"source"`
	Popularity float64 `json:"popularity"`
	Distance   int     `json:"distance"`
	Prefix     bool    `json:"prefix"`
}

type entry struct {
	keyword    string
	source     string
	popularity float64
}

// Index is a Bleve-backed suggestion index. It is safe for concurrent use.
type Index struct {
	index bleve.Index

	mu      sync.Mutex
	entries map[string]*entry
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	// standard analyzer: lowercase and tokenize without stemming, so prefixes stay intact
	text.Analyzer = standard.Name
	doc.AddFieldMappingsAt("keyword", text)
	doc.AddFieldMappingsAt("source", bleve.NewKeywordFieldMapping())
	doc.AddFieldMappingsAt("popularity", bleve.NewNumericFieldMapping())
	im.DefaultMapping = doc
	return im
}

// NewIndex creates an empty in-memory index. Callers seed it from persisted history
// and the result log at startup.
func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create suggestion index: %w", err)
	}
	return &Index{index: idx, entries: make(map[string]*entry)}, nil
}

func docID(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}

// Add indexes keyword, adding weight to its popularity. The first source seen is kept.
func (x *Index) Add(keyword, source string, weight float64) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil
	}
	id := docID(keyword)
	x.mu.Lock()
	defer x.mu.Unlock()
	e, ok := x.entries[id]
	if !ok {
		e = &entry{keyword: keyword, source: source}
		x.entries[id] = e
	}
	e.popularity += weight
	return x.index.Index(id, map[string]interface{}{
		"keyword":    e.keyword,
		"source":     e.source,
		"popularity": e.popularity,
	})
}

// AddHistory indexes each keyword of the history entries.
func (x *Index) AddHistory(entries []string) error {
	for _, e := range entries {
		for _, k := range strings.Split(e, ",") {
			if err := x.Add(k, SourceHistory, 1); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddResults indexes the keywords with data in rs and their related queries.
func (x *Index) AddResults(rs *models.ResultSet) error {
	for _, res := range rs.Results() {
		data, ok := res.OK()
		if !ok {
			continue
		}
		if err := x.Add(res.Keyword, SourceKeyword, 1); err != nil {
			return err
		}
		for _, rq := range data.RelatedQueries {
			if err := x.Add(rq.Query, SourceRelated, rq.Value/100); err != nil {
				return err
			}
		}
	}
	return nil
}

// Len returns the number of indexed keywords.
func (x *Index) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.entries)
}

// Suggest returns up to limit keywords matching the typed input. The last word of the
// input is matched as a prefix; earlier words (and a lone word of four or more letters)
// also tolerate one typo. Prefix matches rank first, then by edit distance, then popularity.
func (x *Index) Suggest(ctx context.Context, input string, limit int) ([]Suggestion, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	terms := strings.Fields(strings.ToLower(input))
	if len(terms) == 0 {
		return []Suggestion{}, nil
	}
	req := bleve.NewSearchRequest(buildQuery(terms))
	req.Size = limit * 5
	req.Fields = []string{"keyword", "source", "popularity"}
	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("suggestion search failed: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(input))
	out := make([]Suggestion, 0, len(res.Hits))
	for _, hit := range res.Hits {
		kw, _ := hit.Fields["keyword"].(string)
		if kw == "" {
			continue
		}
		src, _ := hit.Fields["source"].(string)
		pop, _ := hit.Fields["popularity"].(float64)
		lower := strings.ToLower(kw)
		out = append(out, Suggestion{
			Keyword:    kw,
			Source:     src,
			Popularity: pop,
			Distance:   LevenshteinDistance(needle, lower),
			Prefix:     strings.HasPrefix(lower, needle),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Prefix != b.Prefix {
			return a.Prefix
		}
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.Popularity != b.Popularity {
			return a.Popularity > b.Popularity
		}
		return a.Keyword < b.Keyword
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func buildQuery(terms []string) blevequery.Query {
	last := len(terms) - 1
	parts := make([]blevequery.Query, 0, len(terms))
	for i, t := range terms {
		if i == last {
			parts = append(parts, termQuery(t, true))
		} else {
			parts = append(parts, termQuery(t, false))
		}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return bleve.NewConjunctionQuery(parts...)
}

// termQuery matches t exactly or with one typo; as a prefix too when prefix is set.
func termQuery(t string, prefix bool) blevequery.Query {
	var alts []blevequery.Query
	if prefix {
		pq := bleve.NewPrefixQuery(t)
		pq.SetField("keyword")
		alts = append(alts, pq)
	}
	if len([]rune(t)) >= minFuzzyLen {
		fq := bleve.NewFuzzyQuery(t)
		fq.SetFuzziness(fuzziness)
		fq.SetField("keyword")
		alts = append(alts, fq)
	} else if !prefix {
		tq := bleve.NewTermQuery(t)
		tq.SetField("keyword")
		alts = append(alts, tq)
	}
	if len(alts) == 1 {
		return alts[0]
	}
	return bleve.NewDisjunctionQuery(alts...)
}

// Close closes the index.
func (x *Index) Close() error {
	return x.index.Close()
}
