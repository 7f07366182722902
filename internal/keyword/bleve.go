package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/promptrepo/internal/models"
	"github.com/hyperjump/promptrepo/internal/vector"
)

const (
	wholeFieldAnalyzer = "whole_lower"
	promptType         = "prompt"
	pageSize           = 200
)

// searchFields are the fields a fallback query looks at.
var searchFields = []string{"title", "description", "prompt_text"}

// BleveIndex implements FallbackIndex using Bleve. Each field is indexed as
// one lowercased term so a wildcard query finds substrings anywhere in it.
type BleveIndex struct {
	index bleve.Index
}

func buildMapping() (mapping.IndexMapping, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(wholeFieldAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     single.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register analyzer: %w", err)
	}

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = wholeFieldAnalyzer
	textFieldMapping.IncludeTermVectors = false
	for _, f := range searchFields {
		docMapping.AddFieldMappingsAt(f, textFieldMapping)
	}
	im.AddDocumentMapping(promptType, docMapping)
	im.DefaultType = promptType
	im.DefaultMapping = docMapping
	return im, nil
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path gives an
// in-memory index, which callers refill from storage on startup.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im, err := buildMapping()
	if err != nil {
		return nil, err
	}

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds or replaces a prompt.
func (b *BleveIndex) Index(ctx context.Context, p *models.Prompt) error {
	return b.index.Index(p.ID, map[string]interface{}{
		"title":       collapseSpace(p.Title),
		"description": collapseSpace(p.Description),
		"prompt_text": collapseSpace(p.PromptText),
	})
}

// Delete removes a prompt from the index. Unknown ids are ignored.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Search returns prompts whose title, description or prompt text contains
// text, case-insensitively, ordered by id with score FallbackScore.
func (b *BleveIndex) Search(ctx context.Context, text string, limit int) ([]vector.Result, error) {
	out := []vector.Result{}
	if limit <= 0 {
		return out, nil
	}
	needle := collapseSpace(strings.ToLower(text))
	// * and ? are wildcard syntax; widen them to one-character matches and
	// check the literal substring on the stored fields afterwards.
	literal := !strings.ContainsAny(needle, "*?")
	pattern := "*" + strings.NewReplacer("*", "?").Replace(needle) + "*"

	disjuncts := make([]blevequery.Query, 0, len(searchFields))
	for _, f := range searchFields {
		wq := bleve.NewWildcardQuery(pattern)
		wq.SetField(f)
		disjuncts = append(disjuncts, wq)
	}
	q := bleve.NewDisjunctionQuery(disjuncts...)

	for from := 0; ; from += pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req := bleve.NewSearchRequestOptions(q, pageSize, from, false)
		req.SortBy([]string{"_id"})
		if !literal {
			req.Fields = searchFields
		}
		res, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("Bleve search failed: %w", err)
		}
		for _, hit := range res.Hits {
			if !literal && !hitContains(hit.Fields, needle) {
				continue
			}
			out = append(out, vector.Result{ID: hit.ID, Score: FallbackScore})
			if len(out) == limit {
				return out, nil
			}
		}
		if len(res.Hits) < pageSize {
			return out, nil
		}
	}
}

func hitContains(fields map[string]interface{}, needle string) bool {
	for _, f := range searchFields {
		if s, ok := fields[f].(string); ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

// collapseSpace turns every whitespace run into a single space. Wildcard
// patterns cannot match across line breaks, so fields are indexed this way.
func collapseSpace(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				sb.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// DocCount returns the total number of prompts in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
