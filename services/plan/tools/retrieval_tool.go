// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	badgerstore "github.com/AleutianAI/Planweave/services/plan/storage/badger"
)

// docKeyPrefix versions the corpus storage layout so a future format
// change cannot collide with v1 entries.
const docKeyPrefix = "docs/v1/"

// retrievalSnippetLimit is the maximum number of sentences returned per query.
const retrievalSnippetLimit = 3

// RetrievalTool answers keyword queries against one document stored in
// the embedded Badger corpus. Each instance is bound to a single document
// (e.g. "uber_10k" answers questions about one filing), matching the
// one-tool-per-corpus shape the planning prompt presents.
//
// Thread Safety: safe for concurrent use; reads only.
type RetrievalTool struct {
	store       *badgerstore.DB
	name        string
	description string
}

// NewRetrievalTool binds a retrieval tool to the document stored under
// name in the corpus.
func NewRetrievalTool(store *badgerstore.DB, name, description string) *RetrievalTool {
	return &RetrievalTool{store: store, name: name, description: description}
}

// Definition implements Tool.
func (t *RetrievalTool) Definition() Definition {
	return Definition{
		Name:        t.name,
		Description: t.description,
		Params:      []Param{{Name: "query", Type: "string"}},
		Returns:     "string",
	}
}

// Invoke implements Tool: returns the document sentences that best match
// the query's terms.
func (t *RetrievalTool) Invoke(ctx context.Context, args []any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("%s: expected 1 argument, got %d", t.name, len(args))
	}
	query, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("%s: query must be a string, got %T", t.name, args[0])
	}

	raw, err := t.store.Get([]byte(docKeyPrefix + t.name))
	if err != nil {
		return nil, fmt.Errorf("%s: loading document: %w", t.name, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: document not seeded", t.name)
	}

	snippets := rankSentences(string(raw), query)
	if len(snippets) == 0 {
		return fmt.Sprintf("No passage in %s matched the query.", t.name), nil
	}
	return strings.Join(snippets, " "), nil
}

// SeedDocuments stores the given name → text corpus. Called once at
// startup; documents persist without TTL so restarts do not lose them.
func SeedDocuments(store *badgerstore.DB, docs map[string]string) error {
	for name, text := range docs {
		if err := store.Set([]byte(docKeyPrefix+name), []byte(text), 0); err != nil {
			return fmt.Errorf("seeding %q: %w", name, err)
		}
	}
	return nil
}

// rankSentences scores each sentence of the document by query term
// overlap and returns the top sentences in document order.
func rankSentences(doc, query string) []string {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil
	}

	type scored struct {
		index    int
		sentence string
		score    int
	}
	var hits []scored
	for i, sentence := range splitSentences(doc) {
		lower := strings.ToLower(sentence)
		score := 0
		for term := range terms {
			if strings.Contains(lower, term) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{index: i, sentence: sentence, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > retrievalSnippetLimit {
		hits = hits[:retrievalSnippetLimit]
	}
	// Back to document order so the snippet reads coherently.
	sort.Slice(hits, func(i, j int) bool { return hits[i].index < hits[j].index })

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = strings.TrimSpace(h.sentence)
	}
	return out
}

// queryTerms lowercases and splits the query, dropping short stopwords
// that would match everything.
func queryTerms(query string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, `.,;:!?"'()`)
		if len(w) < 3 {
			continue
		}
		switch w {
		case "the", "and", "for", "was", "were", "what", "how", "much", "many":
			continue
		}
		terms[w] = struct{}{}
	}
	return terms
}

// splitSentences splits on sentence-ending punctuation, keeping it. A
// period between two digits is a decimal point, not a boundary.
func splitSentences(doc string) []string {
	var out []string
	start := 0
	for i := 0; i < len(doc); i++ {
		switch doc[i] {
		case '.', '!', '?', '\n':
			if doc[i] == '.' && i > 0 && i+1 < len(doc) &&
				isDigit(doc[i-1]) && isDigit(doc[i+1]) {
				continue
			}
			if s := strings.TrimSpace(doc[start : i+1]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(doc[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
