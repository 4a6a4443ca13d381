// Package contextassembler implements the compound GetRelevantContext
// operation: blend working memory and long-term memory into one
// token-budgeted, intent-weighted result.
package contextassembler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/becomeliminal/agentmemory/modelgateway"
	"github.com/becomeliminal/agentmemory/storegw"
	"github.com/becomeliminal/agentmemory/taxonomy"
	"github.com/becomeliminal/agentmemory/workingmemory"
)

// Assembler implements GetRelevantContext.
type Assembler struct {
	workingMem *workingmemory.Manager
	gateway    *modelgateway.Gateway
	store      *storegw.Gateway
}

// New constructs an Assembler.
func New(wm *workingmemory.Manager, gw *modelgateway.Gateway, store *storegw.Gateway) *Assembler {
	return &Assembler{workingMem: wm, gateway: gw, store: store}
}

// ItemSource tags where a context item was drawn from.
type ItemSource string

const (
	SourceWorking  ItemSource = "working-memory"
	SourceLongTerm ItemSource = "long-term"
)

// ContextItem is one entry of GetRelevantContext's returned list.
type ContextItem struct {
	Source    ItemSource
	Category  string // empty for working-memory items
	Subtype   string
	Content   string
	Tokens    int
	Score     float64
	Rationale string
	MemoryID  string // empty for working-memory items
}

// Result is GetRelevantContext's full response.
type Result struct {
	Items             []ContextItem
	TotalTokensUsed   int
	BudgetUsedPct     float64
	DetectedIntent    string
	BreakdownBySource map[string]int
}

type longTermCandidate struct {
	memory     *storegw.LongTermMemory
	category   string
	subtype    string
	score      float64
	similarity float64
}

// GetRelevantContext assembles a token-budgeted, intent-weighted context for
// query.
func (a *Assembler) GetRelevantContext(ctx context.Context, sessionID, userID, query string, tokenBudget int, intentHint string, focusEntities []string) (*Result, error) {
	intent := intentHint
	if !taxonomy.ValidIntent(taxonomy.Intent(intent)) {
		intent = a.gateway.DetectIntent(ctx, query)
	}
	profile := taxonomy.ProfileFor(taxonomy.Intent(intent))

	queryEmbedding, err := a.gateway.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	result := &Result{DetectedIntent: intent, BreakdownBySource: map[string]int{}}
	remaining := tokenBudget

	// Phase 1: working memory.
	workingWeight := profile[taxonomy.WorkingMemoryKey]
	workingBudget := int(float64(tokenBudget) * workingWeight)
	wmItems, err := a.workingMem.GetItems(ctx, sessionID, workingBudget)
	if err != nil {
		return nil, err
	}
	for _, it := range wmItems {
		result.Items = append(result.Items, ContextItem{
			Source:    SourceWorking,
			Content:   it.Content,
			Tokens:    it.Tokens,
			Score:     it.Relevance,
			Rationale: fmt.Sprintf("working-memory (relevance %.2f)", it.Relevance),
		})
		remaining -= it.Tokens
		result.BreakdownBySource[string(SourceWorking)] += it.Tokens
	}

	// Phase 2: long-term candidates, one sub-budget per weighted
	// category.subtype key.
	var candidates []longTermCandidate
	for key, weight := range profile {
		if key == taxonomy.WorkingMemoryKey || weight <= 0 {
			continue
		}
		category, subtype, ok := splitKey(key)
		if !ok {
			continue
		}
		subBudget := int(float64(remaining) * weight)
		if subBudget < 50 {
			continue
		}

		// Read-only candidate retrieval: bypasses longterm.Manager.Recall,
		// since Recall's access-count/access-log side effects are reserved
		// for items genuinely selected into the final context, not every
		// candidate considered and discarded by the greedy pass below.
		hits, err := a.store.VectorSearch(ctx, userID, queryEmbedding, storegw.Filters{
			Categories: []string{category},
			Subtypes:   []string{subtype},
		}, 0, 5)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			candidates = append(candidates, longTermCandidate{
				memory:     hit.Memory,
				category:   category,
				subtype:    subtype,
				score:      hit.Memory.Importance * weight,
				similarity: hit.Similarity,
			})
		}
	}

	// Phase 3: entity boost.
	if len(focusEntities) > 0 {
		focusSet := make(map[string]bool, len(focusEntities))
		for _, e := range focusEntities {
			focusSet[e] = true
		}
		for i := range candidates {
			overlap := 0
			for _, e := range candidates[i].memory.Entities {
				if focusSet[e] {
					overlap++
				}
			}
			candidates[i].score *= 1 + 0.3*float64(overlap)
		}
	}

	// Phase 4: greedy selection by descending score, skip-don't-truncate.
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	var accessed []storegw.AccessLogEntry
	for _, c := range candidates {
		tokens := workingmemory.CountTokens(c.memory.Content)
		if tokens > remaining {
			continue
		}
		result.Items = append(result.Items, ContextItem{
			Source:    SourceLongTerm,
			Category:  c.category,
			Subtype:   c.subtype,
			Content:   c.memory.Content,
			Tokens:    tokens,
			Score:     c.score,
			Rationale: fmt.Sprintf("%s.%s (score %.2f)", c.category, c.subtype, c.score),
			MemoryID:  c.memory.MemoryID,
		})
		remaining -= tokens
		result.BreakdownBySource[string(SourceLongTerm)] += tokens
		accessed = append(accessed, storegw.AccessLogEntry{
			MemoryID:   c.memory.MemoryID,
			SessionID:  sessionID,
			UserID:     userID,
			Query:      query,
			Similarity: c.similarity,
		})
		result.TotalTokensUsed += tokens
	}

	for _, it := range wmItems {
		result.TotalTokensUsed += it.Tokens
	}
	if tokenBudget > 0 {
		result.BudgetUsedPct = 100 * float64(result.TotalTokensUsed) / float64(tokenBudget)
	}

	for _, entry := range accessed {
		a.store.AppendAccessLog(ctx, entry)
	}

	return result, nil
}

func splitKey(key string) (category, subtype string, ok bool) {
	idx := strings.IndexByte(key, '.')
	if idx < 0 {
		return "", "", false
	}
	return key[:idx], key[idx+1:], true
}
