package workingmemory

// CountTokens deterministically assigns a token count to working-memory
// content: the common "~4 characters per token" approximation, rounded up
// so short non-empty content never counts as zero tokens. Counts only need
// to be stable and roughly proportional to real tokenizer output — budgets
// and eviction compare them against each other, never against a model's
// own accounting.
func CountTokens(content string) int {
	if content == "" {
		return 0
	}
	n := (len(content) + 3) / 4
	if n < 1 {
		n = 1
	}
	return n
}
