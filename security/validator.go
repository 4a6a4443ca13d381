// Package security implements the pre-storage content validator: a fixed
// set of regular expressions that reject credential-bearing content before
// it reaches long-term storage or working memory.
package security

import "regexp"

// pattern pairs a human-readable name with the regex that detects it. Names
// are what a security-violation error reports back to the caller.
type pattern struct {
	name string
	re   *regexp.Regexp
}

var patterns = []pattern{
	{"openai-api-key", regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{16,}\b`)},
	{"openai-project-key", regexp.MustCompile(`\bsk-proj-[A-Za-z0-9_-]{16,}\b`)},
	{"github-token", regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{16,}\b`)},
	{"aws-access-key", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{"google-api-key", regexp.MustCompile(`\bAIza[0-9A-Za-z_-]{35}\b`)},
	{"bearer-token", regexp.MustCompile(`(?i)\bbearer\s+[a-z0-9._~+/-]{20,}=*`)},
	{"jwt", regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\b`)},
	{"password-assignment", regexp.MustCompile(`(?i)\b(password|passwd|pwd)\s*[:=]\s*\S+`)},
	{"secret-assignment", regexp.MustCompile(`(?i)\bsecret\s*[:=]\s*\S+`)},
	{"db-connection-string", regexp.MustCompile(`(?i)\b(postgres|postgresql|mysql|mongodb(\+srv)?|redis)://[^\s:]+:[^\s@]+@`)},
	{"pem-private-key", regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH )?PRIVATE KEY-----`)},
}

// Validator checks content for credential-bearing patterns.
type Validator struct {
	patterns []pattern
}

// New returns a Validator using the fixed default pattern set.
func New() *Validator {
	return &Validator{patterns: patterns}
}

// Check scans content against every configured pattern. It returns the list
// of matched pattern names (nil if none matched). Callers construct the
// security-violation error themselves so the top-level package can attach
// the standard hint.
func (v *Validator) Check(content string) []string {
	var matched []string
	for _, p := range v.patterns {
		if p.re.MatchString(content) {
			matched = append(matched, p.name)
		}
	}
	return matched
}

// Clean reports whether content contains no credential-bearing pattern.
func (v *Validator) Clean(content string) bool {
	return len(v.Check(content)) == 0
}
