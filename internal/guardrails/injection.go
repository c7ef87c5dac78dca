// Package guardrails screens untrusted résumé text before it is placed in a
// model prompt.
package guardrails

import (
	"sort"
	"strings"
)

// InjectionThreshold is the score at which a finding is worth reporting.
const InjectionThreshold = 0.7

// Finding is the outcome of an injection scan.
type Finding struct {
	Score float64  `json:"score"`
	Flags []string `json:"flags,omitempty"`
}

// Suspicious reports whether the score reaches InjectionThreshold.
func (f Finding) Suspicious() bool {
	return f.Score >= InjectionThreshold
}

var injectionPatterns = []struct {
	pattern string
	weight  float64
	flag    string
}{
	{"ignore previous instructions", 0.9, "override_attempt"},
	{"ignore all previous", 0.9, "override_attempt"},
	{"disregard your instructions", 0.9, "override_attempt"},
	{"disregard the above", 0.85, "override_attempt"},
	{"forget your instructions", 0.85, "override_attempt"},
	{"pretend you are", 0.7, "role_hijack"},
	{"act as if you", 0.6, "role_hijack"},
	{"system prompt:", 0.8, "system_leak"},
	{"reveal your system", 0.8, "system_leak"},
	{"jailbreak", 0.9, "jailbreak"},
	{"do anything now", 0.85, "jailbreak"},
	{"</system>", 0.8, "tag_injection"},
	{"<system>", 0.8, "tag_injection"},
	{"[system]", 0.7, "tag_injection"},
	{"### instruction", 0.6, "format_injection"},
	{"```system", 0.7, "format_injection"},
	// Aimed at screening models rather than the pipeline itself.
	{"rate this candidate", 0.7, "ranking_manipulation"},
	{"this candidate is the best", 0.75, "ranking_manipulation"},
	{"recommend this candidate", 0.7, "ranking_manipulation"},
}

// ScanInjection scores text against known prompt injection phrases. The
// score is the heaviest matching weight. Flags are sorted and unique.
func ScanInjection(text string) Finding {
	lower := strings.ToLower(text)
	var f Finding
	seen := map[string]bool{}
	for _, p := range injectionPatterns {
		if !strings.Contains(lower, p.pattern) {
			continue
		}
		if p.weight > f.Score {
			f.Score = p.weight
		}
		if !seen[p.flag] {
			seen[p.flag] = true
			f.Flags = append(f.Flags, p.flag)
		}
	}
	sort.Strings(f.Flags)
	return f
}
