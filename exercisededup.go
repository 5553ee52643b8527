package lessonplanner

import (
	"strings"
	"unicode"
)

// DedupResult records why an exercise was dropped
type DedupResult struct {
	Index       int    `json:"index"`
	DuplicateOf int    `json:"duplicate_of"`
	Reason      string `json:"reason"`
}

// normalizeQuestion strips spacing, punctuation and case so rephrasings that only
// differ in those compare equal
func normalizeQuestion(text string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// DedupExercises drops items that repeat an earlier item of the same type.
// Two items are duplicates when their normalized questions match, or when
// they are multiple choice with the same option set and answer.
func DedupExercises(items []ExerciseItem) ([]ExerciseItem, []DedupResult) {
	kept := make([]ExerciseItem, 0, len(items))
	var dropped []DedupResult
	seen := make(map[string]int)

	for i, item := range items {
		keys := []string{string(item.Type) + "|q|" + normalizeQuestion(item.Question)}
		if len(item.Options) > 0 {
			opts := make([]string, len(item.Options))
			for j, opt := range item.Options {
				opts[j] = normalizeQuestion(opt)
			}
			keys = append(keys, string(item.Type)+"|o|"+strings.Join(opts, "\x1f")+"|"+normalizeQuestion(item.Answer))
		}

		duplicate := -1
		reason := ""
		for k, key := range keys {
			if first, ok := seen[key]; ok {
				duplicate = first
				reason = "same question"
				if k == 1 {
					reason = "same options and answer"
				}
				break
			}
		}
		if duplicate >= 0 {
			dropped = append(dropped, DedupResult{Index: i, DuplicateOf: duplicate, Reason: reason})
			VerboseLog("Exercise %d duplicates %d: %s", i, duplicate, reason)
			continue
		}
		for _, key := range keys {
			seen[key] = i
		}
		kept = append(kept, item)
	}
	return kept, dropped
}
