package events

import "strings"

// programDataPrefix precedes the base64-encoded event payload in program
// log output.
const programDataPrefix = "Program data: "

// ScanLogs walks a transaction's log lines and extracts every encoded
// payload belonging to the given category.
//
// For each line matching one of the category's marker patterns, the scan
// continues forward until a "Program data:" line is found; the remainder of
// that line is captured as the payload. Scanning then resumes from the line
// after the marker, so several occurrences of the same category within one
// transaction are all extracted. A marker with no data line before the log
// ends is discarded.
//
// Lines logged by other programs are deliberately skipped over rather than
// terminating the search; inner invocations interleave their output with
// the outer program's.
func ScanLogs(logs []string, category Category) []string {
	patterns := markerPatterns[category]
	var payloads []string

	for i := 0; i < len(logs); i++ {
		if !matchesAny(logs[i], patterns) {
			continue
		}
		for j := i + 1; j < len(logs); j++ {
			if rest, ok := strings.CutPrefix(logs[j], programDataPrefix); ok {
				payloads = append(payloads, rest)
				break
			}
		}
	}

	return payloads
}

func matchesAny(log string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(log, p) {
			return true
		}
	}
	return false
}
