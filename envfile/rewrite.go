package envfile

import (
	"math/big"
	"regexp"
	"strings"
	"time"
)

const (
	shortDateLayout = "2006-01-02"
	fullDateLayout  = "2006-01-02T15:04:05.000Z07:00"
)

// LineUpdate records one changed line.
type LineUpdate struct {
	File     string // Absolute path of the file
	Line     int    // 1-based line number
	Original string // Line before the rewrite
	Updated  string // Line after the rewrite
}

// Rewriter applies timestamp and build-counter rewrites to env file content.
type Rewriter struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// UTC stamps timestamps in UTC instead of local time.
	UTC bool
}

// NewRewriter creates a rewriter using the wall clock.
func NewRewriter(utc bool) *Rewriter {
	return &Rewriter{Now: time.Now, UTC: utc}
}

func (r *Rewriter) now() time.Time {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	t := now()
	if r.UTC {
		return t.UTC()
	}
	return t
}

// Rewrite returns the rewritten content, the changed lines and whether
// anything changed. The returned updates have no File set.
// Unchanged content is returned as-is; changed content is re-joined with "\n".
func (r *Rewriter) Rewrite(content string) (string, []LineUpdate, bool) {
	now := r.now()
	lines := SplitLines(content)

	var updates []LineUpdate
	for i, raw := range lines {
		updated := rewriteLine(raw, now)
		if updated == raw {
			continue
		}
		lines[i] = updated
		updates = append(updates, LineUpdate{
			Line:     i + 1,
			Original: raw,
			Updated:  updated,
		})
	}

	if len(updates) == 0 {
		return content, nil, false
	}
	return strings.Join(lines, "\n"), updates, true
}

// RewriteLine rewrites a single line using the rewriter's clock.
func (r *Rewriter) RewriteLine(raw string) string {
	return rewriteLine(raw, r.now())
}

func rewriteLine(raw string, now time.Time) string {
	line, ok := ParseLine(raw)
	if !ok {
		return raw
	}

	key := NormalizeKey(line.Key)
	value := line.Value
	matched := false

	if IsTimestampKey(key) {
		value = StampDate(now, IsFullTimestampKey(key))
		matched = true
	}
	if IsBuildKey(key) {
		value = IncrementBuild(value)
		matched = true
	}

	if !matched {
		return raw
	}
	return line.Key + "=" + value
}

// StampDate formats t as a calendar date, or as a full ISO 8601 timestamp
// with milliseconds and zone when full is set.
func StampDate(t time.Time, full bool) string {
	if full {
		return t.Format(fullDateLayout)
	}
	return t.Format(shortDateLayout)
}

var digitRun = regexp.MustCompile(`[0-9]+`)

// IncrementBuild increments the first run of decimal digits in value.
// Without digits, "1" is appended.
func IncrementBuild(value string) string {
	loc := digitRun.FindStringIndex(value)
	if loc == nil {
		return value + "1"
	}

	n, _ := new(big.Int).SetString(value[loc[0]:loc[1]], 10)
	n.Add(n, big.NewInt(1))
	return value[:loc[0]] + n.String() + value[loc[1]:]
}
