package command

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Intent classifies a free-text command.
type Intent string

const (
	IntentSchedule Intent = "SCHEDULE"
	IntentCancel   Intent = "CANCEL"
	IntentQuery    Intent = "QUERY"
	IntentUnknown  Intent = "UNKNOWN"
)

// Command is the structured result of parsing one free-text line. It is a
// stateless request: nothing here is persisted.
type Command struct {
	Intent       Intent
	Title        string
	Start        time.Time
	End          time.Time
	HasTime      bool
	Participants []string
	SkipHolidays bool   // recurring occurrences on holidays are suppressed
	QueryRange   string // "day", "week" or "month" for query intents
}

// Parser turns free-text calendar commands into structured Commands using
// keyword matching. It is deliberately rule-based; there is no external NLP.
type Parser struct {
	loc *time.Location
	now func() time.Time
}

func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{loc: loc, now: time.Now}
}

var (
	scheduleWords = []string{"schedule", "set up", "plan", "create", "book", "add", "organize", "arrange"}
	cancelWords   = []string{"cancel", "delete", "remove", "unschedule", "drop"}
	queryWords    = []string{"what's", "whats", "show", "find", "when is", "where is", "list", "display", "tell me", "search", "check"}

	clockRe    = regexp.MustCompile(`\bat (\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	durationRe = regexp.MustCompile(`\bfor (\d+)\s*(hour|hr|minute|min)s?\b`)
	quotedRe   = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)
	withRe     = regexp.MustCompile(`\bwith ([a-z0-9._%+-]+@[a-z0-9.-]+|[a-z]+(?: and [a-z]+)*)\b`)

	weekdays = []struct {
		name string
		day  time.Weekday
	}{
		{"sunday", time.Sunday}, {"monday", time.Monday}, {"tuesday", time.Tuesday},
		{"wednesday", time.Wednesday}, {"thursday", time.Thursday},
		{"friday", time.Friday}, {"saturday", time.Saturday},
	}

	// Words that terminate a title when scanning forward from the intent verb.
	titleStopWords = map[string]bool{
		"at": true, "on": true, "for": true, "with": true, "today": true,
		"tomorrow": true, "next": true, "this": true, "from": true,
	}
)

// Parse classifies the command and extracts the event title, time window and
// participants that the text carries. Unrecognized commands come back with
// IntentUnknown; callers surface that as a domain error, never a crash.
func (p *Parser) Parse(text string) Command {
	lower := strings.ToLower(strings.TrimSpace(text))
	cmd := Command{Intent: p.detectIntent(lower)}

	switch cmd.Intent {
	case IntentSchedule:
		cmd.Title = p.extractTitle(text, lower, scheduleWords)
		cmd.Start, cmd.End, cmd.HasTime = p.extractWindow(lower)
		cmd.Participants = extractParticipants(lower)
		cmd.SkipHolidays = detectSkipHolidays(lower)
	case IntentCancel:
		cmd.Title = p.extractTitle(text, lower, cancelWords)
	case IntentQuery:
		cmd.QueryRange = "day"
		if strings.Contains(lower, "week") {
			cmd.QueryRange = "week"
		} else if strings.Contains(lower, "month") {
			cmd.QueryRange = "month"
		}
	}
	return cmd
}

func (p *Parser) detectIntent(lower string) Intent {
	for _, w := range cancelWords {
		if strings.Contains(lower, w) {
			return IntentCancel
		}
	}
	for _, w := range scheduleWords {
		if strings.Contains(lower, w) {
			return IntentSchedule
		}
	}
	for _, w := range queryWords {
		if strings.Contains(lower, w) {
			return IntentQuery
		}
	}
	return IntentUnknown
}

// extractTitle prefers a quoted phrase; otherwise it takes the words after
// the intent verb up to the first temporal or participant marker.
func (p *Parser) extractTitle(original, lower string, intentWords []string) string {
	if m := quotedRe.FindStringSubmatch(original); m != nil {
		if m[1] != "" {
			return m[1]
		}
		return m[2]
	}

	idx := -1
	matched := ""
	for _, w := range intentWords {
		if i := strings.Index(lower, w); i >= 0 && (idx == -1 || i < idx) {
			idx = i
			matched = w
		}
	}
	if idx == -1 {
		return ""
	}
	rest := strings.Fields(lower[idx+len(matched):])
	var title []string
	for _, word := range rest {
		if titleStopWords[word] {
			break
		}
		if word == "a" || word == "an" || word == "the" {
			continue
		}
		title = append(title, word)
	}
	return strings.TrimSpace(strings.Join(title, " "))
}

// extractWindow resolves the day the command refers to and the clock time on
// it, defaulting to a one hour duration when no explicit one is given.
func (p *Parser) extractWindow(lower string) (time.Time, time.Time, bool) {
	now := p.now().In(p.loc)
	day := now

	switch {
	case strings.Contains(lower, "tomorrow"):
		day = now.AddDate(0, 0, 1)
	case strings.Contains(lower, "today"):
		// keep now
	default:
		// When several weekday names appear, the first one mentioned wins.
		first, firstIdx := "", -1
		var firstDay time.Weekday
		for _, wd := range weekdays {
			if i := strings.Index(lower, wd.name); i >= 0 && (firstIdx == -1 || i < firstIdx) {
				first, firstIdx, firstDay = wd.name, i, wd.day
			}
		}
		if firstIdx >= 0 {
			delta := (int(firstDay) - int(now.Weekday()) + 7) % 7
			if delta == 0 && !strings.Contains(lower, "this "+first) {
				delta = 7
			}
			day = now.AddDate(0, 0, delta)
		}
	}

	hour, minute := 9, 0 // default morning slot when only a day is given
	hasClock := false
	if m := clockRe.FindStringSubmatch(lower); m != nil {
		h, _ := strconv.Atoi(m[1])
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		} else {
			minute = 0
		}
		if m[3] == "pm" && h < 12 {
			h += 12
		}
		if m[3] == "am" && h == 12 {
			h = 0
		}
		hour = h
		hasClock = true
	}

	hasDay := day.YearDay() != now.YearDay() || day.Year() != now.Year() ||
		strings.Contains(lower, "today")
	if !hasDay && !hasClock {
		return time.Time{}, time.Time{}, false
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, p.loc)
	duration := time.Hour
	if m := durationRe.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "hour", "hr":
			duration = time.Duration(n) * time.Hour
		case "minute", "min":
			duration = time.Duration(n) * time.Minute
		}
	}
	return start, start.Add(duration), true
}

// detectSkipHolidays recognizes the holiday opt-out phrasings: "except
// holidays", "unless it's a holiday", "skip holidays" and "on business days".
func detectSkipHolidays(lower string) bool {
	if strings.Contains(lower, "business day") {
		return true
	}
	if !strings.Contains(lower, "holiday") {
		return false
	}
	return strings.Contains(lower, "except") ||
		strings.Contains(lower, "unless") ||
		strings.Contains(lower, "skip")
}

func extractParticipants(lower string) []string {
	m := withRe.FindStringSubmatch(lower)
	if m == nil {
		return nil
	}
	var out []string
	for _, part := range strings.Split(m[1], " and ") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
