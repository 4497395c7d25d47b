package planner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/adiaconou/hermes/internal/core"
)

var (
	reRelativeUnit = regexp.MustCompile(`(?i)\bin (\d+) (minute|minutes|hour|hours|day|days|week|weeks)\b`)
	reWeekday      = regexp.MustCompile(`(?i)\b(next )?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	reExplicitDate = regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}(st|nd|rd|th)?(,?\s*\d{4})?\b`)

	weekdayIndex = map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
	}
)

// resolveTaskDates rewrites each step's Task in place, appending an
// absolute ISO-8601 timestamp wherever a relative time phrase ("tomorrow",
// "in 2 hours", a weekday name, or an explicit month/day) is found, per
// spec.md §4.5. Steps with no recognizable phrase are left untouched.
func resolveTaskDates(steps []core.PlanStep, cfg core.UserConfig, now time.Time) {
	loc := locationFor(cfg.Timezone)
	local := now.In(loc)

	for i := range steps {
		steps[i].Task = resolveOne(steps[i].Task, local, loc)
	}
}

func locationFor(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

func resolveOne(task string, now time.Time, loc *time.Location) string {
	lower := strings.ToLower(task)

	switch {
	case strings.Contains(lower, "tomorrow"):
		return appendResolved(task, now.AddDate(0, 0, 1))
	case strings.Contains(lower, "tonight") || strings.Contains(lower, "today"):
		return appendResolved(task, now)
	}

	if m := reRelativeUnit.FindStringSubmatch(task); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return appendResolved(task, addUnit(now, n, strings.ToLower(m[2])))
		}
	}

	if m := reWeekday.FindStringSubmatch(task); m != nil {
		target, ok := weekdayIndex[strings.ToLower(m[2])]
		if ok {
			return appendResolved(task, nextWeekday(now, target))
		}
	}

	if m := reExplicitDate.FindString(task); m != "" {
		if t, err := dateparse.ParseIn(m, loc); err == nil {
			return appendResolved(task, t)
		}
	}

	return task
}

func addUnit(t time.Time, n int, unit string) time.Time {
	switch {
	case strings.HasPrefix(unit, "minute"):
		return t.Add(time.Duration(n) * time.Minute)
	case strings.HasPrefix(unit, "hour"):
		return t.Add(time.Duration(n) * time.Hour)
	case strings.HasPrefix(unit, "day"):
		return t.AddDate(0, 0, n)
	case strings.HasPrefix(unit, "week"):
		return t.AddDate(0, 0, 7*n)
	default:
		return t
	}
}

// nextWeekday returns the next occurrence of target strictly after now's day.
func nextWeekday(now time.Time, target time.Weekday) time.Time {
	days := (int(target) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return now.AddDate(0, 0, days)
}

func appendResolved(task string, t time.Time) string {
	return fmt.Sprintf("%s (resolved: %s)", task, t.Format(time.RFC3339))
}
