package monitor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is the wait between the end of one cycle and the start of the next.
const DefaultInterval = 600 * time.Second

// ScheduleKind tells Run how cycles are paced.
type ScheduleKind int

const (
	ScheduleInterval ScheduleKind = iota
	ScheduleCron
)

// Schedule is a parsed monitor.schedule / monitor.interval value.
type Schedule struct {
	Kind  ScheduleKind
	Every time.Duration
	Cron  cron.Schedule
	Raw   string
}

func (s Schedule) String() string {
	if s.Kind == ScheduleCron {
		return "cron(" + s.Raw + ")"
	}
	return "every " + s.Every.String()
}

var (
	reHHMM     = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)
	cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
)

// ParseSchedule accepts:
//   - cron expressions: "*/10 * * * *", "@hourly", "@every 10m" (or "cron:" prefix)
//   - Go durations: "10m", "90s"
//   - HH:MM intervals: "00:10" is ten minutes
//
// An empty string yields DefaultInterval.
func ParseSchedule(raw string) (Schedule, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Schedule{Kind: ScheduleInterval, Every: DefaultInterval}, nil
	}

	low := strings.ToLower(s)
	if strings.HasPrefix(low, "cron:") {
		s = strings.TrimSpace(s[len("cron:"):])
		if s == "" {
			return Schedule{}, fmt.Errorf("cron schedule required after 'cron:'")
		}
		return parseCron(s)
	}
	if strings.ContainsAny(s, " \t") || strings.HasPrefix(s, "@") {
		return parseCron(s)
	}

	if m := reHHMM.FindStringSubmatch(s); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if mm > 59 {
			return Schedule{}, fmt.Errorf("invalid minutes in %q", raw)
		}
		d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
		if d <= 0 {
			return Schedule{}, fmt.Errorf("interval must be > 0")
		}
		return Schedule{Kind: ScheduleInterval, Every: d, Raw: s}, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid schedule %q (use cron like '*/10 * * * *', HH:MM like '00:10', or duration like '10m')", raw)
	}
	if d <= 0 {
		return Schedule{}, fmt.Errorf("interval must be > 0")
	}
	return Schedule{Kind: ScheduleInterval, Every: d, Raw: s}, nil
}

func parseCron(expr string) (Schedule, error) {
	cs, err := cronParser.Parse(expr)
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	return Schedule{Kind: ScheduleCron, Cron: cs, Raw: expr}, nil
}
