// Package announce holds the canonical announcement shape shared by sources,
// the ledger and notifiers.
package announce

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format carried in Announcement.Date.
const DateLayout = "2006-01-02"

// RawItem is whatever a Source scraped for one announcement. Field names are
// private to the source that produced it.
type RawItem map[string]any

// Announcement is the normalized record every Source produces.
type Announcement struct {
	Source string `json:"source"`
	Title  string `json:"title"`
	Date   string `json:"date"`           // YYYY-MM-DD
	Time   string `json:"time,omitempty"` // HH:MM:SS, may be empty
	URL    string `json:"url"`
}

// Key is the identity of an announcement: source, title and date.
//
// Each field is length-prefixed so no title content can make two different
// triples collide.
func (a Announcement) Key() string {
	var b strings.Builder
	for i, f := range [3]string{a.Source, a.Title, a.Date} {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.Itoa(len(f)))
		b.WriteByte(':')
		b.WriteString(f)
	}
	return b.String()
}

// ParsedDate parses Date as a calendar date (local midnight).
func (a Announcement) ParsedDate() (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(a.Date), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("announcement %q: invalid date %q: %w", a.Title, a.Date, err)
	}
	return d, nil
}

// Source fetches raw items from one provider and normalizes them.
//
// Announcements must not fail for ordinary network or markup problems: it
// logs and returns whatever it obtained (possibly nothing). Format must be
// pure and only receives items produced by the same source.
type Source interface {
	Name() string
	Announcements(ctx context.Context) []RawItem
	Format(item RawItem) Announcement
}

// SplitDateTime splits "2025-01-02 15:04:05" style text into date and time.
// A missing time component yields "".
func SplitDateTime(s string) (date, clock string) {
	parts := strings.Fields(s)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], parts[1]
	}
}
