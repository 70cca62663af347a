package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseID parses a positive numeric id argument.
func parseID(kind, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", kind, raw)
	}
	return id, nil
}

// optionalBoard turns a zero --board flag into "no board".
func optionalBoard(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}

func formatBoard(id *int64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *id)
}

func formatRating(r *int) string {
	if r == nil {
		return "-"
	}
	return strings.Repeat("*", *r)
}

// timeAgo renders t relative to now for tables.
func timeAgo(t time.Time, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Local().Format("2006-01-02")
	}
}

// parseSince accepts either a duration back from now ("24h") or an RFC3339 time.
func parseSince(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: use a duration like 24h or an RFC3339 time", raw)
	}
	return t, nil
}
