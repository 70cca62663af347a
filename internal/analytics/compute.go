package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/joescharf/taskboard/internal/activity"
	"github.com/joescharf/taskboard/internal/models"
)

// Compute derives a report from a snapshot of tasks and events. Bucket
// boundaries use now's location.
func Compute(tasks []*models.Task, events []*models.Activity, now time.Time) *Report {
	loc := now.Location()
	completions := completionTimes(tasks, loc)

	return &Report{
		GeneratedAt: now,
		Completions: Completions{
			Daily:   dailySeries(completions, now, dailyBuckets),
			Weekly:  weeklySeries(completions, now),
			Monthly: monthlySeries(completions, now),
		},
		Productivity: Productivity{
			Today:              countSince(completions, startOfDay(now)),
			ThisWeek:           countSince(completions, now.AddDate(0, 0, -7)),
			ThisMonth:          countSince(completions, now.AddDate(0, 0, -30)),
			AvgCompletionHours: avgCompletionHours(tasks),
			Streak:             streak(completions, now),
		},
		Distributions: Distributions{
			Priority: priorityDistribution(tasks),
			Status:   statusDistribution(tasks),
		},
		Agents:   agentStats(tasks, events),
		Activity: activityBreakdown(events, now),
	}
}

// completionTimes returns completed_at of every done task, in loc.
func completionTimes(tasks []*models.Task, loc *time.Location) []time.Time {
	var out []time.Time
	for _, t := range tasks {
		if t.Status == models.TaskStatusDone && t.CompletedAt != nil {
			out = append(out, t.CompletedAt.In(loc))
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the Monday midnight on or before t.
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return startOfDay(t).AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// series builds n buckets ending with the one starting at last. step
// advances a bucket start to the next.
func series(times []time.Time, last time.Time, n int, label string, step func(time.Time, int) time.Time) []Bucket {
	buckets := make([]Bucket, n)
	for i := range buckets {
		start := step(last, i-(n-1))
		buckets[i] = Bucket{Label: start.Format(label), Start: start}
	}
	first := buckets[0].Start
	end := step(last, 1)
	for _, ts := range times {
		if ts.Before(first) || !ts.Before(end) {
			continue
		}
		// Buckets are few; a linear scan from the end is enough.
		for i := n - 1; i >= 0; i-- {
			if !ts.Before(buckets[i].Start) {
				buckets[i].Count++
				break
			}
		}
	}
	return buckets
}

func addDays(t time.Time, n int) time.Time   { return t.AddDate(0, 0, n) }
func addWeeks(t time.Time, n int) time.Time  { return t.AddDate(0, 0, 7*n) }
func addMonths(t time.Time, n int) time.Time { return t.AddDate(0, n, 0) }

func dailySeries(times []time.Time, now time.Time, n int) []Bucket {
	return series(times, startOfDay(now), n, dayLabel, addDays)
}

func weeklySeries(times []time.Time, now time.Time) []Bucket {
	return series(times, startOfWeek(now), weeklyBuckets, dayLabel, addWeeks)
}

func monthlySeries(times []time.Time, now time.Time) []Bucket {
	return series(times, startOfMonth(now), monthlyBuckets, monthLabel, addMonths)
}

func countSince(times []time.Time, since time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(since) {
			n++
		}
	}
	return n
}

// avgCompletionHours averages created_at to completed_at over every task
// that has a completion time, rounded half up to whole hours.
func avgCompletionHours(tasks []*models.Task) int {
	var total time.Duration
	n := 0
	for _, t := range tasks {
		if t.CompletedAt == nil || t.CreatedAt.IsZero() {
			continue
		}
		total += t.CompletedAt.Sub(t.CreatedAt)
		n++
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(total.Hours() / float64(n)))
}

// streak counts consecutive days with a completion, walking back from
// today. An empty today does not break the streak.
func streak(times []time.Time, now time.Time) int {
	days := make(map[string]bool, len(times))
	for _, ts := range times {
		days[ts.Format(dayLabel)] = true
	}

	day := startOfDay(now)
	if !days[day.Format(dayLabel)] {
		day = day.AddDate(0, 0, -1)
	}
	n := 0
	for n < maxStreak && days[day.Format(dayLabel)] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

func priorityDistribution(tasks []*models.Task) []KeyCount {
	counts := make(map[models.TaskPriority]int)
	for _, t := range tasks {
		if t.Status != models.TaskStatusDone {
			counts[t.Priority]++
		}
	}
	out := make([]KeyCount, 0, len(models.TaskPriorities))
	for _, p := range models.TaskPriorities {
		out = append(out, KeyCount{Key: string(p), Count: counts[p]})
	}
	return out
}

func statusDistribution(tasks []*models.Task) []KeyCount {
	counts := make(map[models.TaskStatus]int)
	for _, t := range tasks {
		counts[t.Status]++
	}
	out := make([]KeyCount, 0, len(models.TaskStatuses))
	for _, s := range models.TaskStatuses {
		out = append(out, KeyCount{Key: string(s), Count: counts[s]})
	}
	return out
}

// newestFirst returns a copy of events sorted by creation time descending.
func newestFirst(events []*models.Activity) []*models.Activity {
	sorted := make([]*models.Activity, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	return sorted
}

// agentStats attributes events and ratings to agents. Events whose metadata
// is not valid JSON are skipped. A rating belongs to the agent of the most
// recent task_completed event for that task.
func agentStats(tasks []*models.Task, events []*models.Activity) []AgentStats {
	byAgent := make(map[string]*AgentStats)
	get := func(agent string) *AgentStats {
		st, ok := byAgent[agent]
		if !ok {
			st = &AgentStats{Agent: agent}
			byAgent[agent] = st
		}
		return st
	}

	completedBy := make(map[int64]string)
	for _, e := range newestFirst(events) {
		md, err := activity.Decode(e.Type, e.Metadata)
		if err != nil {
			continue
		}
		if tc, ok := md.(*activity.TaskCompleted); ok {
			if _, seen := completedBy[tc.TaskID]; !seen {
				completedBy[tc.TaskID] = tc.AgentID()
			}
		}
		agent := md.AgentID()
		if agent == "" {
			continue
		}
		st := get(agent)
		if st.Actions == 0 {
			st.LastActive = e.CreatedAt
		}
		st.Actions++
	}

	ratingSum := make(map[string]int)
	for _, t := range tasks {
		if t.Status != models.TaskStatusDone || t.Rating == nil {
			continue
		}
		agent := completedBy[t.ID]
		if agent == "" {
			continue
		}
		get(agent).RatedTasks++
		ratingSum[agent] += *t.Rating
	}

	out := make([]AgentStats, 0, len(byAgent))
	for agent, st := range byAgent {
		if st.RatedTasks > 0 {
			avg := float64(ratingSum[agent]) / float64(st.RatedTasks)
			st.AvgRating = math.Round(avg*10) / 10
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Actions != out[j].Actions {
			return out[i].Actions > out[j].Actions
		}
		return out[i].Agent < out[j].Agent
	})
	return out
}

func activityBreakdown(events []*models.Activity, now time.Time) ActivityBreakdown {
	counts := make(map[models.ActivityType]int)
	times := make([]time.Time, 0, len(events))
	for _, e := range events {
		counts[e.Type]++
		times = append(times, e.CreatedAt.In(now.Location()))
	}

	byType := make([]KeyCount, 0, len(counts))
	for typ, n := range counts {
		byType = append(byType, KeyCount{Key: string(typ), Count: n})
	}
	sort.Slice(byType, func(i, j int) bool {
		if byType[i].Count != byType[j].Count {
			return byType[i].Count > byType[j].Count
		}
		return byType[i].Key < byType[j].Key
	})

	return ActivityBreakdown{
		ByType: byType,
		Trend:  dailySeries(times, now, trendDays),
	}
}
