package analytics

import "time"

const (
	dayLabel   = "2006-01-02"
	monthLabel = "2006-01"

	dailyBuckets   = 30
	weeklyBuckets  = 12
	monthlyBuckets = 12
	trendDays      = 14
	maxStreak      = 365
)

// Bucket is one time window of a series.
type Bucket struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	Count int       `json:"count"`
}

// Completions holds the completion series, each oldest bucket first.
type Completions struct {
	Daily   []Bucket `json:"daily"`
	Weekly  []Bucket `json:"weekly"`
	Monthly []Bucket `json:"monthly"`
}

type Productivity struct {
	Today              int `json:"today"`
	ThisWeek           int `json:"this_week"`
	ThisMonth          int `json:"this_month"`
	AvgCompletionHours int `json:"avg_completion_hours"`
	Streak             int `json:"streak"`
}

// KeyCount is one entry of an ordered distribution.
type KeyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type Distributions struct {
	Priority []KeyCount `json:"priority"`
	Status   []KeyCount `json:"status"`
}

// AgentStats summarizes one agent's activity and the ratings of the tasks
// it completed.
type AgentStats struct {
	Agent      string    `json:"agent"`
	Actions    int       `json:"actions"`
	LastActive time.Time `json:"last_active"`
	AvgRating  float64   `json:"avg_rating"`
	RatedTasks int       `json:"rated_tasks"`
}

type ActivityBreakdown struct {
	ByType []KeyCount `json:"by_type"`
	Trend  []Bucket   `json:"trend"`
}

// Report is the full analytics snapshot.
type Report struct {
	GeneratedAt   time.Time         `json:"generated_at"`
	Completions   Completions       `json:"completions"`
	Productivity  Productivity      `json:"productivity"`
	Distributions Distributions     `json:"distributions"`
	Agents        []AgentStats      `json:"agents"`
	Activity      ActivityBreakdown `json:"activity"`
}
