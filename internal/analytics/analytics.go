package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"student-chatter/internal/storage"
)

// DailyStats summarises one day of chat and audit activity.
type DailyStats struct {
	Date              string                 `json:"date"`
	TotalMessages     int                    `json:"total_messages"`
	UniqueActors      int                    `json:"unique_actors"`
	MutationsTotal    int                    `json:"mutations_total"`
	MutationsByAction map[storage.Action]int `json:"mutations_by_action"`
	ActorStats        map[string]ActorStats  `json:"actor_stats"`
}

// ActorStats is the per-actor slice of DailyStats.
type ActorStats struct {
	Actor     string `json:"actor"`
	Messages  int    `json:"messages"`
	Mutations int    `json:"mutations"`
}

// AnalyzeDay counts the interactions and audit entries that fall on the
// calendar day of targetDate (in its location).
func AnalyzeDay(chats []storage.Interaction, audits []storage.AuditEntry, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)
	inDay := func(ts time.Time) bool { return !ts.Before(startOfDay) && ts.Before(endOfDay) }

	stats := &DailyStats{
		Date:              startOfDay.Format("2006-01-02"),
		MutationsByAction: make(map[storage.Action]int),
		ActorStats:        make(map[string]ActorStats),
	}
	actorStat := func(actor string) ActorStats {
		st, ok := stats.ActorStats[actor]
		if !ok {
			st = ActorStats{Actor: actor}
		}
		return st
	}

	for _, c := range chats {
		if !inDay(c.Timestamp) || c.Utterance == "" {
			continue
		}
		stats.TotalMessages++
		st := actorStat(c.Actor)
		st.Messages++
		stats.ActorStats[c.Actor] = st
	}
	for _, a := range audits {
		if !inDay(a.Timestamp) {
			continue
		}
		stats.MutationsTotal++
		stats.MutationsByAction[a.Action]++
		st := actorStat(a.Actor)
		st.Mutations++
		stats.ActorStats[a.Actor] = st
	}

	stats.UniqueActors = len(stats.ActorStats)
	return stats
}

// Summary renders the stats as plain text for an admin message.
func (ds *DailyStats) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Activity for %s:\n", ds.Date)
	fmt.Fprintf(&b, "- Messages: %d\n", ds.TotalMessages)
	fmt.Fprintf(&b, "- Active users: %d\n", ds.UniqueActors)
	fmt.Fprintf(&b, "- Record changes: %d\n", ds.MutationsTotal)

	actions := make([]string, 0, len(ds.MutationsByAction))
	for a := range ds.MutationsByAction {
		actions = append(actions, string(a))
	}
	sort.Strings(actions)
	for _, a := range actions {
		fmt.Fprintf(&b, "  - %s: %d\n", a, ds.MutationsByAction[storage.Action(a)])
	}

	actors := make([]string, 0, len(ds.ActorStats))
	for a := range ds.ActorStats {
		actors = append(actors, a)
	}
	sort.Strings(actors)
	for _, a := range actors {
		st := ds.ActorStats[a]
		fmt.Fprintf(&b, "- %s: %d messages", a, st.Messages)
		if st.Mutations > 0 {
			fmt.Fprintf(&b, ", %d changes", st.Mutations)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// ToJSON serialises the stats for detailed inspection.
func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
