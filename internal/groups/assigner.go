// Package groups partitions a guest list into daily send batches.
package groups

import (
	"sort"

	"wedding-rsvp/internal/models"
)

// DefaultMaxPerDay is the per-batch guest cap, sized for the WhatsApp
// Business API daily rate limit.
const DefaultMaxPerDay = 250

// Assign computes a message group for every guest and returns the guests
// with MessageGroup set. Guests sharing an inviter always land in the same
// group; inviter groups are placed largest-first into day buckets of at most
// maxPerDay guests. An inviter whose guests alone exceed maxPerDay still
// occupies a single bucket rather than being split. Groups are numbered
// from 1.
//
// Assignment is deterministic: the sort is stable, so inviters with equal
// counts keep their original encounter order, and re-running on an unchanged
// list yields identical groups.
func Assign(guests []models.Guest, maxPerDay int) []models.Guest {
	if maxPerDay <= 0 {
		maxPerDay = DefaultMaxPerDay
	}

	type inviterGroup struct {
		whose   string
		indexes []int
	}

	byInviter := make(map[string]*inviterGroup)
	var order []*inviterGroup
	for i, g := range guests {
		ig, ok := byInviter[g.Whose]
		if !ok {
			ig = &inviterGroup{whose: g.Whose}
			byInviter[g.Whose] = ig
			order = append(order, ig)
		}
		ig.indexes = append(ig.indexes, i)
	}

	sort.SliceStable(order, func(a, b int) bool {
		return len(order[a].indexes) > len(order[b].indexes)
	})

	out := make([]models.Guest, len(guests))
	copy(out, guests)

	bucket := 1
	used := 0
	for _, ig := range order {
		if used > 0 && used+len(ig.indexes) > maxPerDay {
			bucket++
			used = 0
		}
		for _, i := range ig.indexes {
			n := bucket
			out[i].MessageGroup = &n
		}
		used += len(ig.indexes)
	}

	return out
}
