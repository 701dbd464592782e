package engine

import (
	"sort"

	"go.uber.org/zap"

	"github.com/kklingenberg/s3-event-bridge/pkg/events"
	"github.com/kklingenberg/s3-event-bridge/pkg/plan"
)

// Group is a unit of work with exactly one handler invocation and one
// temporary folder. Records whose keys compute the same listing prefix
// in the same bucket coalesce into one group.
type Group struct {
	Bucket string
	Prefix string
}

// GroupEvents filters event records through the trigger matcher and
// groups the survivors by (bucket, listing prefix).
//
// The result is sorted by bucket then prefix, so group ordering within
// a batch is deterministic.
func (e *Engine) GroupEvents(records []events.Record) []Group {
	seen := make(map[Group]struct{})
	for _, record := range records {
		if record.Bucket == "" || record.Key == "" {
			e.logger.Warn("Skipped event record with missing bucket or key")
			continue
		}
		if !e.matcher.Match(record.Key) {
			e.logger.Info("Skipped event record not matching key pattern",
				zap.String("key", record.Key),
				zap.String("pattern", e.matcher.Pattern()))
			continue
		}
		seen[Group{
			Bucket: record.Bucket,
			Prefix: plan.Prefix(record.Key, e.cfg.PullParentDirs),
		}] = struct{}{}
	}

	groups := make([]Group, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Bucket != groups[j].Bucket {
			return groups[i].Bucket < groups[j].Bucket
		}
		return groups[i].Prefix < groups[j].Prefix
	})
	return groups
}
