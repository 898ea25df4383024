// Package detect computes which lines changed state in a status batch.
package detect

import (
	"github.com/rosenban/rosenban/internal/classify"
	"github.com/rosenban/rosenban/internal/model"
)

// Detect compares an incoming status batch against the stored snapshot and
// returns a change for exactly the lines whose status or detail differs, or
// which the snapshot has never seen. Output order follows the incoming batch.
//
// Detect is pure: persisting the batch (which always happens, changed or
// not) is the caller's job.
func Detect(existing map[string]model.LineStatus, incoming []model.LineStatus) []model.StatusChange {
	var changes []model.StatusChange
	for _, line := range incoming {
		prev, known := existing[line.LineID]
		if known && prev.Status == line.Status && prev.Detail == line.Detail {
			continue
		}
		change := model.StatusChange{
			LineID:    line.LineID,
			Name:      line.Name,
			NewStatus: line.Status,
			NewDetail: line.Detail,
			Category:  classify.Classify(line.Status, line.Detail),
		}
		if known {
			change.PrevStatus = prev.Status
			change.PrevDetail = prev.Detail
		} else {
			change.PrevStatus = "unknown"
		}
		changes = append(changes, change)
	}
	return changes
}
