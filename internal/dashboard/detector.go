package dashboard

import (
	"bytes"
	"encoding/json"
)

// ChangeSet says which display groups need to be redrawn.
type ChangeSet struct {
	First   bool
	Blocked bool
	Data    bool
	Metrics bool
	Series  bool
	Ranking bool
}

// Any reports whether at least one group changed.
func (c ChangeSet) Any() bool {
	return c.Metrics || c.Series || c.Ranking
}

// Detector remembers the last applied snapshot for one panel and diffs
// incoming ones against it.
type Detector struct {
	// GuardRegression drops snapshots whose total went down while the
	// filters stayed the same.
	GuardRegression bool

	last        *Snapshot
	lastFilters *Filters
}

// NewDetector returns a detector with no history.
func NewDetector(guard bool) *Detector {
	return &Detector{GuardRegression: guard}
}

// Evaluate compares next with the cached snapshot. It never mutates the cache.
func (d *Detector) Evaluate(next Snapshot, filters Filters) ChangeSet {
	if d.last == nil {
		return ChangeSet{First: true, Data: true, Metrics: true, Series: true, Ranking: true}
	}

	filtersChanged := d.lastFilters == nil || !d.lastFilters.Equal(filters)
	if !filtersChanged && d.GuardRegression && next.Total < d.last.Total {
		return ChangeSet{Blocked: true}
	}

	prev := *d.last
	if sameJSON(prev, next) {
		return ChangeSet{}
	}
	return ChangeSet{
		Data:    true,
		Metrics: prev.Total != next.Total || prev.Count != next.Count || prev.Average != next.Average,
		Series:  !sameJSON(prev.Series, next.Series),
		Ranking: rankingChanged(prev.Ranking, next.Ranking),
	}
}

// Commit stores next as the reference snapshot when the change set carried new data.
func (d *Detector) Commit(next Snapshot, filters Filters, changes ChangeSet) {
	if changes.Blocked || !changes.Data {
		return
	}
	snap := next.Clone()
	f := filters
	f.Branches = append([]string(nil), filters.Branches...)
	d.last = &snap
	d.lastFilters = &f
}

// Last returns a copy of the cached snapshot.
func (d *Detector) Last() (Snapshot, bool) {
	if d.last == nil {
		return Snapshot{}, false
	}
	return d.last.Clone(), true
}

// Reset forgets all history.
func (d *Detector) Reset() {
	d.last = nil
	d.lastFilters = nil
}

func rankingChanged(prev, next []RankedEntry) bool {
	if len(prev) != len(next) {
		return true
	}
	for i := range prev {
		if prev[i].Name != next[i].Name || prev[i].Total != next[i].Total {
			return true
		}
	}
	return false
}

func sameJSON(a, b any) bool {
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ra, rb)
}
