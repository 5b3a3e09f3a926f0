// Package grouping manages groups of records that share one evidence
// submission, and the edit session used to build them.
package grouping

import (
	"strings"

	"github.com/google/uuid"

	"github.com/jgoulah/usageledger/pkg/models"
)

// NoGroup is the map key of records without a group id
const NoGroup = "no-group"

// IDFunc generates a new group id
type IDFunc func() string

// NewID returns a random UUID string
func NewID() string {
	return uuid.NewString()
}

// Groups maps group ids to their records in first-seen order
type Groups struct {
	order   []string
	members map[string][]models.DataRecord
}

// BuildGroups groups records by GroupID; records without one go under NoGroup
func BuildGroups(records []models.DataRecord) *Groups {
	g := &Groups{members: make(map[string][]models.DataRecord)}
	for _, r := range records {
		key := r.GroupID
		if key == "" {
			key = NoGroup
		}
		if _, ok := g.members[key]; !ok {
			g.order = append(g.order, key)
		}
		g.members[key] = append(g.members[key], r)
	}
	return g
}

// Keys returns group ids in first-seen order
func (g *Groups) Keys() []string {
	return append([]string(nil), g.order...)
}

// Members returns the records of a group
func (g *Groups) Members(groupID string) []models.DataRecord {
	return g.members[groupID]
}

// Len returns the number of groups, NoGroup included
func (g *Groups) Len() int {
	return len(g.order)
}

// Each calls fn for every group in order
func (g *Groups) Each(fn func(groupID string, records []models.DataRecord)) {
	for _, key := range g.order {
		fn(key, g.members[key])
	}
}

// AssignGroup stamps records with existing, or with a new id when existing
// is empty. It returns the group id and stamped copies.
func AssignGroup(records []models.DataRecord, existing string, newID IDFunc) (string, []models.DataRecord) {
	groupID := existing
	if groupID == "" {
		if newID == nil {
			newID = NewID
		}
		groupID = newID()
	}
	out := make([]models.DataRecord, len(records))
	for i, r := range records {
		r.GroupID = groupID
		out[i] = r
	}
	return groupID, out
}

// RecordKey joins record ids in order into the persisted record_id form
func RecordKey(records []models.DataRecord) (string, error) {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			return "", models.Invalid("record_id", "record without id")
		}
		if strings.Contains(r.ID, models.RecordKeySeparator) {
			return "", models.Invalid("record_id", "id %q contains %q", r.ID, models.RecordKeySeparator)
		}
		ids = append(ids, r.ID)
	}
	return strings.Join(ids, models.RecordKeySeparator), nil
}

// SharedPendingFiles returns the pending files of a group. Every member
// carries the same list, so the first member's is used.
func SharedPendingFiles(records []models.DataRecord) []models.PendingFile {
	if len(records) == 0 {
		return nil
	}
	return records[0].PendingFiles
}
