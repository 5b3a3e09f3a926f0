package grouping

import (
	"github.com/jgoulah/usageledger/internal/proration"
	"github.com/jgoulah/usageledger/pkg/models"
)

// Mode selects the validation applied when a new group is saved
type Mode int

const (
	// ModeQuantity requires at least one record with a date, month,
	// quantity or hours.
	ModeQuantity Mode = iota
	// ModeBilling requires at least one complete, valid bill
	ModeBilling
)

// EditSession is the buffer of one group being created or edited.
// GroupID is empty for a new group.
type EditSession struct {
	GroupID      string
	Records      []models.DataRecord
	PendingFiles []models.PendingFile
}

// Editing reports whether the session edits an existing group
func (s EditSession) Editing() bool {
	return s.GroupID != ""
}

// HasData reports whether the session holds unsaved input
func (s EditSession) HasData() bool {
	if len(s.PendingFiles) > 0 {
		return true
	}
	for _, r := range s.Records {
		if r.HasData() || r.IsBill() {
			return true
		}
	}
	return false
}

// SaveGroup merges session into saved and returns the new saved list and
// the group id. New groups are validated; edits of an existing group were
// validated when first saved and are not checked again, but an edit must
// keep at least one record with data. Removing a group is DeleteGroup's job.
//
// Only records with data are kept. Each gets the group id and a copy of the
// session's pending files. The group's records come first, replacing any
// earlier members.
func SaveGroup(saved []models.DataRecord, session EditSession, mode Mode, newID IDFunc) ([]models.DataRecord, string, error) {
	valid := validRecords(session.Records, mode)

	if !session.Editing() {
		if len(session.Records) == 0 {
			return saved, "", models.Invalid("records", "at least one record is required")
		}
		if err := validate(session.Records, valid, mode); err != nil {
			return saved, "", err
		}
	} else if len(valid) == 0 {
		return saved, "", models.Invalid("records", "group %s has no record left with data, delete the group instead", session.GroupID)
	}

	groupID, stamped := AssignGroup(valid, session.GroupID, newID)
	for i := range stamped {
		stamped[i].PendingFiles = append([]models.PendingFile(nil), session.PendingFiles...)
	}

	out := make([]models.DataRecord, 0, len(stamped)+len(saved))
	out = append(out, stamped...)
	for _, r := range saved {
		if r.GroupID == groupID {
			continue
		}
		out = append(out, r)
	}
	return out, groupID, nil
}

func validRecords(records []models.DataRecord, mode Mode) []models.DataRecord {
	var out []models.DataRecord
	for _, r := range records {
		switch mode {
		case ModeBilling:
			if r.BillingStart != "" && r.BillingEnd != "" && r.BillingUnits > 0 {
				out = append(out, r)
			}
		default:
			if r.HasData() {
				out = append(out, r)
			}
		}
	}
	return out
}

func validate(all, valid []models.DataRecord, mode Mode) error {
	switch mode {
	case ModeBilling:
		if len(valid) == 0 {
			return models.Invalid("records", "at least one complete bill is required")
		}
		for _, r := range valid {
			if _, err := proration.RecordPeriod(r, proration.DefaultMaxBillingDays); err != nil {
				return err
			}
		}
	default:
		if len(valid) == 0 {
			return models.Invalid("records", "at least one record needs a date or a quantity")
		}
	}
	return nil
}

// EditGroup copies the members of groupID into a new session. saved keeps
// them until the session is saved, so cancelling loses nothing.
func EditGroup(saved []models.DataRecord, groupID string) (EditSession, error) {
	var members []models.DataRecord
	for _, r := range saved {
		if r.GroupID == groupID {
			members = append(members, r)
		}
	}
	if groupID == "" || len(members) == 0 {
		return EditSession{}, models.Invalid("group_id", "group %q not found", groupID)
	}
	return EditSession{
		GroupID:      groupID,
		Records:      members,
		PendingFiles: append([]models.PendingFile(nil), SharedPendingFiles(members)...),
	}, nil
}

// CancelEdit drops the session and returns saved untouched
func CancelEdit(saved []models.DataRecord) ([]models.DataRecord, EditSession) {
	return saved, EditSession{}
}

// DeleteGroup returns saved without the members of groupID
func DeleteGroup(saved []models.DataRecord, groupID string) []models.DataRecord {
	out := make([]models.DataRecord, 0, len(saved))
	for _, r := range saved {
		if r.GroupID == groupID {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Clear discards every in-memory record and the session
func Clear() ([]models.DataRecord, EditSession) {
	return nil, EditSession{}
}
