package grouping

import "github.com/jgoulah/usageledger/pkg/models"

// UpsertSpec adds spec, or replaces the spec with the same id. A spec
// without an id gets one from newID.
func UpsertSpec(specs []models.Spec, spec models.Spec, newID IDFunc) ([]models.Spec, models.Spec, error) {
	if spec.Name == "" {
		return specs, spec, models.Invalid("spec_name", "name is required")
	}
	if spec.ID == "" {
		if newID == nil {
			newID = NewID
		}
		spec.ID = newID()
	}

	out := make([]models.Spec, 0, len(specs)+1)
	replaced := false
	for _, s := range specs {
		if s.ID == spec.ID {
			out = append(out, spec)
			replaced = true
			continue
		}
		out = append(out, s)
	}
	if !replaced {
		out = append(out, spec)
	}
	return out, spec, nil
}

// DeleteSpec removes spec id. It fails while any record references it.
func DeleteSpec(specs []models.Spec, records []models.DataRecord, id string) ([]models.Spec, error) {
	refs := 0
	for _, r := range records {
		if r.SpecID == id {
			refs++
		}
	}
	if refs > 0 {
		return specs, models.Invalid("spec_id", "spec %s is used by %d record(s)", id, refs)
	}

	out := make([]models.Spec, 0, len(specs))
	found := false
	for _, s := range specs {
		if s.ID == id {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		return specs, models.Invalid("spec_id", "spec %s not found", id)
	}
	return out, nil
}
