package forms

import "sort"

// ValidateFieldOrder checks that requested is a permutation of existing:
// same length, positive ids, no duplicates, no foreign ids.
func ValidateFieldOrder(existing, requested []int64) error {
	if len(existing) != len(requested) {
		return ErrInvalidFieldOrder.WithMessage(
			"fieldOrder has %d ids but the form has %d fields", len(requested), len(existing))
	}
	known := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		known[id] = struct{}{}
	}
	seen := make(map[int64]struct{}, len(requested))
	for _, id := range requested {
		if id <= 0 {
			return ErrInvalidFieldOrder.WithMessage("fieldOrder entries must be positive integers")
		}
		if _, ok := known[id]; !ok {
			return ErrInvalidFieldOrder.WithMessage("Field %d does not belong to this form", id)
		}
		if _, dup := seen[id]; dup {
			return ErrInvalidFieldOrder.WithMessage("Field %d appears more than once", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// ApplyFieldOrder returns fields re-sequenced to match order, with Order set
// to the 1-based position. order must already be validated.
func ApplyFieldOrder(fields []*Field, order []int64) []*Field {
	byID := make(map[int64]*Field, len(fields))
	for _, f := range fields {
		byID[f.ID] = f
	}
	out := make([]*Field, 0, len(order))
	for i, id := range order {
		f := byID[id]
		f.Order = i + 1
		out = append(out, f)
	}
	return out
}

// SortFields orders fields by Order, then ID.
func SortFields(fields []*Field) {
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].Order != fields[j].Order {
			return fields[i].Order < fields[j].Order
		}
		return fields[i].ID < fields[j].ID
	})
}

func fieldIDs(fields []*Field) []int64 {
	ids := make([]int64, len(fields))
	for i, f := range fields {
		ids[i] = f.ID
	}
	return ids
}
