package dataset

import (
	"errors"
	"slices"
)

// Role is the semantic type an operation expects of a column.
type Role int

// Column roles.
const (
	// RoleIdentifier accepts any kind.
	RoleIdentifier Role = iota
	// RoleOrderable accepts any kind; values order via Value.Compare.
	RoleOrderable
	// RoleCategorical accepts any kind.
	RoleCategorical
	// RoleNumeric accepts numeric or all-null columns.
	RoleNumeric
	// RoleTemporal accepts numeric, time or all-null columns.
	RoleTemporal
)

// Requirement declares one column an operation consumes.
type Requirement struct {
	Column string
	Role   Role
}

// Schema is the ordered set of requirements of an operation.
type Schema []Requirement

// Validate checks presence first, reporting every absent column at once,
// then the kind of each numeric or temporal column.
func (s Schema) Validate(d *Dataset) error {
	var missing []string
	for _, r := range s {
		if !d.Has(r.Column) && !slices.Contains(missing, r.Column) {
			missing = append(missing, r.Column)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnError{Columns: missing}
	}
	var errs []error
	for _, r := range s {
		got := d.columns[d.index[r.Column]].Kind()
		switch r.Role {
		case RoleNumeric:
			if got != KindNumber && got != KindNull {
				errs = append(errs, &TypeError{Column: r.Column, Want: KindNumber, Got: got})
			}
		case RoleTemporal:
			if got == KindText {
				errs = append(errs, &TypeError{Column: r.Column, Want: KindNumber, Got: got})
			}
		}
	}
	return errors.Join(errs...)
}
