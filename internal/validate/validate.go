// Package validate checks cleaned records against the target schema's field
// constraints. Validation is pure: no I/O and no mutation of the input, so
// the same record always yields the same outcome for a fixed clock.
package validate

import (
	"fmt"
	"regexp"
	"time"

	"github.com/sells-group/migrate-cli/internal/model"
)

// Documented bounds for the constrained fields.
const (
	MaxColumn1Len = 100
	MaxColumn2Len = 200
	Column3Min    = 0.0
	Column3Max    = 1000.0
)

// disallowedChars is the character class column1 must not contain.
var disallowedChars = regexp.MustCompile(`[!@#$%^&*()_+=\[\]{}|\\:;"'<>,.?/~` + "`" + `]`)

// Validator evaluates every field constraint independently and aggregates
// all failures, not just the first one.
type Validator struct {
	// Now supplies the wall clock for the timestamp constraint. Tests
	// substitute a fixed clock.
	Now func() time.Time
}

// New returns a validator using the system clock.
func New() *Validator {
	return &Validator{Now: time.Now}
}

// Validate checks the record and returns the aggregated outcome. Failure
// reasons appear in constraint-definition order: id, column1, column2,
// column3, created_at.
func (v *Validator) Validate(rec model.Record) model.ValidationOutcome {
	var errs []string

	if id, ok := rec.Int("id"); !ok {
		errs = append(errs, "id must be present and an integer")
	} else if id <= 0 {
		errs = append(errs, fmt.Sprintf("id must be positive, got %d", id))
	}

	if c1, ok := rec.String("column1"); !ok || c1 == "" {
		errs = append(errs, "column1 must be present and non-empty")
	} else {
		if len(c1) > MaxColumn1Len {
			errs = append(errs, fmt.Sprintf("column1 exceeds %d characters", MaxColumn1Len))
		}
		if disallowedChars.MatchString(c1) {
			errs = append(errs, "column1 contains disallowed characters")
		}
	}

	if rec.Has("column2") {
		if c2, ok := rec.String("column2"); !ok {
			errs = append(errs, "column2 must be a string")
		} else if len(c2) > MaxColumn2Len {
			errs = append(errs, fmt.Sprintf("column2 exceeds %d characters", MaxColumn2Len))
		}
	}

	if rec.Has("column3") {
		if c3, ok := rec.Float("column3"); !ok {
			errs = append(errs, "column3 must be numeric")
		} else if c3 < Column3Min || c3 > Column3Max {
			errs = append(errs, fmt.Sprintf("column3 must be between %g and %g", Column3Min, Column3Max))
		}
	}

	if rec.Has("created_at") {
		if ts, ok := rec.Time("created_at"); !ok {
			errs = append(errs, "created_at must be a timestamp")
		} else if ts.After(v.Now()) {
			errs = append(errs, "created_at cannot be in the future")
		}
	}

	return model.ValidationOutcome{Valid: len(errs) == 0, Errors: errs}
}
