package layout

import (
	"fmt"

	"github.com/roach88/stockpile/internal/resource"
	"github.com/roach88/stockpile/internal/storage"
)

// Validate checks cross references in a parsed catalog.
// Returns all errors found (does not fail-fast).
func Validate(c *Catalog) ValidationErrors {
	var errs ValidationErrors

	resources := make(map[string]bool, len(c.Resources))
	for _, r := range c.Resources {
		resources[r.ID] = true
	}
	groupTypes := make(map[string]bool, len(c.GroupTypes))
	for _, g := range c.GroupTypes {
		groupTypes[g.ID] = true
	}

	for _, r := range c.Resources {
		field := "resource." + r.ID

		// E207: id grammar
		if !resource.ValidID(r.ID) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid resource id %q: must be lowercase, optionally namespaced (ns:path)", r.ID),
				Code:    ErrInvalidID,
				Line:    r.Pos.Line(),
			})
		}

		// E201: remainder must be declared
		if r.Remainder != "" && !resources[r.Remainder] {
			errs = append(errs, ValidationError{
				Field:   field + ".remainder",
				Message: fmt.Sprintf("unknown resource %q", r.Remainder),
				Code:    ErrUnknownRemainder,
				Line:    r.Pos.Line(),
			})
		}
	}

	for _, g := range c.GroupTypes {
		if err := checkPolicy(g.Policy, "group_type."+g.ID+".policy", g.Pos.Line()); err != nil {
			errs = append(errs, *err)
		}
	}

	for _, l := range c.Layouts {
		field := "layout." + l.Name

		// E208: at least one group
		if len(l.Groups) == 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".groups",
				Message: "layout declares no groups",
				Code:    ErrEmptyLayout,
				Line:    l.Pos.Line(),
			})
			continue
		}

		used := make(map[string]bool, len(l.Groups))
		for i, g := range l.Groups {
			gField := fmt.Sprintf("%s.groups[%d]", field, i)
			line := g.Pos.Line()

			// E202: group type must be declared
			if !groupTypes[g.Type] {
				errs = append(errs, ValidationError{
					Field:   gField + ".type",
					Message: fmt.Sprintf("unknown group type %q", g.Type),
					Code:    ErrUnknownGroupType,
					Line:    line,
				})
			}

			// E206: one group per type within a layout
			if used[g.Type] {
				errs = append(errs, ValidationError{
					Field:   gField + ".type",
					Message: fmt.Sprintf("group type %q used twice", g.Type),
					Code:    ErrDuplicateGroup,
					Line:    line,
				})
			}
			used[g.Type] = true

			// E205: positive sizes
			if g.Slots <= 0 {
				errs = append(errs, ValidationError{
					Field:   gField + ".slots",
					Message: "slot count must be positive",
					Code:    ErrInvalidSize,
					Line:    line,
				})
			}
			if g.Capacity == 0 {
				errs = append(errs, ValidationError{
					Field:   gField + ".capacity",
					Message: "capacity must be positive",
					Code:    ErrInvalidSize,
					Line:    line,
				})
			}

			if g.Policy != "" {
				if err := checkPolicy(g.Policy, gField+".policy", line); err != nil {
					errs = append(errs, *err)
				}
			}

			errs = append(errs, checkFilter(g.Filter, gField+".filter", resources)...)
			errs = append(errs, checkFilter(g.Strict, gField+".strict", resources)...)
		}
	}

	return errs
}

// E204: policy must be a preset
func checkPolicy(name, field string, line int) *ValidationError {
	if _, err := storage.PolicyByName(name); err != nil {
		return &ValidationError{
			Field:   field,
			Message: err.Error(),
			Code:    ErrInvalidPolicy,
			Line:    line,
		}
	}
	return nil
}

// E203: filters may only name declared resources
func checkFilter(f *FilterSpec, field string, resources map[string]bool) []ValidationError {
	if f == nil {
		return nil
	}
	var errs []ValidationError
	check := func(ids []string, sub string) {
		for _, id := range ids {
			if !resources[id] {
				errs = append(errs, ValidationError{
					Field:   field + "." + sub,
					Message: fmt.Sprintf("unknown resource %q", id),
					Code:    ErrUnknownResource,
					Line:    f.Pos.Line(),
				})
			}
		}
	}
	check(f.Allow, "allow")
	check(f.Deny, "deny")
	return errs
}
