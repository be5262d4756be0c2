package layout

import (
	"fmt"
	"math"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/stockpile/internal/resource"
)

// CompileString compiles CUE source text. filename only labels positions.
func CompileString(src, filename string) (*Catalog, error) {
	v := cuecontext.New().CompileString(src, cue.Filename(filename))
	return Compile(v)
}

// Compile parses a CUE value holding resource, group_type and layout
// sections, validates cross references, and links the result.
func Compile(v cue.Value) (*Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err, "cue")
	}

	c := &Catalog{}
	var err error

	if c.Resources, err = parseResources(v); err != nil {
		return nil, err
	}
	if c.GroupTypes, err = parseGroupTypes(v); err != nil {
		return nil, err
	}
	if c.Layouts, err = parseLayouts(v); err != nil {
		return nil, err
	}

	if errs := Validate(c); len(errs) > 0 {
		return nil, errs
	}
	if err := c.link(); err != nil {
		return nil, err
	}
	return c, nil
}

func parseResources(v cue.Value) ([]ResourceSpec, error) {
	var specs []ResourceSpec

	resVal := v.LookupPath(cue.ParsePath("resource"))
	if !resVal.Exists() {
		return specs, nil
	}

	iter, err := resVal.Fields()
	if err != nil {
		return nil, formatCUEError(err, "resource")
	}

	for iter.Next() {
		id := iter.Label()
		val := iter.Value()
		field := "resource." + id

		spec := ResourceSpec{ID: id, Pos: val.Pos()}

		if maxVal := val.LookupPath(cue.ParsePath("max")); maxVal.Exists() {
			if spec.Max, err = uintField(maxVal, field+".max"); err != nil {
				return nil, err
			}
		}
		if remVal := val.LookupPath(cue.ParsePath("remainder")); remVal.Exists() {
			if spec.Remainder, err = remVal.String(); err != nil {
				return nil, formatCUEError(err, field+".remainder")
			}
		}

		specs = append(specs, spec)
	}

	return specs, nil
}

func parseGroupTypes(v cue.Value) ([]GroupTypeSpec, error) {
	var specs []GroupTypeSpec

	gtVal := v.LookupPath(cue.ParsePath("group_type"))
	if !gtVal.Exists() {
		return specs, nil
	}

	iter, err := gtVal.Fields()
	if err != nil {
		return nil, formatCUEError(err, "group_type")
	}

	for iter.Next() {
		id := iter.Label()
		val := iter.Value()
		field := "group_type." + id

		spec := GroupTypeSpec{ID: id, Name: id, Policy: "storage", Pos: val.Pos()}

		if nameVal := val.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
			if spec.Name, err = nameVal.String(); err != nil {
				return nil, formatCUEError(err, field+".name")
			}
		}
		if colourVal := val.LookupPath(cue.ParsePath("colour")); colourVal.Exists() {
			colour, err := uintField(colourVal, field+".colour")
			if err != nil {
				return nil, err
			}
			if colour > math.MaxUint32 {
				return nil, &CompileError{
					Field:   field + ".colour",
					Message: "colour must fit in 32 bits",
					Pos:     colourVal.Pos(),
				}
			}
			spec.Colour = uint32(colour)
		}
		if policyVal := val.LookupPath(cue.ParsePath("policy")); policyVal.Exists() {
			if spec.Policy, err = policyVal.String(); err != nil {
				return nil, formatCUEError(err, field+".policy")
			}
		}

		specs = append(specs, spec)
	}

	return specs, nil
}

func parseLayouts(v cue.Value) ([]LayoutSpec, error) {
	var specs []LayoutSpec

	layoutVal := v.LookupPath(cue.ParsePath("layout"))
	if !layoutVal.Exists() {
		return specs, nil
	}

	iter, err := layoutVal.Fields()
	if err != nil {
		return nil, formatCUEError(err, "layout")
	}

	for iter.Next() {
		name := iter.Label()
		val := iter.Value()
		field := "layout." + name

		spec := LayoutSpec{Name: name, Pos: val.Pos()}

		groupsVal := val.LookupPath(cue.ParsePath("groups"))
		if !groupsVal.Exists() {
			return nil, &CompileError{
				Field:   field + ".groups",
				Message: "groups are required",
				Pos:     val.Pos(),
			}
		}

		groupIter, err := groupsVal.List()
		if err != nil {
			return nil, formatCUEError(err, field+".groups")
		}

		for i := 0; groupIter.Next(); i++ {
			group, err := parseGroup(groupIter.Value(), fmt.Sprintf("%s.groups[%d]", field, i))
			if err != nil {
				return nil, err
			}
			spec.Groups = append(spec.Groups, group)
		}

		specs = append(specs, spec)
	}

	return specs, nil
}

func parseGroup(v cue.Value, field string) (GroupSpec, error) {
	group := GroupSpec{Slots: 1, Pos: v.Pos()}
	var err error

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return group, &CompileError{Field: field + ".type", Message: "group type is required", Pos: v.Pos()}
	}
	if group.Type, err = typeVal.String(); err != nil {
		return group, formatCUEError(err, field+".type")
	}

	if slotsVal := v.LookupPath(cue.ParsePath("slots")); slotsVal.Exists() {
		n, err := uintField(slotsVal, field+".slots")
		if err != nil {
			return group, err
		}
		if n > math.MaxInt32 {
			return group, &CompileError{Field: field + ".slots", Message: "too many slots", Pos: slotsVal.Pos()}
		}
		group.Slots = int(n)
	}

	capVal := v.LookupPath(cue.ParsePath("capacity"))
	if !capVal.Exists() {
		return group, &CompileError{Field: field + ".capacity", Message: "capacity is required", Pos: v.Pos()}
	}
	if group.Capacity, err = uintField(capVal, field+".capacity"); err != nil {
		return group, err
	}

	if fixedVal := v.LookupPath(cue.ParsePath("fixed")); fixedVal.Exists() {
		if group.Fixed, err = fixedVal.Bool(); err != nil {
			return group, formatCUEError(err, field+".fixed")
		}
	}
	if policyVal := v.LookupPath(cue.ParsePath("policy")); policyVal.Exists() {
		if group.Policy, err = policyVal.String(); err != nil {
			return group, formatCUEError(err, field+".policy")
		}
	}
	if filterVal := v.LookupPath(cue.ParsePath("filter")); filterVal.Exists() {
		if group.Filter, err = parseFilter(filterVal, field+".filter"); err != nil {
			return group, err
		}
	}
	if strictVal := v.LookupPath(cue.ParsePath("strict")); strictVal.Exists() {
		if group.Strict, err = parseFilter(strictVal, field+".strict"); err != nil {
			return group, err
		}
	}

	return group, nil
}

func parseFilter(v cue.Value, field string) (*FilterSpec, error) {
	spec := &FilterSpec{Pos: v.Pos()}
	var err error

	if spec.Allow, err = stringList(v.LookupPath(cue.ParsePath("allow")), field+".allow"); err != nil {
		return nil, err
	}
	if spec.Deny, err = stringList(v.LookupPath(cue.ParsePath("deny")), field+".deny"); err != nil {
		return nil, err
	}

	if metaVal := v.LookupPath(cue.ParsePath("metadata")); metaVal.Exists() {
		val, err := metadataValue(metaVal, field+".metadata")
		if err != nil {
			return nil, err
		}
		meta, ok := val.(resource.Metadata)
		if !ok {
			return nil, &CompileError{Field: field + ".metadata", Message: "metadata must be a struct", Pos: metaVal.Pos()}
		}
		spec.Metadata = resource.Strip(meta)
	}

	return spec, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err, field)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err, field)
		}
		out = append(out, s)
	}
	return out, nil
}

func uintField(v cue.Value, field string) (uint64, error) {
	if v.IncompleteKind() != cue.IntKind {
		return 0, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("must be a non-negative integer, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
	n, err := v.Uint64()
	if err != nil {
		return 0, formatCUEError(err, field)
	}
	return n, nil
}

// metadataValue converts a concrete CUE value into a metadata value.
// Floats are rejected so fingerprints stay stable.
func metadataValue(v cue.Value, field string) (resource.Value, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err, field)
		}
		return resource.String(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err, field)
		}
		return resource.Int(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err, field)
		}
		return resource.Bool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err, field)
		}
		list := resource.List{}
		for i := 0; iter.Next(); i++ {
			elem, err := metadataValue(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			list = append(list, elem)
		}
		return list, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err, field)
		}
		meta := resource.Metadata{}
		for iter.Next() {
			elem, err := metadataValue(iter.Value(), field+"."+iter.Label())
			if err != nil {
				return nil, err
			}
			meta[iter.Label()] = elem
		}
		return meta, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   field,
			Message: "float values are forbidden in metadata, use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported metadata kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}
