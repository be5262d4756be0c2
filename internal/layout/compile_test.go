package layout

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stockpile/internal/resource"
	"github.com/roach88/stockpile/internal/storage"
)

const furnaceSrc = `
resource: {
	"iron_ore": {}
	"iron_ingot": {}
	"coal": {max: 32}
	"bucket": {max: 16}
	"water_bucket": {max: 1, remainder: "bucket"}
	"mod:enchanted_book": {max: 1}
}

group_type: {
	input: {name: "Input", colour: 0x3366ff, policy: "input"}
	fuel: {name: "Fuel", colour: 0x333333, policy: "input"}
	output: {name: "Output", colour: 0xff6633, policy: "output"}
}

layout: {
	furnace: groups: [
		{type: "input", slots: 2, capacity: 64, filter: allow: ["iron_ore"]},
		{type: "fuel", capacity: 64, filter: deny: ["iron_ore", "iron_ingot"]},
		{type: "output", capacity: 64, policy: "storage"},
	]
	chest: groups: [
		{type: "output", slots: 4, capacity: 128, fixed: true},
	]
}
`

func compileFurnace(t *testing.T) *Catalog {
	t.Helper()
	c, err := CompileString(furnaceSrc, "furnace.cue")
	require.NoError(t, err)
	return c
}

func TestCompileResources(t *testing.T) {
	c := compileFurnace(t)

	require.Len(t, c.Resources, 6)
	assert.Equal(t, "iron_ore", c.Resources[0].ID)

	reg := c.Registry()
	assert.Equal(t, 6, reg.Len())

	coal, ok := reg.Lookup("coal")
	require.True(t, ok)
	assert.Equal(t, uint64(32), coal.MaxAmount)

	ore, _ := reg.Lookup("iron_ore")
	assert.Equal(t, resource.DefaultMaxAmount, ore.MaxAmount)

	water, _ := reg.Lookup("water_bucket")
	bucket, _ := reg.Lookup("bucket")
	assert.Same(t, bucket, water.Remainder)

	_, ok = reg.Lookup("mod:enchanted_book")
	assert.True(t, ok)
}

func TestCompileGroupTypes(t *testing.T) {
	c := compileFurnace(t)

	gt, ok := c.GroupType("output")
	require.True(t, ok)
	assert.Equal(t, "Output", gt.Name)
	assert.Equal(t, uint32(0xff6633), gt.Colour)
	assert.Equal(t, storage.PolicyOutput, gt.Policy)
}

func TestCompileGroupTypeDefaults(t *testing.T) {
	c, err := CompileString(`group_type: misc: {}`, "defaults.cue")
	require.NoError(t, err)

	gt, ok := c.GroupType("misc")
	require.True(t, ok)
	assert.Equal(t, "misc", gt.Name)
	assert.Equal(t, storage.PolicyStorage, gt.Policy)
}

func TestCompileLayouts(t *testing.T) {
	c := compileFurnace(t)

	assert.Equal(t, []string{"furnace", "chest"}, c.LayoutNames())

	furnace, ok := c.Layout("furnace")
	require.True(t, ok)
	require.Len(t, furnace.Groups, 3)
	assert.Equal(t, 2, furnace.Groups[0].Slots)
	assert.Equal(t, []string{"iron_ore"}, furnace.Groups[0].Filter.Allow)
	assert.Equal(t, 1, furnace.Groups[1].Slots, "slots defaults to one")
	assert.Equal(t, "storage", furnace.Groups[2].Policy)

	chest, _ := c.Layout("chest")
	assert.True(t, chest.Groups[0].Fixed)
}

func TestBuildLayout(t *testing.T) {
	c := compileFurnace(t)
	id := uuid.MustParse("00000000-0000-7000-8000-000000000001")

	s, err := c.Build("furnace", storage.WithID(id))
	require.NoError(t, err)

	assert.Equal(t, id, s.ID())
	assert.Equal(t, 4, s.Size())
	require.Len(t, s.Groups(), 3)
	assert.Same(t, c.Registry(), s.Registry())

	reg := c.Registry()
	ore, _ := reg.Lookup("iron_ore")
	ingot, _ := reg.Lookup("iron_ingot")
	coal, _ := reg.Lookup("coal")

	input, ok := s.GroupByID("input")
	require.True(t, ok)
	assert.True(t, input.CanInsertOne(ore, nil))
	assert.False(t, input.CanInsertOne(coal, nil))

	fuel, _ := s.GroupByID("fuel")
	assert.True(t, fuel.CanInsertOne(coal, nil))
	assert.False(t, fuel.CanInsertOne(ingot, nil))

	// group override beats the group type's output policy
	output, _ := s.GroupByID("output")
	assert.Equal(t, storage.PolicyStorage, output.Slot(0).Policy())
	assert.Equal(t, storage.PolicyInput, input.Slot(0).Policy())

	// per-type max applies unless fixed
	assert.Equal(t, uint64(32), fuel.Slot(0).CapacityFor(coal))
}

func TestBuildFixedCapacity(t *testing.T) {
	c := compileFurnace(t)

	s, err := c.Build("chest")
	require.NoError(t, err)

	coal, _ := c.Registry().Lookup("coal")
	assert.Equal(t, uint64(128), s.Slot(0).CapacityFor(coal))
	assert.Equal(t, uint64(200), s.Insert(nil, coal, nil, 200))
	assert.Equal(t, uint64(128), s.Slot(0).Amount())
	assert.Equal(t, uint64(256), s.CapacityOf(coal, nil))
}

func TestBuildUnknownLayout(t *testing.T) {
	c := compileFurnace(t)

	_, err := c.Build("smeltery")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown layout "smeltery"`)
}

func TestBuildEachCallIsIndependent(t *testing.T) {
	c := compileFurnace(t)

	a, err := c.Build("chest")
	require.NoError(t, err)
	b, err := c.Build("chest")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotSame(t, a.Slot(0), b.Slot(0))
}

func TestCompileMetadataFilter(t *testing.T) {
	c, err := CompileString(`
		resource: sword: {max: 1}
		group_type: enchant: {policy: "transfer"}
		layout: table: groups: [{
			type: "enchant"
			capacity: 1
			filter: metadata: {enchanted: true, tags: ["sharp", 3]}
		}]
	`, "table.cue")
	require.NoError(t, err)

	l, _ := c.Layout("table")
	want := resource.Metadata{
		"enchanted": resource.Bool(true),
		"tags":      resource.List{resource.String("sharp"), resource.Int(3)},
	}
	assert.True(t, resource.Equal(want, l.Groups[0].Filter.Metadata))

	s, err := c.Build("table")
	require.NoError(t, err)
	sword, _ := c.Registry().Lookup("sword")
	assert.False(t, s.Slot(0).CanInsertOne(sword, nil))
	assert.True(t, s.Slot(0).CanInsertOne(sword, want))
}

func TestCompileStructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"float metadata", `
			resource: a: {}
			group_type: g: {}
			layout: l: groups: [{type: "g", capacity: 1, filter: metadata: {x: 1.5}}]
		`, "layout.l.groups[0].filter.metadata.x"},
		{"missing capacity", `
			group_type: g: {}
			layout: l: groups: [{type: "g"}]
		`, "layout.l.groups[0].capacity"},
		{"missing type", `layout: l: groups: [{capacity: 1}]`, "layout.l.groups[0].type"},
		{"missing groups", `layout: l: {}`, "layout.l.groups"},
		{"negative max", `resource: a: {max: -1}`, "resource.a.max"},
		{"string capacity", `
			group_type: g: {}
			layout: l: groups: [{type: "g", capacity: "lots"}]
		`, "layout.l.groups[0].capacity"},
		{"colour overflow", `group_type: g: {colour: 0x1ffffffff}`, "group_type.g.colour"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileString(tt.src, "bad.cue")
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "got %T: %v", err, err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileCUESyntaxError(t *testing.T) {
	_, err := CompileString(`resource: {`, "broken.cue")
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "cue", ce.Field)
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "layout.l", Message: "bad"}
	assert.Equal(t, "layout.l: bad", err.Error())
}
