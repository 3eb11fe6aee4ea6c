package cache

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"maintenance_center/internal/lifecycle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_ReadThrough(t *testing.T) {
	c := New(time.Minute, time.Minute)
	calls := 0
	load := func() (string, error) {
		calls++
		return "machine-1", nil
	}

	v, err := Fetch(c, MachineKey("m1"), load)
	require.NoError(t, err)
	assert.Equal(t, "machine-1", v)

	v, err = Fetch(c, MachineKey("m1"), load)
	require.NoError(t, err)
	assert.Equal(t, "machine-1", v)
	assert.Equal(t, 1, calls, "second read must be served from cache")
}

func TestFetch_ErrorsAreNotCached(t *testing.T) {
	c := New(time.Minute, time.Minute)
	boom := errors.New("backend down")

	_, err := Fetch(c, MachineKey("m1"), func() (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, err := Fetch(c, MachineKey("m1"), func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestListKey_FilterOrderIndependent(t *testing.T) {
	a := ListKey(ResourceMachines, url.Values{"status": {"NEW"}, "branch": {"b1"}})
	b := ListKey(ResourceMachines, url.Values{"branch": {"b1"}, "status": {"NEW"}})
	assert.Equal(t, a, b)
	assert.Equal(t, "machines|branch=b1&status=NEW", a.String())
}

func TestApply_DropsAffectedKeysOnly(t *testing.T) {
	c := New(time.Minute, time.Minute)
	c.Set(MachineKey("m1"), "m1")
	c.Set(MachineKey("m2"), "m2")
	c.Set(ListKey(ResourceMachines, nil), "all")
	c.Set(ListKey(ResourceMachines, url.Values{"status": {"REPAIRED"}}), "repaired")
	c.Set(ListKey(ResourceTechnicians, nil), "techs")

	removed := c.Apply(Invalidations(lifecycle.ActionCompleteRepair, "m1"))
	assert.Equal(t, 3, removed)

	_, ok := c.Get(MachineKey("m1"))
	assert.False(t, ok)
	_, ok = c.Get(MachineKey("m2"))
	assert.True(t, ok, "other machines stay cached")
	_, ok = c.Get(ListKey(ResourceTechnicians, nil))
	assert.True(t, ok, "technicians unaffected by complete-repair")
	_, ok = c.Get(ListKey(ResourceMachines, nil))
	assert.False(t, ok)
}

func TestInvalidations_AssignTouchesTechnicians(t *testing.T) {
	inv := Invalidations(lifecycle.ActionAssignTechnician, "m1")
	assert.Contains(t, inv.Resources, ResourceTechnicians)
	assert.Equal(t, []Key{MachineKey("m1")}, inv.Keys)

	batch := Invalidations(lifecycle.ActionIncludeInReturnPackage, "m1", "m2")
	assert.Len(t, batch.Keys, 2)
	assert.NotContains(t, batch.Resources, ResourceTechnicians)
}

func TestFlush(t *testing.T) {
	c := New(time.Minute, time.Minute)
	c.Set(MachineKey("m1"), 1)
	c.Flush()
	assert.Equal(t, 0, c.Len())
}
