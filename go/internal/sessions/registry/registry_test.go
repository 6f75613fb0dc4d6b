package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soubeek/epn-solutions/go/internal/models"
)

func ids(list []models.SessionRecord) []int64 {
	out := make([]int64, 0, len(list))
	for _, rec := range list {
		out = append(out, rec.ID)
	}
	return out
}

func seeded(records ...int64) *Registry {
	r := New()
	list := make([]models.SessionRecord, 0, len(records))
	for _, id := range records {
		list = append(list, models.SessionRecord{ID: id, TotalDuration: 600, RemainingTime: 600})
	}
	r.ReplaceAll(list)
	return r
}

func TestRemove_KeepsOrder(t *testing.T) {
	r := seeded(1, 2, 3)

	assert.True(t, r.Remove(2))
	assert.Equal(t, []int64{1, 3}, ids(r.Snapshot()))

	_, ok := r.Get(2)
	assert.False(t, ok)
	rec, ok := r.Get(3)
	require.True(t, ok)
	assert.Equal(t, int64(3), rec.ID)

	assert.False(t, r.Remove(2))
}

func TestUpdate_UnknownIDLeavesRegistryUnchanged(t *testing.T) {
	r := seeded(1, 2)
	before := r.Snapshot()

	assert.False(t, r.Update(models.SessionRecord{ID: 99, Status: models.SessionStatusActive}))
	assert.Equal(t, before, r.Snapshot())
}

func TestUpdate_ReplacesInPlace(t *testing.T) {
	r := seeded(1, 2, 3)

	require.True(t, r.Update(models.SessionRecord{ID: 2, Status: models.SessionStatusSuspended, RemainingTime: 120}))
	assert.Equal(t, []int64{1, 2, 3}, ids(r.Snapshot()))

	rec, _ := r.Get(2)
	assert.Equal(t, models.SessionStatusSuspended, rec.Status)
	assert.Equal(t, 120, rec.RemainingTime)
}

func TestReplaceAll_Dedupes(t *testing.T) {
	r := New()
	r.ReplaceAll([]models.SessionRecord{
		{ID: 1, User: "first"},
		{ID: 2},
		{ID: 1, User: "last"},
	})

	assert.Equal(t, []int64{1, 2}, ids(r.Snapshot()))
	rec, _ := r.Get(1)
	assert.Equal(t, "last", rec.User)

	r.ReplaceAll(nil)
	assert.Equal(t, 0, r.Len())
}

func TestAdd_DuplicateReplaces(t *testing.T) {
	r := seeded(1, 2)

	r.Add(models.SessionRecord{ID: 3})
	r.Add(models.SessionRecord{ID: 1, User: "again"})

	assert.Equal(t, []int64{1, 2, 3}, ids(r.Snapshot()))
	rec, _ := r.Get(1)
	assert.Equal(t, "again", rec.User)
}

func TestApplyTime_OnlyCurrentSession(t *testing.T) {
	r := seeded(1, 2)

	assert.False(t, r.ApplyTime(1, 300, 50), "nothing tracked yet")

	r.SetCurrent(2)
	assert.Equal(t, int64(2), r.Current())
	assert.False(t, r.ApplyTime(1, 300, 50))
	assert.True(t, r.ApplyTime(2, 300, 50))
	assert.True(t, r.ApplyTime(0, 240, 60))

	one, _ := r.Get(1)
	two, _ := r.Get(2)
	assert.Equal(t, 600, one.RemainingTime)
	assert.Equal(t, 240, two.RemainingTime)
	assert.Equal(t, 60.0, two.PercentUsed)
}

func TestSnapshot_IsACopy(t *testing.T) {
	r := seeded(1)
	snap := r.Snapshot()
	snap[0].User = "mutated"

	rec, _ := r.Get(1)
	assert.Empty(t, rec.User)
}
