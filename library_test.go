package lessonplanner

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore loads nothing and refuses every write
type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) ([]byte, bool, error) { return nil, false, nil }
func (failingStore) Put(ctx context.Context, key string, value []byte) error {
	return errors.New("disk full")
}
func (failingStore) Close() error { return nil }

func openTestLibrary(t *testing.T, store KVStore) *Library {
	t.Helper()
	lib, err := OpenLibrary(context.Background(), store)
	require.NoError(t, err)
	return lib
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestSavePlanAssignsIdentity(t *testing.T) {
	lib := openTestLibrary(t, newMemStore())
	lib.now = fixedClock(1700000000000)

	saved, err := lib.SavePlan(context.Background(), samplePlan())
	require.NoError(t, err)
	assert.Equal(t, "1700000000000", saved.ID)
	assert.Equal(t, int64(1700000000000), saved.CreatedAt)
	_, err = strconv.ParseInt(saved.ID, 10, 64)
	assert.NoError(t, err)

	second, err := lib.SavePlan(context.Background(), samplePlan())
	require.NoError(t, err)
	assert.Equal(t, "1700000000001", second.ID, "same millisecond bumps the ID")

	plans := lib.Plans()
	require.Len(t, plans, 2)
	assert.Equal(t, second.ID, plans[0].ID, "new plans go first")
}

func TestSavePlanReplacesExisting(t *testing.T) {
	lib := openTestLibrary(t, newMemStore())

	saved, err := lib.SavePlan(context.Background(), samplePlan())
	require.NoError(t, err)

	lib.now = fixedClock(saved.CreatedAt + 5000)
	changed := *saved
	changed.Title = "元宵节"
	again, err := lib.SavePlan(context.Background(), changed)
	require.NoError(t, err)

	assert.Equal(t, saved.ID, again.ID)
	assert.Equal(t, saved.CreatedAt, again.CreatedAt)
	require.Len(t, lib.Plans(), 1)
	assert.Equal(t, "元宵节", lib.Plans()[0].Title)
}

func TestSavePlanKeepsIdentityAndImage(t *testing.T) {
	lib := openTestLibrary(t, newMemStore())
	ctx := context.Background()

	saved, err := lib.SavePlan(ctx, samplePlan())
	require.NoError(t, err)
	_, err = lib.SetPlanImage(ctx, saved.ID, pngDataURI())
	require.NoError(t, err)

	edited := *saved
	edited.CreatedAt = 42
	edited.ImageURL = ""
	edited.Title = "元宵节"
	again, err := lib.SavePlan(ctx, edited)
	require.NoError(t, err)
	assert.Equal(t, saved.CreatedAt, again.CreatedAt)
	assert.Equal(t, pngDataURI(), again.ImageURL)

	stored, err := lib.Plan(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.CreatedAt, stored.CreatedAt)
	assert.Equal(t, pngDataURI(), stored.ImageURL)
	assert.Equal(t, "元宵节", stored.Title)
}

func TestSavePlanAssignsIdentityToUnknownIDs(t *testing.T) {
	lib := openTestLibrary(t, newMemStore())
	lib.now = fixedClock(1700000000000)

	plan := samplePlan()
	plan.ID = "not-a-number"
	plan.CreatedAt = 42
	saved, err := lib.SavePlan(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, "1700000000000", saved.ID)
	assert.Equal(t, int64(1700000000000), saved.CreatedAt)

	_, err = lib.Plan("not-a-number")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSavePlanKeepsMemoryOnPersistFailure(t *testing.T) {
	lib := openTestLibrary(t, failingStore{})

	_, err := lib.SavePlan(context.Background(), samplePlan())
	assert.ErrorIs(t, err, ErrExportFailed)
	assert.Empty(t, lib.Plans())

	_, err = lib.CreateCollection(context.Background(), "Festivals", "")
	assert.ErrorIs(t, err, ErrExportFailed)
	assert.Empty(t, lib.Collections())
}

func TestLibraryPersistsAcrossReopen(t *testing.T) {
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	defer store.Close()

	lib := openTestLibrary(t, store)
	coll, err := lib.CreateCollection(context.Background(), "Festivals", "Holiday lessons")
	require.NoError(t, err)
	saved, err := lib.SavePlan(context.Background(), samplePlan())
	require.NoError(t, err)
	_, err = lib.MoveToCollection(context.Background(), saved.ID, coll.ID)
	require.NoError(t, err)

	reopened := openTestLibrary(t, store)
	plan, err := reopened.Plan(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "春节包饺子", plan.Title)
	assert.Equal(t, coll.ID, plan.CollectionID)
	assert.Equal(t, "Festivals", reopened.CollectionName(*plan))
	require.Len(t, reopened.Collections(), 1)
}

func TestOpenLibraryIgnoresUnreadableEntries(t *testing.T) {
	store := newMemStore()
	store.data[activitiesKey] = []byte("{not json")
	store.data[collectionsKey] = []byte(`[{"id":"1","name":"Festivals","created_at":1}]`)

	lib := openTestLibrary(t, store)
	assert.Empty(t, lib.Plans())
	assert.Len(t, lib.Collections(), 1)
}

func TestPlanImageNeverRegresses(t *testing.T) {
	lib := openTestLibrary(t, newMemStore())
	saved, err := lib.SavePlan(context.Background(), samplePlan())
	require.NoError(t, err)

	updated, err := lib.SetPlanImage(context.Background(), saved.ID, pngDataURI())
	require.NoError(t, err)
	assert.Equal(t, pngDataURI(), updated.ImageURL)

	updated, err = lib.SetPlanImage(context.Background(), saved.ID, "")
	require.NoError(t, err)
	assert.Equal(t, pngDataURI(), updated.ImageURL)

	title := "新标题"
	updated, err = lib.UpdatePlan(context.Background(), saved.ID, PlanEdit{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "新标题", updated.Title)
	assert.Equal(t, pngDataURI(), updated.ImageURL)
	assert.Equal(t, saved.ID, updated.ID)
}

func TestLibraryNotFound(t *testing.T) {
	lib := openTestLibrary(t, newMemStore())
	ctx := context.Background()

	_, err := lib.Plan("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, lib.DeletePlan(ctx, "missing"), ErrNotFound)
	_, err = lib.UpdatePlan(ctx, "missing", PlanEdit{})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = lib.SetPlanImage(ctx, "missing", pngDataURI())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePlan(t *testing.T) {
	store := newMemStore()
	lib := openTestLibrary(t, store)
	saved, err := lib.SavePlan(context.Background(), samplePlan())
	require.NoError(t, err)

	require.NoError(t, lib.DeletePlan(context.Background(), saved.ID))
	assert.Empty(t, lib.Plans())
	assert.JSONEq(t, "[]", string(store.data[activitiesKey]))
}

func TestGroupByCollection(t *testing.T) {
	lib := openTestLibrary(t, newMemStore())
	ctx := context.Background()
	lib.now = fixedClock(1000)

	festivals, err := lib.CreateCollection(ctx, "Festivals", "")
	require.NoError(t, err)
	empty, err := lib.CreateCollection(ctx, "Food", "")
	require.NoError(t, err)
	assert.NotEqual(t, festivals.ID, empty.ID)

	_, err = lib.CreateCollection(ctx, "  ", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	inFestivals := samplePlan()
	inFestivals.CollectionID = festivals.ID
	_, err = lib.SavePlan(ctx, inFestivals)
	require.NoError(t, err)

	orphan := samplePlan()
	orphan.CollectionID = "deleted-collection"
	orphan.Theme = "中秋节"
	orphaned, err := lib.SavePlan(ctx, orphan)
	require.NoError(t, err)
	_, err = lib.SavePlan(ctx, samplePlan())
	require.NoError(t, err)

	groups := lib.GroupByCollection()
	require.Len(t, groups, 3)
	assert.Equal(t, "Festivals", groups[0].Name)
	assert.Len(t, groups[0].Plans, 1)
	assert.Equal(t, "Food", groups[1].Name)
	assert.Empty(t, groups[1].Plans)
	assert.Equal(t, UncategorizedName, groups[2].Name)
	assert.Nil(t, groups[2].Collection)
	assert.Len(t, groups[2].Plans, 2)

	assert.Equal(t, UncategorizedName, lib.CollectionName(*orphaned))
	assert.ElementsMatch(t, []string{"春节", "中秋节"}, lib.Themes())
}

func TestApplyPlanEdit(t *testing.T) {
	plan := samplePlan()
	plan.ID = "1"
	plan.CreatedAt = 1
	plan.CollectionID = "c"
	plan.ImageURL = pngDataURI()

	steps := []string{"Step A", "Step B"}
	dialogue := "A: 新年好！"
	edited := ApplyPlanEdit(plan, PlanEdit{Steps: &steps, SimulationDialogue: &dialogue})

	assert.Equal(t, steps, edited.Steps)
	assert.Equal(t, dialogue, edited.SimulationDialogue)
	assert.Equal(t, plan.Title, edited.Title)
	assert.Equal(t, plan.Props, edited.Props)
	assert.Equal(t, "1", edited.ID)
	assert.Equal(t, int64(1), edited.CreatedAt)
	assert.Equal(t, "c", edited.CollectionID)
	assert.Equal(t, plan.ImageURL, edited.ImageURL)

	steps[0] = "changed later"
	assert.Equal(t, "Step A", edited.Steps[0], "edit lists are copied")

	var none []string
	cleared := ApplyPlanEdit(plan, PlanEdit{Props: &none})
	assert.NotNil(t, cleared.Props)
	assert.Empty(t, cleared.Props)
}
