package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"facility-inspect/internal/checklist"
	"facility-inspect/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecords struct {
	byID map[uint]*model.Inspection
	last model.InspectionFilter
}

func (f *fakeRecords) Get(_ context.Context, id uint) (*model.Inspection, error) {
	rec, ok := f.byID[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return rec, nil
}

func (f *fakeRecords) List(_ context.Context, filter model.InspectionFilter) ([]model.Inspection, error) {
	f.last = filter
	var out []model.Inspection
	for _, rec := range f.byID {
		if filter.Building == "" || rec.Building == filter.Building {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func newTestController(t *testing.T) (*Controller, *Store, *fakeRecords) {
	t.Helper()
	store := NewStore(time.Hour)
	t.Cleanup(store.Close)
	records := &fakeRecords{byID: map[uint]*model.Inspection{
		7: {
			ID: 7, Building: "Swanson Hall", InspectionType: "Custodial", Inspector: "J. Doe",
			InspectionDate: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
			AIReport:       "old summary",
			Items: []model.InspectionItem{
				{Category: "Common Areas (Lobbies, Hallways, Lounges)", Item: "Flooring (Hard Surface)", Rating: "Level 4", Notes: "stained carpet"},
				{Category: "General", Item: "Elevator Cab", Rating: "Level 2", Notes: "scuffed panel"},
			},
		},
	}}
	return NewController(store, records), store, records
}

func TestStartGetEnd(t *testing.T) {
	_, store, _ := newTestController(t)
	c := store.Start(User{Email: "a@und.edu", Name: "Ada"})
	st := c.Snapshot()
	assert.Equal(t, ScreenHome, st.Screen)
	require.NotEmpty(t, st.ID)

	got, ok := store.Get(st.ID)
	require.True(t, ok)
	assert.Same(t, c, got)

	store.End(st.ID)
	_, ok = store.Get(st.ID)
	assert.False(t, ok)
}

func TestSweepDropsIdle(t *testing.T) {
	_, store, _ := newTestController(t)
	clock := time.Now()
	store.now = func() time.Time { return clock }
	idle := store.Start(User{Email: "idle@und.edu"}).Snapshot().ID

	clock = clock.Add(50 * time.Minute)
	active := store.Start(User{Email: "active@und.edu"}).Snapshot().ID

	clock = clock.Add(20 * time.Minute)
	assert.Equal(t, 1, store.sweep())
	_, ok := store.Get(idle)
	assert.False(t, ok)
	_, ok = store.Get(active)
	assert.True(t, ok)
}

func TestTransitions(t *testing.T) {
	ctl, store, _ := newTestController(t)
	c := store.Start(User{Email: "a@und.edu"})

	require.NoError(t, ctl.Transition(c, "select_type"))
	assert.ErrorIs(t, ctl.Transition(c, "edit"), ErrBadTransition)
	require.NoError(t, ctl.Transition(c, ActionBack))
	assert.Equal(t, ScreenHome, c.Snapshot().Screen)

	assert.ErrorIs(t, ctl.Transition(c, "new_form"), ErrBadTransition)
	assert.ErrorIs(t, ctl.Transition(c, "admin_page"), ErrForbidden)
	assert.ErrorIs(t, ctl.Transition(c, "nowhere"), ErrBadTransition)

	require.NoError(t, ctl.Transition(c, ActionLogout))
	assert.Equal(t, ScreenLogin, c.Snapshot().Screen)
	_, ok := store.Get(c.Snapshot().ID)
	assert.False(t, ok)
}

func TestAdminPage(t *testing.T) {
	ctl, store, _ := newTestController(t)
	c := store.Start(User{Email: "boss@und.edu", IsAdmin: true})
	require.NoError(t, ctl.Transition(c, "admin_page"))
	assert.Equal(t, ScreenAdmin, c.Snapshot().Screen)
}

func TestBeginNewClearsStaleForm(t *testing.T) {
	ctl, store, _ := newTestController(t)
	c := store.Start(User{Email: "a@und.edu", Name: "Ada Admin"})

	require.NoError(t, ctl.Transition(c, "edit"))
	require.NoError(t, ctl.BeginEdit(context.Background(), c, 7))
	require.NoError(t, ctl.UpdateForm(c, FormPatch{Building: "Noren Hall"}))
	assert.True(t, c.Snapshot().Touched)
	require.NoError(t, ctl.Transition(c, "home"))

	assert.ErrorIs(t, ctl.BeginNew(c, "custodial"), ErrBadTransition)
	require.NoError(t, ctl.Transition(c, "select_type"))
	assert.ErrorIs(t, ctl.BeginNew(c, "Plumbing"), ErrUnknownType)
	require.NoError(t, ctl.BeginNew(c, "custodial"))

	st := c.Snapshot()
	assert.Equal(t, ScreenNewForm, st.Screen)
	assert.Equal(t, "Custodial", st.NewType)
	assert.Empty(t, st.Form.Building)
	assert.Empty(t, st.AIReport)
	assert.False(t, st.Touched)
	assert.Equal(t, "Ada Admin", st.Form.Inspector)
	require.NotEmpty(t, st.Form.Keys)
	first := st.Form.Entries[st.Form.Keys[0]]
	assert.Equal(t, "Flooring (Hard Surface)", first.Item)
	assert.Equal(t, model.NotRated, first.Rating)
	assert.Empty(t, first.Notes)
}

func TestBeginEditPrefills(t *testing.T) {
	ctl, store, _ := newTestController(t)
	c := store.Start(User{Email: "a@und.edu"})

	assert.ErrorIs(t, ctl.BeginEdit(context.Background(), c, 7), ErrBadTransition)
	require.NoError(t, ctl.Transition(c, "edit"))
	assert.Error(t, ctl.BeginEdit(context.Background(), c, 99))
	require.NoError(t, ctl.BeginEdit(context.Background(), c, 7))

	st := c.Snapshot()
	assert.Equal(t, ScreenEditForm, st.Screen)
	assert.Equal(t, uint(7), st.EditID)
	assert.Equal(t, "2025-03-14", st.Form.Date)
	assert.Equal(t, "old summary", st.AIReport)
	e := st.Form.Entries[EntryKey("Common Areas (Lobbies, Hallways, Lounges)", "Flooring (Hard Surface)")]
	assert.Equal(t, model.Rating(4), e.Rating)
	assert.Equal(t, "stained carpet", e.Notes)

	extra := st.Form.Entries[EntryKey("General", "Elevator Cab")]
	assert.Equal(t, model.Rating(2), extra.Rating)
	assert.Equal(t, "scuffed panel", extra.Notes)

	catalogSize := 0
	for _, cat := range checklist.Catalog("Custodial") {
		catalogSize += len(cat.Items)
	}
	assert.Len(t, st.Form.Keys, catalogSize+1)
	assert.Equal(t, EntryKey("General", "Elevator Cab"), st.Form.Keys[len(st.Form.Keys)-1])
	unrated := st.Form.Entries[EntryKey("Common Areas (Lobbies, Hallways, Lounges)", "Drinking Fountains")]
	assert.Equal(t, model.NotRated, unrated.Rating)

	in := st.Form.Input(st.EditID, st.AIReport)
	assert.Equal(t, uint(7), in.ID)
	assert.Len(t, in.Items, catalogSize+1)
	var filled []model.ItemInput
	for _, it := range in.Items {
		if it.Filled() {
			filled = append(filled, it)
		}
	}
	require.Len(t, filled, 2)
	assert.Equal(t, model.Rating(4), filled[0].Rating)
}

func TestUpdateFormInfersCategory(t *testing.T) {
	ctl, store, _ := newTestController(t)
	c := store.Start(User{Email: "a@und.edu"})
	assert.ErrorIs(t, ctl.UpdateForm(c, FormPatch{}), ErrBadTransition)

	require.NoError(t, ctl.Transition(c, "select_type"))
	require.NoError(t, ctl.BeginNew(c, "Custodial"))
	require.NoError(t, ctl.UpdateForm(c, FormPatch{
		Building: "Swanson Hall",
		Entries:  []Entry{{Item: "Flooring (Hard Surface)", Rating: 4, Notes: "stained carpet"}},
	}))

	st := c.Snapshot()
	e := st.Form.Entries[EntryKey("Common Areas (Lobbies, Hallways, Lounges)", "Flooring (Hard Surface)")]
	assert.Equal(t, model.Rating(4), e.Rating)
	assert.Equal(t, "Swanson Hall", st.Form.Building)
}

func TestSearchKeepsResults(t *testing.T) {
	ctl, store, records := newTestController(t)
	c := store.Start(User{Email: "a@und.edu"})
	got, err := ctl.Search(context.Background(), c, model.InspectionFilter{Building: "Swanson Hall"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "Swanson Hall", records.last.Building)
	assert.Len(t, c.Snapshot().SearchResults, 1)
}
