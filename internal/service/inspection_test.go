package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"facility-inspect/internal/config"
	"facility-inspect/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := NewInspectionService(newTestDB(t), config.BestEffort)

	res, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)
	assert.NotZero(t, res.ID)
	assert.Equal(t, 1, res.Saved)
	assert.Empty(t, res.Failed)

	got, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "Swanson Hall", got.Building)
	assert.Equal(t, "Custodial", got.InspectionType)
	assert.Equal(t, "J. Doe", got.Inspector)
	assert.Equal(t, "2025-03-14", got.InspectionDate.Format("2006-01-02"))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Level 4", got.Items[0].Rating)
	assert.Equal(t, "stained carpet", got.Items[0].Notes)
	assert.Equal(t, "Common Areas (Lobbies, Hallways, Lounges)", got.Items[0].Category)
}

func TestCreateParentOnly(t *testing.T) {
	ctx := context.Background()
	svc := NewInspectionService(newTestDB(t), config.BestEffort)

	in := sampleInput()
	in.Items = nil
	res, err := svc.Create(ctx, in)
	require.NoError(t, err)

	got, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestGetInfersLegacyCategory(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewInspectionService(db, config.BestEffort)

	res, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)
	require.NoError(t, db.Model(&model.InspectionItem{}).Where("inspection_id = ?", res.ID).
		Update("category", "").Error)

	got, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "Common Areas (Lobbies, Hallways, Lounges)", got.Items[0].Category)
}

func TestCreatePersistsPhotos(t *testing.T) {
	ctx := context.Background()
	svc := NewInspectionService(newTestDB(t), config.BestEffort)

	in := sampleInput()
	in.Items[0].Photos = [][]byte{[]byte("jpeg-1"), []byte("jpeg-2")}
	res, err := svc.Create(ctx, in)
	require.NoError(t, err)

	got, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	require.Len(t, got.Items[0].Photos, 2)
	assert.Equal(t, []byte("jpeg-1"), got.Items[0].Photos[0].Photo)
}

func TestReplaceSwapsItemSet(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewInspectionService(db, config.BestEffort)

	in := sampleInput()
	in.Items = append(in.Items, model.ItemInput{Item: "Odor Control", Rating: 2})
	in.Items[0].Photos = [][]byte{[]byte("old")}
	res, err := svc.Create(ctx, in)
	require.NoError(t, err)

	repl := sampleInput()
	repl.Inspector = "A. Smith"
	repl.Items = []model.ItemInput{
		{Item: "Toilets & Urinals", Rating: 1, Notes: "spotless"},
	}
	out, err := svc.Replace(ctx, res.ID, repl)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Saved)

	got, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "A. Smith", got.Inspector)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Toilets & Urinals", got.Items[0].Item)
	assert.Equal(t, "Restrooms (Common/Public)", got.Items[0].Category)

	var items, photos int64
	require.NoError(t, db.Model(&model.InspectionItem{}).Count(&items).Error)
	require.NoError(t, db.Model(&model.InspectionItemPhoto{}).Count(&photos).Error)
	assert.EqualValues(t, 1, items)
	assert.EqualValues(t, 0, photos)
}

func TestReplaceUnknownID(t *testing.T) {
	svc := NewInspectionService(newTestDB(t), config.BestEffort)
	_, err := svc.Replace(context.Background(), 999, sampleInput())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRatingOutOfRangeRejected(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewInspectionService(db, config.BestEffort)

	in := sampleInput()
	in.Items[0].Rating = 6
	_, err := svc.Create(ctx, in)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var n int64
	require.NoError(t, db.Model(&model.Inspection{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreateValidation(t *testing.T) {
	svc := NewInspectionService(newTestDB(t), config.BestEffort)
	ctx := context.Background()

	cases := map[string]func(*model.InspectionInput){
		"building":  func(in *model.InspectionInput) { in.Building = " " },
		"inspector": func(in *model.InspectionInput) { in.Inspector = "" },
		"type":      func(in *model.InspectionInput) { in.Type = "Plumbing" },
		"date":      func(in *model.InspectionInput) { in.Date = "14/03/2025" },
		"item name": func(in *model.InspectionInput) { in.Items[0].Item = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := sampleInput()
			mutate(&in)
			_, err := svc.Create(ctx, in)
			assert.True(t, IsValidation(err), "got %v", err)
		})
	}
}

// failItemNamed makes inserts of the named item fail inside gorm.
func failItemNamed(t *testing.T, db *gorm.DB, name string) {
	t.Helper()
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_item", func(tx *gorm.DB) {
		if item, ok := tx.Statement.Dest.(*model.InspectionItem); ok && item.Item == name {
			tx.AddError(errors.New("injected failure"))
		}
	})
	require.NoError(t, err)
}

func TestBestEffortKeepsOtherItems(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	failItemNamed(t, db, "Odor Control")
	svc := NewInspectionService(db, config.BestEffort)

	in := sampleInput()
	in.Items = append(in.Items,
		model.ItemInput{Item: "Odor Control", Rating: 3},
		model.ItemInput{Item: "Drinking Fountains", Rating: 2},
	)
	res, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Saved)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "Odor Control", res.Failed[0].Item)
	assert.Equal(t, 1, res.Failed[0].Index)

	got, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Drinking Fountains", got.Items[1].Item)
}

func TestFailFastRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	failItemNamed(t, db, "Odor Control")
	svc := NewInspectionService(db, config.FailFast)

	in := sampleInput()
	in.Items = append(in.Items, model.ItemInput{Item: "Odor Control", Rating: 3})
	_, err := svc.Create(ctx, in)
	require.Error(t, err)

	var parents, items int64
	require.NoError(t, db.Model(&model.Inspection{}).Count(&parents).Error)
	require.NoError(t, db.Model(&model.InspectionItem{}).Count(&items).Error)
	assert.Zero(t, parents)
	assert.Zero(t, items)
}

func TestFailFastReplaceLeavesOldVersion(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewInspectionService(db, config.FailFast)

	res, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)

	failItemNamed(t, db, "Odor Control")
	repl := sampleInput()
	repl.Inspector = "Somebody Else"
	repl.Items = []model.ItemInput{{Item: "Odor Control", Rating: 1}}
	_, err = svc.Replace(ctx, res.ID, repl)
	require.Error(t, err)

	got, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "J. Doe", got.Inspector)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Flooring (Hard Surface)", got.Items[0].Item)
}

func seedInspections(t *testing.T, svc *InspectionService, n int) {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		in := sampleInput()
		in.Date = base.AddDate(0, 0, i).Format("2006-01-02")
		in.Inspector = fmt.Sprintf("Inspector %d", i%3)
		if i%2 == 0 {
			in.Building = "Noren Hall"
			in.Type = "Grounds"
			in.Items = []model.ItemInput{{Item: "Weed Control", Rating: 2}}
		}
		_, err := svc.Create(context.Background(), in)
		require.NoError(t, err)
	}
}

func TestListLimitAndOrder(t *testing.T) {
	ctx := context.Background()
	svc := NewInspectionService(newTestDB(t), config.BestEffort)
	seedInspections(t, svc, 8)

	got, err := svc.List(ctx, model.InspectionFilter{Limit: 5})
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].InspectionDate.After(got[i-1].InspectionDate))
	}
	assert.Equal(t, "2025-01-08", got[0].InspectionDate.Format("2006-01-02"))
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	svc := NewInspectionService(newTestDB(t), config.BestEffort)
	seedInspections(t, svc, 6)

	got, err := svc.List(ctx, model.InspectionFilter{Building: "Noren Hall", Type: "grounds"})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = svc.List(ctx, model.InspectionFilter{Inspector: "inspector 1"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = svc.List(ctx, model.InspectionFilter{Date: "2025-01-03"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Noren Hall", got[0].Building)

	got, err = svc.List(ctx, model.InspectionFilter{DateFrom: "2025-01-02", DateTo: "2025-01-04"})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = svc.List(ctx, model.InspectionFilter{Date: "yesterday"})
	assert.True(t, IsValidation(err))
}

func TestListWithPhotos(t *testing.T) {
	ctx := context.Background()
	svc := NewInspectionService(newTestDB(t), config.BestEffort)
	seedInspections(t, svc, 3)

	in := sampleInput()
	in.Items[0].Photos = [][]byte{[]byte("img")}
	res, err := svc.Create(ctx, in)
	require.NoError(t, err)

	got, err := svc.List(ctx, model.InspectionFilter{WithPhotos: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, res.ID, got[0].ID)
}

func TestDistinctValues(t *testing.T) {
	ctx := context.Background()
	svc := NewInspectionService(newTestDB(t), config.BestEffort)
	seedInspections(t, svc, 4)

	buildings, err := svc.DistinctBuildings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Noren Hall", "Swanson Hall"}, buildings)

	inspectors, err := svc.DistinctInspectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Inspector 0", "Inspector 1", "Inspector 2"}, inspectors)
}

func TestSetReport(t *testing.T) {
	ctx := context.Background()
	svc := NewInspectionService(newTestDB(t), config.BestEffort)
	res, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)

	require.NoError(t, svc.SetReport(ctx, res.ID, "**OVERALL APPA LEVEL:** 2", "<html></html>"))
	got, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "**OVERALL APPA LEVEL:** 2", got.AIReport)
	assert.Equal(t, "<html></html>", got.ReportHTML)

	listed, err := svc.List(ctx, model.InspectionFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, res.ID, listed[0].ID)
	assert.Equal(t, "Swanson Hall", listed[0].Building)
	assert.Empty(t, listed[0].AIReport)
	assert.Empty(t, listed[0].ReportHTML)

	assert.ErrorIs(t, svc.SetReport(ctx, 404, "", ""), ErrNotFound)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc := NewInspectionService(newTestDB(t), config.BestEffort)
	svc.now = func() time.Time { return time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC) }
	seedInspections(t, svc, 5)

	old := sampleInput()
	old.Date = "2024-06-01"
	_, err := svc.Create(ctx, old)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 6, stats.Total)
	assert.EqualValues(t, 3, stats.ByType["Grounds"])
	assert.EqualValues(t, 3, stats.ByType["Custodial"])
	assert.EqualValues(t, 5, stats.Recent)
	require.Len(t, stats.TopBuildings, 2)
	assert.Equal(t, "Noren Hall", stats.TopBuildings[0].Building)
	assert.EqualValues(t, 3, stats.TopBuildings[0].Count)
}

func TestNilDBIsConnectionError(t *testing.T) {
	svc := NewInspectionService(nil, config.BestEffort)
	_, err := svc.Create(context.Background(), sampleInput())
	assert.True(t, IsConnection(err))
	_, err = svc.List(context.Background(), model.InspectionFilter{})
	assert.True(t, IsConnection(err))
	assert.False(t, svc.Available())
}
