package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"facility-inspect/internal/checklist"
	"facility-inspect/internal/config"
	"facility-inspect/internal/logger"
	"facility-inspect/internal/model"

	"gorm.io/gorm"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500
	recentWindow     = 30 * 24 * time.Hour
	dateLayout       = "2006-01-02"
)

// listOmitted are the report text columns List leaves empty; Get loads them.
var listOmitted = []string{"ai_report", "report_html"}

// ItemFailure is a child row that could not be written under the best-effort policy.
type ItemFailure struct {
	Index int    `json:"index"`
	Item  string `json:"item"`
	Err   string `json:"error"`
}

type SaveResult struct {
	ID     uint          `json:"id"`
	Saved  int           `json:"saved_items"`
	Failed []ItemFailure `json:"failed_items,omitempty"`
}

// InspectionService is the relational record store for inspections, their
// items and item photos.
type InspectionService struct {
	db     *gorm.DB
	policy config.ItemPolicy
	now    func() time.Time
}

// NewInspectionService accepts a nil db; every call then fails with ErrConnection.
func NewInspectionService(db *gorm.DB, policy config.ItemPolicy) *InspectionService {
	return &InspectionService{db: db, policy: policy, now: time.Now}
}

func (s *InspectionService) Available() bool { return s.db != nil }

func (s *InspectionService) conn(ctx context.Context) (*gorm.DB, error) {
	if s.db == nil {
		return nil, ErrConnection
	}
	return s.db.WithContext(ctx), nil
}

func (s *InspectionService) Migrate(ctx context.Context) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	err = db.AutoMigrate(&model.Inspection{}, &model.InspectionItem{}, &model.InspectionItemPhoto{}, &model.User{})
	return classifyDBError("migrate", err)
}

// Create inserts the parent row and its items in one transaction.
func (s *InspectionService) Create(ctx context.Context, in model.InspectionInput) (SaveResult, error) {
	parent, items, err := buildRecord(in)
	if err != nil {
		return SaveResult{}, err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return SaveResult{}, err
	}

	var res SaveResult
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(parent).Error; err != nil {
			return classifyDBError("insert inspection", err)
		}
		res.ID = parent.ID
		saved, failed, err := s.insertItems(tx, parent.ID, items)
		res.Saved, res.Failed = saved, failed
		return err
	})
	if err != nil {
		return SaveResult{}, err
	}
	logger.Info("inspection.create", "id", res.ID, "building", parent.Building, "items", res.Saved, "failed", len(res.Failed))
	return res, nil
}

// Replace overwrites the scalar fields of id and swaps its whole item set
// (photos included) for the supplied one. Nothing is diffed.
func (s *InspectionService) Replace(ctx context.Context, id uint, in model.InspectionInput) (SaveResult, error) {
	parent, items, err := buildRecord(in)
	if err != nil {
		return SaveResult{}, err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return SaveResult{}, err
	}

	res := SaveResult{ID: id}
	err = db.Transaction(func(tx *gorm.DB) error {
		var existing model.Inspection
		if err := tx.Select("id").First(&existing, id).Error; err != nil {
			return classifyDBError("load inspection", err)
		}

		fields := map[string]interface{}{
			"building":        parent.Building,
			"inspection_type": parent.InspectionType,
			"inspection_date": parent.InspectionDate,
			"inspector":       parent.Inspector,
		}
		if parent.AIReport != "" {
			fields["ai_report"] = parent.AIReport
		}
		if err := tx.Model(&model.Inspection{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return classifyDBError("update inspection", err)
		}

		itemIDs := tx.Model(&model.InspectionItem{}).Select("id").Where("inspection_id = ?", id)
		if err := tx.Where("inspection_item_id IN (?)", itemIDs).Delete(&model.InspectionItemPhoto{}).Error; err != nil {
			return classifyDBError("delete photos", err)
		}
		if err := tx.Where("inspection_id = ?", id).Delete(&model.InspectionItem{}).Error; err != nil {
			return classifyDBError("delete items", err)
		}

		saved, failed, err := s.insertItems(tx, id, items)
		res.Saved, res.Failed = saved, failed
		return err
	})
	if err != nil {
		return SaveResult{}, err
	}
	logger.Info("inspection.replace", "id", id, "items", res.Saved, "failed", len(res.Failed))
	return res, nil
}

// insertItems writes items under the configured policy. With best effort each
// row gets its own savepoint so one bad row does not poison the transaction.
func (s *InspectionService) insertItems(tx *gorm.DB, inspectionID uint, items []model.InspectionItem) (int, []ItemFailure, error) {
	var (
		saved  int
		failed []ItemFailure
	)
	for i := range items {
		item := items[i]
		item.InspectionID = inspectionID

		if s.policy == config.FailFast {
			if err := tx.Create(&item).Error; err != nil {
				return 0, nil, classifyDBError(fmt.Sprintf("insert item %q", item.Item), err)
			}
			saved++
			continue
		}

		sp := fmt.Sprintf("item_%d", i)
		if err := tx.SavePoint(sp).Error; err != nil {
			return 0, nil, classifyDBError("savepoint", err)
		}
		if err := tx.Create(&item).Error; err != nil {
			cerr := classifyDBError("insert item", err)
			if IsConnection(cerr) {
				return 0, nil, cerr
			}
			if rbErr := tx.RollbackTo(sp).Error; rbErr != nil {
				return 0, nil, classifyDBError("rollback item", rbErr)
			}
			logger.Warn("inspection.item_failed", "inspection_id", inspectionID, "item", item.Item, "err", err)
			failed = append(failed, ItemFailure{Index: i, Item: item.Item, Err: err.Error()})
			continue
		}
		saved++
	}
	return saved, failed, nil
}

// Get loads one inspection with its items and photos. Items lacking a
// category get one inferred from the checklist.
func (s *InspectionService) Get(ctx context.Context, id uint) (*model.Inspection, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	byID := func(db *gorm.DB) *gorm.DB { return db.Order("id") }

	var ins model.Inspection
	err = db.Preload("Items", byID).Preload("Items.Photos", byID).First(&ins, id).Error
	if err != nil {
		return nil, classifyDBError("get inspection", err)
	}
	for i := range ins.Items {
		if strings.TrimSpace(ins.Items[i].Category) == "" {
			ins.Items[i].Category = checklist.InferCategory(ins.InspectionType, ins.Items[i].Item)
		}
	}
	return &ins, nil
}

// List returns parent rows only, newest inspection date first.
func (s *InspectionService) List(ctx context.Context, f model.InspectionFilter) ([]model.Inspection, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	q := db.Model(&model.Inspection{})
	if f.Building != "" {
		q = q.Where("building = ?", f.Building)
	}
	if f.Type != "" {
		typ, ok := model.ParseInspectionType(f.Type)
		if !ok {
			return nil, validation("type", "unknown inspection type: "+f.Type)
		}
		q = q.Where("inspection_type = ?", typ)
	}
	if f.Inspector != "" {
		q = q.Where("LOWER(inspector) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(f.Inspector))+"%")
	}
	if f.Date != "" {
		day, err := parseDay(f.Date)
		if err != nil {
			return nil, err
		}
		q = q.Where("inspection_date >= ? AND inspection_date < ?", day, day.AddDate(0, 0, 1))
	}
	if f.DateFrom != "" {
		from, err := parseDay(f.DateFrom)
		if err != nil {
			return nil, err
		}
		q = q.Where("inspection_date >= ?", from)
	}
	if f.DateTo != "" {
		to, err := parseDay(f.DateTo)
		if err != nil {
			return nil, err
		}
		q = q.Where("inspection_date < ?", to.AddDate(0, 0, 1))
	}
	if f.WithPhotos {
		withPhotos := s.db.WithContext(ctx).Model(&model.InspectionItem{}).
			Select("inspection_items.inspection_id").
			Joins("JOIN inspection_item_photos ON inspection_item_photos.inspection_item_id = inspection_items.id")
		q = q.Where("id IN (?)", withPhotos)
	}

	var out []model.Inspection
	if err := q.Omit(listOmitted...).Order("inspection_date DESC").Order("id DESC").Limit(clampLimit(f.Limit)).Find(&out).Error; err != nil {
		return nil, classifyDBError("list inspections", err)
	}
	return out, nil
}

func (s *InspectionService) DistinctBuildings(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "building")
}

func (s *InspectionService) DistinctInspectors(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "inspector")
}

func (s *InspectionService) distinct(ctx context.Context, column string) ([]string, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	err = db.Model(&model.Inspection{}).
		Where(column + " IS NOT NULL AND " + column + " <> ''").
		Distinct().Order(column).Pluck(column, &out).Error
	if err != nil {
		return nil, classifyDBError("distinct "+column, err)
	}
	return out, nil
}

// SetReport stores the generated AI text and rendered report HTML.
func (s *InspectionService) SetReport(ctx context.Context, id uint, aiReport, reportHTML string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	var n int64
	if err := db.Model(&model.Inspection{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return classifyDBError("find inspection", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	err = db.Model(&model.Inspection{}).Where("id = ?", id).
		Updates(map[string]interface{}{"ai_report": aiReport, "report_html": reportHTML}).Error
	return classifyDBError("set report", err)
}

func (s *InspectionService) Stats(ctx context.Context) (model.DashboardStats, error) {
	stats := model.DashboardStats{ByType: map[string]int64{}, StorageType: "Database"}
	db, err := s.conn(ctx)
	if err != nil {
		return stats, err
	}

	if err := db.Model(&model.Inspection{}).Count(&stats.Total).Error; err != nil {
		return stats, classifyDBError("count inspections", err)
	}

	var byType []struct {
		InspectionType string
		Count          int64
	}
	if err := db.Model(&model.Inspection{}).Select("inspection_type, COUNT(*) AS count").
		Group("inspection_type").Scan(&byType).Error; err != nil {
		return stats, classifyDBError("count by type", err)
	}
	for _, r := range byType {
		stats.ByType[r.InspectionType] = r.Count
	}

	cutoff := midnightUTC(s.now().Add(-recentWindow))
	if err := db.Model(&model.Inspection{}).Where("inspection_date >= ?", cutoff).
		Count(&stats.Recent).Error; err != nil {
		return stats, classifyDBError("count recent", err)
	}

	if err := db.Model(&model.Inspection{}).Select("building, COUNT(*) AS count").
		Group("building").Order("count DESC").Order("building").Limit(10).
		Scan(&stats.TopBuildings).Error; err != nil {
		return stats, classifyDBError("top buildings", err)
	}
	return stats, nil
}

// buildRecord validates in and converts it into rows ready to insert.
func buildRecord(in model.InspectionInput) (*model.Inspection, []model.InspectionItem, error) {
	building := strings.TrimSpace(in.Building)
	if building == "" {
		return nil, nil, validation("building", "building is required")
	}
	inspector := strings.TrimSpace(in.Inspector)
	if inspector == "" {
		return nil, nil, validation("inspector", "inspector is required")
	}
	typ, ok := model.ParseInspectionType(in.Type)
	if !ok {
		return nil, nil, validation("inspection_type", fmt.Sprintf("unknown inspection type %q", in.Type))
	}
	date := midnightUTC(time.Now())
	if in.Date != "" {
		d, err := parseDay(in.Date)
		if err != nil {
			return nil, nil, err
		}
		date = d
	}
	if !checklist.IsKnownBuilding(building) {
		logger.Warn("inspection.unknown_building", "building", building)
	}

	items := make([]model.InspectionItem, 0, len(in.Items))
	for i, it := range in.Items {
		name := strings.TrimSpace(it.Item)
		if name == "" {
			return nil, nil, validation("items", fmt.Sprintf("item %d has no name", i+1))
		}
		if !it.Rating.Valid() {
			return nil, nil, validation("items", fmt.Sprintf("item %q: rating %d is outside 0..5", name, it.Rating))
		}
		category := strings.TrimSpace(it.Category)
		if category == "" {
			category = checklist.InferCategory(typ, name)
		}
		row := model.InspectionItem{Category: category, Item: name, Rating: it.Rating.Label(), Notes: it.Notes}
		for _, p := range it.Photos {
			if len(p) > 0 {
				row.Photos = append(row.Photos, model.InspectionItemPhoto{Photo: p})
			}
		}
		items = append(items, row)
	}

	parent := &model.Inspection{
		Building:       building,
		InspectionType: typ,
		InspectionDate: date,
		Inspector:      inspector,
		AIReport:       in.AIReport,
	}
	return parent, items, nil
}

func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return midnightUTC(t), nil
	}
	return time.Time{}, validation("date", fmt.Sprintf("invalid date %q, want YYYY-MM-DD", s))
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultListLimit
	case n > maxListLimit:
		return maxListLimit
	}
	return n
}
