package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"facility-inspect/internal/logger"
	"facility-inspect/internal/model"
)

const fileTimestamp = "20060102_150405"

// FileStore keeps one JSON document per inspection in a directory. It is
// used when the database cannot be reached.
type FileStore struct {
	dir string
	now func() time.Time
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, now: time.Now}
}

func (s *FileStore) Dir() string { return s.dir }

// Save writes rec and returns the file name. saved_at and file_id are set on rec.
func (s *FileStore) Save(rec *model.FileRecord) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", &StorageError{Op: "create storage dir", Err: err}
	}

	now := s.now()
	stamp := now.Format(fileTimestamp)
	building := rec.Building
	if building == "" {
		building = "Unknown"
	}
	typ := rec.Type
	if typ == "" {
		typ = "unknown"
	}
	base := fmt.Sprintf("%s_%s_%s", stamp, typ, strings.ReplaceAll(building, " ", "_"))
	base = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, base)

	rec.SavedAt = now.Format(time.RFC3339)
	rec.FileID = stamp
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", &StorageError{Op: "encode inspection", Err: err}
	}

	for n := 0; n < 100; n++ {
		name := base + ".json"
		if n > 0 {
			name = fmt.Sprintf("%s-%d.json", base, n)
		}
		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", &StorageError{Op: "create file", Err: err}
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", &StorageError{Op: "write file", Err: err}
		}
		if err := f.Close(); err != nil {
			return "", &StorageError{Op: "close file", Err: err}
		}
		logger.Info("filestore.save", "file", name, "building", rec.Building, "details", len(rec.Details))
		return name, nil
	}
	return "", &StorageError{Op: "create file", Err: fmt.Errorf("too many files named %s", base)}
}

type listedFile struct {
	summary model.RecordSummary
	record  *model.FileRecord
}

// scan reads every parsable record. Broken files are skipped.
func (s *FileStore) scan() ([]listedFile, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "read storage dir", Err: err}
	}

	var out []listedFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			logger.Debug("filestore.skip", "file", e.Name(), "err", err)
			continue
		}
		rec, err := s.read(e.Name())
		if err != nil {
			logger.Debug("filestore.skip", "file", e.Name(), "err", err)
			continue
		}
		out = append(out, listedFile{
			summary: model.RecordSummary{
				Filename:       e.Name(),
				Created:        info.ModTime(),
				Building:       orDefault(rec.Building, "Unknown"),
				InspectionType: orDefault(rec.Type, "unknown"),
				Inspector:      orDefault(rec.Inspector, "Unknown"),
				Date:           orDefault(rec.Date, "Unknown"),
			},
			record: rec,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].summary, out[j].summary
		if !a.Created.Equal(b.Created) {
			return a.Created.After(b.Created)
		}
		return a.Filename > b.Filename
	})
	return out, nil
}

// List returns up to limit summaries, newest first. limit <= 0 means all.
func (s *FileStore) List(limit int) ([]model.RecordSummary, error) {
	files, err := s.scan()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	out := make([]model.RecordSummary, len(files))
	for i, f := range files {
		out[i] = f.summary
	}
	return out, nil
}

func (s *FileStore) Get(name string) (*model.FileRecord, error) {
	if name != filepath.Base(name) || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
		return nil, validation("filename", "invalid file name")
	}
	rec, err := s.read(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return rec, err
}

func (s *FileStore) read(name string) (*model.FileRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, err
	}
	var rec model.FileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return &rec, nil
}

func (s *FileStore) SummaryStats() (model.FileStats, error) {
	stats := model.FileStats{ByType: map[string]int{}, ByBuilding: map[string]int{}, StorageType: "File-based"}
	files, err := s.scan()
	if err != nil {
		return stats, err
	}
	cutoff := s.now().Add(-recentWindow)
	for _, f := range files {
		stats.Total++
		stats.ByType[f.summary.InspectionType]++
		stats.ByBuilding[f.summary.Building]++
		if !f.summary.Created.Before(cutoff) {
			stats.Recent++
		}
	}
	return stats, nil
}

// ExportRow is one flattened record of the CSV and XLSX exports.
type ExportRow struct {
	Filename       string
	Building       string
	InspectionType string
	Inspector      string
	InspectionDate string
	SavedAt        string
	AIReport       string
	TotalItems     int
	LevelCounts    [5]int
}

var exportHeader = []string{
	"filename", "building", "inspection_type", "inspector", "inspection_date", "saved_at",
	"ai_report", "total_items", "level_1_count", "level_2_count", "level_3_count", "level_4_count", "level_5_count",
}

func (r ExportRow) values() []interface{} {
	v := []interface{}{r.Filename, r.Building, r.InspectionType, r.Inspector, r.InspectionDate, r.SavedAt, r.AIReport, r.TotalItems}
	for _, c := range r.LevelCounts {
		v = append(v, c)
	}
	return v
}

// ExportRows flattens every listable record.
func (s *FileStore) ExportRows() ([]ExportRow, error) {
	files, err := s.scan()
	if err != nil {
		return nil, err
	}
	rows := make([]ExportRow, 0, len(files))
	for _, f := range files {
		rec := f.record
		row := ExportRow{
			Filename:       f.summary.Filename,
			Building:       rec.Building,
			InspectionType: rec.Type,
			Inspector:      rec.Inspector,
			InspectionDate: rec.Date,
			SavedAt:        rec.SavedAt,
			AIReport:       rec.AIReport,
			TotalItems:     len(rec.Details),
		}
		for _, d := range rec.Details {
			if !strings.HasPrefix(d.Rating, "Level ") {
				continue
			}
			if r := model.ParseRating(d.Rating); r > model.NotRated {
				row.LevelCounts[r-1]++
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
