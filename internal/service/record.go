package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"facility-inspect/internal/logger"
	"facility-inspect/internal/model"
	"facility-inspect/internal/report"
)

const (
	MsgMissingHeader = "Please fill in building and inspector information."
	MsgNoItems       = "Please complete some checklist items."

	StorageDatabase = "database"
	StorageFile     = "file"

	maxConcurrentCaptions = 4
)

type SubmitResult struct {
	SaveResult
	Storage       string `json:"storage"`
	Filename      string `json:"filename,omitempty"`
	Message       string `json:"message"`
	NotifyMessage string `json:"notify_message,omitempty"`
}

type AIReportResult struct {
	ID         uint   `json:"id"`
	Text       string `json:"ai_report"`
	ReportHTML string `json:"report_html"`
}

// RecordService ties the stores, the AI client and the notifier together
// for the submit and summary flows.
type RecordService struct {
	inspections   *InspectionService
	files         *FileStore
	ai            *AIService
	notifier      *Notifier
	captionPhotos bool
}

func NewRecordService(inspections *InspectionService, files *FileStore, ai *AIService, notifier *Notifier, captionPhotos bool) *RecordService {
	return &RecordService{
		inspections:   inspections,
		files:         files,
		ai:            ai,
		notifier:      notifier,
		captionPhotos: captionPhotos,
	}
}

// Submit validates in and saves it. A new record falls back to the file
// store when the database is unreachable. in.ID != 0 replaces that record.
func (s *RecordService) Submit(ctx context.Context, in model.InspectionInput) (*SubmitResult, error) {
	if strings.TrimSpace(in.Building) == "" || strings.TrimSpace(in.Inspector) == "" {
		return nil, validation("building", MsgMissingHeader)
	}
	filled := make([]model.ItemInput, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Filled() {
			filled = append(filled, it)
		}
	}
	if len(filled) == 0 {
		return nil, validation("items", MsgNoItems)
	}
	in.Items = filled

	var (
		res SaveResult
		err error
	)
	if in.ID != 0 {
		res, err = s.inspections.Replace(ctx, in.ID, in)
	} else {
		res, err = s.inspections.Create(ctx, in)
	}
	if err != nil {
		if in.ID == 0 && IsConnection(err) {
			return s.submitToFile(ctx, in, err)
		}
		return nil, err
	}

	out := &SubmitResult{SaveResult: res, Storage: StorageDatabase}
	out.Message = fmt.Sprintf("Inspection saved with ID %d", res.ID)
	if len(res.Failed) > 0 {
		out.Message += fmt.Sprintf(" (%d items could not be saved)", len(res.Failed))
	}

	rec, err := s.inspections.Get(ctx, res.ID)
	if err != nil {
		logger.Warn("submit.reload_failed", "id", res.ID, "err", err)
		return out, nil
	}
	html, err := report.RenderHTML(rec, rec.AIReport)
	if err != nil {
		logger.Warn("submit.render_failed", "id", res.ID, "err", err)
	} else if err := s.inspections.SetReport(ctx, res.ID, rec.AIReport, html); err != nil {
		logger.Warn("submit.report_failed", "id", res.ID, "err", err)
	}

	payload := toFileRecord(in, rec.InspectionType)
	payload.EmailReportHTML = html
	out.NotifyMessage = s.notify(ctx, payload)
	return out, nil
}

func (s *RecordService) submitToFile(ctx context.Context, in model.InspectionInput, cause error) (*SubmitResult, error) {
	if _, _, err := buildRecord(in); err != nil {
		return nil, err
	}
	logger.Warn("fallback.file", "building", in.Building, "cause", cause)

	typ, _ := model.ParseInspectionType(in.Type)
	rec := toFileRecord(in, typ)
	if rec.AIReport != "" {
		if html, err := report.RenderHTML(rec.Inspection(), rec.AIReport); err == nil {
			rec.EmailReportHTML = html
		}
	}
	name, err := s.files.Save(rec)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{
		SaveResult:    SaveResult{Saved: len(rec.Details)},
		Storage:       StorageFile,
		Filename:      name,
		Message:       "Inspection saved as " + name,
		NotifyMessage: s.notify(ctx, rec),
	}, nil
}

func (s *RecordService) notify(ctx context.Context, payload *model.FileRecord) string {
	msg, err := s.notifier.Send(ctx, payload)
	if err != nil {
		logger.Warn("submit.notify_failed", "building", payload.Building, "err", err)
	}
	return msg
}

// GenerateAIReport summarizes a stored inspection and persists the result.
// On an AI failure the returned result still carries the user-facing text.
func (s *RecordService) GenerateAIReport(ctx context.Context, id uint) (*AIReportResult, error) {
	rec, err := s.inspections.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	findings := s.findingsFrom(ctx, rec)

	text, err := s.ai.Summarize(ctx, rec.InspectionType, rec.Building, findings)
	if err != nil {
		return &AIReportResult{ID: id, Text: text}, err
	}

	html, err := report.RenderHTML(rec, text)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	if err := s.inspections.SetReport(ctx, id, text, html); err != nil {
		return nil, err
	}
	logger.Info("ai.report_saved", "id", id, "findings", len(findings))
	return &AIReportResult{ID: id, Text: text, ReportHTML: html}, nil
}

// findingsFrom keeps rated items. With captioning on, the first photo of
// each rated item is described by the model, a few photos at a time.
func (s *RecordService) findingsFrom(ctx context.Context, rec *model.Inspection) []Finding {
	var (
		out    []Finding
		photos = map[int][]byte{}
	)
	for _, it := range rec.Items {
		r := model.ParseRating(it.Rating)
		if r == model.NotRated {
			continue
		}
		if s.captionPhotos && s.ai.Enabled() && len(it.Photos) > 0 {
			photos[len(out)] = it.Photos[0].Photo
		}
		out = append(out, Finding{Item: it.Item, Rating: r, Notes: it.Notes})
	}
	if len(photos) == 0 {
		return out
	}

	sem := make(chan struct{}, maxConcurrentCaptions)
	var wg sync.WaitGroup
	for idx, photo := range photos {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, data []byte) {
			defer wg.Done()
			defer func() { <-sem }()
			caption, err := s.ai.Caption(ctx, http.DetectContentType(data), data)
			if err != nil {
				logger.Warn("ai.caption_failed", "item", out[i].Item, "err", err)
				return
			}
			out[i].PhotoCaption = caption
		}(idx, photo)
	}
	wg.Wait()
	return out
}

func toFileRecord(in model.InspectionInput, typ string) *model.FileRecord {
	if typ == "" {
		typ = in.Type
	}
	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = time.Now().Format(dateLayout)
	}
	rec := &model.FileRecord{
		Type:      typ,
		Building:  strings.TrimSpace(in.Building),
		Date:      date,
		Inspector: strings.TrimSpace(in.Inspector),
		AIReport:  in.AIReport,
	}
	for _, it := range in.Items {
		rec.Details = append(rec.Details, model.FileDetail{
			Category: it.Category,
			Item:     it.Item,
			Rating:   it.Rating.Label(),
			Notes:    it.Notes,
		})
	}
	return rec
}
