package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"facility-inspect/internal/checklist"
	"facility-inspect/internal/logger"
	"facility-inspect/internal/model"
)

var (
	ErrBadTransition = errors.New("transition not allowed")
	ErrForbidden     = errors.New("admin access required")
	ErrUnknownType   = errors.New("unknown inspection type")
)

// FormPatch carries the fields a client changed. Empty header fields are left alone.
type FormPatch struct {
	Building  string  `json:"building"`
	Date      string  `json:"date"`
	Inspector string  `json:"inspector"`
	Entries   []Entry `json:"entries"`
}

// Action names accepted by Transition. Besides these, any screen name is an action.
const (
	ActionLogout = "logout"
	ActionBack   = "back"
)

// transitions lists the screens reachable from each screen. Form screens
// are entered through BeginNew and BeginEdit only.
var transitions = map[Screen][]Screen{
	ScreenHome:       {ScreenSelectType, ScreenEdit, ScreenAdmin},
	ScreenSelectType: {ScreenHome},
	ScreenNewForm:    {ScreenHome},
	ScreenEdit:       {ScreenHome},
	ScreenEditForm:   {ScreenHome, ScreenEdit},
	ScreenAdmin:      {ScreenHome},
}

// Records is the slice of the record store the controller needs.
type Records interface {
	Get(ctx context.Context, id uint) (*model.Inspection, error)
	List(ctx context.Context, f model.InspectionFilter) ([]model.Inspection, error)
}

type Controller struct {
	store   *Store
	records Records
}

func NewController(store *Store, records Records) *Controller {
	return &Controller{store: store, records: records}
}

// Transition moves c along the screen graph. "logout" ends the session from
// any screen and "back" is an alias for home.
func (ctl *Controller) Transition(c *Context, action string) error {
	action = strings.TrimSpace(action)
	if action == ActionLogout {
		c.mu.Lock()
		c.state.Screen = ScreenLogin
		sid := c.state.ID
		c.mu.Unlock()
		ctl.store.End(sid)
		return nil
	}
	target := Screen(action)
	if action == ActionBack {
		target = ScreenHome
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !allowed(c.state.Screen, target) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, c.state.Screen, target)
	}
	if target == ScreenAdmin && !c.state.User.IsAdmin {
		return ErrForbidden
	}
	if target == ScreenHome {
		c.state.EditID = 0
		c.state.NewType = ""
	}
	logger.Debug("session.transition", "sid", c.state.ID, "from", c.state.Screen, "to", target)
	c.state.Screen = target
	return nil
}

func allowed(from, to Screen) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// BeginNew opens a blank form for typ with every catalog item unrated.
func (ctl *Controller) BeginNew(c *Context, typ string) error {
	canonical, ok := model.ParseInspectionType(typ)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Screen != ScreenSelectType {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, c.state.Screen, ScreenNewForm)
	}
	c.clearForm()
	c.state.NewType = canonical
	c.state.EditID = 0
	c.state.Form.Type = canonical
	c.state.Form.Inspector = c.state.User.Name
	c.state.Form.seed(canonical)
	c.state.Screen = ScreenNewForm
	logger.Info("session.new_form", "sid", c.state.ID, "type", canonical, "items", len(c.state.Form.Keys))
	return nil
}

// BeginEdit loads inspection id and fills the form from it.
func (ctl *Controller) BeginEdit(ctx context.Context, c *Context, id uint) error {
	c.mu.Lock()
	screen := c.state.Screen
	c.mu.Unlock()
	if screen != ScreenEdit {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, screen, ScreenEditForm)
	}

	rec, err := ctl.records.Get(ctx, id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearForm()
	c.state.EditID = rec.ID
	c.state.Form.Type = rec.InspectionType
	c.state.Form.Building = rec.Building
	c.state.Form.Inspector = rec.Inspector
	if !rec.InspectionDate.IsZero() {
		c.state.Form.Date = rec.InspectionDate.Format("2006-01-02")
	}
	c.state.Form.seed(rec.InspectionType)
	for _, it := range rec.Items {
		c.state.Form.put(Entry{
			Category: it.Category,
			Item:     it.Item,
			Rating:   model.ParseRating(it.Rating),
			Notes:    it.Notes,
		})
	}
	c.state.AIReport = rec.AIReport
	c.state.Screen = ScreenEditForm
	logger.Info("session.edit_form", "sid", c.state.ID, "id", rec.ID, "stored", len(rec.Items), "items", len(c.state.Form.Keys))
	return nil
}

// Search runs f against the record store and keeps the results on c.
func (ctl *Controller) Search(ctx context.Context, c *Context, f model.InspectionFilter) ([]model.Inspection, error) {
	results, err := ctl.records.List(ctx, f)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.state.SearchResults = results
	c.mu.Unlock()
	return results, nil
}

// UpdateForm merges header fields and entries into the open form.
func (ctl *Controller) UpdateForm(c *Context, patch FormPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Screen != ScreenNewForm && c.state.Screen != ScreenEditForm {
		return fmt.Errorf("%w: no form open on %s", ErrBadTransition, c.state.Screen)
	}
	if patch.Building != "" {
		c.state.Form.Building = patch.Building
	}
	if patch.Date != "" {
		c.state.Form.Date = patch.Date
	}
	if patch.Inspector != "" {
		c.state.Form.Inspector = patch.Inspector
	}
	for _, e := range patch.Entries {
		if e.Category == "" {
			e.Category = checklist.InferCategory(c.state.Form.Type, e.Item)
		}
		c.state.Form.put(e)
	}
	c.state.Touched = true
	return nil
}

// SetAIReport keeps the latest summary for the open form.
func (ctl *Controller) SetAIReport(c *Context, text string) {
	c.mu.Lock()
	c.state.AIReport = text
	c.mu.Unlock()
}

// ClearForm drops every form field and the AI summary.
func (ctl *Controller) ClearForm(c *Context) {
	c.mu.Lock()
	c.clearForm()
	c.mu.Unlock()
}

func (c *Context) clearForm() {
	c.state.Form = Form{Entries: map[string]Entry{}}
	c.state.AIReport = ""
	c.state.Touched = false
}

// seed adds every catalog item of typ, unrated, in catalog order.
func (f *Form) seed(typ string) {
	for _, cat := range checklist.Catalog(typ) {
		for _, item := range cat.Items {
			f.put(Entry{Category: cat.Name, Item: item})
		}
	}
}

func (f *Form) put(e Entry) {
	if f.Entries == nil {
		f.Entries = map[string]Entry{}
	}
	k := EntryKey(e.Category, e.Item)
	if _, ok := f.Entries[k]; !ok {
		f.Keys = append(f.Keys, k)
	}
	f.Entries[k] = e
}
