package model

import "time"

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token  string   `json:"token"`
	SID    string   `json:"sid"`
	Screen string   `json:"screen"`
	User   UserInfo `json:"user"`
}

type UserInfo struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Position string `json:"position,omitempty"`
	IsAdmin  bool   `json:"is_admin"`
}

func (u *User) Info() UserInfo {
	return UserInfo{Email: u.Email, Name: u.DisplayName(), Position: u.Position, IsAdmin: u.IsAdmin}
}

// UserInput creates an account. On update an empty Password keeps the old hash.
type UserInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Position  string `json:"position"`
	IsAdmin   bool   `json:"is_admin"`
}

type InspectionInput struct {
	ID        uint        `json:"id,omitempty"`
	Building  string      `json:"building"`
	Type      string      `json:"inspection_type"`
	Date      string      `json:"inspection_date"`
	Inspector string      `json:"inspector"`
	AIReport  string      `json:"ai_report,omitempty"`
	Items     []ItemInput `json:"items"`
}

type ItemInput struct {
	Category string   `json:"category"`
	Item     string   `json:"item"`
	Rating   Rating   `json:"rating"`
	Notes    string   `json:"notes"`
	Photos   [][]byte `json:"photos,omitempty"`
}

// Filled reports whether the inspector touched the item.
func (i ItemInput) Filled() bool {
	return i.Rating != NotRated || i.Notes != "" || len(i.Photos) > 0
}

type InspectionFilter struct {
	Building   string `form:"building" json:"building,omitempty"`
	Type       string `form:"type" json:"type,omitempty"`
	Inspector  string `form:"inspector" json:"inspector,omitempty"`
	Date       string `form:"date" json:"date,omitempty"`
	DateFrom   string `form:"date_from" json:"date_from,omitempty"`
	DateTo     string `form:"date_to" json:"date_to,omitempty"`
	WithPhotos bool   `form:"with_photos" json:"with_photos,omitempty"`
	Limit      int    `form:"limit" json:"limit,omitempty"`
}

type BuildingCount struct {
	Building string `json:"building"`
	Count    int64  `json:"count"`
}

type DashboardStats struct {
	Total        int64            `json:"total_inspections"`
	ByType       map[string]int64 `json:"by_type"`
	Recent       int64            `json:"recent_activity"`
	TopBuildings []BuildingCount  `json:"top_buildings"`
	StorageType  string           `json:"storage_type"`
}

// FileRecord is the JSON document written by the file fallback store.
type FileRecord struct {
	Type            string       `json:"type"`
	Building        string       `json:"building"`
	Date            string       `json:"date"`
	Inspector       string       `json:"inspector"`
	AIReport        string       `json:"aiReport,omitempty"`
	EmailReportHTML string       `json:"emailReportHTML,omitempty"`
	Details         []FileDetail `json:"details"`
	SavedAt         string       `json:"saved_at,omitempty"`
	FileID          string       `json:"file_id,omitempty"`
}

type FileDetail struct {
	Category string `json:"category,omitempty"`
	Item     string `json:"item"`
	Rating   string `json:"rating"`
	Notes    string `json:"notes"`
}

type RecordSummary struct {
	Filename       string    `json:"filename"`
	Created        time.Time `json:"created"`
	Building       string    `json:"building"`
	InspectionType string    `json:"inspection_type"`
	Inspector      string    `json:"inspector"`
	Date           string    `json:"date"`
}

type FileStats struct {
	Total       int            `json:"total_inspections"`
	ByType      map[string]int `json:"by_type"`
	ByBuilding  map[string]int `json:"by_building"`
	Recent      int            `json:"recent_activity"`
	StorageType string         `json:"storage_type"`
}

// Inspection converts the file document into a record the report renderer
// accepts. An unparseable date is left zero.
func (r *FileRecord) Inspection() *Inspection {
	ins := &Inspection{
		Building:       r.Building,
		InspectionType: r.Type,
		Inspector:      r.Inspector,
		AIReport:       r.AIReport,
	}
	if d, err := time.Parse("2006-01-02", r.Date); err == nil {
		ins.InspectionDate = d
	}
	for _, d := range r.Details {
		ins.Items = append(ins.Items, InspectionItem{Category: d.Category, Item: d.Item, Rating: d.Rating, Notes: d.Notes})
	}
	return ins
}
