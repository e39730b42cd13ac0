package model

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Inspection struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	Building       string           `gorm:"size:120;index" json:"building"`
	InspectionType string           `gorm:"size:32;index" json:"inspection_type"`
	InspectionDate time.Time        `gorm:"type:date;index" json:"inspection_date"`
	Inspector      string           `gorm:"size:120" json:"inspector"`
	CreatedAt      time.Time        `json:"created_at"`
	AIReport       string           `gorm:"column:ai_report;type:text" json:"ai_report,omitempty"`
	ReportHTML     string           `gorm:"column:report_html;type:text" json:"report_html,omitempty"`
	Items          []InspectionItem `gorm:"foreignKey:InspectionID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

type InspectionItem struct {
	ID           uint                  `gorm:"primaryKey" json:"id"`
	InspectionID uint                  `gorm:"index;not null" json:"inspection_id"`
	Category     string                `gorm:"size:160" json:"category"`
	Item         string                `gorm:"size:160;not null" json:"item"`
	Rating       string                `gorm:"size:16" json:"rating"`
	Notes        string                `gorm:"type:text" json:"notes"`
	Photos       []InspectionItemPhoto `gorm:"foreignKey:InspectionItemID;constraint:OnDelete:CASCADE" json:"photos,omitempty"`
}

type InspectionItemPhoto struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	InspectionItemID uint   `gorm:"index;not null" json:"inspection_item_id"`
	Photo            []byte `json:"photo"`
}

type User struct {
	Email        string `gorm:"primaryKey;size:190" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	FirstName    string `gorm:"size:80" json:"first_name"`
	LastName     string `gorm:"size:80" json:"last_name"`
	Position     string `gorm:"size:120" json:"position"`
	IsAdmin      bool   `json:"is_admin"`
}

func (u *User) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashed)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

func (Inspection) TableName() string          { return "inspections" }
func (InspectionItem) TableName() string      { return "inspection_items" }
func (InspectionItemPhoto) TableName() string { return "inspection_item_photos" }
func (User) TableName() string                { return "users" }
