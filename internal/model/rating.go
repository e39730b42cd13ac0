package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Rating is an APPA level 1..5, with 0 meaning the item was not rated.
type Rating int

const (
	NotRated  Rating = 0
	MaxRating Rating = 5
)

const notRatedLabel = "Not Rated"

func (r Rating) Valid() bool { return r >= NotRated && r <= MaxRating }

// Label is the persisted form of the rating.
func (r Rating) Label() string {
	if r == NotRated {
		return notRatedLabel
	}
	return fmt.Sprintf("Level %d", int(r))
}

// ParseRating reads "Level N", "N" or "Not Rated". Anything else is 0.
func ParseRating(label string) Rating {
	s := strings.TrimSpace(label)
	s = strings.TrimPrefix(s, "Level ")
	n, err := strconv.Atoi(s)
	if err != nil {
		return NotRated
	}
	r := Rating(n)
	if !r.Valid() {
		return NotRated
	}
	return r
}

const (
	TypeCustodial   = "Custodial"
	TypeMaintenance = "Maintenance"
	TypeGrounds     = "Grounds"
)

// ParseInspectionType normalises s to one of the three known types.
func ParseInspectionType(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "custodial":
		return TypeCustodial, true
	case "maintenance":
		return TypeMaintenance, true
	case "grounds":
		return TypeGrounds, true
	}
	return "", false
}
