// Package checklist holds the fixed inspection taxonomy: categories and
// items per inspection type, the building list and the APPA level scale.
package checklist

import (
	"facility-inspect/internal/model"
)

// DefaultCategory is used when an item matches nothing in the catalog.
const DefaultCategory = "General"

type Category struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

type Level struct {
	Level       int    `json:"level"`
	Description string `json:"description"`
}

var types = []string{model.TypeCustodial, model.TypeMaintenance, model.TypeGrounds}

var catalog = map[string][]Category{
	model.TypeCustodial: {
		{"Common Areas (Lobbies, Hallways, Lounges)", []string{
			"Flooring (Hard Surface)", "Flooring (Carpet/Rugs)", "Walls & Baseboards",
			"Entrances & Glass", "Furniture & Upholstery", "Lighting Fixtures",
			"Trash & Recycling Bins", "Drinking Fountains", "Odor Control",
		}},
		{"Restrooms (Common/Public)", []string{
			"Floors & Drains", "Toilets & Urinals", "Sinks & Countertops",
			"Mirrors & Dispensers", "Stall Partitions", "Trash Receptacles", "Ventilation & Odor",
		}},
		{"Ancillary Spaces (Kitchens, Laundry, Study Rooms)", []string{
			"Flooring", "Countertops & Sinks", "Appliances (Exterior)",
			"Laundry Machines (Exterior)", "Furniture (Tables/Chairs)", "Trash & Recycling Bins",
		}},
	},
	model.TypeMaintenance: {
		{"Building Exterior & Envelope", []string{
			"Foundation & Walls", "Windows & Seals", "Doors & Hardware",
			"Roof & Gutters", "Walkways & Stairs", "Exterior Lighting",
		}},
		{"Interior Common Areas (Lobbies, Hallways, Stairs)", []string{
			"Flooring Condition", "Wall & Ceiling Condition", "Paint Condition",
			"Doors & Hardware", "Handrails & Guardrails", "Lighting (Functionality)",
			"HVAC Vents & Grilles", "Fire & Life Safety",
		}},
		{"Building Systems (General Observations)", []string{
			"HVAC Operation", "Plumbing (Public Areas)", "Electrical (Outlets/Switches)", "Elevator Operation",
		}},
		{"Apartments/Dorms (Sample Inspection)", []string{
			"Door & Lockset", "Paint & Wall Condition", "Flooring Condition",
			"Windows & Blinds", "Plumbing Fixtures", "Appliances (If applicable)", "Lighting & Electrical",
		}},
	},
	model.TypeGrounds: {
		{"Landscaping (Seasonal)", []string{
			"Turf & Lawn Health", "Edging (Walks, Curbs)", "Plant Beds & Mulch",
			"Trees & Shrubs Pruning", "Weed Control", "Litter & Debris Removal",
		}},
		{"Hardscapes & Site Amenities", []string{
			"Walkways & Patios Condition", "Benches & Site Furniture", "Trash & Ash Receptacles",
			"Bike Racks", "Signage",
		}},
		{"Snow & Ice Removal (Seasonal)", []string{
			"Walkway & Sidewalk Clarity", "Entrances & ADA Ramps", "Stairs & Landings",
			"De-Icing Application", "Snow Pile Placement",
		}},
	},
}

var buildings = []string{
	"Noren Hall", "Selke Hall", "Brannon Hall", "McVey Hall", "West Hall",
	"Landing Zone", "Wilkerson Commons", "Swanson Hall", "Smith Hall", "Johnstone Hall",
	"University Place", "3600 Campus Rd", "3605 Manitoba", "110 State St", "Williamsburg",
	"Mt. Vernon", "Virginia Rose", "Townhouses", "72 Plex", "Berkely Drive",
	"540 CC", "550 CC", "580 CC", "560 CC", "570 CC",
}

var levels = []Level{
	{1, "Orderly Spotlessness / Like-New Condition"},
	{2, "Ordinary Tidiness / Good Condition"},
	{3, "Casual Inattention / Fair Condition"},
	{4, "Moderate Dinginess / Poor Condition"},
	{5, "Unkempt Neglect / Critical/Failed Condition"},
}

// Types returns the inspection types in display order.
func Types() []string { return append([]string(nil), types...) }

// Catalog returns the categories for typ, or nil for an unknown type.
// The result is a copy.
func Catalog(typ string) []Category {
	cats, ok := catalog[typ]
	if !ok {
		return nil
	}
	out := make([]Category, len(cats))
	for i, c := range cats {
		out[i] = Category{Name: c.Name, Items: append([]string(nil), c.Items...)}
	}
	return out
}

func Buildings() []string { return append([]string(nil), buildings...) }

func IsKnownBuilding(name string) bool {
	for _, b := range buildings {
		if b == name {
			return true
		}
	}
	return false
}

func APPALevels() []Level { return append([]Level(nil), levels...) }

// APPALevel returns the description for level n, or "" outside 1..5.
func APPALevel(n int) string {
	if n < 1 || n > len(levels) {
		return ""
	}
	return levels[n-1].Description
}

// InferCategory finds the category holding item. Categories are searched in
// catalog order and the first hit wins, so an item listed twice resolves to
// its earlier category. An unknown type searches every type in order.
func InferCategory(typ, item string) string {
	search := []string{typ}
	if _, ok := catalog[typ]; !ok {
		search = types
	}
	for _, t := range search {
		for _, c := range catalog[t] {
			for _, name := range c.Items {
				if name == item {
					return c.Name
				}
			}
		}
	}
	return DefaultCategory
}
