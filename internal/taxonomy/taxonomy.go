// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

// Package taxonomy holds the fixed catalog of ministry categories and
// their areas, and validates volunteer selections against it.
//
// The catalog is an immutable snapshot constructed once at process start.
// Extend returns a new snapshot rather than mutating in place, so a
// Taxonomy can be shared by reference across request handlers.
package taxonomy

import (
	"fmt"

	"github.com/twiztd/cpbc-volunteer-app/internal/model"
)

// Category is an ordered ministry category with its areas.
type Category struct {
	Name  string   `json:"category"`
	Areas []string `json:"areas"`
}

// Taxonomy is an immutable, ordered catalog of ministry categories.
type Taxonomy struct {
	categories []Category
	index      map[string]map[string]bool // category -> area set
}

// builtinCategories is the fixed startup table, in display order.
var builtinCategories = []Category{
	{"Children's Ministry", []string{
		"Childcare and/or Teaching",
		"VBS",
	}},
	{"Hospitality", []string{
		"Greeters",
		"Make Contact with Visitors",
		"Kitchen Cleanup",
	}},
	{"Media", []string{
		"Sound, etc.",
		"Social Media",
	}},
	{"Mission Trips", []string{
		"BBQ Fundraisers",
	}},
	{"Member Care", []string{
		"Meal Trains for members in need",
		"Help for Elderly/Widows",
	}},
	{"Community Outreach", []string{
		"Trunk or Treat",
		"Easter Event",
		"New Outreach Programs",
	}},
	{"Building/Grounds", []string{
		"Maintenance",
		"Security",
	}},
	{"Recurring Service Events", []string{
		"318 Church (Third Saturday)",
		"5 Loaves 2 Fish (Thursday before 1st Saturday)",
	}},
}

// Builtin returns a taxonomy containing only the built-in categories.
func Builtin() *Taxonomy {
	return build(builtinCategories)
}

func build(categories []Category) *Taxonomy {
	t := &Taxonomy{
		categories: make([]Category, 0, len(categories)),
		index:      make(map[string]map[string]bool, len(categories)),
	}
	for _, c := range categories {
		areas := make([]string, len(c.Areas))
		copy(areas, c.Areas)
		t.categories = append(t.categories, Category{Name: c.Name, Areas: areas})

		set := make(map[string]bool, len(areas))
		for _, a := range areas {
			set[a] = true
		}
		t.index[c.Name] = set
	}
	return t
}

// Extend returns a new taxonomy with custom (category, area) pairs appended.
// Entries referencing unknown categories are ignored, as are duplicates of
// areas already present.
func (t *Taxonomy) Extend(entries []model.CustomMinistry) *Taxonomy {
	next := build(t.categories)
	for _, e := range entries {
		set, ok := next.index[e.Category]
		if !ok || set[e.MinistryArea] {
			continue
		}
		set[e.MinistryArea] = true
		for i := range next.categories {
			if next.categories[i].Name == e.Category {
				next.categories[i].Areas = append(next.categories[i].Areas, e.MinistryArea)
				break
			}
		}
	}
	return next
}

// Categories returns the catalog in display order.
func (t *Taxonomy) Categories() []Category {
	return t.categories
}

// SelectionError reports the first invalid selection in a submission.
type SelectionError struct {
	Category     string
	MinistryArea string // empty when the category itself is unknown
}

func (e *SelectionError) Error() string {
	if e.MinistryArea == "" {
		return fmt.Sprintf("invalid category: %s", e.Category)
	}
	return fmt.Sprintf("invalid ministry area %q for category %q", e.MinistryArea, e.Category)
}

// Validate checks each selection, in input order, against the catalog.
// The first failing selection aborts the whole set; an empty set is valid.
func (t *Taxonomy) Validate(selections []model.MinistrySelection) error {
	for _, s := range selections {
		set, ok := t.index[s.Category]
		if !ok {
			return &SelectionError{Category: s.Category}
		}
		if !set[s.MinistryArea] {
			return &SelectionError{Category: s.Category, MinistryArea: s.MinistryArea}
		}
	}
	return nil
}
