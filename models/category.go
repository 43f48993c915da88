package models

import "strings"

// Category is one of the fixed topical domains a query can belong to.
// Classifier output is normalized through NormalizeCategory; anything
// unrecognized collapses to CategoryGeneral so routing stays conservative.
type Category string

const (
	CategoryAdmissions      Category = "Admissions & Registrations"
	CategoryFinancial       Category = "Financial Matters"
	CategoryAcademic        Category = "Academic Affairs"
	CategoryStudentServices Category = "Student Services"
	CategoryCampusLife      Category = "Campus Life"
	CategoryGeneral         Category = "General Information"
	CategoryCrossDomain     Category = "Cross-Domain Queries"
)

// AllCategories lists the closed category set in a stable order.
var AllCategories = []Category{
	CategoryAdmissions,
	CategoryFinancial,
	CategoryAcademic,
	CategoryStudentServices,
	CategoryCampusLife,
	CategoryGeneral,
	CategoryCrossDomain,
}

// domainFolders maps categories to the short keys used for index
// directories and corpus domain tags.
var domainFolders = map[Category]string{
	CategoryAdmissions:      "admissions",
	CategoryFinancial:       "financial",
	CategoryAcademic:        "academic",
	CategoryStudentServices: "student_services",
	CategoryCampusLife:      "campus_life",
	CategoryGeneral:         "general",
	CategoryCrossDomain:     "cross_domain",
}

// DomainKey returns the short key for a category ("financial", etc.).
// Unknown categories map to the general bucket.
func (c Category) DomainKey() string {
	if key, ok := domainFolders[c]; ok {
		return key
	}
	return "general"
}

// IsKnown reports whether c belongs to the fixed category set.
func (c Category) IsKnown() bool {
	_, ok := domainFolders[c]
	return ok
}

// NormalizeCategory resolves a raw classifier or corpus label to a member
// of the fixed category set. Matching is case-insensitive and also accepts
// domain keys ("financial" -> Financial Matters). Unrecognized labels
// resolve to CategoryGeneral.
func NormalizeCategory(label string) Category {
	trimmed := strings.TrimSpace(label)
	if Category(trimmed).IsKnown() {
		return Category(trimmed)
	}

	lower := strings.ToLower(trimmed)
	for cat, key := range domainFolders {
		if lower == key || lower == strings.ToLower(string(cat)) {
			return cat
		}
	}
	return CategoryGeneral
}
