package domain

import (
	"fmt"
	"strings"
)

// SortField is the photo attribute the gallery sorts on
type SortField int

const (
	SortByDate SortField = iota
	SortBySize
)

// String returns the display name for the sort field
func (f SortField) String() string {
	switch f {
	case SortByDate:
		return "Date"
	case SortBySize:
		return "Size"
	default:
		return "Unknown"
	}
}

// SortOrder is the sort direction
type SortOrder int

const (
	SortAsc SortOrder = iota
	SortDesc
)

func (o SortOrder) String() string {
	if o == SortAsc {
		return "asc"
	}
	return "desc"
}

// Toggle returns the opposite direction
func (o SortOrder) Toggle() SortOrder {
	if o == SortAsc {
		return SortDesc
	}
	return SortAsc
}

// SortSpec is an explicit sort choice. A nil *SortSpec means "server order".
type SortSpec struct {
	Field SortField
	Order SortOrder
}

// IsDateAscending reports whether spec sorts oldest first
func (s *SortSpec) IsDateAscending() bool {
	return s != nil && s.Field == SortByDate && s.Order == SortAsc
}

// String renders the spec as "field:order"
func (s *SortSpec) String() string {
	if s == nil {
		return "default"
	}
	return strings.ToLower(s.Field.String()) + ":" + s.Order.String()
}

// ParseSortSpec parses "date", "size:asc", "date:desc" or "" / "default" (nil)
func ParseSortSpec(s string) (*SortSpec, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "default" || s == "none" {
		return nil, nil
	}
	field, order, _ := strings.Cut(s, ":")

	spec := &SortSpec{Order: SortDesc}
	switch field {
	case "date":
		spec.Field = SortByDate
	case "size":
		spec.Field = SortBySize
	default:
		return nil, fmt.Errorf("unknown sort field %q", field)
	}

	switch order {
	case "", "desc":
		spec.Order = SortDesc
	case "asc":
		spec.Order = SortAsc
	default:
		return nil, fmt.Errorf("unknown sort order %q", order)
	}
	return spec, nil
}

// Grouping is the calendar granularity photos are grouped by
type Grouping int

const (
	GroupByDate Grouping = iota
	GroupByMonth
	GroupByYear
)

func (g Grouping) String() string {
	switch g {
	case GroupByDate:
		return "date"
	case GroupByMonth:
		return "month"
	case GroupByYear:
		return "year"
	default:
		return "unknown"
	}
}

// Next cycles date -> month -> year -> date
func (g Grouping) Next() Grouping {
	switch g {
	case GroupByDate:
		return GroupByMonth
	case GroupByMonth:
		return GroupByYear
	default:
		return GroupByDate
	}
}

// ParseGrouping parses "date", "month" or "year"; empty means date
func ParseGrouping(s string) (Grouping, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "date", "day":
		return GroupByDate, nil
	case "month":
		return GroupByMonth, nil
	case "year":
		return GroupByYear, nil
	default:
		return GroupByDate, fmt.Errorf("unknown grouping %q", s)
	}
}
