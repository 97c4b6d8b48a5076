package gallery

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mmcdole/photure/internal/domain"
)

// KeyLayout formats group keys
const KeyLayout = "2006-01-02"

// Group is a run of photos sharing a calendar date, month or year
type Group struct {
	Key    string    // Calendar start of the group, formatted with KeyLayout
	Label  string    // Human-readable heading
	Start  time.Time // Calendar start of the group in the projection's location
	Photos []domain.Photo
	Offset int // Index of the group's first photo in Projection.Flat
}

// Subtitle returns the photo count line shown under the heading
func (g Group) Subtitle() string {
	if len(g.Photos) == 1 {
		return "1 photo"
	}
	return fmt.Sprintf("%d photos", len(g.Photos))
}

// Projection is the grouped, sorted view of a photo list. Flat holds the
// photos in displayed order; the viewer navigates over it.
type Projection struct {
	Groups []Group
	Flat   []domain.Photo
}

// Index returns the flat index of the photo with id, or -1
func (p Projection) Index(id string) int {
	for i, photo := range p.Flat {
		if photo.ID == id {
			return i
		}
	}
	return -1
}

// GroupAt returns the index of the group containing flat index i, or -1
func (p Projection) GroupAt(i int) int {
	for g := len(p.Groups) - 1; g >= 0; g-- {
		if i >= p.Groups[g].Offset {
			if i < p.Groups[g].Offset+len(p.Groups[g].Photos) {
				return g
			}
			return -1
		}
	}
	return -1
}

// Project sorts photos by spec (nil keeps the input order), partitions them
// by grouping in loc (nil means local time) and orders the groups. Groups
// run oldest first only when spec sorts by date ascending.
func Project(photos []domain.Photo, spec *domain.SortSpec, grouping domain.Grouping, loc *time.Location) Projection {
	if loc == nil {
		loc = time.Local
	}

	sorted := make([]domain.Photo, len(photos))
	copy(sorted, photos)
	if spec != nil {
		sortPhotos(sorted, *spec)
	}

	var groups []Group
	index := make(map[string]int)
	for _, p := range sorted {
		start := groupStart(p.UploadedAt(), grouping, loc)
		key := start.Format(KeyLayout)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{
				Key:   key,
				Label: groupLabel(start, grouping),
				Start: start,
			})
		}
		groups[i].Photos = append(groups[i].Photos, p)
	}

	ascending := spec.IsDateAscending()
	sort.SliceStable(groups, func(i, j int) bool {
		if ascending {
			return groups[i].Key < groups[j].Key
		}
		return groups[i].Key > groups[j].Key
	})

	flat := make([]domain.Photo, 0, len(sorted))
	for i := range groups {
		groups[i].Offset = len(flat)
		flat = append(flat, groups[i].Photos...)
	}

	return Projection{Groups: groups, Flat: flat}
}

func sortPhotos(photos []domain.Photo, spec domain.SortSpec) {
	less := func(a, b domain.Photo) bool {
		switch spec.Field {
		case domain.SortBySize:
			return a.Size < b.Size
		default:
			return a.UploadedAt().Before(b.UploadedAt())
		}
	}
	sort.SliceStable(photos, func(i, j int) bool {
		if spec.Order == domain.SortDesc {
			return less(photos[j], photos[i])
		}
		return less(photos[i], photos[j])
	})
}

func groupStart(t time.Time, grouping domain.Grouping, loc *time.Location) time.Time {
	t = t.In(loc)
	switch grouping {
	case domain.GroupByMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	case domain.GroupByYear:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	}
}

func groupLabel(start time.Time, grouping domain.Grouping) string {
	switch grouping {
	case domain.GroupByMonth:
		return start.Format("January 2006")
	case domain.GroupByYear:
		return start.Format("2006")
	default:
		return start.Format("Monday, January 2, 2006")
	}
}

type projectionKey struct {
	version  uint64
	sort     string
	grouping domain.Grouping
	query    string
}

// Projector memoizes the projection of the latest store state. It recomputes
// from scratch whenever the state version, sort, grouping or filter changes.
type Projector struct {
	loc *time.Location

	mu     sync.Mutex
	valid  bool
	key    projectionKey
	result Projection
}

// NewProjector creates a projector grouping in loc (nil means local time)
func NewProjector(loc *time.Location) *Projector {
	return &Projector{loc: loc}
}

// Project returns the projection of st, filtered by query
func (p *Projector) Project(st State, spec *domain.SortSpec, grouping domain.Grouping, query string) Projection {
	key := projectionKey{
		version:  st.Version,
		sort:     spec.String(),
		grouping: grouping,
		query:    query,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.valid && p.key == key {
		return p.result
	}

	p.result = Project(Filter(st.Photos, query), spec, grouping, p.loc)
	p.key = key
	p.valid = true
	return p.result
}
