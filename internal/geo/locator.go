package geo

import "strings"

// Place is anything with a display name and a position on the map.
type Place interface {
	PlaceName() string
	Position() Coordinate
}

// Filter returns the places whose name contains name (case-insensitive) and
// whose distance from ref is strictly less than maxKm. Input order is kept.
func Filter[P Place](ref Coordinate, places []P, name string, maxKm float64) []P {
	needle := strings.ToLower(name)
	out := make([]P, 0, len(places))
	for _, p := range places {
		if !strings.Contains(strings.ToLower(p.PlaceName()), needle) {
			continue
		}
		if Distance(ref, p.Position()) < maxKm {
			out = append(out, p)
		}
	}
	return out
}

type Query struct {
	// Reference is the device position; nil or invalid means unknown.
	Reference     *Coordinate
	Name          string
	MaxDistanceKm *float64
}

type Result[P Place] struct {
	Reference     Coordinate `json:"reference"`
	UsedFallback  bool       `json:"usedFallback"`
	Name          string     `json:"name"`
	MaxDistanceKm float64    `json:"maxDistanceKm"`
	Places        []P        `json:"places"`
}

// Locator filters a fixed set of places around the device position.
type Locator[P Place] struct {
	places     []P
	fallback   Coordinate
	defaultMax float64
}

func NewLocator[P Place](places []P, fallback Coordinate, defaultMaxKm float64) *Locator[P] {
	cp := make([]P, len(places))
	copy(cp, places)
	return &Locator[P]{places: cp, fallback: fallback, defaultMax: defaultMaxKm}
}

// ResolveReference returns ref when it is usable and the fallback otherwise.
func (l *Locator[P]) ResolveReference(ref *Coordinate) (Coordinate, bool) {
	if ref == nil || !ref.Valid() {
		return l.fallback, true
	}
	return *ref, false
}

func (l *Locator[P]) Search(q Query) Result[P] {
	ref, fallback := l.ResolveReference(q.Reference)
	maxKm := l.defaultMax
	if q.MaxDistanceKm != nil {
		maxKm = *q.MaxDistanceKm
	}
	return Result[P]{
		Reference:     ref,
		UsedFallback:  fallback,
		Name:          q.Name,
		MaxDistanceKm: maxKm,
		Places:        Filter(ref, l.places, q.Name, maxKm),
	}
}

// Reset restores the unfiltered list and the default maximum distance.
func (l *Locator[P]) Reset(ref *Coordinate) Result[P] {
	resolved, fallback := l.ResolveReference(ref)
	all := make([]P, len(l.places))
	copy(all, l.places)
	return Result[P]{
		Reference:     resolved,
		UsedFallback:  fallback,
		MaxDistanceKm: l.defaultMax,
		Places:        all,
	}
}
