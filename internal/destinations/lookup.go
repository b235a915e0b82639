package destinations

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/merak-travel/merak/internal/errors"
)

// Preferences are the traveler preferences accepted by Lookup. All fields are optional;
// TripLengthDays of zero means no preference.
type Preferences struct {
	Destination    string   `json:"destination,omitempty" yaml:"destination,omitempty"`
	Region         string   `json:"region,omitempty" yaml:"region,omitempty"`
	Season         string   `json:"season,omitempty" yaml:"season,omitempty"`
	Interests      []string `json:"interests,omitempty" yaml:"interests,omitempty"`
	TripLengthDays int      `json:"trip_length_days,omitempty" yaml:"trip_length_days,omitempty"`
}

// Recommendation is the structured result returned for the best matching destination.
type Recommendation struct {
	City                      string   `json:"city" yaml:"city"`
	Country                   string   `json:"country" yaml:"country"`
	Summary                   string   `json:"summary" yaml:"summary"`
	RecommendedTripLengthDays string   `json:"recommended_trip_length_days" yaml:"recommended_trip_length_days"`
	BestSeasons               []string `json:"best_seasons" yaml:"best_seasons"`
	AlignedThemes             []string `json:"aligned_themes" yaml:"aligned_themes"`
	Highlights                []string `json:"highlights" yaml:"highlights"`
	CuisineFocus              []string `json:"cuisine_focus" yaml:"cuisine_focus"`
	PracticalTips             []string `json:"practical_tips" yaml:"practical_tips"`
}

const (
	msgNoPreferences = "at least one preference (season, region, or interests) must be provided"
	msgNoMatch       = "unable to find a destination that aligns with the supplied preferences"
)

// IsEmpty reports whether no preference was supplied
func (p Preferences) IsEmpty() bool {
	return p.Destination == "" &&
		p.Region == "" &&
		p.Season == "" &&
		len(p.Interests) == 0 &&
		p.TripLengthDays == 0
}

// Score rates how well d matches p. Higher is better, zero means no overlap.
func Score(p Preferences, d *Destination) int {
	score := 0

	if name := strings.ToLower(p.Destination); name != "" {
		city := strings.ToLower(d.City)
		switch {
		case name == city:
			score += 5
		case strings.Contains(city+", "+strings.ToLower(d.Country), name):
			score += 3
		}
	}

	if p.Region != "" && strings.EqualFold(p.Region, d.Region) {
		score += 2
	}

	if p.Season != "" && slices.Contains(d.BestSeasons, strings.ToLower(p.Season)) {
		score += 2
	}

	seen := make(map[string]struct{}, len(p.Interests))
	for _, interest := range p.Interests {
		interest = strings.ToLower(interest)
		if _, dup := seen[interest]; dup {
			continue
		}
		seen[interest] = struct{}{}
		if slices.Contains(d.Themes, interest) {
			score++
		}
	}

	if p.TripLengthDays != 0 && p.TripLengthDays >= d.MinDays && p.TripLengthDays <= d.MaxDays {
		score += 2
	}

	return score
}

// Lookup returns the recommendation for the catalog entry that best matches p.
// Ties keep catalog order.
func Lookup(p Preferences) (*Recommendation, error) {
	if p.IsEmpty() {
		return nil, errors.Newf(msgNoPreferences).
			Component("destinations").
			Category(errors.CategoryValidation).
			Build()
	}

	type ranked struct {
		dest  *Destination
		score int
	}
	candidates := make([]ranked, len(catalog))
	for i := range catalog {
		candidates[i] = ranked{dest: &catalog[i], score: Score(p, &catalog[i])}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	top := candidates[0]
	if top.score == 0 {
		return nil, errors.Newf(msgNoMatch).
			Component("destinations").
			Category(errors.CategoryNotFound).
			Context("season", p.Season).
			Context("region", p.Region).
			Build()
	}
	return newRecommendation(top.dest), nil
}

func newRecommendation(d *Destination) *Recommendation {
	return &Recommendation{
		City:                      d.City,
		Country:                   d.Country,
		Summary:                   d.Description,
		RecommendedTripLengthDays: formatTripLength(d),
		BestSeasons:               slices.Clone(d.BestSeasons),
		AlignedThemes:             slices.Clone(d.Themes),
		Highlights:                slices.Clone(d.Highlights),
		CuisineFocus:              slices.Clone(d.CuisineFocus),
		PracticalTips:             slices.Clone(d.PracticalTips),
	}
}

// formatTripLength renders the ideal duration as "N-M days", or "N/A" for an empty range
func formatTripLength(d *Destination) string {
	if d.MinDays <= 0 || d.MaxDays < d.MinDays {
		return "N/A"
	}
	return fmt.Sprintf("%d-%d days", d.MinDays, d.MaxDays)
}

func (r *Recommendation) clone() *Recommendation {
	c := *r
	c.BestSeasons = slices.Clone(r.BestSeasons)
	c.AlignedThemes = slices.Clone(r.AlignedThemes)
	c.Highlights = slices.Clone(r.Highlights)
	c.CuisineFocus = slices.Clone(r.CuisineFocus)
	c.PracticalTips = slices.Clone(r.PracticalTips)
	return &c
}
