// Package destinations holds the curated destination catalog used to ground
// trip plans and the preference lookup that ranks it.
package destinations

import "slices"

// Destination describes a destination the planner can reference.
// MinDays and MaxDays bound the ideal trip length, inclusive.
type Destination struct {
	City          string
	Country       string
	Region        string
	BestSeasons   []string
	MinDays       int
	MaxDays       int
	Themes        []string
	Description   string
	Highlights    []string
	CuisineFocus  []string
	PracticalTips []string
}

var catalog = []Destination{
	{
		City:        "Kyoto",
		Country:     "Japan",
		Region:      "Asia",
		BestSeasons: []string{"spring", "fall"},
		MinDays:     3,
		MaxDays:     5,
		Themes:      []string{"culture", "history", "food", "nature"},
		Description: "Former imperial capital known for wooden temples, serene gardens, and tea culture.",
		Highlights: []string{
			"Fushimi Inari Taisha at sunrise",
			"Tea ceremony in Gion",
			"Arashiyama bamboo grove",
			"Philosopher's Path stroll",
		},
		CuisineFocus: []string{"kaiseki", "matcha desserts", "ramen"},
		PracticalTips: []string{
			"Purchase an ICOCA card for transit before arrival in Kyoto Station.",
			"Reserve kaiseki dinners and tea ceremonies at least two weeks ahead.",
		},
	},
	{
		City:        "Lisbon",
		Country:     "Portugal",
		Region:      "Europe",
		BestSeasons: []string{"spring", "fall"},
		MinDays:     3,
		MaxDays:     5,
		Themes:      []string{"culture", "food", "nightlife", "coast"},
		Description: "Sun-washed coastal city with vibrant food scene and ceramic-covered architecture.",
		Highlights: []string{
			"Tram 28 ride through Alfama",
			"Day trip to Sintra palaces",
			"Belém tower and pasteis tasting",
			"Sunset at Miradouro da Senhora do Monte",
		},
		CuisineFocus: []string{"seafood", "petiscos", "pastel de nata"},
		PracticalTips: []string{
			"Wear comfortable shoes; old town streets are steep and cobblestoned.",
			"Purchase a Viva Viagem card to use metro, trams, and ferries.",
		},
	},
	{
		City:        "Reykjavík",
		Country:     "Iceland",
		Region:      "Europe",
		BestSeasons: []string{"summer"},
		MinDays:     4,
		MaxDays:     7,
		Themes:      []string{"nature", "adventure", "wellness"},
		Description: "Compact capital that doubles as a launch pad for geothermal spas and volcanic landscapes.",
		Highlights: []string{
			"Golden Circle self-drive tour",
			"Blue Lagoon or Sky Lagoon soak",
			"Whale watching from the harbor",
			"Day trip along the South Coast waterfalls",
		},
		CuisineFocus: []string{"lamb", "seafood", "skyr"},
		PracticalTips: []string{
			"Rent a car with gravel protection insurance for longer excursions.",
			"Pack layers; weather shifts rapidly even in summer.",
		},
	},
	{
		City:        "Mexico City",
		Country:     "Mexico",
		Region:      "Americas",
		BestSeasons: []string{"spring", "fall"},
		MinDays:     4,
		MaxDays:     7,
		Themes:      []string{"culture", "food", "art"},
		Description: "Energetic metropolis with world-class museums, mercados, and modern dining.",
		Highlights: []string{
			"Frida Kahlo Museum and Coyoacán walk",
			"Street food tour in Roma",
			"Sunrise hot air balloon over Teotihuacán",
			"Floating trajinera in Xochimilco",
		},
		CuisineFocus: []string{"tacos al pastor", "mole", "mezcal tastings"},
		PracticalTips: []string{
			"Use authorized taxis or ride-share at night for safer transportation.",
			"Acclimate slowly to altitude; stay hydrated on day one.",
		},
	},
	{
		City:        "Queenstown",
		Country:     "New Zealand",
		Region:      "Oceania",
		BestSeasons: []string{"summer", "fall"},
		MinDays:     4,
		MaxDays:     6,
		Themes:      []string{"adventure", "nature"},
		Description: "Adventure capital surrounded by glacial lakes and alpine peaks.",
		Highlights: []string{
			"Milford Sound day cruise",
			"Glenorchy scenic drive",
			"Arrowtown wine tasting",
			"Ben Lomond summit hike",
		},
		CuisineFocus: []string{"pinot noir", "Fergburger", "lamb"},
		PracticalTips: []string{
			"Book adventure activities at least a week ahead in high season.",
			"Consider driving; roads are well maintained yet winding—plan extra time.",
		},
	},
}

// Catalog returns a copy of the curated catalog in its canonical order.
func Catalog() []Destination {
	out := make([]Destination, len(catalog))
	for i := range catalog {
		out[i] = catalog[i].clone()
	}
	return out
}

func (d Destination) clone() Destination {
	d.BestSeasons = slices.Clone(d.BestSeasons)
	d.Themes = slices.Clone(d.Themes)
	d.Highlights = slices.Clone(d.Highlights)
	d.CuisineFocus = slices.Clone(d.CuisineFocus)
	d.PracticalTips = slices.Clone(d.PracticalTips)
	return d
}
