package planner

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/merak-travel/merak/internal/destinations"
	"github.com/merak-travel/merak/internal/errors"
)

// LookupToolName is the function name exposed to the model
const LookupToolName = "lookup_destination"

// LookupTool exposes the curated destination lookup to the agent
type LookupTool struct {
	svc *destinations.Service
}

// NewLookupTool wraps svc; a nil service falls back to an uncached one.
func NewLookupTool(svc *destinations.Service) *LookupTool {
	if svc == nil {
		svc = destinations.NewService(0)
	}
	return &LookupTool{svc: svc}
}

func (t *LookupTool) Name() string { return LookupToolName }

func (t *LookupTool) Description() string {
	return "Retrieve curated context for a destination that fits the traveler's preferences."
}

func (t *LookupTool) Parameters() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"destination": {
				Type:        genai.TypeString,
				Description: "City or country the traveler has in mind",
			},
			"region": {
				Type:        genai.TypeString,
				Description: "World region such as Asia, Europe, Americas or Oceania",
			},
			"season": {
				Type:        genai.TypeString,
				Description: "Season of travel: spring, summer, fall or winter",
			},
			"interests": {
				Type:        genai.TypeArray,
				Description: "Themes the traveler cares about, e.g. food, culture, nature",
				Items:       &genai.Schema{Type: genai.TypeString},
			},
			"trip_length_days": {
				Type:        genai.TypeInteger,
				Description: "Number of days available for the trip",
			},
		},
	}
}

// Call runs the lookup. Arguments may be flat or nested under "preferences".
func (t *LookupTool) Call(_ context.Context, args map[string]any) (any, error) {
	prefs, err := ParsePreferences(args)
	if err != nil {
		return nil, err
	}
	return t.svc.Lookup(prefs)
}

// ParsePreferences converts loosely typed model arguments into Preferences.
func ParsePreferences(args map[string]any) (destinations.Preferences, error) {
	var prefs destinations.Preferences
	if nested, ok := args["preferences"].(map[string]any); ok {
		args = nested
	}

	var err error
	if prefs.Destination, err = stringArg(args, "destination"); err != nil {
		return prefs, err
	}
	if prefs.Region, err = stringArg(args, "region"); err != nil {
		return prefs, err
	}
	if prefs.Season, err = stringArg(args, "season"); err != nil {
		return prefs, err
	}
	if prefs.Interests, err = stringsArg(args, "interests"); err != nil {
		return prefs, err
	}
	if prefs.TripLengthDays, err = intArg(args, "trip_length_days"); err != nil {
		return prefs, err
	}
	return prefs, nil
}

func stringArg(args map[string]any, key string) (string, error) {
	switch v := args[key].(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	default:
		return "", argError(key, "a string", v)
	}
}

func stringsArg(args map[string]any, key string) ([]string, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case string:
		// models sometimes send a comma separated list
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, argError(key, "a list of strings", v)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, argError(key, "a list of strings", v)
	}
}

func intArg(args map[string]any, key string) (int, error) {
	switch v := args[key].(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, argError(key, "a whole number", v)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, argError(key, "a whole number", v)
		}
		return n, nil
	default:
		return 0, argError(key, "a whole number", v)
	}
}

func argError(key, want string, got any) error {
	return errors.Newf("%s must be %s, got %v", key, want, got).
		Component("planner").
		Category(errors.CategoryValidation).
		Context("argument", key).
		Context("type", fmt.Sprintf("%T", got)).
		Build()
}
