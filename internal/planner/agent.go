// Package planner defines the TripPlanner agent, its tools and the runner that drives it.
package planner

import (
	"context"

	"google.golang.org/genai"

	"github.com/merak-travel/merak/internal/destinations"
)

// TripPlannerName is the agent name reported in logs and metrics
const TripPlannerName = "TripPlanner"

// TripPlannerInstructions is the system instruction for the trip planning agent
const TripPlannerInstructions = "You are a meticulous travel concierge who crafts practical, 3-day itineraries. " +
	"Always gather context about the traveler first (budget, interests, traveling party, " +
	"time of year), then call lookup_destination to ground recommendations in curated facts. " +
	"Return a markdown itinerary with:\n" +
	"- a short overview paragraph;\n" +
	"- a table breaking down morning/afternoon/evening plans for each day;\n" +
	"- a checklist of booking reminders and packing tips.\n" +
	"Stay realistic about pacing, account for transit time, and highlight one food experience " +
	"per day."

// Tool is a function the model may call during a run
type Tool interface {
	Name() string
	Description() string
	// Parameters describes the argument object the model must send
	Parameters() *genai.Schema
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Agent couples instructions with the tools the model can use
type Agent struct {
	Name         string
	Instructions string
	Tools        []Tool
}

// NewTripPlanner builds the trip planning agent grounded by the destination lookup tool.
func NewTripPlanner(svc *destinations.Service) *Agent {
	return &Agent{
		Name:         TripPlannerName,
		Instructions: TripPlannerInstructions,
		Tools:        []Tool{NewLookupTool(svc)},
	}
}

// Tool returns the tool registered under name, or nil.
func (a *Agent) Tool(name string) Tool {
	for _, t := range a.Tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

func (a *Agent) declarations() []*genai.Tool {
	if len(a.Tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(a.Tools))
	for _, t := range a.Tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}
