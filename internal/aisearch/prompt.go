package aisearch

import (
	"fmt"
	"strings"

	"github.com/wanderplan/wanderplan-go/internal/domain"
)

// SystemInstruction is shared by every search prompt. The single-object
// requirement is what makes ParseLenient's greedy span match safe.
const SystemInstruction = "You are a travel research assistant. Respond with exactly one JSON object and nothing else: no markdown, no commentary before or after the JSON."

// BuildSearchPrompt renders the user prompt for one search domain.
func BuildSearchPrompt(dom Domain, req domain.SearchRequest) string {
	var b strings.Builder
	switch dom {
	case DomainTravel:
		fmt.Fprintf(&b, "Find transportation options from %s to %s", orAny(req.From), orAny(req.To))
		if req.Date != "" {
			fmt.Fprintf(&b, " on %s", req.Date)
		}
		b.WriteString(".\n")
		b.WriteString(`Return a JSON object with a "transportation_options" array. Each element: mode, provider, from, to, price (number), currency, duration, departure, arrival, source_url.`)
	case DomainActivity:
		fmt.Fprintf(&b, "Find things to do in %s", orAny(req.Destination))
		b.WriteString(".\n")
		b.WriteString(`Return a JSON object with an "activities" array. Each element: name, category, description, price (number, 0 if free), currency, duration, address, rating, best_time, source_url.`)
	case DomainStay:
		fmt.Fprintf(&b, "Find places to stay in %s", orAny(req.Destination))
		if req.Date != "" {
			fmt.Fprintf(&b, " around %s", req.Date)
		}
		b.WriteString(".\n")
		b.WriteString(`Return a JSON object with a "hotels" array. Each element: name, type, description, price_per_night (number), currency, rating, address, amenities (array of strings), source_url.`)
	}
	if req.Budget != "" {
		fmt.Fprintf(&b, "\nBudget constraint: %s.", req.Budget)
	}
	if req.Query != "" {
		fmt.Fprintf(&b, "\nAdditional preferences: %s.", req.Query)
	}
	b.WriteString("\nOnly include real, currently bookable options with working source URLs.")
	return b.String()
}

// BuildItineraryPrompt renders the generation prompt for a trip window.
func BuildItineraryPrompt(trip *domain.Trip, req domain.GenerateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan a trip to %s from %s to %s.\n",
		trip.Destination,
		trip.StartDate.Format("2006-01-02"),
		trip.EndDate.Format("2006-01-02"))
	if trip.TotalBudget != nil {
		fmt.Fprintf(&b, "Total budget: %.2f %s.\n", *trip.TotalBudget, orDefault(trip.Currency, "USD"))
	}
	if len(req.Interests) > 0 {
		fmt.Fprintf(&b, "Traveler interests: %s.\n", strings.Join(req.Interests, ", "))
	}
	if req.Pace != "" {
		fmt.Fprintf(&b, "Pace: %s.\n", req.Pace)
	}
	b.WriteString(`Return a JSON object with: destination, days (array, one element per day with day number, title, summary and an "activities" array of {name, category, description, price (number, 0 if free), currency, duration, address}), estimated_cost (number), currency, tips (array of strings).`)
	return b.String()
}

func orAny(s string) string {
	if s == "" {
		return "anywhere"
	}
	return s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
