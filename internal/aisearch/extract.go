// Package aisearch turns free-form completion-engine output into typed
// travel options. Models are prompted for a single JSON object but
// routinely wrap it in markdown fences or prose, so extraction is
// deliberately lenient: find the JSON, validate the one field that
// matters for the domain, and treat everything else as best-effort.
package aisearch

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/wanderplan/wanderplan-go/internal/domain"
)

// Domain selects which designated array field ExtractOptions validates.
type Domain string

const (
	DomainTravel   Domain = domain.SearchDomainTravel
	DomainActivity Domain = domain.SearchDomainActivity
	DomainStay     Domain = domain.SearchDomainStay
)

// ArrayField returns the top-level field that must hold the option
// array for this domain.
func (d Domain) ArrayField() string {
	switch d {
	case DomainTravel:
		return "transportation_options"
	case DomainActivity:
		return "activities"
	case DomainStay:
		return "hotels"
	}
	return ""
}

const excerptLimit = 500

var (
	// Greedy: first "{" to last "}", so nested objects survive.
	jsonSpanRe  = regexp.MustCompile(`(?s)\{.*\}`)
	fenceOpenRe = regexp.MustCompile("(?m)^```(?:json)?\\s*$")
	priceRe     = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

	placeholderRe = regexp.MustCompile(`(?i)example\.(?:com|org)|placeholder|your-?site|url-?here|insert.?url|\bN/?A\b`)
)

// ParseLenient extracts the first top-level JSON object from model
// output. Markdown fences are stripped first; then the span from the
// first "{" to the last "}" is unmarshalled. Returns the object as a
// generic map, or an error when no parseable object exists.
func ParseLenient(text string) (map[string]any, error) {
	cleaned := fenceOpenRe.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	span := jsonSpanRe.FindString(cleaned)
	if span == "" {
		return nil, &domain.ErrValidation{Field: "response", Message: "no JSON object in model output"}
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Excerpt returns a bounded slice of raw model output for error
// reporting. Never longer than 500 characters.
func Excerpt(raw string) string {
	if len(raw) <= excerptLimit {
		return raw
	}
	return raw[:excerptLimit]
}

// ExtractOptions parses raw model output for the given domain and
// reconciles option source URLs against the engine's citation list.
// Returns nil when the output cannot be parsed or the designated array
// field is missing or not an array; callers surface that as an
// unparseable-AI error rather than an empty result.
func ExtractOptions(raw string, dom Domain, sources []domain.SearchSource) *domain.SearchResult {
	obj, err := ParseLenient(raw)
	if err != nil {
		return nil
	}

	items, ok := obj[dom.ArrayField()].([]any)
	if !ok {
		return nil
	}

	result := &domain.SearchResult{Domain: string(dom), Sources: sources}
	switch dom {
	case DomainTravel:
		result.Travel = decodeTravel(items, sources)
	case DomainActivity:
		result.Activities = decodeActivities(items, sources)
	case DomainStay:
		result.Stays = decodeStays(items, sources)
	}
	return result
}

func decodeTravel(items []any, sources []domain.SearchSource) []domain.TravelOption {
	opts := make([]domain.TravelOption, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		opt := domain.TravelOption{
			Mode:         str(m, "mode"),
			Provider:     str(m, "provider"),
			From:         str(m, "from"),
			To:           str(m, "to"),
			DisplayPrice: str(m, "price", "price_numeric", "display_price"),
			Currency:     str(m, "currency"),
			Duration:     str(m, "duration"),
			Departure:    str(m, "departure", "departure_time"),
			Arrival:      str(m, "arrival", "arrival_time"),
			SourceURL:    str(m, "source_url", "url", "booking_url"),
			Notes:        str(m, "notes"),
		}
		opt.Price = numericPrice(m, opt.DisplayPrice)
		opt.SourceURL = reconcileSource(opt.SourceURL, i, sources)
		opts = append(opts, opt)
	}
	return opts
}

func decodeActivities(items []any, sources []domain.SearchSource) []domain.ActivityOption {
	opts := make([]domain.ActivityOption, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		opt := domain.ActivityOption{
			Name:         str(m, "name", "activity_name", "title"),
			Category:     str(m, "category"),
			Description:  str(m, "description"),
			Currency:     str(m, "currency"),
			Duration:     str(m, "duration"),
			Address:      str(m, "address", "location"),
			Rating:       num(m, "rating"),
			BestTime:     str(m, "best_time"),
			SourceURL:    str(m, "source_url", "url"),
			DisplayPrice: str(m, "price", "price_numeric", "display_price"),
		}
		// Activities frequently come back priceless ("free", omitted);
		// numericPrice defaults to 0 so generated itineraries still cost out.
		opt.Price = numericPrice(m, opt.DisplayPrice)
		opt.SourceURL = reconcileSource(opt.SourceURL, i, sources)
		opts = append(opts, opt)
	}
	return opts
}

func decodeStays(items []any, sources []domain.SearchSource) []domain.StayOption {
	opts := make([]domain.StayOption, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		opt := domain.StayOption{
			Name:         str(m, "name", "hotel_name", "title"),
			Kind:         str(m, "kind", "type"),
			Description:  str(m, "description"),
			DisplayPrice: str(m, "price", "price_per_night", "price_numeric", "display_price"),
			Currency:     str(m, "currency"),
			Rating:       num(m, "rating"),
			Address:      str(m, "address", "location"),
			SourceURL:    str(m, "source_url", "url", "booking_url"),
		}
		if amenities, ok := m["amenities"].([]any); ok {
			for _, a := range amenities {
				if s, ok := a.(string); ok {
					opt.Amenities = append(opt.Amenities, s)
				}
			}
		}
		opt.Price = numericPrice(m, opt.DisplayPrice)
		opt.SourceURL = reconcileSource(opt.SourceURL, i, sources)
		opts = append(opts, opt)
	}
	return opts
}

// ExtractItinerary parses a generated multi-day plan. Returns nil when
// the output is unparseable or lacks a "days" array. Activities inside
// each day get the same 0-price default as the activity search path.
func ExtractItinerary(raw string) *domain.ItineraryPlan {
	obj, err := ParseLenient(raw)
	if err != nil {
		return nil
	}
	rawDays, ok := obj["days"].([]any)
	if !ok {
		return nil
	}

	plan := &domain.ItineraryPlan{
		Destination: str(obj, "destination"),
		Currency:    str(obj, "currency"),
	}
	if v, ok := obj["estimated_cost"].(float64); ok {
		plan.EstimatedCost = v
	}
	if tips, ok := obj["tips"].([]any); ok {
		for _, tip := range tips {
			if s, ok := tip.(string); ok {
				plan.Tips = append(plan.Tips, s)
			}
		}
	}

	for i, rawDay := range rawDays {
		m, ok := rawDay.(map[string]any)
		if !ok {
			continue
		}
		day := domain.ItineraryDay{
			Day:     i + 1,
			Title:   str(m, "title"),
			Summary: str(m, "summary"),
		}
		if n, ok := m["day"].(float64); ok && n > 0 {
			day.Day = int(n)
		}
		if acts, ok := m["activities"].([]any); ok {
			day.Activities = decodeActivities(acts, nil)
		}
		if day.Activities == nil {
			day.Activities = []domain.ActivityOption{}
		}
		plan.Days = append(plan.Days, day)
	}
	return plan
}

// reconcileSource substitutes the index-aligned citation when the
// option's own URL is missing or a model-invented placeholder.
func reconcileSource(url string, idx int, sources []domain.SearchSource) string {
	if url != "" && !placeholderRe.MatchString(url) {
		return url
	}
	if idx < len(sources) {
		return sources[idx].URL
	}
	return url
}

// numericPrice prefers an actual JSON number, then digits scraped from
// the display price ("from $49.99" → 49.99), then 0. Models name the
// number inconsistently, so the common variants are all accepted.
func numericPrice(m map[string]any, display string) float64 {
	if v, ok := m["price_numeric"].(float64); ok {
		return v
	}
	if v, ok := m["price"].(float64); ok {
		return v
	}
	if v, ok := m["price_per_night"].(float64); ok {
		return v
	}
	match := priceRe.FindString(display)
	if match == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	if err != nil {
		return 0
	}
	return f
}

// str returns the first non-empty string among the named keys. Numeric
// values stringify, so "price": 49.99 still yields a display price.
func str(m map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func num(m map[string]any, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return 0
}
