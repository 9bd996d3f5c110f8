package peakstay

// Raw accommodation records are heterogeneous across provider versions, so
// normalization goes through alias registries with dot-path lookups instead
// of a rigid schema. Top-line pricing takes the first listed offer as-is;
// whether the provider price-sorts offers is not guaranteed, and this code
// deliberately does not re-sort them.

import (
	"math"
	"strconv"
	"strings"

	"peakstay_mcp/internal/domain"
)

const maxImages = 5

/********** alias registries (single source of truth) **********/

var accommodationAliases = map[string][]string{
	"name":     {"name", "title", "accommodationName", "property.name"},
	"city":     {"city", "address.city", "location.city", "town"},
	"country":  {"country", "address.country", "location.country", "countryCode", "country_code"},
	"resort":   {"resort", "resortName", "location.resort", "resort.name"},
	"address":  {"fullAddress", "address.full", "address.line", "address_raw", "formatted_address"},
	"category": {"category", "stars", "rating.stars", "classification"},
	"type":     {"type", "accommodationType", "kind", "property.type"},
}

var distanceAliases = map[string][]string{
	"resort_center": {"distances.resortCenter", "distances.centerResort", "distanceToResortCenter", "distances.center"},
	"ski_runs":      {"distances.skiRuns", "distances.slopes", "distanceToSkiRun", "distances.lift"},
	"city_center":   {"distances.cityCenter", "distanceToCityCenter", "distances.city"},
}

var offerAliases = map[string][]string{
	"total":      {"totalPrice", "price.total", "price", "total", "amount"},
	"currency":   {"currency", "price.currency", "currencyCode"},
	"url":        {"bookingUrl", "url", "reservationUrl", "deeplink", "link"},
	"deadline":   {"cancellationDeadline", "cancellation.deadline", "freeCancellationUntil"},
	"conditions": {"conditions", "cancellation.conditions", "cancellationPolicy", "terms"},
}

// amenityFlags maps output flags to the provider's facility vocabulary.
var amenityFlags = map[string][]string{
	"wifi":         {"wifi", "wlan", "internet"},
	"parking":      {"parking", "garage", "carport"},
	"pool":         {"pool", "swimming pool", "swimmingpool"},
	"sauna":        {"sauna"},
	"pets_allowed": {"pets", "pets allowed", "pet friendly", "petsallowed"},
	"dishwasher":   {"dishwasher"},
	"balcony":      {"balcony", "terrace"},
	"fireplace":    {"fireplace", "open fire", "stove"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// firstAlias returns the first non-empty string across an alias set, or the
// not-available sentinel.
func firstAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := strings.TrimSpace(lookupStr(m, p)); s != "" {
			return s
		}
	}
	return domain.NotAvailable
}

// firstFloat: number from several paths (float64/int/string like "8,0").
func firstFloat(m map[string]any, paths ...string) (float64, bool) {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func firstInt(m map[string]any, paths ...string) int {
	if f, ok := firstFloat(m, paths...); ok {
		return int(f)
	}
	return 0
}

// stringSet collects a lower-cased lookup set from string slices or
// {name:...} object slices at the given paths.
func stringSet(m map[string]any, paths ...string) map[string]bool {
	set := map[string]bool{}
	for _, k := range paths {
		raw, ok := lookupAny(m, k).([]any)
		if !ok {
			continue
		}
		for _, it := range raw {
			switch t := it.(type) {
			case string:
				set[strings.ToLower(strings.TrimSpace(t))] = true
			case map[string]any:
				if n, ok := t["name"].(string); ok {
					set[strings.ToLower(strings.TrimSpace(n))] = true
				}
			}
		}
	}
	return set
}

func imageURLs(m map[string]any) []string {
	var out []string
	for _, k := range []string{"images", "photos", "media.images"} {
		raw, ok := lookupAny(m, k).([]any)
		if !ok {
			continue
		}
		for _, it := range raw {
			switch t := it.(type) {
			case string:
				if t != "" {
					out = append(out, t)
				}
			case map[string]any:
				for _, field := range []string{"url", "src", "href"} {
					if u, ok := t[field].(string); ok && u != "" {
						out = append(out, u)
						break
					}
				}
			}
			if len(out) >= maxImages {
				return out
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return out
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

/********** accommodation mapper **********/

// normalizeAccommodations caps raw records to limit and maps each through
// normalizeOne.
func normalizeAccommodations(raw []map[string]any, limit int, currency string, nights int) []domain.FormattedAccommodation {
	if limit > 0 && len(raw) > limit {
		raw = raw[:limit]
	}
	out := make([]domain.FormattedAccommodation, 0, len(raw))
	for _, r := range raw {
		out = append(out, normalizeOne(r, currency, nights))
	}
	return out
}

func normalizeOne(m map[string]any, currency string, nights int) domain.FormattedAccommodation {
	acc := domain.FormattedAccommodation{
		Name: firstAlias(m, accommodationAliases, "name"),
		Location: domain.AccommodationLocation{
			City:        firstAlias(m, accommodationAliases, "city"),
			Country:     firstAlias(m, accommodationAliases, "country"),
			Resort:      firstAlias(m, accommodationAliases, "resort"),
			FullAddress: firstAlias(m, accommodationAliases, "address"),
		},
		Property: domain.PropertyDetails{
			ID:           int64(firstInt(m, "id", "accommodationId", "property.id")),
			Category:     firstAlias(m, accommodationAliases, "category"),
			Type:         firstAlias(m, accommodationAliases, "type"),
			Bedrooms:     firstInt(m, "bedrooms", "beds", "property.bedrooms"),
			Rooms:        firstInt(m, "rooms", "roomCount", "property.rooms"),
			SizeSqm:      firstInt(m, "sizeSqm", "size", "area", "property.size"),
			MaxOccupancy: firstInt(m, "maxPersons", "maxOccupancy", "pax", "property.maxPersons"),
		},
		Distances: domain.Distances{
			ToResortCenter: firstAlias(m, distanceAliases, "resort_center"),
			ToSkiRuns:      firstAlias(m, distanceAliases, "ski_runs"),
			ToCityCenter:   firstAlias(m, distanceAliases, "city_center"),
		},
		Images: imageURLs(m),
	}

	if lat, ok := firstFloat(m, "latitude", "lat", "location.lat"); ok {
		if lon, ok := firstFloat(m, "longitude", "lon", "lng", "location.lon"); ok {
			acc.Location.Coords = &domain.Coords{Lat: lat, Lon: lon}
		}
	}

	facilities := stringSet(m, "amenities", "facilities")
	acc.Amenities = domain.Amenities{
		WiFi:        hasAny(facilities, amenityFlags["wifi"]),
		Parking:     hasAny(facilities, amenityFlags["parking"]),
		Pool:        hasAny(facilities, amenityFlags["pool"]),
		Sauna:       hasAny(facilities, amenityFlags["sauna"]),
		PetsAllowed: hasAny(facilities, amenityFlags["pets_allowed"]),
		Dishwasher:  hasAny(facilities, amenityFlags["dishwasher"]),
		Balcony:     hasAny(facilities, amenityFlags["balcony"]),
		Fireplace:   hasAny(facilities, amenityFlags["fireplace"]),
	}

	acc.Pricing = domain.Pricing{Currency: currency, Nights: nights}
	acc.Booking = domain.BookingInfo{
		ReservationURL:       domain.NotAvailable,
		CancellationDeadline: domain.NotAvailable,
		Conditions:           domain.NotAvailable,
	}

	// First listed offer carries the top-line price and booking terms.
	if offers, ok := lookupAny(m, "offers").([]any); ok && len(offers) > 0 {
		if offer, ok := offers[0].(map[string]any); ok {
			if total, ok := firstFloat(offer, offerAliases["total"]...); ok {
				n := nights
				if n < 1 {
					n = 1
				}
				acc.Pricing.TotalPrice = round2(total)
				acc.Pricing.PricePerNight = round2(total / float64(n))
			}
			if cur := firstAlias(offer, offerAliases, "currency"); cur != domain.NotAvailable {
				acc.Pricing.Currency = strings.ToUpper(cur)
			}
			acc.Booking = domain.BookingInfo{
				ReservationURL:       firstAlias(offer, offerAliases, "url"),
				CancellationDeadline: firstAlias(offer, offerAliases, "deadline"),
				Conditions:           firstAlias(offer, offerAliases, "conditions"),
			}
		}
	}

	return acc
}

func hasAny(set map[string]bool, names []string) bool {
	for _, n := range names {
		if set[n] {
			return true
		}
	}
	return false
}
