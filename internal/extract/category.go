package extract

import (
	"strings"

	"github.com/dmarkov/expensio/internal/domain/entity"
)

// categoryRule pairs a category with the merchant keywords that select it.
// Rules are evaluated in taxonomy order; the first keyword hit wins. Keeping
// the table as data lets it grow without touching the matching logic.
type categoryRule struct {
	category entity.Category
	keywords []string
}

var categoryRules = []categoryRule{
	{entity.CategoryLodging, []string{
		"hotel", "motel", "hostel", "resort", "lodge", "inn ",
		"airbnb", "marriott", "hilton", "hyatt", "radisson",
	}},
	{entity.CategoryTransportation, []string{
		"taxi", "uber", "lyft", "cab ", "metro", "subway", "bus ",
		"train", "railway", "parking", "fuel", "petrol", "gas station",
		"shell", "chevron", "rental car", "hertz", "avis", "sixt",
	}},
	{entity.CategoryTravel, []string{
		"airline", "airways", "air france", "lufthansa", "ryanair",
		"easyjet", "delta", "united", "emirates", "booking.com",
		"expedia", "travel",
	}},
	{entity.CategoryFoodAndDrink, []string{
		"restaurant", "cafe", "café", "coffee", "starbucks", "espresso",
		"mcdonald", "burger", "pizza", "bistro", "bakery", "deli",
		"sushi", "grill", "kitchen", "brewery", "pub ", "bar ", "diner",
	}},
	{entity.CategoryOfficeSupplies, []string{
		"staples", "office depot", "officemax", "stationery", "supplies",
		"printing", "print shop", "copy center",
	}},
	{entity.CategoryEntertainment, []string{
		"cinema", "theater", "theatre", "movie", "concert", "museum",
		"bowling", "arcade", "netflix", "spotify", "karaoke",
	}},
	{entity.CategoryUtilities, []string{
		"electric", "water", "internet", "telecom", "broadband",
		"mobile", "phone", "utility", "power", "energy",
	}},
}

// Classify maps a merchant name to a category via case-insensitive substring
// match against the ordered keyword table. It is total: an empty merchant or
// no keyword hit yields CategoryOther.
func Classify(merchant string) entity.Category {
	if merchant == "" {
		return entity.CategoryOther
	}
	lower := strings.ToLower(merchant)
	for _, rule := range categoryRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.category
			}
		}
	}
	return entity.CategoryOther
}
