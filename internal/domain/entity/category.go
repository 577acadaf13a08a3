package entity

// Category is a spending category from the fixed taxonomy.
type Category string

const (
	CategoryLodging        Category = "Lodging"
	CategoryTransportation Category = "Transportation"
	CategoryTravel         Category = "Travel"
	CategoryFoodAndDrink   Category = "Food & Drink"
	CategoryOfficeSupplies Category = "Office Supplies"
	CategoryEntertainment  Category = "Entertainment"
	CategoryUtilities      Category = "Utilities"
	CategoryOther          Category = "Other"
)

// Categories lists the taxonomy in classification priority order.
var Categories = []Category{
	CategoryLodging,
	CategoryTransportation,
	CategoryTravel,
	CategoryFoodAndDrink,
	CategoryOfficeSupplies,
	CategoryEntertainment,
	CategoryUtilities,
	CategoryOther,
}

// IsValid returns true if the category belongs to the taxonomy.
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}
