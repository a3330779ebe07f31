package model

// Symbol is a futures contract from the exchange catalog.
// Weight and CumulativeWeight are percentages used for progress only.
type Symbol struct {
	Name             string  `json:"symbol"`
	ListingTime      int64   `json:"listingTime"` // epoch millis (onboardDate)
	Weight           float64 `json:"weight"`
	CumulativeWeight float64 `json:"cumulativeWeight"`
}
