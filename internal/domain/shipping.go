package domain

// RateQuote is one courier service option with its cost.
type RateQuote struct {
	Courier string `json:"courier"`
	Service string `json:"service"`
	Cost    int64  `json:"cost"`
	ETD     string `json:"etd"`
}

// ChargeableWeightKg converts a gram weight to the courier's billable
// kilograms: rounded up, minimum 1 kg.
func ChargeableWeightKg(grams int) int {
	if grams <= 0 {
		return 1
	}
	kg := grams / 1000
	if grams%1000 > 0 {
		kg++
	}
	if kg < 1 {
		kg = 1
	}
	return kg
}
