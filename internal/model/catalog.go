package model

// Emission factors in kg CO2 eq. per kWh, based on average European grid
// emissions.
const (
	CO2FactorElectric        = 0.132
	CO2FactorDistrictHeating = 0.198
)

const DefaultNodeColor = "hsl(205, 70%, 50%)"

const UnitKilowattHours = "kilowattHours"

// Resolutions lists every resolution the API accepts.
var Resolutions = []Resolution{
	ResolutionHourly,
	ResolutionDaily,
	ResolutionWeekly,
	ResolutionMonthly,
	ResolutionYearly,
}

// ValidResolution reports whether r is accepted by the API.
func ValidResolution(r Resolution) bool {
	for _, v := range Resolutions {
		if v == r {
			return true
		}
	}
	return false
}
