package fundtrade

import "fmt"

// CostBasisMethod defines how the average purchase price of a position is computed.
type CostBasisMethod int

const (
	// AsRecorded divides the cumulative purchase amount by the units currently
	// held. Partial sales do not reduce the purchase amount, so the average
	// rises after each one. This is what the trade backend reports.
	AsRecorded CostBasisMethod = iota
	// WeightedAverage divides the cost basis, reduced proportionally on each
	// sale, by the units currently held.
	WeightedAverage
)

func (m CostBasisMethod) String() string {
	switch m {
	case AsRecorded:
		return "recorded"
	case WeightedAverage:
		return "average"
	default:
		return "unknown"
	}
}

// ParseCostBasisMethod parses a string into a CostBasisMethod.
func ParseCostBasisMethod(s string) (CostBasisMethod, error) {
	switch s {
	case "recorded", "":
		return AsRecorded, nil
	case "average":
		return WeightedAverage, nil
	default:
		return 0, fmt.Errorf("unknown cost basis method: %q", s)
	}
}
