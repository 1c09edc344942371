package inventory

import "github.com/shopspring/decimal"

// CostScale is the number of decimal places kept on unit costs.
const CostScale int32 = 4

// WeightedAverage returns the average cost after an incoming event:
//
//	(quantity*averageCost + inQuantity*inUnitCost) / (quantity + inQuantity)
//
// The result is rounded to CostScale so repeated application never drifts.
// When the resulting quantity is not positive the prior average is kept. A negative
// on-hand quantity (left by a forced correction) carries no value, so the incoming
// cost is taken as is.
func WeightedAverage(quantity, averageCost, inQuantity, inUnitCost decimal.Decimal) decimal.Decimal {
	totalQuantity := quantity.Add(inQuantity)
	if !totalQuantity.IsPositive() {
		return averageCost
	}
	if quantity.IsNegative() {
		return inUnitCost.Round(CostScale)
	}
	totalValue := quantity.Mul(averageCost).Add(inQuantity.Mul(inUnitCost))
	return totalValue.Div(totalQuantity).Round(CostScale)
}
