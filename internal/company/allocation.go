package company

import (
	"fmt"

	"marketsim-server/internal/economy"
)

// AllocationStatus says how far a line allocation got.
type AllocationStatus string

const (
	AllocationApplied           AllocationStatus = "applied"
	AllocationUnchanged         AllocationStatus = "unchanged"
	AllocationNoFactories       AllocationStatus = "no_factories"
	AllocationCapacityReached   AllocationStatus = "capacity_reached"
	AllocationInsufficientFunds AllocationStatus = "insufficient_funds"
)

// AllocationResult reports the outcome of SetProductionLines.
type AllocationResult struct {
	Country economy.Country  `json:"country"`
	Product economy.Product  `json:"product"`
	Target  int              `json:"target"`
	Before  int              `json:"before"`
	After   int              `json:"after"`
	Cost    int64            `json:"cost"` // net charge, negative for refunds
	Status  AllocationStatus `json:"status"`
}

// Err converts a short allocation into the matching sentinel error; nil when the target was reached.
func (r AllocationResult) Err() error {
	switch r.Status {
	case AllocationNoFactories:
		return fmt.Errorf("allocate %s lines in %s: %w", r.Product, r.Country, ErrNoFactories)
	case AllocationCapacityReached:
		return fmt.Errorf("allocate %d %s lines in %s, reached %d: %w", r.Target, r.Product, r.Country, r.After, ErrInsufficientCapacity)
	case AllocationInsufficientFunds:
		return fmt.Errorf("allocate %d %s lines in %s, reached %d: %w", r.Target, r.Product, r.Country, r.After, ErrInsufficientFunds)
	}
	return nil
}

// SetProductionLines moves the total lines of product in country towards target,
// spreading the change over the country's factories in purchase order. Increases
// are charged per factory and stop at the first factory the company cannot pay for;
// decreases are refunded.
func (c *Company) SetProductionLines(country economy.Country, product economy.Product, target int) AllocationResult {
	if target < 0 {
		target = 0
	}

	current := c.Lines(country, product)
	result := AllocationResult{
		Country: country,
		Product: product,
		Target:  target,
		Before:  current,
		After:   current,
	}

	factories := c.factories[country]
	if len(factories) == 0 {
		result.Status = AllocationNoFactories
		return result
	}

	diff := target - current
	switch {
	case diff > 0:
		result.Status = c.increaseLines(factories, product, diff, &result)
	case diff < 0:
		c.decreaseLines(factories, product, -diff, &result)
		result.Status = AllocationApplied
	default:
		result.Status = AllocationUnchanged
	}
	return result
}

// ModifyProductionLines adds delta to the current total of product in country.
func (c *Company) ModifyProductionLines(country economy.Country, product economy.Product, delta int) AllocationResult {
	return c.SetProductionLines(country, product, c.Lines(country, product)+delta)
}

func (c *Company) increaseLines(factories []*Factory, product economy.Product, remaining int, result *AllocationResult) AllocationStatus {
	for _, f := range factories {
		if remaining <= 0 {
			break
		}
		step := min(f.FreeSpace(), remaining)
		if step <= 0 {
			continue
		}
		if cost := f.QuoteLines(step); cost > 0 && c.Cash < cost {
			return AllocationInsufficientFunds
		}
		cost, err := f.ModifyLines(product, step)
		if err != nil {
			// FreeSpace was checked above; a failure here leaves the factory untouched.
			continue
		}
		c.Cash -= cost
		c.Costs.Production += cost
		result.Cost += cost
		result.After += step
		remaining -= step
	}

	if remaining > 0 {
		return AllocationCapacityReached
	}
	return AllocationApplied
}

func (c *Company) decreaseLines(factories []*Factory, product economy.Product, remaining int, result *AllocationResult) {
	for _, f := range factories {
		if remaining <= 0 {
			break
		}
		step := min(f.Lines(product), remaining)
		if step <= 0 {
			continue
		}
		cost, err := f.ModifyLines(product, -step)
		if err != nil {
			continue
		}
		// cost is negative: the refund increases cash.
		c.Cash -= cost
		c.Costs.Production += cost
		result.Cost += cost
		result.After -= step
		remaining -= step
	}
}
