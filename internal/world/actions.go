package world

import (
	"fmt"

	"marketsim-server/internal/company"
	"marketsim-server/internal/economy"
)

// Player actions are applied between turns and rejected once the game is over.

func (w *World) checkOpen() error {
	if w.IsGameOver() {
		return fmt.Errorf("turn %d of %d: %w", w.turn, w.totalTurns, ErrGameOver)
	}
	return nil
}

func (w *World) countryProfile(country economy.Country) (economy.CountryProfile, error) {
	profile, ok := w.catalog.Country(country)
	if !ok {
		return economy.CountryProfile{}, fmt.Errorf("country %q: %w", country, company.ErrUnknownCountry)
	}
	return profile, nil
}

func (w *World) checkProduct(product economy.Product) error {
	if !w.catalog.HasProduct(product) {
		return fmt.Errorf("product %q: %w", product, company.ErrUnknownProduct)
	}
	return nil
}

// BuyFactory buys the player a factory in country.
func (w *World) BuyFactory(country economy.Country) (company.FactorySnapshot, error) {
	if err := w.checkOpen(); err != nil {
		return company.FactorySnapshot{}, err
	}
	profile, err := w.countryProfile(country)
	if err != nil {
		return company.FactorySnapshot{}, err
	}
	f, err := w.player.BuyFactory(country, profile)
	if err != nil {
		return company.FactorySnapshot{}, err
	}
	return f.Snapshot(), nil
}

// SetLines sets the player's total lines of product in country.
func (w *World) SetLines(country economy.Country, product economy.Product, target int) (company.AllocationResult, error) {
	if err := w.checkOpen(); err != nil {
		return company.AllocationResult{}, err
	}
	if _, err := w.countryProfile(country); err != nil {
		return company.AllocationResult{}, err
	}
	if err := w.checkProduct(product); err != nil {
		return company.AllocationResult{}, err
	}
	return w.player.SetProductionLines(country, product, target), nil
}

// ModifyLines adds delta to the player's lines of product in country.
func (w *World) ModifyLines(country economy.Country, product economy.Product, delta int) (company.AllocationResult, error) {
	return w.SetLines(country, product, w.player.Lines(country, product)+delta)
}

// SetSalesCountry chooses where the player sells product. An empty country
// withdraws the product from sale.
func (w *World) SetSalesCountry(product economy.Product, country economy.Country) (company.Decision, error) {
	if err := w.checkOpen(); err != nil {
		return company.Decision{}, err
	}
	if err := w.checkProduct(product); err != nil {
		return company.Decision{}, err
	}
	if country != "" {
		if _, err := w.countryProfile(country); err != nil {
			return company.Decision{}, err
		}
	}
	w.player.SetDecisionCountry(product, country)
	d, _ := w.player.Decision(product)
	return d, nil
}

// SetSalesPrice sets the player's unit price for product.
func (w *World) SetSalesPrice(product economy.Product, price int) (company.Decision, error) {
	if err := w.checkOpen(); err != nil {
		return company.Decision{}, err
	}
	if err := w.checkProduct(product); err != nil {
		return company.Decision{}, err
	}
	if price <= 0 {
		return company.Decision{}, fmt.Errorf("price %d for %s must be positive: %w", price, product, company.ErrInvalidDecision)
	}
	w.player.SetDecisionPrice(product, price)
	d, _ := w.player.Decision(product)
	return d, nil
}
