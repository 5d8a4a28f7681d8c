package world

import (
	"marketsim-server/internal/company"
	"marketsim-server/internal/economy"
	"marketsim-server/internal/market"
)

// offer is one company's stock of a product put up for sale in its chosen country.
type offer struct {
	seller *company.Company
	price  int
}

// collectOffers groups the valid offers for product by destination country, in
// roster order within each country.
func collectOffers(product economy.Product, companies []*company.Company, snap *market.TurnSnapshot, catalog *economy.Catalog) map[economy.Country][]*offer {
	offers := make(map[economy.Country][]*offer)
	for _, c := range companies {
		d, ok := c.Decision(product)
		if !ok || d.Country == "" || d.Price <= 0 {
			continue
		}
		if !catalog.HasCountry(d.Country) {
			continue
		}
		if c.Stock(product) <= 0 {
			continue
		}
		if snap.BaseDemand(d.Country, product) <= 0 {
			continue
		}
		offers[d.Country] = append(offers[d.Country], &offer{seller: c, price: d.Price})
	}
	return offers
}

// clearMarket sells up to demand units of product in country, cheapest tier first.
// Sellers tied at a tier share it unit by unit in offer order; the shares are
// computed in whole rounds instead of unit steps, with the same result.
func clearMarket(turn int, country economy.Country, product economy.Product, demand int64, offers []*offer) []Sale {
	var sales []Sale
	remaining := demand

	for remaining > 0 && len(offers) > 0 {
		price := offers[0].price
		for _, o := range offers[1:] {
			price = min(price, o.price)
		}

		var tied []*offer
		for _, o := range offers {
			if o.price == price {
				tied = append(tied, o)
			}
		}

		shares := roundRobin(tied, product, remaining)
		for i, o := range tied {
			qty := shares[i]
			if qty == 0 {
				continue
			}
			// shares never exceed stock, so Sell cannot fail here.
			if err := o.seller.Sell(product, qty, price); err != nil {
				continue
			}
			remaining -= qty
			sales = append(sales, Sale{
				Turn:      turn,
				Country:   country,
				Product:   product,
				Company:   o.seller.Name,
				IsPlayer:  o.seller.IsPlayer,
				UnitPrice: price,
				Quantity:  qty,
			})
		}

		kept := offers[:0]
		for _, o := range offers {
			if o.seller.Stock(product) > 0 && o.price != price {
				kept = append(kept, o)
			}
		}
		offers = kept
	}

	return sales
}

// roundRobin splits up to demand units between tied offers as if handing out one
// unit at a time in order, skipping sellers that ran out.
func roundRobin(tied []*offer, product economy.Product, demand int64) []int64 {
	shares := make([]int64, len(tied))
	left := make([]int64, len(tied))
	for i, o := range tied {
		left[i] = o.seller.Stock(product)
	}

	active := make([]int, 0, len(tied))
	for demand > 0 {
		active = active[:0]
		var smallest int64
		for i := range tied {
			if left[i] <= 0 {
				continue
			}
			if len(active) == 0 || left[i] < smallest {
				smallest = left[i]
			}
			active = append(active, i)
		}
		if len(active) == 0 {
			break
		}

		k := int64(len(active))
		if demand >= k*smallest {
			// Full rounds until the smallest seller runs out.
			for _, i := range active {
				shares[i] += smallest
				left[i] -= smallest
			}
			demand -= k * smallest
			continue
		}

		each, extra := demand/k, demand%k
		for pos, i := range active {
			n := each
			if int64(pos) < extra {
				n++
			}
			shares[i] += n
			left[i] -= n
		}
		demand = 0
	}

	return shares
}
