package flow

import (
	"strings"

	"github.com/fidcomex/sacbox/internal/models"
)

// Order codes from Mercado Livre carry this fixed numeric prefix even when
// the partner string did not resolve to the canonical portal name.
const meliOrderPrefix = "20000"

// RoutesToMeli reports whether an order escalates to the Mercado Livre flow.
// Either condition alone is sufficient.
func RoutesToMeli(portal, marketplacePedido string) bool {
	return portal == models.PortalMercadoLivre || strings.HasPrefix(marketplacePedido, meliOrderPrefix)
}

// notFoundFlag picks the not-found flag for order-code lookups: the meli
// variant when the typed code carries the Mercado Livre prefix.
func notFoundFlag(term string, generic, meli Flag) Flag {
	if strings.HasPrefix(strings.TrimSpace(term), meliOrderPrefix) {
		return meli
	}
	return generic
}
