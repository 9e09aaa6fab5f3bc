package orders

import (
	"strings"

	"github.com/fidcomex/sacbox/internal/models"
)

// Raw partner strings come from the ERP and map onto the display vocabulary
// the bot uses. Exact rules win over substring rules; unmapped values pass
// through unchanged.
var portalExact = map[string]string{
	"FIDCOMERCIOEXTERIOREIRELI": models.PortalMercadoLivre,
	"CASAS BAHIA MARKETPLACE":   models.PortalCasasBahia,
	"MAGAZINE LUIZA":            models.PortalMagazineLuiza,
	"LEROY MERLIN":              models.PortalLeroyMerlin,
	"LOJAS AMERICANAS":          models.PortalLojasAmericanas,
	"SHOPEE":                    models.PortalShopee,
}

var portalSubstring = []struct {
	marker string
	name   string
}{
	{"WAP", models.PortalFidComexSite},
}

// CanonicalPortal maps a raw parceiro value to its display name.
func CanonicalPortal(parceiro string) string {
	if name, ok := portalExact[parceiro]; ok {
		return name
	}
	for _, rule := range portalSubstring {
		if strings.Contains(parceiro, rule.marker) {
			return rule.name
		}
	}
	return parceiro
}
