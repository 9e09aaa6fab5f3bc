package pgorders

import (
	"context"
	"fmt"

	"github.com/fidcomex/sacbox/internal/models"
	"github.com/pkg/errors"
)

// SearchKind selects the lookup predicate.
type SearchKind string

const (
	KindDocumento SearchKind = "documento"
	KindPedido    SearchKind = "pedido"
	KindEmail     SearchKind = "email"
)

// Carrier whose tracking is served from a separate static portal; its rows
// are excluded from the shipment-event join.
const CarrierEnvvias = "ENVVIAS NOR"

// SearchOrders returns raw invoice rows (one per invoice item) for the given
// term, newest invoices first. The latest shipment event per invoice comes
// from a lateral join with a deterministic tie-break (data_evento DESC, id
// DESC). Rows with an empty invoice key, an empty or reseller-internal
// marketplace code, or an "RE" returns suffix never come back.
func (s *Storage) SearchOrders(ctx context.Context, term string, kind SearchKind) ([]models.OrderRow, error) {
	var predicate string
	switch kind {
	case KindDocumento:
		predicate = `(c.cpf = $1 OR c.cnpj = $1)`
	case KindPedido:
		predicate = `ns.marketplace_pedido = $1`
	case KindEmail:
		predicate = `c.email = $1`
	default:
		return nil, fmt.Errorf("unknown search kind %q", kind)
	}

	q := `
SELECT
  ns.chavenfe,
  ns.marketplace_pedido,
  ns.data_emissao,
  ns.transportadora_ecommerce,
  ns.id_nr_nf,
  ns.parceiro,
  ns.intelipost_order,
  ev.descricao,
  c.nome,
  c.email,
  p.descricao_fiscal,
  p.imagem1
FROM nota_saida ns
JOIN cliente c ON c.id_cliente = ns.id_cliente
JOIN nota_saida_itens nsi ON ns.id_nota_saida = nsi.id_nota_saida
JOIN produto p ON p.id_produto = nsi.id_produto
LEFT JOIN LATERAL (
  SELECT re.descricao
  FROM nota_rastreio_evento re
  WHERE re.chavenfe = ns.chavenfe
    AND ns.transportadora_ecommerce <> '` + CarrierEnvvias + `'
  ORDER BY re.data_evento DESC, re.id DESC
  LIMIT 1
) ev ON TRUE
WHERE ` + predicate + `
  AND ns.chavenfe <> ''
  AND ns.marketplace_pedido <> ''
  AND ns.marketplace_pedido NOT LIKE '%\_%'
  AND ns.marketplace_pedido NOT LIKE '%RE'
ORDER BY ns.data_emissao DESC, ns.chavenfe, nsi.id
`

	rows, err := s.db.Query(ctx, q, term)
	if err != nil {
		return nil, errors.Wrap(err, "select orders")
	}
	defer rows.Close()

	var out []models.OrderRow
	for rows.Next() {
		var r models.OrderRow
		if err := rows.Scan(
			&r.ChaveNFe, &r.MarketplacePedido, &r.DataEmissao,
			&r.Transportadora, &r.NumeroNF, &r.Parceiro,
			&r.CodigoRastreio, &r.UltimoEvento,
			&r.ClienteNome, &r.ClienteEmail,
			&r.DescricaoFiscal, &r.Imagem,
		); err != nil {
			return nil, errors.Wrap(err, "scan order row")
		}
		out = append(out, r)
	}

	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
