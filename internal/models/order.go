package models

import "time"

// Canonical portal display names for the marketplaces we sell through.
const (
	PortalMercadoLivre    = "Mercado Livre"
	PortalFidComexSite    = "Fid Comex Site"
	PortalCasasBahia      = "Casas Bahia"
	PortalMagazineLuiza   = "Magazine Luiza"
	PortalLeroyMerlin     = "Leroy Merlin"
	PortalLojasAmericanas = "Lojas Americanas"
	PortalShopee          = "Shopee"
)

// OrderRow is one raw row from the invoice/customer/item join, before grouping.
// Several rows share a ChaveNFe when the invoice has more than one item.
type OrderRow struct {
	ChaveNFe          string
	MarketplacePedido string
	DataEmissao       time.Time
	Transportadora    string
	NumeroNF          string
	Parceiro          string
	CodigoRastreio    *string
	UltimoEvento      *string
	ClienteNome       string
	ClienteEmail      string
	DescricaoFiscal   string
	Imagem            string
}

// Produto is one invoice line item as shown to the customer.
type Produto struct {
	DescricaoFiscal string `json:"descricao_fiscal"`
	Imagem          string `json:"imagem1"`
}

// OrderRecord is one fiscal invoice grouping, keyed by ChaveNFe.
// Built fresh per lookup; never persisted or mutated by this service.
type OrderRecord struct {
	ChaveNFe          string        `json:"chavenfe"`
	MarketplacePedido string        `json:"marketplace_pedido"`
	DataEmissao       time.Time     `json:"data_emissao"`
	Transportadora    string        `json:"transportadora_ecommerce"`
	NumeroNF          string        `json:"id_nr_nf"`
	CodigoRastreio    *string       `json:"codigo_rastreio"`
	Portal            string        `json:"portal"`
	UltimoEvento      string        `json:"ultimo_evento,omitempty"`
	ClienteNome       string        `json:"cliente_nome,omitempty"`
	ClienteEmail      string        `json:"cliente_email,omitempty"`
	Produtos          []Produto     `json:"produtos"`
	TrackingInfo      *TrackingInfo `json:"trackingInfo"`
}

// TrackingInfo is the carrier-side view of a shipment. Nil whenever the order
// has no tracking reference or the carrier call failed.
type TrackingInfo struct {
	CodigoRastreio string          `json:"codigo_rastreio"`
	Status         string          `json:"status"`
	Descricao      string          `json:"descricao,omitempty"`
	AtualizadoEm   *time.Time      `json:"atualizado_em,omitempty"`
	Eventos        []TrackingEvent `json:"eventos,omitempty"`
}

// TrackingEvent is one carrier checkpoint.
type TrackingEvent struct {
	Descricao string     `json:"descricao"`
	Local     string     `json:"local,omitempty"`
	Data      *time.Time `json:"data,omitempty"`
}

// ConversaEvento is one audited chatbot interaction, persisted by sac-worker.
type ConversaEvento struct {
	ID        uint64
	ContactID string
	SessionID string
	Comando   string
	Flag      string
	Mensagem  string
	CriadoEm  time.Time
}
