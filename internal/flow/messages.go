package flow

import (
	"fmt"
	"strings"

	"github.com/fidcomex/sacbox/internal/models"
	"github.com/fidcomex/sacbox/internal/storage/pgorders"
)

const (
	msgDadosObrigatorios = "Dados obrigatórios ausentes"
	msgNenhumRegistro    = "Nenhum registro encontrado"

	msgRastreioEnviado = "Rastreio enviado"
	msgNFeEnviada      = "NFe enviada"

	msgTransferindo  = "Estamos transferindo você para um de nossos atendentes. Aguarde um instante, por favor."
	msgForaDeHorario = "Nosso horário de atendimento é de segunda a sexta, das 08:30 às 17:30. Deixe sua mensagem que retornaremos no próximo dia útil."
	msgFeriadoPadrao = "Estamos em recesso. Retornaremos sua mensagem no próximo dia útil."
	msgAtendenteLogo = "Certo! Um de nossos atendentes vai te responder em instantes."
	msgInstrucoesNFe = "Para acessar sua nota fiscal, utilize a chave de acesso abaixo no portal da SEFAZ (www.nfe.fazenda.gov.br):"
)

// Orders carried by ENVVIAS are tracked on the carrier's own portal, not on
// the per-order deep link.
const (
	trackingPortalBaseURL = "https://status.ondeestameupedido.com/tracking/"
	envviasPortalURL      = "https://rastreamento.envvias.com.br/"
)

// trackingLink resolves the URL shown to the customer. The carrier exception
// substitutes the static portal before any message is built.
func trackingLink(rec *models.OrderRecord) string {
	if rec.Transportadora == pgorders.CarrierEnvvias {
		return envviasPortalURL
	}
	if rec.CodigoRastreio != nil && *rec.CodigoRastreio != "" {
		return trackingPortalBaseURL + *rec.CodigoRastreio
	}
	return ""
}

func rastreioMessage(rec *models.OrderRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Encontrei seu pedido %s (%s).", rec.MarketplacePedido, rec.Portal)

	status := rec.UltimoEvento
	if rec.TrackingInfo != nil && rec.TrackingInfo.Descricao != "" {
		status = rec.TrackingInfo.Descricao
	}
	if status != "" {
		fmt.Fprintf(&b, "\nSituação atual: %s.", status)
	}

	if link := trackingLink(rec); link != "" {
		fmt.Fprintf(&b, "\nAcompanhe sua entrega em: %s", link)
	} else {
		b.WriteString("\nSeu pedido ainda não possui rastreio disponível.")
	}
	return b.String()
}

func nfeMessage(rec *models.OrderRecord) string {
	return fmt.Sprintf("%s\n\n%s\n\nNota fiscal nº %s, pedido %s.",
		msgInstrucoesNFe, rec.ChaveNFe, rec.NumeroNF, rec.MarketplacePedido)
}

func resumoPedido(rec *models.OrderRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pedido %s (%s), emitido em %s.",
		rec.MarketplacePedido, rec.Portal, rec.DataEmissao.Format("02/01/2006"))
	for _, p := range rec.Produtos {
		fmt.Fprintf(&b, "\n- %s", p.DescricaoFiscal)
	}
	return b.String()
}

// queueMessage picks the informational message for flows that hand the
// conversation to a human. The schedule changes only the text, never the
// routing flag.
func queueMessage(sched Schedule, holidayMsg string) string {
	switch sched {
	case ScheduleHoliday:
		if holidayMsg != "" {
			return holidayMsg
		}
		return msgFeriadoPadrao
	case ScheduleClosed:
		return msgForaDeHorario
	default:
		return msgTransferindo
	}
}
