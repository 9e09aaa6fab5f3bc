// Package flow implements the chatbot command dispatch: each inbound webhook
// command runs one handler, which queries order data, applies business rules,
// sends chat messages and resolves a terminal flag. The flag is the contract
// with the bot orchestrator's script graph; renaming one is a breaking change.
package flow

// Flag is a terminal outcome code consumed by the bot orchestrator to pick
// the next script node. The vocabulary is closed: handlers may only return
// values declared here.
type Flag string

const (
	FlagCPFInvalido                Flag = "cpf_invalido"
	FlagRegistroNaoEncontrado      Flag = "registro_nao_encontrado"
	FlagRegistroNaoEncontradoMeli  Flag = "registro_nao_encontrado_meli"
	FlagRegistroNaoEncontradoTroca Flag = "registro_nao_encontrado_troca"
	FlagRastreioEnviado            Flag = "rastreio_enviado"
	FlagNFeEnviada                 Flag = "nfe_enviada"
	FlagEncaminhaTrocaMeli         Flag = "encaminha_troca_meli"
	FlagEncaminhaTrocaSAC          Flag = "encaminha_troca_sac"

	FlagCPFInvalidoOutrosAssuntos   Flag = "cpf_invalido_outros_assuntos"
	FlagCPFValidoOutrosAssuntos     Flag = "cpf_valido_outros_assuntos"
	FlagCPFEncontradoOutrosAssuntos Flag = "cpf_encontrado_outros_assuntos"
	FlagEmailInvalido               Flag = "email_invalido"
	FlagEmailValido                 Flag = "email_valido"
	FlagEmailEncontrado             Flag = "email_encontrado"

	FlagUnknownCommand Flag = "unknown_command"
	FlagError          Flag = "error"
)

// Command names are the webhook wire contract with the bot script.
type Command string

const (
	CmdValidaCpf                 Command = "validaCpf"
	CmdRastreioPeloPedido        Command = "rastreioPeloPedido"
	CmdNfePeloPedido             Command = "nfePeloPedido"
	CmdEnviaNFECliente           Command = "enviaNFECliente"
	CmdValidaCpfParaTroca        Command = "validaCpfParaTroca"
	CmdValidaPedidoParaTroca     Command = "validaPedidoParaTroca"
	CmdValidaEmailOutrosAssuntos Command = "validaEmailOutrosAssuntos"
)

var knownCommands = map[Command]struct{}{
	CmdValidaCpf:                 {},
	CmdRastreioPeloPedido:        {},
	CmdNfePeloPedido:             {},
	CmdEnviaNFECliente:           {},
	CmdValidaCpfParaTroca:        {},
	CmdValidaPedidoParaTroca:     {},
	CmdValidaEmailOutrosAssuntos: {},
}

func ParseCommand(s string) (Command, bool) {
	c := Command(s)
	_, ok := knownCommands[c]
	return c, ok
}
