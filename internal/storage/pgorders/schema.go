package pgorders

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS cliente (
  id_cliente BIGSERIAL PRIMARY KEY,
  nome TEXT NOT NULL DEFAULT '',
  cpf TEXT NOT NULL DEFAULT '',
  cnpj TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT ''
)`,
		`CREATE INDEX IF NOT EXISTS idx_cliente_cpf ON cliente(cpf)`,
		`CREATE INDEX IF NOT EXISTS idx_cliente_cnpj ON cliente(cnpj)`,
		`CREATE INDEX IF NOT EXISTS idx_cliente_email ON cliente(email)`,
		`
CREATE TABLE IF NOT EXISTS produto (
  id_produto BIGSERIAL PRIMARY KEY,
  descricao_fiscal TEXT NOT NULL DEFAULT '',
  imagem1 TEXT NOT NULL DEFAULT ''
)`,
		`
CREATE TABLE IF NOT EXISTS nota_saida (
  id_nota_saida BIGSERIAL PRIMARY KEY,
  chavenfe TEXT NOT NULL DEFAULT '',
  marketplace_pedido TEXT NOT NULL DEFAULT '',
  data_emissao TIMESTAMPTZ NOT NULL,
  transportadora_ecommerce TEXT NOT NULL DEFAULT '',
  id_nr_nf TEXT NOT NULL DEFAULT '',
  parceiro TEXT NOT NULL DEFAULT '',
  intelipost_order TEXT NULL,
  id_cliente BIGINT NOT NULL REFERENCES cliente(id_cliente)
)`,
		`CREATE INDEX IF NOT EXISTS idx_nota_saida_chavenfe ON nota_saida(chavenfe)`,
		`CREATE INDEX IF NOT EXISTS idx_nota_saida_marketplace_pedido ON nota_saida(marketplace_pedido)`,
		`CREATE INDEX IF NOT EXISTS idx_nota_saida_id_cliente ON nota_saida(id_cliente)`,
		`
CREATE TABLE IF NOT EXISTS nota_saida_itens (
  id BIGSERIAL PRIMARY KEY,
  id_nota_saida BIGINT NOT NULL REFERENCES nota_saida(id_nota_saida) ON DELETE CASCADE,
  id_produto BIGINT NOT NULL REFERENCES produto(id_produto)
)`,
		`CREATE INDEX IF NOT EXISTS idx_nota_saida_itens_nota ON nota_saida_itens(id_nota_saida)`,
		`
CREATE TABLE IF NOT EXISTS nota_rastreio_evento (
  id BIGSERIAL PRIMARY KEY,
  chavenfe TEXT NOT NULL,
  descricao TEXT NOT NULL DEFAULT '',
  data_evento TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_nota_rastreio_evento_chavenfe ON nota_rastreio_evento(chavenfe, data_evento DESC)`,
		`
CREATE TABLE IF NOT EXISTS conversa_evento (
  id BIGSERIAL PRIMARY KEY,
  contact_id TEXT NOT NULL,
  session_id TEXT NOT NULL DEFAULT '',
  comando TEXT NOT NULL,
  flag TEXT NOT NULL,
  mensagem TEXT NOT NULL DEFAULT '',
  criado_em TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_conversa_evento_contact ON conversa_evento(contact_id, criado_em DESC)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
