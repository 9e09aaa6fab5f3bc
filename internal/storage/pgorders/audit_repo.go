package pgorders

import (
	"context"
	"time"

	"github.com/fidcomex/sacbox/internal/models"
	"github.com/pkg/errors"
)

func (s *Storage) InsertConversaEvento(ctx context.Context, ev models.ConversaEvento) error {
	criadoEm := ev.CriadoEm
	if criadoEm.IsZero() {
		criadoEm = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO conversa_evento (contact_id, session_id, comando, flag, mensagem, criado_em)
VALUES ($1,$2,$3,$4,$5,$6)
`, ev.ContactID, ev.SessionID, ev.Comando, ev.Flag, ev.Mensagem, criadoEm)
	return errors.Wrap(err, "insert conversa evento")
}

// ListConversaEventos returns the most recent audited interactions for one
// contact, newest first.
func (s *Storage) ListConversaEventos(ctx context.Context, contactID string, limit int) ([]models.ConversaEvento, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.Query(ctx, `
SELECT id, contact_id, session_id, comando, flag, mensagem, criado_em
FROM conversa_evento
WHERE contact_id = $1
ORDER BY criado_em DESC, id DESC
LIMIT $2
`, contactID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select conversa eventos")
	}
	defer rows.Close()

	var out []models.ConversaEvento
	for rows.Next() {
		var ev models.ConversaEvento
		if err := rows.Scan(&ev.ID, &ev.ContactID, &ev.SessionID, &ev.Comando, &ev.Flag, &ev.Mensagem, &ev.CriadoEm); err != nil {
			return nil, errors.Wrap(err, "scan conversa evento")
		}
		out = append(out, ev)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
