package ports

import (
	"context"

	"github.com/alejandrodnm/drawbot/internal/domain"
)

// EventSource produce snapshots de partidos, en vivo o simulados.
type EventSource interface {
	// Stream envía snapshots a out hasta que la fuente termina o ctx se cancela.
	// Devuelve nil si la fuente terminó limpiamente y un error de conectividad
	// en caso contrario. No cierra out.
	Stream(ctx context.Context, out chan<- domain.MatchSnapshot) error
}
