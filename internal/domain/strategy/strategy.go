package strategy

import "github.com/alejandrodnm/drawbot/internal/domain"

// Rule define el contrato de una regla de entrada: decide si un snapshot
// justifica apostar. Debe ser pura y total, sin I/O.
type Rule interface {
	Qualifies(snapshot domain.MatchSnapshot) bool
}
