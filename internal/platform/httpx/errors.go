// Package httpx holds the painel API error vocabulary and its RFC7807 mapping.
package httpx

import (
	"context"
	"errors"
	"net/http"
)

// Sentinel errors shared by the sales, goals and caps packages.
var (
	ErrNotFound     = errors.New("registro não encontrado")
	ErrDuplicate    = errors.New("registro duplicado")
	ErrValidation   = errors.New("parâmetros inválidos")
	ErrForbidden    = errors.New("acesso negado")
	ErrUnauthorized = errors.New("autenticação necessária")
)

// RespondError maps an error to its problem response. Unknown errors never
// leak their text.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Não encontrado", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Registro duplicado", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Requisição inválida", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Acesso negado", err.Error())
	case errors.Is(err, ErrUnauthorized):
		if w.Header().Get("WWW-Authenticate") == "" {
			w.Header().Set("WWW-Authenticate", `Basic realm="painel"`)
		}
		Problem(w, http.StatusUnauthorized, "Não autorizado", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		Problem(w, http.StatusGatewayTimeout, "Tempo esgotado", "a consulta demorou demais")
	default:
		Problem(w, http.StatusInternalServerError, "Erro interno", "")
	}
}
