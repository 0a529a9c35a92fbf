package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ProblemBase prefixes the type URI of every painel problem.
const ProblemBase = "https://painel-vendas.local/problemas/"

// MaxBodyBytes bounds request bodies read by DecodeJSON.
const MaxBodyBytes = 64 << 10

var problemTypes = map[int]string{
	http.StatusBadRequest:          "requisicao-invalida",
	http.StatusUnauthorized:        "nao-autorizado",
	http.StatusForbidden:           "acesso-negado",
	http.StatusNotFound:            "nao-encontrado",
	http.StatusConflict:            "duplicado",
	http.StatusTooManyRequests:     "limite-excedido",
	http.StatusServiceUnavailable:  "indisponivel",
	http.StatusGatewayTimeout:      "tempo-esgotado",
	http.StatusInternalServerError: "erro-interno",
}

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// ProblemType returns the type URI for status, or about:blank when painel
// defines none.
func ProblemType(status int) string {
	if slug, ok := problemTypes[status]; ok {
		return ProblemBase + slug
	}
	return "about:blank"
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an application/problem+json response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ProblemDetail{
		Type:   ProblemType(status),
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// DecodeJSON decodes a single JSON document of at most MaxBodyBytes into
// target. Failures wrap ErrValidation.
func DecodeJSON(r *http.Request, target any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: corpo vazio", ErrValidation)
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: corpo vazio", ErrValidation)
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: mais de um documento JSON", ErrValidation)
	}
	return nil
}
