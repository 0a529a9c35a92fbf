package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
		slug   string
	}{
		{fmt.Errorf("meta 7: %w", ErrNotFound), http.StatusNotFound, "nao-encontrado"},
		{ErrDuplicate, http.StatusConflict, "duplicado"},
		{fmt.Errorf("%w: dataFim", ErrValidation), http.StatusBadRequest, "requisicao-invalida"},
		{ErrForbidden, http.StatusForbidden, "acesso-negado"},
		{ErrUnauthorized, http.StatusUnauthorized, "nao-autorizado"},
		{fmt.Errorf("sales: totals: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "tempo-esgotado"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "erro-interno"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		require.Equal(t, tc.status, rr.Code, tc.err.Error())
		assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, ProblemBase+tc.slug, body.Type)
		assert.Equal(t, tc.status, body.Status)
		assert.NotContains(t, body.Detail, "connection refused")
	}
}

func TestUnauthorizedKeepsExistingChallenge(t *testing.T) {
	rr := httptest.NewRecorder()
	rr.Header().Set("WWW-Authenticate", `Basic realm="metas"`)
	RespondError(rr, ErrUnauthorized)
	assert.Equal(t, `Basic realm="metas"`, rr.Header().Get("WWW-Authenticate"))

	rr = httptest.NewRecorder()
	RespondError(rr, ErrUnauthorized)
	assert.Equal(t, `Basic realm="painel"`, rr.Header().Get("WWW-Authenticate"))
}

func TestProblemTypeFallsBackToBlank(t *testing.T) {
	assert.Equal(t, "about:blank", ProblemType(http.StatusTeapot))
	assert.Equal(t, ProblemBase+"limite-excedido", ProblemType(http.StatusTooManyRequests))
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Filial string `json:"filial"`
	}
	req := httptest.NewRequest(http.MethodPost, "/api/metas", strings.NewReader(`{"filial":"Sinop"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Equal(t, "Sinop", dst.Filial)

	for _, body := range []string{"", "{", `{"filial":"a"} {"filial":"b"}`, `{"filial":"` + strings.Repeat("x", MaxBodyBytes) + `"}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/metas", strings.NewReader(body))
		assert.ErrorIs(t, DecodeJSON(req, &dst), ErrValidation, "body of %d bytes", len(body))
	}
}
