package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/painel-vendas/painel/internal/period"
)

var (
	// ErrUnexpectedStatus wraps non-2xx responses.
	ErrUnexpectedStatus = errors.New("dashboard: unexpected status")
	// ErrMalformedPayload wraps bodies that do not decode.
	ErrMalformedPayload = errors.New("dashboard: malformed payload")
)

const maxErrorBody = 512

// Endpoint describes how one data source expects its query.
type Endpoint struct {
	Path string
	// PeriodParam names the period kind parameter. Defaults to tipoPeriodo.
	PeriodParam string
	// CustomAsDay sends the day token instead of the custom one.
	CustomAsDay bool
	// SkipBranches omits filial parameters for sources with fixed branches.
	SkipBranches bool
}

// Result is a decoded payload tagged with the sequence number of its request.
type Result struct {
	Snapshot Snapshot
	Filters  Filters
	Seq      uint64
}

// Fetcher reads dashboard payloads from the HTTP API.
type Fetcher struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	seq     atomic.Uint64
}

// NewFetcher constructs a fetcher. A nil limiter disables pacing.
func NewFetcher(baseURL string, client *http.Client, limiter *rate.Limiter, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		limiter: limiter,
		logger:  logger,
	}
}

// NextSeq reserves a sequence number without issuing a request.
func (f *Fetcher) NextSeq() uint64 {
	return f.seq.Add(1)
}

// BuildQuery encodes filters for ep. Branches repeat the filial key in order.
func BuildQuery(ep Endpoint, filters Filters) url.Values {
	q := url.Values{}
	q.Set("dataInicio", filters.Start)
	q.Set("dataFim", filters.End)

	kind := filters.Kind
	if ep.CustomAsDay && kind == period.KindCustom.Token() {
		kind = period.KindToday.Token()
	}
	param := ep.PeriodParam
	if param == "" {
		param = "tipoPeriodo"
	}
	q.Set(param, kind)

	if !ep.SkipBranches {
		for _, b := range filters.Branches {
			q.Add("filial", b)
		}
	}
	if filters.Seller != "" {
		q.Set("vendedor", filters.Seller)
	}
	if period.ParseKind(filters.Kind).GroupByMonth() {
		q.Set("agruparPorMes", "true")
	}
	return q
}

// Dashboard fetches and decodes one snapshot.
func (f *Fetcher) Dashboard(ctx context.Context, ep Endpoint, filters Filters) (Result, error) {
	seq := f.NextSeq()
	var snap Snapshot
	if err := f.getJSON(ctx, ep.Path, BuildQuery(ep, filters), &snap); err != nil {
		return Result{Seq: seq}, err
	}
	return Result{Snapshot: snap, Filters: filters, Seq: seq}, nil
}

// Strings fetches a JSON array of strings such as branch or seller lists.
func (f *Fetcher) Strings(ctx context.Context, path string, query url.Values) ([]string, error) {
	var out []string
	if err := f.getJSON(ctx, path, query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *Fetcher) getJSON(ctx context.Context, path string, query url.Values, dst any) error {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	target := f.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	f.logger.Debug("dashboard fetch", slog.String("path", path), slog.String("request_id", requestID), slog.Duration("elapsed", time.Since(start)))
	return nil
}
