package analytichttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/analytics"
	"github.com/odyssey-erp/odyssey-ledger/internal/analytics/export"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

const defaultRequestTimeout = 10 * time.Second

// ReportService defines the report contract used by the handler.
type ReportService interface {
	Report(ctx context.Context, kind analytics.ReportKind, q analytics.Query) (analytics.Result, error)
	BuildPack(ctx context.Context, ds accounting.Dataset, req analytics.PackRequest) (analytics.ReportPack, error)
	InvalidateCache(ctx context.Context) (int64, error)
}

// Handler serves ledger reports over HTTP.
type Handler struct {
	logger  *slog.Logger
	service ReportService
	timeout time.Duration
	csvPool sync.Pool
}

// NewHandler constructs the report HTTP handler.
func NewHandler(logger *slog.Logger, service ReportService, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	h := &Handler{logger: logger, service: service, timeout: timeout}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

func (h *Handler) handleReport(kind analytics.ReportKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseQuery(r)
		if err != nil {
			h.respondError(w, "parse query", err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		result, err := h.service.Report(ctx, kind, q)
		if err != nil {
			h.respondError(w, "build "+string(kind), err)
			return
		}
		if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
			h.writeCSV(w, result)
			return
		}
		httpx.JSON(w, http.StatusOK, result)
	}
}

func (h *Handler) writeCSV(w http.ResponseWriter, result analytics.Result) {
	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.WriteResultCSV(buf, result); err != nil {
		h.respondError(w, "write csv", err)
		return
	}
	filename := fmt.Sprintf("%s.csv", strings.ReplaceAll(string(result.Kind), "_", "-"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

// computeRequest is the body of POST /reports/compute.
type computeRequest struct {
	Dataset accounting.Dataset `json:"dataset" validate:"-"`
	Reports []string           `json:"reports" validate:"max=16,dive,required"`
	Period  string             `json:"period" validate:"omitempty,max=32"`
	From    accounting.Date    `json:"from"`
	To      accounting.Date    `json:"to"`
	AsOf    accounting.Date    `json:"as_of"`
}

func (req computeRequest) packRequest() (analytics.PackRequest, error) {
	if !req.From.IsZero() && !req.To.IsZero() && req.To.Before(req.From.Time) {
		return analytics.PackRequest{}, httpx.Invalid("to must not be before from")
	}
	kinds := make([]analytics.ReportKind, 0, len(req.Reports))
	seen := make(map[analytics.ReportKind]bool, len(req.Reports))
	for _, name := range req.Reports {
		kind, err := analytics.ParseReportKind(name)
		if err != nil {
			return analytics.PackRequest{}, err
		}
		if seen[kind] {
			continue
		}
		seen[kind] = true
		kinds = append(kinds, kind)
	}
	return analytics.PackRequest{
		Reports: kinds,
		Query:   analytics.Query{Period: req.Period, From: req.From, To: req.To, AsOf: req.AsOf},
	}, nil
}

func (h *Handler) handleCompute(w http.ResponseWriter, r *http.Request) {
	var req computeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.respondError(w, "decode compute request", err)
		return
	}
	if err := accounting.Validator().Struct(req); err != nil {
		h.respondError(w, "validate compute request", httpx.Invalid("%v", err))
		return
	}
	packReq, err := req.packRequest()
	if err != nil {
		h.respondError(w, "validate compute request", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	pack, err := h.service.BuildPack(ctx, req.Dataset, packReq)
	if err != nil {
		h.respondError(w, "build pack", err)
		return
	}
	httpx.JSON(w, http.StatusOK, pack)
}

func (h *Handler) handleBump(w http.ResponseWriter, r *http.Request) {
	ver, err := h.service.InvalidateCache(r.Context())
	if err != nil {
		h.respondError(w, "bump cache", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"version": ver})
}

func parseQuery(r *http.Request) (analytics.Query, error) {
	values := r.URL.Query()
	var q analytics.Query
	q.Period = strings.TrimSpace(values.Get("period"))
	for _, field := range []struct {
		name string
		dst  *accounting.Date
	}{
		{"from", &q.From},
		{"to", &q.To},
		{"as_of", &q.AsOf},
	} {
		raw := values.Get(field.name)
		if raw == "" {
			continue
		}
		d, err := accounting.ParseDate(raw)
		if err != nil {
			return analytics.Query{}, httpx.Invalid("%s: %v", field.name, err)
		}
		*field.dst = d
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From.Time) {
		return analytics.Query{}, httpx.Invalid("to must not be before from")
	}
	return q, nil
}

// respondError maps engine sentinels onto RFC7807 responses.
func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, accounting.ErrMalformedInput), errors.Is(err, shared.ErrUnknownReport):
		err = fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	case errors.Is(err, context.DeadlineExceeded):
		err = fmt.Errorf("%w: %s timed out", httpx.ErrUnavailable, op)
	}
	if errors.Is(err, httpx.ErrValidation) || errors.Is(err, httpx.ErrTooLarge) {
		h.logDebug(op, err)
	} else {
		h.logError(op, err)
	}
	httpx.RespondError(w, err)
}

func (h *Handler) logError(op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
}

func (h *Handler) logDebug(op string, err error) {
	if h.logger != nil {
		h.logger.Debug(op, slog.Any("error", err))
	}
}
