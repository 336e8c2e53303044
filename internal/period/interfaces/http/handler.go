package periodhttp

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"settlement-periods/internal/audit"
	"settlement-periods/internal/auth"
	"settlement-periods/internal/observability/metrics"
	"settlement-periods/internal/period/application"
	period "settlement-periods/internal/period/domain"
	"settlement-periods/internal/period/interfaces"
)

const (
	timeLayout = time.RFC3339
	dateLayout = "2006-01-02"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Records reads the period-scoped business rows shown next to a period. The
// staging implementations satisfy it.
type Records interface {
	TempTransactions(ctx context.Context, periodID int64) ([]period.TempTransaction, error)
	TempProperties(ctx context.Context, periodID int64) ([]period.TempProperty, error)
	Transactions(ctx context.Context, periodID int64) ([]period.Transaction, error)
	Properties(ctx context.Context, periodID int64) ([]period.Property, error)
	CurrentProperties(ctx context.Context) ([]period.AccountProperty, error)
}

// Handler serves the period lifecycle API under /api/v1/periods.
type Handler struct {
	service *application.Service
	records Records
	audits  audit.Logger
	logger  *log.Logger
}

// NewHandler constructs a Handler. audits and logger may be nil.
func NewHandler(service *application.Service, records Records, audits audit.Logger, logger *log.Logger) *Handler {
	return &Handler{service: service, records: records, audits: audits, logger: logger}
}

// ServeHTTP routes /api/v1/periods requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/periods")
	rest = strings.Trim(rest, "/")

	switch {
	case rest == "":
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case rest == "next":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.createNext(w, r)
	default:
		parts := strings.SplitN(rest, "/", 2)
		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "invalid period id", http.StatusBadRequest)
			return
		}
		action := ""
		if len(parts) == 2 {
			action = parts[1]
		}
		h.routePeriod(w, r, id, action)
	}
}

func (h *Handler) routePeriod(w http.ResponseWriter, r *http.Request, id int64, action string) {
	switch action {
	case "":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.show(w, r, id)
	case "compute":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.compute(w, r, id)
	case "submit":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.submit(w, r, id)
	case "reset":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.reset(w, r, id)
	case "status-text":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.statusText(w, id)
	case "export/transactions.xlsx", "export/properties.xlsx", "export/summary.pdf":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.export(w, r, id, strings.TrimPrefix(action, "export/"))
	default:
		http.NotFound(w, r)
	}
}

// export streams a period artifact: the staged transactions or the current
// properties as a spreadsheet, or the period summary as a PDF.
func (h *Handler) export(w http.ResponseWriter, r *http.Request, id int64, artifact string) {
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	if h.records == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	format := "xlsx"
	if strings.HasSuffix(artifact, ".pdf") {
		format = "pdf"
	}
	started := time.Now()

	var payload []byte
	var contentType string
	switch artifact {
	case "transactions.xlsx":
		txs, err := h.records.TempTransactions(r.Context(), id)
		if err == nil {
			payload, err = interfaces.BuildTempTransactionsXLSX(p, txs)
		}
		if err != nil {
			metrics.ObserveExport(format, metrics.ResultError, time.Since(started))
			http.Error(w, "export error", http.StatusInternalServerError)
			return
		}
		contentType = xlsxContentType
	case "properties.xlsx":
		props, err := h.records.CurrentProperties(r.Context())
		if err == nil {
			payload, err = interfaces.BuildCurrentPropertiesXLSX(props)
		}
		if err != nil {
			metrics.ObserveExport(format, metrics.ResultError, time.Since(started))
			http.Error(w, "export error", http.StatusInternalServerError)
			return
		}
		contentType = xlsxContentType
	case "summary.pdf":
		logs, err := h.service.StatusLogs(r.Context(), id)
		if err == nil {
			payload, err = interfaces.BuildPeriodSummaryPDF(p, logs)
		}
		if err != nil {
			metrics.ObserveExport(format, metrics.ResultError, time.Since(started))
			http.Error(w, "export error", http.StatusInternalServerError)
			return
		}
		contentType = "application/pdf"
	}
	metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(started))

	userID := auth.UserIDFromContext(r.Context())
	h.logAudit(r.Context(), userID, audit.ActionExport, "Exported "+artifact+" for "+p.Number, p.ID)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+artifact+`"`)
	_, _ = w.Write(payload)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	periods, err := h.service.List(r.Context(), filter)
	if err != nil {
		http.Error(w, "list periods error", http.StatusInternalServerError)
		return
	}
	items := make([]periodJSON, 0, len(periods))
	for i := range periods {
		items = append(items, toPeriodJSON(&periods[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"periods": items})
}

type createRequest struct {
	Number   string `json:"number"`
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Number == "" {
		http.Error(w, "number is required", http.StatusBadRequest)
		return
	}
	dateFrom, err := parseDate(req.DateFrom, "date_from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	dateTo, err := parseDate(req.DateTo, "date_to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !dateTo.After(dateFrom) {
		http.Error(w, "date_to must be after date_from", http.StatusBadRequest)
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	p, err := h.service.Create(r.Context(), req.Number, dateFrom, dateTo, userID)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	h.logAudit(r.Context(), userID, audit.ActionPeriodCreate, "Created period "+p.Number, p.ID)
	writeJSON(w, http.StatusCreated, toPeriodJSON(p))
}

func (h *Handler) createNext(w http.ResponseWriter, r *http.Request) {
	prev, err := h.service.FindLast(r.Context())
	if err != nil {
		http.Error(w, "find last period error", http.StatusInternalServerError)
		return
	}
	if prev == nil {
		http.Error(w, "no previous period", http.StatusConflict)
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	p, err := h.service.CreateNext(r.Context(), prev, userID)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	h.logAudit(r.Context(), userID, audit.ActionPeriodCreate, "Created period "+p.Number, p.ID)
	writeJSON(w, http.StatusCreated, toPeriodJSON(p))
}

// show returns the period, its status log newest-first and the business rows
// matching its status: staged rows while in review, permanent rows once
// closed, current account properties otherwise.
func (h *Handler) show(w http.ResponseWriter, r *http.Request, id int64) {
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	logs, err := h.service.StatusLogs(r.Context(), id)
	if err != nil {
		http.Error(w, "status logs error", http.StatusInternalServerError)
		return
	}

	response := map[string]any{
		"period":      toPeriodJSON(p),
		"status_logs": toStatusLogJSON(logs),
	}

	if h.records != nil {
		switch {
		case p.Status == period.StatusReview:
			txs, err := h.records.TempTransactions(r.Context(), id)
			if err != nil {
				http.Error(w, "temp transactions error", http.StatusInternalServerError)
				return
			}
			props, err := h.records.TempProperties(r.Context(), id)
			if err != nil {
				http.Error(w, "temp properties error", http.StatusInternalServerError)
				return
			}
			response["transactions"] = toTempTransactionJSON(txs)
			response["properties"] = toTempPropertyJSON(props)
		case p.Status == period.StatusClosed:
			txs, err := h.records.Transactions(r.Context(), id)
			if err != nil {
				http.Error(w, "transactions error", http.StatusInternalServerError)
				return
			}
			props, err := h.records.Properties(r.Context(), id)
			if err != nil {
				http.Error(w, "properties error", http.StatusInternalServerError)
				return
			}
			response["transactions"] = toTransactionJSON(txs)
			response["properties"] = toPropertyJSON(props)
		default:
			props, err := h.records.CurrentProperties(r.Context())
			if err != nil {
				http.Error(w, "current properties error", http.StatusInternalServerError)
				return
			}
			response["properties"] = toAccountPropertyJSON(props)
		}
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) compute(w http.ResponseWriter, r *http.Request, id int64) {
	userID := auth.UserIDFromContext(r.Context())
	p, err := h.service.Compute(r.Context(), id, userID)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	h.logAudit(r.Context(), userID, audit.ActionCompute, "Started computation for "+p.Number, p.ID)
	writeJSON(w, http.StatusAccepted, toPeriodJSON(p))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, id int64) {
	userID := auth.UserIDFromContext(r.Context())
	p, err := h.service.Submit(r.Context(), id, userID)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	h.logAudit(r.Context(), userID, audit.ActionSubmit, "Submitted "+p.Number, p.ID)
	writeJSON(w, http.StatusAccepted, toPeriodJSON(p))
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request, id int64) {
	userID := auth.UserIDFromContext(r.Context())
	p, err := h.service.Reset(r.Context(), id, userID)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	h.logAudit(r.Context(), userID, audit.ActionReset, "Reset "+p.Number+" to open", p.ID)
	writeJSON(w, http.StatusOK, toPeriodJSON(p))
}

func (h *Handler) statusText(w http.ResponseWriter, id int64) {
	text, ok := h.service.StatusText(id)
	writeJSON(w, http.StatusOK, map[string]any{"status_text": text, "present": ok})
}

func (h *Handler) writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, period.ErrNotFound):
		http.Error(w, "period not found", http.StatusNotFound)
	case errors.Is(err, period.ErrActiveExists),
		errors.Is(err, period.ErrNotOpen),
		errors.Is(err, period.ErrNotInReview),
		errors.Is(err, period.ErrInvalidTransition),
		errors.Is(err, period.ErrDuplicateNumber):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		if h.logger != nil {
			h.logger.Printf("periods api: %v", err)
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) logAudit(ctx context.Context, userID *int64, action, label string, periodID int64) {
	if h.audits == nil {
		return
	}
	entry := audit.Entry{UserID: userID, Action: action, Label: label, PeriodID: periodID}
	if err := h.audits.Log(ctx, entry); err != nil && h.logger != nil {
		h.logger.Printf("periods api: audit log failed: %v", err)
	}
}

func parseListFilter(r *http.Request) (period.ListFilter, error) {
	var filter period.ListFilter
	query := r.URL.Query()

	filter.NumberSubstring = query.Get("number")
	for _, raw := range query["status"] {
		status := period.Status(raw)
		if !status.Valid() {
			return filter, errors.New("unknown status " + raw)
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	var err error
	if filter.DateFromAfter, err = parseOptionalDate(query.Get("date_from_after"), "date_from_after"); err != nil {
		return filter, err
	}
	if filter.DateToBefore, err = parseOptionalDate(query.Get("date_to_before"), "date_to_before"); err != nil {
		return filter, err
	}
	if filter.CreatedAtFrom, err = parseOptionalTime(query.Get("created_from"), "created_from"); err != nil {
		return filter, err
	}
	if filter.CreatedAtTo, err = parseOptionalTime(query.Get("created_to"), "created_to"); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseDate(value, key string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be YYYY-MM-DD")
	}
	return parsed.UTC(), nil
}

func parseOptionalDate(value, key string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return parseDate(value, key)
}

func parseOptionalTime(value, key string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
