// Package server exposes the calculation engine over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/advtools/calculo-engine/internal/engine"
	"github.com/advtools/calculo-engine/pkg/constants"
	"github.com/advtools/calculo-engine/pkg/fees"
	"github.com/advtools/calculo-engine/pkg/indices"
	"github.com/advtools/calculo-engine/pkg/interest"
	"github.com/advtools/calculo-engine/pkg/moneyutil"
	"github.com/advtools/calculo-engine/pkg/validation"
)

// maxBodyBytes bounds calculation request payloads; they are small JSON
// documents, anything past this is abuse.
const maxBodyBytes int64 = 1 << 20

type handler struct {
	logger  *zap.Logger
	engine  *engine.Engine
	version string
}

// NewHandler constructs the HTTP handler that serves the calculation API.
func NewHandler(logger *zap.Logger, eng *engine.Engine, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{logger: logger, engine: eng, version: trimmedVersion}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/corrections", h.handleCorrection)
		r.Post("/interest", h.handleInterest)
		r.Post("/calculations", h.handleCombined)
		r.Post("/fees", h.handleFees)
		r.Get("/indices", h.handleIndices)
		r.Get("/indices/current", h.handleCurrentIndices)
		r.Get("/version", h.handleVersion)
	})

	return r
}

type correctionRequest struct {
	Value     decimal.Decimal `json:"value"`
	StartDate string          `json:"startDate"`
	EndDate   string          `json:"endDate"`
	Index     string          `json:"index"`
}

type correctionResponse struct {
	ReferenceID      string          `json:"referenceId"`
	Index            string          `json:"index"`
	OriginalValue    decimal.Decimal `json:"originalValue"`
	CorrectedValue   decimal.Decimal `json:"correctedValue"`
	Factor           decimal.Decimal `json:"factor"`
	Percent          decimal.Decimal `json:"percent"`
	ObservationsUsed int             `json:"observationsUsed"`
	IsEstimate       bool            `json:"isEstimate"`
	Source           string          `json:"source"`
	Observation      string          `json:"observation,omitempty"`
	CalculatedAt     string          `json:"calculatedAt"`
}

type interestRequest struct {
	Principal   decimal.Decimal `json:"principal"`
	StartDate   string          `json:"startDate"`
	EndDate     string          `json:"endDate"`
	Regime      string          `json:"regime"`
	MonthlyRate decimal.Decimal `json:"monthlyRate"`
	Compound    bool            `json:"compound"`
}

type interestResponse struct {
	ReferenceID  string          `json:"referenceId"`
	Principal    decimal.Decimal `json:"principal"`
	Interest     decimal.Decimal `json:"interest"`
	Total        decimal.Decimal `json:"total"`
	Percent      decimal.Decimal `json:"percent"`
	MonthlyRate  decimal.Decimal `json:"monthlyRate"`
	Months       decimal.Decimal `json:"months"`
	Regime       string          `json:"regime"`
	Compound     bool            `json:"compound"`
	CalculatedAt string          `json:"calculatedAt"`
}

type combinedRequest struct {
	Principal     decimal.Decimal `json:"principal"`
	StartDate     string          `json:"startDate"`
	EndDate       string          `json:"endDate"`
	Index         string          `json:"index"`
	Regime        string          `json:"regime"`
	MonthlyRate   decimal.Decimal `json:"monthlyRate"`
	ApplyInterest bool            `json:"applyInterest"`
}

type combinedResponse struct {
	ReferenceID      string          `json:"referenceId"`
	Index            string          `json:"index"`
	OriginalValue    decimal.Decimal `json:"originalValue"`
	CorrectedValue   decimal.Decimal `json:"correctedValue"`
	InterestAmount   decimal.Decimal `json:"interestAmount"`
	FinalValue       decimal.Decimal `json:"finalValue"`
	Factor           decimal.Decimal `json:"factor"`
	Percent          decimal.Decimal `json:"percent"`
	ObservationsUsed int             `json:"observationsUsed"`
	IsEstimate       bool            `json:"isEstimate"`
	Source           string          `json:"source"`
	Observation      string          `json:"observation,omitempty"`
	CalculatedAt     string          `json:"calculatedAt"`
}

type feeRequest struct {
	CaseValue          decimal.Decimal `json:"caseValue"`
	Kind               string          `json:"kind"`
	Percent            decimal.Decimal `json:"percent"`
	Amount             decimal.Decimal `json:"amount"`
	MinPercent         decimal.Decimal `json:"minPercent"`
	MaxPercent         decimal.Decimal `json:"maxPercent"`
	ContingencyPercent decimal.Decimal `json:"contingencyPercent"`
}

type feeResponse struct {
	ReferenceID  string           `json:"referenceId"`
	Kind         string           `json:"kind"`
	Fee          decimal.Decimal  `json:"fee"`
	FeeMin       *decimal.Decimal `json:"feeMin,omitempty"`
	FeeMax       *decimal.Decimal `json:"feeMax,omitempty"`
	CalculatedAt string           `json:"calculatedAt"`
}

type indexDescriptor struct {
	Code        string `json:"code"`
	DisplayName string `json:"displayName"`
	Source      string `json:"source"`
	Periodicity string `json:"periodicity"`
	SeriesID    int    `json:"seriesId"`
}

type indexSnapshot struct {
	Value      decimal.Decimal `json:"value"`
	Date       string          `json:"date,omitempty"`
	Source     string          `json:"source"`
	IsEstimate bool            `json:"isEstimate"`
}

type currentIndicesResponse struct {
	Indices     map[string]indexSnapshot `json:"indices"`
	RetrievedAt string                   `json:"retrievedAt"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (h *handler) handleCorrection(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCorrection"
	start := time.Now()

	var req correctionRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return
	}

	startDate, endDate, err := parsePeriod(req.StartDate, req.EndDate)
	if err != nil {
		h.respondCalcError(w, err, op)
		return
	}
	code, err := indices.ParseCode(req.Index)
	if err != nil {
		h.respondCalcError(w, err, op)
		return
	}

	outcome, err := h.engine.CorrectValue(r.Context(), req.Value, startDate, endDate, code)
	if err != nil {
		h.respondCalcError(w, err, op)
		return
	}

	h.logger.Info("correction computed",
		zap.String("op", op),
		zap.String("index", string(outcome.Index)),
		zap.Bool("estimate", outcome.IsEstimate),
		zap.Duration("duration", time.Since(start)),
	)

	h.writeJSON(w, http.StatusOK, correctionResponse{
		ReferenceID:      uuid.NewString(),
		Index:            string(outcome.Index),
		OriginalValue:    outcome.OriginalValue,
		CorrectedValue:   outcome.CorrectedValue,
		Factor:           outcome.Factor,
		Percent:          moneyutil.RoundPercent(outcome.Percent),
		ObservationsUsed: outcome.ObservationsUsed,
		IsEstimate:       outcome.IsEstimate,
		Source:           outcome.Source,
		Observation:      outcome.Observation,
		CalculatedAt:     time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) handleInterest(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleInterest"
	start := time.Now()

	var req interestRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return
	}

	startDate, endDate, err := parsePeriod(req.StartDate, req.EndDate)
	if err != nil {
		h.respondCalcError(w, err, op)
		return
	}
	regime, err := parseRegimeOrDefault(req.Regime)
	if err != nil {
		h.respondCalcError(w, err, op)
		return
	}

	outcome, err := h.engine.Interest(interest.Request{
		Principal:   req.Principal,
		StartDate:   startDate,
		EndDate:     endDate,
		Regime:      regime,
		MonthlyRate: req.MonthlyRate,
		Compound:    req.Compound,
	})
	if err != nil {
		h.respondCalcError(w, err, op)
		return
	}

	h.logger.Info("interest computed",
		zap.String("op", op),
		zap.String("regime", string(regime)),
		zap.Bool("compound", req.Compound),
		zap.Duration("duration", time.Since(start)),
	)

	h.writeJSON(w, http.StatusOK, interestResponse{
		ReferenceID:  uuid.NewString(),
		Principal:    moneyutil.Round(req.Principal),
		Interest:     moneyutil.Round(outcome.Interest),
		Total:        moneyutil.Round(outcome.Total),
		Percent:      moneyutil.RoundPercent(outcome.Percent),
		MonthlyRate:  outcome.MonthlyRate,
		Months:       outcome.Months,
		Regime:       string(regime),
		Compound:     req.Compound,
		CalculatedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) handleCombined(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCombined"
	start := time.Now()

	var req combinedRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return
	}

	startDate, endDate, err := parsePeriod(req.StartDate, req.EndDate)
	if err != nil {
		h.respondCalcError(w, err, op)
		return
	}
	code, err := indices.ParseCode(req.Index)
	if err != nil {
		h.respondCalcError(w, err, op)
		return
	}
	regime, err := parseRegimeOrDefault(req.Regime)
	if err != nil {
		h.respondCalcError(w, err, op)
		return
	}

	result, err := h.engine.Combined(r.Context(), engine.CombinedRequest{
		Principal:         req.Principal,
		StartDate:         startDate,
		EndDate:           endDate,
		Index:             code,
		Regime:            regime,
		CustomMonthlyRate: req.MonthlyRate,
		ApplyInterest:     req.ApplyInterest,
	})
	if err != nil {
		h.respondCalcError(w, err, op)
		return
	}

	h.logger.Info("combined calculation computed",
		zap.String("op", op),
		zap.String("index", string(result.Index)),
		zap.Bool("estimate", result.IsEstimate),
		zap.Bool("interest", req.ApplyInterest),
		zap.Duration("duration", time.Since(start)),
	)

	h.writeJSON(w, http.StatusOK, combinedResponse{
		ReferenceID:      uuid.NewString(),
		Index:            string(result.Index),
		OriginalValue:    result.OriginalValue,
		CorrectedValue:   result.CorrectedValue,
		InterestAmount:   result.InterestAmount,
		FinalValue:       result.FinalValue,
		Factor:           result.Factor,
		Percent:          moneyutil.RoundPercent(result.Percent),
		ObservationsUsed: result.ObservationsUsed,
		IsEstimate:       result.IsEstimate,
		Source:           result.Source,
		Observation:      result.Observation,
		CalculatedAt:     time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) handleFees(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleFees"
	start := time.Now()

	var req feeRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return
	}

	kind, err := fees.ParseKind(req.Kind)
	if err != nil {
		h.respondCalcError(w, err, op)
		return
	}

	outcome, err := h.engine.Fee(fees.Schedule{
		Kind:               kind,
		Percent:            req.Percent,
		Amount:             req.Amount,
		MinPercent:         req.MinPercent,
		MaxPercent:         req.MaxPercent,
		ContingencyPercent: req.ContingencyPercent,
	}, req.CaseValue)
	if err != nil {
		h.respondCalcError(w, err, op)
		return
	}

	response := feeResponse{
		ReferenceID:  uuid.NewString(),
		Kind:         string(outcome.Kind),
		Fee:          moneyutil.Round(outcome.Fee),
		CalculatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if outcome.Kind == fees.KindStatutoryRange {
		feeMin := moneyutil.Round(outcome.FeeMin)
		feeMax := moneyutil.Round(outcome.FeeMax)
		response.FeeMin = &feeMin
		response.FeeMax = &feeMax
	}

	h.logger.Info("fee computed",
		zap.String("op", op),
		zap.String("kind", string(outcome.Kind)),
		zap.Duration("duration", time.Since(start)),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) handleIndices(w http.ResponseWriter, r *http.Request) {
	catalog := indices.All()
	descriptors := make([]indexDescriptor, 0, len(catalog))
	for _, def := range catalog {
		descriptors = append(descriptors, indexDescriptor{
			Code:        string(def.Code),
			DisplayName: def.DisplayName,
			Source:      def.Source,
			Periodicity: def.Periodicity,
			SeriesID:    def.SeriesID,
		})
	}
	h.writeJSON(w, http.StatusOK, descriptors)
}

func (h *handler) handleCurrentIndices(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCurrentIndices"
	start := time.Now()

	snapshots := h.engine.CurrentIndices(r.Context())

	response := currentIndicesResponse{
		Indices:     make(map[string]indexSnapshot, len(snapshots)),
		RetrievedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for code, snapshot := range snapshots {
		entry := indexSnapshot{
			Value:      snapshot.LatestValue,
			Source:     snapshot.Source,
			IsEstimate: snapshot.IsEstimate,
		}
		if !snapshot.LatestDate.IsZero() {
			entry.Date = snapshot.LatestDate.Format(constants.DateOnlyLayout)
		}
		response.Indices[string(code)] = entry
	}

	h.logger.Info("current indices retrieved",
		zap.String("op", op),
		zap.Int("indices", len(response.Indices)),
		zap.Duration("duration", time.Since(start)),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"version": h.version})
}

func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// parsePeriod parses the request date pair. Dates arrive in the API date
// layout; anything else is a field error on the offending side.
func parsePeriod(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := parseDate("startDate", startDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate("endDate", endDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func parseDate(field, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, validation.NewFieldError(field, "is required")
	}
	parsed, err := time.Parse(constants.DateOnlyLayout, value)
	if err != nil {
		return time.Time{}, validation.NewFieldError(field, fmt.Sprintf("must use the %s layout", constants.DateOnlyLayout))
	}
	return parsed, nil
}

// parseRegimeOrDefault treats a missing regime as the civil statutory one.
func parseRegimeOrDefault(value string) (interest.Regime, error) {
	if strings.TrimSpace(value) == "" {
		return interest.RegimeCivil, nil
	}
	return interest.ParseRegime(value)
}

// respondCalcError maps engine errors onto HTTP statuses. Invalid input is
// the caller's fault; everything else is ours.
func (h *handler) respondCalcError(w http.ResponseWriter, err error, op string) {
	var fieldErr *validation.FieldError
	if errors.As(err, &fieldErr) {
		h.logError(op, http.StatusBadRequest, err)
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fieldErr.Error(), Field: fieldErr.Field})
		return
	}
	if errors.Is(err, indices.ErrUnknownIndex) {
		h.logError(op, http.StatusBadRequest, err)
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: "index"})
		return
	}

	h.logError(op, http.StatusInternalServerError, err)
	h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string, op string) {
	h.logError(op, status, errors.New(msg))
	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *handler) logError(op string, status int, err error) {
	if h.logger != nil {
		h.logger.Error("calculation request failed",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", err.Error()),
		)
	}
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && h.logger != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
