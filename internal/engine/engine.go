// Package engine orchestrates monetary correction, interest accrual and fee
// computation over live or estimated index data.
//
// The engine is stateless across calls. Every result that was produced
// without live observations is flagged with IsEstimate and carries a
// human-readable caveat; an estimated figure is never presented as an
// authoritative one.
package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/advtools/calculo-engine/internal/metrics"
	"github.com/advtools/calculo-engine/internal/series"
	"github.com/advtools/calculo-engine/pkg/correction"
	"github.com/advtools/calculo-engine/pkg/datetime"
	"github.com/advtools/calculo-engine/pkg/fees"
	"github.com/advtools/calculo-engine/pkg/indices"
	"github.com/advtools/calculo-engine/pkg/interest"
	"github.com/advtools/calculo-engine/pkg/moneyutil"
	"github.com/advtools/calculo-engine/pkg/validation"
)

var tracer = otel.Tracer("calculo-engine/engine")

// Caveat strings attached to results. They reach generated legal documents,
// so they are written in the language of those documents.
const (
	estimateNote = "Valores estimados pela taxa média mensal do índice; fonte oficial indisponível no momento do cálculo."
	selicNote    = "SELIC já embute correção monetária e juros (EC 113/2021); juros de mora não aplicados separadamente."
)

// estimateSource labels results produced by the fallback path.
const estimateSource = "estimativa (taxa média mensal)"

// SeriesSource supplies index observations. *series.Client implements it;
// tests substitute stubs.
type SeriesSource interface {
	FetchRange(ctx context.Context, code indices.Code, start, end time.Time) (series.RangeResult, error)
	FetchLatest(ctx context.Context, code indices.Code) (series.LatestResult, error)
}

// Options adjusts engine behavior away from the statutory defaults.
type Options struct {
	// Rates replaces the statutory interest rate table when non-zero.
	Rates interest.RateTable
	// FallbackRates overrides the catalog estimate rate per index.
	FallbackRates map[indices.Code]decimal.Decimal
}

// Engine wires the calculators to the time-series source.
type Engine struct {
	source   SeriesSource
	interest *interest.Calculator
	fallback map[indices.Code]decimal.Decimal
	logger   *zap.Logger
}

// New builds an Engine. A nil logger is replaced by a no-op one.
func New(source SeriesSource, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	rates := opts.Rates
	if rates.CivilMonthly.IsZero() && rates.LaborMonthly.IsZero() {
		rates = interest.DefaultRateTable()
	}
	return &Engine{
		source:   source,
		interest: interest.NewCalculator(rates),
		fallback: opts.FallbackRates,
		logger:   logger,
	}
}

// fallbackRate resolves the estimate rate for an index, preferring a
// configured override to the catalog value.
func (e *Engine) fallbackRate(def indices.Definition) decimal.Decimal {
	if rate, ok := e.fallback[def.Code]; ok {
		return rate
	}
	return def.FallbackMonthlyRate
}

// CorrectionOutcome is the result of correcting a monetary value by an index
// over a period.
type CorrectionOutcome struct {
	correction.Result
	Index          indices.Code
	OriginalValue  decimal.Decimal
	CorrectedValue decimal.Decimal
	Source         string
	// Observation carries caveats (estimate notice); empty when none apply.
	Observation string
}

// CombinedRequest asks for correction plus statutory interest in one pass.
type CombinedRequest struct {
	Principal decimal.Decimal
	StartDate time.Time
	EndDate   time.Time
	Index     indices.Code
	Regime    interest.Regime
	// CustomMonthlyRate is consulted only when Regime is RegimeCustom.
	CustomMonthlyRate decimal.Decimal
	ApplyInterest     bool
}

// CombinedResult is the corrected-and-accrued outcome. Monetary fields are
// rounded to currency scale exactly once, here at assembly; the embedded
// correction result keeps full precision.
type CombinedResult struct {
	correction.Result
	Index          indices.Code
	OriginalValue  decimal.Decimal
	CorrectedValue decimal.Decimal
	InterestAmount decimal.Decimal
	FinalValue     decimal.Decimal
	Source         string
	Observation    string
}

// IndexSnapshot is one entry of the current-indices surface.
type IndexSnapshot struct {
	LatestValue decimal.Decimal
	LatestDate  time.Time
	Source      string
	IsEstimate  bool
}

// CorrectValue applies monetary correction by the given index to an amount.
// A failing source degrades to the flagged estimate path; only invalid input
// produces an error.
func (e *Engine) CorrectValue(ctx context.Context, amount decimal.Decimal, start, end time.Time, code indices.Code) (CorrectionOutcome, error) {
	ctx, span := tracer.Start(ctx, "engine.CorrectValue")
	span.SetAttributes(attribute.String("index", string(code)))
	defer span.End()

	if err := validation.PositiveAmount("value", amount); err != nil {
		return CorrectionOutcome{}, err
	}
	if err := validation.Period(start, end); err != nil {
		return CorrectionOutcome{}, err
	}
	def, err := indices.Get(code)
	if err != nil {
		return CorrectionOutcome{}, err
	}

	result, source, caveat := e.resolveCorrection(ctx, def, start, end)
	e.countCalculation("correction", result.IsEstimate)

	return CorrectionOutcome{
		Result:         result,
		Index:          code,
		OriginalValue:  moneyutil.Round(amount),
		CorrectedValue: moneyutil.Round(amount.Mul(result.Factor)),
		Source:         source,
		Observation:    caveat,
	}, nil
}

// Interest runs the interest calculator. The outcome keeps full precision;
// display rounding belongs to the presentation boundary.
func (e *Engine) Interest(req interest.Request) (interest.Outcome, error) {
	outcome, err := e.interest.Calculate(req)
	if err != nil {
		return interest.Outcome{}, err
	}
	e.countCalculation("interest", false)
	return outcome, nil
}

// Combined corrects the principal and accrues statutory interest on the
// corrected base. When the index is SELIC, no separate interest is applied
// regardless of ApplyInterest: the SELIC series already embeds interest for
// this legal context (EC 113/2021).
func (e *Engine) Combined(ctx context.Context, req CombinedRequest) (CombinedResult, error) {
	ctx, span := tracer.Start(ctx, "engine.Combined")
	span.SetAttributes(attribute.String("index", string(req.Index)))
	defer span.End()

	if err := validation.PositiveAmount("principal", req.Principal); err != nil {
		return CombinedResult{}, err
	}
	if err := validation.Period(req.StartDate, req.EndDate); err != nil {
		return CombinedResult{}, err
	}
	def, err := indices.Get(req.Index)
	if err != nil {
		return CombinedResult{}, err
	}

	result, source, caveat := e.resolveCorrection(ctx, def, req.StartDate, req.EndDate)

	correctedFull := req.Principal.Mul(result.Factor)
	interestFull := decimal.Zero

	var notes []string
	if caveat != "" {
		notes = append(notes, caveat)
	}

	switch {
	case req.Index == indices.SELIC:
		// Legal-domain rule, not a numerical one: the SELIC series used here
		// is defined to already include interest.
		notes = append(notes, selicNote)
	case req.ApplyInterest:
		outcome, err := e.interest.Calculate(interest.Request{
			Principal:   correctedFull,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			Regime:      req.Regime,
			MonthlyRate: req.CustomMonthlyRate,
		})
		if err != nil {
			return CombinedResult{}, err
		}
		interestFull = outcome.Interest
	}

	e.countCalculation("combined", result.IsEstimate)

	return CombinedResult{
		Result:         result,
		Index:          req.Index,
		OriginalValue:  moneyutil.Round(req.Principal),
		CorrectedValue: moneyutil.Round(correctedFull),
		InterestAmount: moneyutil.Round(interestFull),
		FinalValue:     moneyutil.Round(correctedFull.Add(interestFull)),
		Source:         source,
		Observation:    strings.Join(notes, " "),
	}, nil
}

// Fee runs the fee calculator. Full precision; display rounding belongs to
// the presentation boundary.
func (e *Engine) Fee(schedule fees.Schedule, caseValue decimal.Decimal) (fees.Outcome, error) {
	outcome, err := fees.Calculate(schedule, caseValue)
	if err != nil {
		return fees.Outcome{}, err
	}
	e.countCalculation("fee", false)
	return outcome, nil
}

// CurrentIndices reports the most recent value of every catalog index. Each
// index resolves independently: a failing fetch yields that index's fallback
// rate flagged as an estimate, never an error.
func (e *Engine) CurrentIndices(ctx context.Context) map[indices.Code]IndexSnapshot {
	ctx, span := tracer.Start(ctx, "engine.CurrentIndices")
	defer span.End()

	snapshots := make(map[indices.Code]IndexSnapshot, len(indices.All()))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, def := range indices.All() {
		wg.Add(1)
		go func(def indices.Definition) {
			defer wg.Done()
			snapshot := e.currentSnapshot(ctx, def)
			mu.Lock()
			snapshots[def.Code] = snapshot
			mu.Unlock()
		}(def)
	}
	wg.Wait()

	estimated := false
	for _, snapshot := range snapshots {
		if snapshot.IsEstimate {
			estimated = true
			break
		}
	}
	e.countCalculation("current_indices", estimated)

	return snapshots
}

func (e *Engine) currentSnapshot(ctx context.Context, def indices.Definition) IndexSnapshot {
	latest, err := e.source.FetchLatest(ctx, def.Code)
	if err != nil {
		e.logger.Warn("falling back to estimated index value",
			zap.String("op", "engine.currentSnapshot"),
			zap.String("index", string(def.Code)),
			zap.Error(err),
		)
		return IndexSnapshot{
			LatestValue: e.fallbackRate(def),
			Source:      estimateSource,
			IsEstimate:  true,
		}
	}
	return IndexSnapshot{
		LatestValue: latest.Observation.Variation,
		LatestDate:  latest.Observation.Date,
		Source:      latest.Source,
	}
}

// resolveCorrection is the single place where the live-versus-estimate
// decision is made. It first attempts the live fetch, then resolves any
// failure through the fallback estimate, returning the result, a source
// label and a caveat string (empty on the live path).
func (e *Engine) resolveCorrection(ctx context.Context, def indices.Definition, start, end time.Time) (correction.Result, string, string) {
	live, source, err := e.attemptLiveFetch(ctx, def.Code, start, end)
	if err == nil {
		return live, source, ""
	}

	e.logger.Warn("time-series fetch failed, using fallback estimate",
		zap.String("op", "engine.resolveCorrection"),
		zap.String("index", string(def.Code)),
		zap.Error(err),
	)

	months := datetime.ElapsedMonths30(start, end)
	estimated := correction.EstimateFactor(e.fallbackRate(def), months)
	return estimated, estimateSource, estimateNote
}

// attemptLiveFetch fetches the observation range and compounds it. Input
// validation has already happened by the time this runs, so every error
// return here is fallback-eligible.
func (e *Engine) attemptLiveFetch(ctx context.Context, code indices.Code, start, end time.Time) (correction.Result, string, error) {
	fetched, err := e.source.FetchRange(ctx, code, start, end)
	if err != nil {
		return correction.Result{}, "", err
	}

	result, err := correction.Compound(fetched.Observations)
	if err != nil {
		return correction.Result{}, "", err
	}

	e.logger.Debug("compounded live observations",
		zap.String("op", "engine.attemptLiveFetch"),
		zap.String("index", string(code)),
		zap.Int("observations", result.ObservationsUsed),
	)
	return result, fetched.Source, nil
}

func (e *Engine) countCalculation(operation string, estimate bool) {
	mode := metrics.ModeLive
	if estimate {
		mode = metrics.ModeEstimate
	}
	metrics.Calculations.WithLabelValues(operation, mode).Inc()
}
