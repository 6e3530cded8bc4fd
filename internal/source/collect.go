package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/maplanning/lead-scout/internal/model"
	"github.com/maplanning/lead-scout/internal/resilience"
)

// CollectOptions is the per-source failure policy.
type CollectOptions struct {
	// Timeout bounds one source including retries. Default: 45s.
	Timeout time.Duration

	// MaxRetries counts retries after the first attempt, transient errors
	// only. Negative keeps the resilience default.
	MaxRetries int

	// Breakers, when set, skip sources that keep failing.
	Breakers *resilience.SourceBreakers
}

// Outcome is what Collect returns for one source. Leads is never nil for a
// failed source: it holds the synthetic fallback.
type Outcome struct {
	Source    string
	Leads     []model.CanonicalLead
	Warnings  []model.Warning
	Synthetic bool
	Elapsed   time.Duration
}

// Collect fetches from src under opts and never fails. On any error the
// synthetic fallback for d is returned with a source_unavailable warning.
// Records missing canonical fields are reported as one malformed_record
// warning.
func Collect(ctx context.Context, src Source, d Descriptor, w Window, opts CollectOptions) Outcome {
	log := zap.L().With(zap.String("component", "source.collect"), zap.String("source", src.Name()))
	start := time.Now()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fetch := func(ctx context.Context) ([]model.CanonicalLead, error) {
		return resilience.DoVal(ctx, resilience.RetryFromSettings(opts.MaxRetries, src.Name()),
			func(ctx context.Context) ([]model.CanonicalLead, error) {
				return src.Fetch(ctx, w)
			})
	}

	var (
		leads []model.CanonicalLead
		err   error
	)
	if opts.Breakers != nil {
		leads, err = resilience.ExecuteVal(ctx, opts.Breakers.Get(src.Name()), fetch)
	} else {
		leads, err = fetch(ctx)
	}

	out := Outcome{Source: src.Name(), Elapsed: time.Since(start)}
	if err != nil {
		ue := &UnavailableError{Source: src.Name(), Err: err}
		log.Warn("source unavailable, using synthetic fallback", zap.Error(err))
		out.Leads = Fallback(d, w)
		out.Synthetic = true
		out.Warnings = append(out.Warnings, ue.Warning())
		return out
	}

	out.Leads = make([]model.CanonicalLead, 0, len(leads))
	for _, l := range leads {
		l.SourceID = src.Name()
		l.IsSynthetic = false
		out.Leads = append(out.Leads, l.Normalize())
	}
	if mw := malformedWarning(src.Name(), out.Leads); mw != nil {
		out.Warnings = append(out.Warnings, *mw)
	}

	log.Info("source fetched",
		zap.Int("leads", len(out.Leads)),
		zap.Duration("elapsed", out.Elapsed),
	)
	return out
}

// malformedWarning summarizes leads whose identifying fields fell back to NA.
func malformedWarning(source string, leads []model.CanonicalLead) *model.Warning {
	missing := map[string]int{}
	affected := 0
	for _, l := range leads {
		hit := false
		for name, v := range map[string]string{
			"reference":   l.Reference,
			"address":     l.Address,
			"description": l.Description,
		} {
			if v == model.NA {
				missing[name]++
				hit = true
			}
		}
		if hit {
			affected++
		}
	}
	if affected == 0 {
		return nil
	}

	var parts []string
	for _, name := range []string{"reference", "address", "description"} {
		if n := missing[name]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", name, n))
		}
	}
	return &model.Warning{
		Kind:    model.KindMalformedRecord,
		Source:  source,
		Message: fmt.Sprintf("%d of %d records missing fields filled with %s (%s)", affected, len(leads), model.NA, strings.Join(parts, ", ")),
	}
}
