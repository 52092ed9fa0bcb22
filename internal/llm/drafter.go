package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/exposure-tracker/internal/common"
)

// ErrInvalidOutput is returned when the model reply does not satisfy the schema,
// even after lenient sanitization.
var ErrInvalidOutput = errors.New("llm output does not match schema")

// Drafter turns structured prompts into typed drafts on top of any Completer.
type Drafter struct {
	completer Completer
	logger    *slog.Logger
	lenient   bool
}

// DrafterOption configures a Drafter.
type DrafterOption func(*Drafter)

// WithStrictOutput disables lenient sanitization of optional fields.
func WithStrictOutput() DrafterOption {
	return func(d *Drafter) { d.lenient = false }
}

func NewDrafter(c Completer, logger *slog.Logger, opts ...DrafterOption) *Drafter {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Drafter{completer: c, logger: logger, lenient: true}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Provider returns the backing completer's name.
func (d *Drafter) Provider() string {
	return d.completer.Name()
}

// DraftNEA asks the model for a negative exposure assessment draft.
func (d *Drafter) DraftNEA(ctx context.Context, req NEARequest) (NEADraft, []byte, error) {
	var out NEADraft
	if len(req.Summaries) == 0 {
		return out, nil, fmt.Errorf("%w: no analyte summaries", common.ErrInvalidInput)
	}
	raw, err := d.run(ctx, "nea", BuildNEAPrompt(req), &out)
	return out, raw, err
}

// SummarizeLabReport extracts per-sample results from free-form report text.
func (d *Drafter) SummarizeLabReport(ctx context.Context, req LabReportRequest) (LabReportSummary, []byte, error) {
	var out LabReportSummary
	if req.ReportText == "" {
		return out, nil, fmt.Errorf("%w: empty lab report", common.ErrInvalidInput)
	}
	raw, err := d.run(ctx, "lab_report", BuildLabReportPrompt(req), &out)
	return out, raw, err
}

func (d *Drafter) run(ctx context.Context, kind string, p Prompt, dst any) ([]byte, error) {
	start := time.Now()
	provider := d.completer.Name()

	text, err := d.completer.Complete(ctx, p)
	if err != nil {
		d.logger.Error("llm.draft.completion_error", "kind", kind, "provider", provider, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%s completion: %w", provider, err)
	}
	raw := []byte(StripCodeFence(text))

	if err := ValidateJSONAgainstSchema(p.Schema, raw); err != nil {
		if !d.lenient {
			d.logger.Warn("llm.draft.schema_error", "kind", kind, "provider", provider, "error", err)
			return raw, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
		}
		fixed, serr := SanitizeOptionalFields(raw, p.Schema)
		if serr != nil {
			d.logger.Warn("llm.draft.sanitize_error", "kind", kind, "provider", provider, "error", serr)
			return raw, fmt.Errorf("%w: %v", ErrInvalidOutput, serr)
		}
		if verr := ValidateJSONAgainstSchema(p.Schema, fixed); verr != nil {
			d.logger.Warn("llm.draft.schema_error", "kind", kind, "provider", provider, "error", verr)
			return raw, fmt.Errorf("%w: %v", ErrInvalidOutput, verr)
		}
		d.logger.Info("llm.draft.sanitized", "kind", kind, "provider", provider)
		raw = fixed
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return raw, fmt.Errorf("decode %s draft: %w", kind, err)
	}
	d.logger.Info("llm.draft.ok", "kind", kind, "provider", provider, "bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds())
	return raw, nil
}
