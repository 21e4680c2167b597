package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/posform-export/internal/entity"
)

var setters = map[string]func(*entity.Record, string){
	FieldBusinessName: func(r *entity.Record, v string) { r.BusinessName = &v },
	FieldAddress:      func(r *entity.Record, v string) { r.Address = &v },
	FieldSerialNumber: func(r *entity.Record, v string) { r.SerialNumber = &v },
	FieldDeviceModel:  func(r *entity.Record, v string) { r.DeviceModel = &v },
	FieldGroupCode:    func(r *entity.Record, v string) { r.GroupCode = &v },
	FieldNotes:        func(r *entity.Record, v string) { r.Notes = &v },
	FieldMerchantID:   func(r *entity.Record, v string) { r.MerchantID = &v },
	FieldTerminalID:   func(r *entity.Record, v string) { r.SetTerminalID(v) },
}

// FieldExtractor turns document text into a Record using a PatternSet.
// It holds no mutable state and may be shared across goroutines.
type FieldExtractor struct {
	patterns *PatternSet
	logger   *slog.Logger
}

func NewFieldExtractor(patterns *PatternSet, logger *slog.Logger) *FieldExtractor {
	if patterns == nil {
		patterns = DefaultPatternSet()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FieldExtractor{patterns: patterns, logger: logger}
}

// Extract applies every rule to text. Each field is the first match of its
// rule; a rule that does not match leaves the field unset, except the
// terminal id which falls back to "" along with its variant. A failure
// inside one rule only loses that field.
func (e *FieldExtractor) Extract(ctx context.Context, text string) (rec *entity.Record, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("extract.failed", "panic", p)
			rec, err = nil, fmt.Errorf("%w: %v", ErrExtractionFailed, p)
		}
	}()

	rec = &entity.Record{}
	if strings.TrimSpace(text) == "" {
		e.logger.Warn("extract.empty_input")
		rec.ClearTerminalID()
		return rec, nil
	}

	text = normalizeLineEndings(text)
	for _, name := range FieldNames {
		rule, ok := e.patterns.compiled(name)
		if !ok {
			continue
		}
		e.applyRule(rec, rule, text)
	}

	if _, ok := rec.TerminalID(); !ok {
		rec.ClearTerminalID()
	}
	return rec, nil
}

func (e *FieldExtractor) applyRule(rec *entity.Record, rule compiledRule, text string) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Warn("extract.field.failed", "field", rule.Name, "panic", p)
		}
	}()

	v, ok := rule.apply(text)
	if !ok {
		e.logger.Debug("extract.field.missing", "field", rule.Name)
		return
	}
	setters[rule.Name](rec, v)
}

func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\f", "\n")
}
