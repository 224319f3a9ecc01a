// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package verify

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/pathways/cache"
	"github.com/poiesic/pathways/core"
	"github.com/poiesic/pathways/dispatch"
	"github.com/poiesic/pathways/metrics"
)

const (
	programCacheKind = "verify_program"

	omittedProgramReason = "classifier gave no verdict; format check only"
	correctionReason     = "code reassigned to fit the conversation"
)

// programBatch is the cached outcome of one classifier call.
type programBatch struct {
	Validations map[string]core.CodeValidation `json:"validations"`
	Failed      bool                           `json:"-"`
}

// ProgramVerifier validates the program classification codes of records.
type ProgramVerifier struct {
	classifier ProgramClassifier
	config     Config
	cache      *cache.Layer
	pool       *dispatch.Pool
	metrics    *metrics.Recorder
	logger     *slog.Logger
}

// NewProgramVerifier creates a verifier around classifier.
func NewProgramVerifier(classifier ProgramClassifier, opts ...Option) (*ProgramVerifier, error) {
	if classifier == nil {
		return nil, ErrClassifierRequired
	}
	s, err := applyOptions("program_verifier", opts)
	if err != nil {
		return nil, err
	}
	return &ProgramVerifier{
		classifier: classifier,
		config:     s.config,
		cache:      s.cache,
		pool:       s.pool,
		metrics:    s.metrics,
		logger:     s.logger,
	}, nil
}

// Verify attaches a CodeValidation to every record, in input order.
//
// Records are grouped by distinct code and each code is judged once.
// High-school records pass through without a verdict. Records whose code is
// missing or malformed get the format check. When the classifier fails the
// whole batch falls back to the format check, which never corrects a code.
// The only error is the context's.
func (v *ProgramVerifier) Verify(ctx context.Context, records []core.Record, query string, history []core.Turn) ([]core.VerifiedRecord, error) {
	out := make([]core.VerifiedRecord, len(records))
	samples := v.group(records)

	validations := make(map[string]core.CodeValidation, len(samples))
	if len(samples) > 0 {
		batches, err := dispatch.Split(samples, v.config.BatchSize)
		if err != nil {
			return nil, err
		}
		results := make([]programBatch, len(batches))
		convo := Conversation{Query: query, History: history}
		err = v.pool.Run(ctx, len(batches), func(ctx context.Context, i int) {
			results[i] = v.verifyBatch(ctx, convo, batches[i])
		})
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			for code, val := range r.Validations {
				validations[code] = val
			}
		}
	}

	for i, rec := range records {
		var val core.CodeValidation
		code := strings.TrimSpace(rec.ClassificationCode)
		switch {
		case rec.Level.IsHighSchool():
			val = passthroughValidation(code)
		case validations[code].Source != "":
			val = validations[code]
		default:
			val = FormatValidation(code)
		}
		v.metrics.RecordValidation("program", string(val.Source))
		out[i] = core.VerifiedRecord{Record: rec, Validation: val}
	}

	v.logger.Debug("verified program codes",
		"records", len(records),
		"codes", len(samples))
	return out, nil
}

// group collects the distinct well-formed codes in first-seen order with up
// to SampleDescriptions distinct descriptions each.
func (v *ProgramVerifier) group(records []core.Record) []CodeSample {
	index := make(map[string]int)
	var samples []CodeSample
	for _, rec := range records {
		if rec.Level.IsHighSchool() {
			continue
		}
		code := strings.TrimSpace(rec.ClassificationCode)
		if !core.IsProgramCode(code) && !core.IsProgramFamilyCode(code) {
			continue
		}
		i, ok := index[code]
		if !ok {
			i = len(samples)
			index[code] = i
			samples = append(samples, CodeSample{Code: code})
		}
		s := &samples[i]
		desc := strings.TrimSpace(rec.Description)
		if len(s.Descriptions) < v.config.SampleDescriptions && desc != "" && !slices.Contains(s.Descriptions, desc) {
			s.Descriptions = append(s.Descriptions, desc)
		}
	}
	return samples
}

// verifyBatch judges one batch of codes, consulting the cache first.
func (v *ProgramVerifier) verifyBatch(ctx context.Context, convo Conversation, batch []CodeSample) programBatch {
	result := cache.Remember(ctx, v.cache, programCacheKind, v.batchKey(convo, batch), func(ctx context.Context) (programBatch, bool) {
		judgments, err := v.classifier.ClassifyPrograms(ctx, convo, batch)
		if err != nil {
			if ctx.Err() == nil {
				v.logger.Warn("program classification failed, using format check",
					"codes", len(batch),
					"err", err)
				v.metrics.RecordFallback("program_verifier")
			}
			return programBatch{Failed: true}, false
		}
		return programBatch{Validations: v.merge(batch, judgments)}, true
	})

	if result.Failed {
		vals := make(map[string]core.CodeValidation, len(batch))
		for _, s := range batch {
			vals[s.Code] = FormatValidation(s.Code)
		}
		return programBatch{Validations: vals, Failed: true}
	}
	return result
}

// merge turns judgments into validations. Judgments for codes outside the
// batch are ignored and codes without a judgment get the format check.
func (v *ProgramVerifier) merge(batch []CodeSample, judgments []ProgramJudgment) map[string]core.CodeValidation {
	byCode := make(map[string]ProgramJudgment, len(judgments))
	for _, j := range judgments {
		code := strings.TrimSpace(j.Code)
		if _, dup := byCode[code]; !dup {
			byCode[code] = j
		}
	}

	vals := make(map[string]core.CodeValidation, len(batch))
	for _, s := range batch {
		j, ok := byCode[s.Code]
		if !ok {
			val := FormatValidation(s.Code)
			val.Reasoning = omittedProgramReason
			vals[s.Code] = val
			continue
		}
		vals[s.Code] = v.toValidation(s.Code, j)
	}
	return vals
}

// toValidation applies the correction rules: a correction needs a
// well-formed code different from the original, and always carries a reason.
func (v *ProgramVerifier) toValidation(code string, j ProgramJudgment) core.CodeValidation {
	validated := strings.TrimSpace(j.ValidatedCode)
	if validated != "" && !core.IsProgramCode(validated) {
		v.logger.Debug("ignoring malformed correction", "code", code, "correction", validated)
		validated = ""
	}
	if validated == "" {
		validated = code
	}
	corrected := validated != code

	reasoning := strings.TrimSpace(j.Reasoning)
	if corrected && reasoning == "" {
		reasoning = correctionReason
	}
	family := strings.TrimSpace(j.Family)
	if family == "" || corrected {
		if f := core.ProgramFamily(validated); f != "" {
			family = f
		}
	}

	return core.CodeValidation{
		OriginalCode:  code,
		ValidatedCode: validated,
		Valid:         j.Valid && !corrected,
		Corrected:     corrected,
		Family:        family,
		Category:      strings.TrimSpace(j.Category),
		Confidence:    clampConfidence(j.Confidence),
		Reasoning:     reasoning,
		Source:        v.classifier.Source(),
	}
}

func (v *ProgramVerifier) batchKey(convo Conversation, batch []CodeSample) string {
	parts := []string{
		string(v.classifier.Source()),
		core.NormalizeText(convo.Query),
		core.ContextHash(convo.History),
	}
	for _, s := range batch {
		parts = append(parts, s.Code, strings.Join(s.Descriptions, "\x1f"))
	}
	return core.Fingerprint(parts...)
}
