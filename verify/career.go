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
	"strings"

	"github.com/poiesic/pathways/cache"
	"github.com/poiesic/pathways/core"
	"github.com/poiesic/pathways/dispatch"
	"github.com/poiesic/pathways/metrics"
)

const (
	careerCacheKind = "verify_career"

	omittedCareerReason = "classifier gave no verdict; kept by default"
)

type careerBatch struct {
	Validations map[string]core.CareerCodeValidation `json:"validations"`
	Failed      bool                                 `json:"-"`
}

// CareerVerifier filters the occupation codes attached to program codes.
type CareerVerifier struct {
	classifier CareerClassifier
	config     Config
	cache      *cache.Layer
	pool       *dispatch.Pool
	metrics    *metrics.Recorder
	logger     *slog.Logger
}

// NewCareerVerifier creates a verifier around classifier.
func NewCareerVerifier(classifier CareerClassifier, opts ...Option) (*CareerVerifier, error) {
	if classifier == nil {
		return nil, ErrClassifierRequired
	}
	s, err := applyOptions("career_verifier", opts)
	if err != nil {
		return nil, err
	}
	return &CareerVerifier{
		classifier: classifier,
		config:     s.config,
		cache:      s.cache,
		pool:       s.pool,
		metrics:    s.metrics,
		logger:     s.logger,
	}, nil
}

// Verify returns one CareerMapping per input set, in input order, with each
// set's occupation codes split into kept and removed.
//
// Each distinct well-formed code is judged once. Malformed codes are removed
// without asking the classifier. When the classifier fails, or leaves a code
// out, the code is kept. The only error is the context's.
func (v *CareerVerifier) Verify(ctx context.Context, sets []core.CareerCodeSet, query string, history []core.Turn, programContext string) ([]core.CareerMapping, error) {
	codes := distinctCareerCodes(sets)

	validations := make(map[string]core.CareerCodeValidation, len(codes))
	if len(codes) > 0 {
		batches, err := dispatch.Split(codes, v.config.BatchSize)
		if err != nil {
			return nil, err
		}
		results := make([]careerBatch, len(batches))
		convo := Conversation{Query: query, History: history}
		err = v.pool.Run(ctx, len(batches), func(ctx context.Context, i int) {
			results[i] = v.verifyBatch(ctx, convo, programContext, batches[i])
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

	out := make([]core.CareerMapping, len(sets))
	for i, set := range sets {
		m := core.CareerMapping{
			Code:    set.Code,
			Kept:    []core.CareerCodeValidation{},
			Removed: []core.CareerCodeValidation{},
		}
		for _, raw := range set.CareerCodes {
			code := strings.TrimSpace(raw)
			val, ok := validations[code]
			if !ok {
				val = AssumeRelevant(code)
			}
			v.metrics.RecordValidation("career", string(val.Source))
			if val.Relevant {
				m.Kept = append(m.Kept, val)
			} else {
				m.Removed = append(m.Removed, val)
			}
		}
		out[i] = m
	}

	v.logger.Debug("verified career codes",
		"mappings", len(sets),
		"codes", len(codes))
	return out, nil
}

// distinctCareerCodes returns the well-formed codes across sets in
// first-seen order.
func distinctCareerCodes(sets []core.CareerCodeSet) []string {
	seen := make(map[string]bool)
	var codes []string
	for _, set := range sets {
		for _, raw := range set.CareerCodes {
			code := strings.TrimSpace(raw)
			if !core.IsCareerCode(code) || seen[code] {
				continue
			}
			seen[code] = true
			codes = append(codes, code)
		}
	}
	return codes
}

func (v *CareerVerifier) verifyBatch(ctx context.Context, convo Conversation, programContext string, batch []string) careerBatch {
	key := v.batchKey(convo, programContext, batch)
	result := cache.Remember(ctx, v.cache, careerCacheKind, key, func(ctx context.Context) (careerBatch, bool) {
		judgments, err := v.classifier.ClassifyCareers(ctx, convo, programContext, batch)
		if err != nil {
			if ctx.Err() == nil {
				v.logger.Warn("career classification failed, keeping codes",
					"codes", len(batch),
					"err", err)
				v.metrics.RecordFallback("career_verifier")
			}
			return careerBatch{Failed: true}, false
		}
		return careerBatch{Validations: v.merge(batch, judgments)}, true
	})

	if result.Failed {
		vals := make(map[string]core.CareerCodeValidation, len(batch))
		for _, code := range batch {
			vals[code] = AssumeRelevant(code)
		}
		return careerBatch{Validations: vals, Failed: true}
	}
	return result
}

func (v *CareerVerifier) merge(batch []string, judgments []CareerJudgment) map[string]core.CareerCodeValidation {
	byCode := make(map[string]CareerJudgment, len(judgments))
	for _, j := range judgments {
		code := strings.TrimSpace(j.Code)
		if _, dup := byCode[code]; !dup {
			byCode[code] = j
		}
	}

	vals := make(map[string]core.CareerCodeValidation, len(batch))
	for _, code := range batch {
		j, ok := byCode[code]
		if !ok {
			val := AssumeRelevant(code)
			val.Reasoning = omittedCareerReason
			vals[code] = val
			continue
		}
		vals[code] = core.CareerCodeValidation{
			Code:       code,
			Relevant:   j.Relevant,
			Family:     core.CareerGroup(code),
			Title:      strings.TrimSpace(j.Title),
			Confidence: clampConfidence(j.Confidence),
			Reasoning:  strings.TrimSpace(j.Reasoning),
			Source:     v.classifier.Source(),
		}
	}
	return vals
}

func (v *CareerVerifier) batchKey(convo Conversation, programContext string, batch []string) string {
	parts := []string{
		string(v.classifier.Source()),
		core.NormalizeText(convo.Query),
		core.ContextHash(convo.History),
		core.NormalizeText(programContext),
	}
	parts = append(parts, batch...)
	return core.Fingerprint(parts...)
}
