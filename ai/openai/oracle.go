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

package openai

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/poiesic/pathways/ai"
	"github.com/poiesic/pathways/dispatch"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// Oracle implements ai.Oracle using OpenAI-compatible chat APIs.
type Oracle struct {
	client  llms.Model
	config  *ai.Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// newOracle is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newOracle(config *ai.Config) (*Oracle, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}

	return newOracleWithClient(client, config), nil
}

func newOracleWithClient(client llms.Model, config *ai.Config) *Oracle {
	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		burst := max(1, int(config.RequestsPerSecond))
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}
	return &Oracle{
		client:  client,
		config:  config,
		limiter: limiter,
		logger:  slog.Default().With("component", "openai-oracle"),
	}
}

// NewOracle creates a new oracle using the provided configuration.
//
// Returns ai.Oracle interface to enforce abstraction.
func NewOracle(config *ai.Config) (ai.Oracle, error) {
	return newOracle(config)
}

var statusCode = regexp.MustCompile(`status code:? (\d{3})`)

// rejected reports whether the API refused the request outright. Client
// errors other than timeouts and rate limits will fail the same way again.
func rejected(err error) bool {
	m := statusCode.FindStringSubmatch(err.Error())
	if m == nil {
		return false
	}
	code, _ := strconv.Atoi(m[1])
	return code >= 400 && code < 500 && code != 408 && code != 429
}

// Complete sends the system instructions and user content to the model and
// returns the text of the first choice. Transport failures are retried with
// exponential backoff; each attempt is bounded by the configured timeout.
// Rejected requests and empty responses are not retried.
func (o *Oracle) Complete(ctx context.Context, systemInstructions, userContent string) (string, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(systemInstructions),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(ai.ScrubText(userContent)),
			},
		},
	}

	var text string
	err := dispatch.RetryWithBackoff(ctx, func() error {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
		defer cancel()

		response, err := o.client.GenerateContent(callCtx, content,
			llms.WithTemperature(o.config.Temperature), llms.WithJSONMode())
		if err != nil {
			o.logger.Warn("failed to generate content", "err", err)
			if rejected(err) {
				return dispatch.Permanent(err)
			}
			return err
		}
		if len(response.Choices) < 1 || response.Choices[0].Content == "" {
			o.logger.Debug("no choices returned from model")
			return dispatch.Permanent(ai.ErrEmptyResponse)
		}
		text = response.Choices[0].Content
		return nil
	}, o.config.MaxRetries, o.config.RetryDelay)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ai.ErrUnavailable, err)
	}
	return text, nil
}
