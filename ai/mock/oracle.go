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

package mock

import (
	"context"
	"sync"

	"github.com/poiesic/pathways/ai"
)

// Call records one request made to a MockOracle.
type Call struct {
	System string
	User   string
}

// MockOracle is a test double for ai.Oracle.
// It is safe for concurrent use.
type MockOracle struct {
	// CompleteFunc allows customizing Complete behavior.
	// If nil, every call fails with ai.ErrUnavailable.
	CompleteFunc func(ctx context.Context, system, user string) (string, error)

	mu    sync.Mutex
	calls []Call
}

// NewMockOracle creates a mock oracle with default behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockOracle() *MockOracle {
	return &MockOracle{}
}

// WithCompleteFunc sets CompleteFunc and returns the mock for chaining.
func (m *MockOracle) WithCompleteFunc(fn func(ctx context.Context, system, user string) (string, error)) *MockOracle {
	m.CompleteFunc = fn
	return m
}

// Complete records the call and delegates to CompleteFunc.
func (m *MockOracle) Complete(ctx context.Context, system, user string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{System: system, User: user})
	fn := m.CompleteFunc
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if fn != nil {
		return fn(ctx, system, user)
	}
	return "", ai.ErrUnavailable
}

// CallCount returns the number of times Complete was called.
func (m *MockOracle) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded requests in call order.
func (m *MockOracle) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears the recorded calls and custom functions.
func (m *MockOracle) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.CompleteFunc = nil
}
