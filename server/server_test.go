package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pathways/core"
	"github.com/poiesic/pathways/metrics"
	"github.com/poiesic/pathways/storage"
)

// fakePipeline records the last call and answers from its fields.
type fakePipeline struct {
	searchQuery  string
	searchRegion string
	searchOpts   core.SearchOptions
	results      []core.RankedCandidate
	err          error

	programContext string
}

func (f *fakePipeline) Search(ctx context.Context, query, region string, opts core.SearchOptions) ([]core.RankedCandidate, error) {
	f.searchQuery, f.searchRegion, f.searchOpts = query, region, opts
	if strings.TrimSpace(query) == "" {
		return nil, core.ErrEmptyQuery
	}
	if region == "Atlantis" {
		return nil, fmt.Errorf("load records for region %q: %w", region, storage.ErrUnknownRegion)
	}
	return f.results, f.err
}

func (f *fakePipeline) VerifyPrograms(ctx context.Context, records []core.Record, query string, history []core.Turn) ([]core.VerifiedRecord, error) {
	out := make([]core.VerifiedRecord, 0, len(records))
	for _, r := range records {
		out = append(out, core.VerifiedRecord{Record: r, Validation: core.CodeValidation{
			OriginalCode:  r.ClassificationCode,
			ValidatedCode: r.ClassificationCode,
			Valid:         true,
			Source:        core.SourceRules,
		}})
	}
	return out, f.err
}

func (f *fakePipeline) VerifyCareers(ctx context.Context, sets []core.CareerCodeSet, query string, history []core.Turn, programContext string) ([]core.CareerMapping, error) {
	f.programContext = programContext
	out := make([]core.CareerMapping, 0, len(sets))
	for _, s := range sets {
		m := core.CareerMapping{Code: s.Code, Kept: []core.CareerCodeValidation{}, Removed: []core.CareerCodeValidation{}}
		for _, c := range s.CareerCodes {
			m.Kept = append(m.Kept, core.CareerCodeValidation{Code: c, Relevant: true})
		}
		out = append(out, m)
	}
	return out, f.err
}

func (f *fakePipeline) Regions(ctx context.Context) ([]string, error) {
	return []string{"Hawaii", "Oahu"}, nil
}

func newTestServer(t *testing.T, p Pipeline, opts ...Option) *httptest.Server {
	t.Helper()
	s, err := New(p, opts...)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrPipelineRequired)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakePipeline{})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

func TestRegions(t *testing.T) {
	ts := newTestServer(t, &fakePipeline{})

	resp, err := http.Get(ts.URL + "/v1/regions")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"Hawaii", "Oahu"}, body["regions"])
}

func TestSearch(t *testing.T) {
	pipeline := &fakePipeline{results: []core.RankedCandidate{
		{Record: core.Record{InstitutionID: "kapiolani", Description: "Practical Nursing"}, Score: 9, Reason: "direct match", MatchType: core.MatchExact},
	}}
	ts := newTestServer(t, pipeline)

	resp := postJSON(t, ts.URL+"/v1/search", SearchRequest{
		Query:        "nursing",
		Region:       " Oahu ",
		MaxResults:   5,
		Conversation: []core.Turn{{Speaker: core.SpeakerTypeHuman, Content: "I like hospitals"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body SearchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "Practical Nursing", body.Results[0].Record.Description)
	assert.NotEmpty(t, body.RequestID)

	assert.Equal(t, "nursing", pipeline.searchQuery)
	assert.Equal(t, "Oahu", pipeline.searchRegion)
	assert.Equal(t, 5, pipeline.searchOpts.MaxResults)
	assert.Len(t, pipeline.searchOpts.Conversation, 1)
}

func TestSearchEmptyResultsIsArray(t *testing.T) {
	ts := newTestServer(t, &fakePipeline{})

	resp := postJSON(t, ts.URL+"/v1/search", SearchRequest{Query: "glassblowing"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.JSONEq(t, `[]`, string(raw["results"]))
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"empty query", `{"query": "  "}`, http.StatusBadRequest},
		{"unknown region", `{"query": "nursing", "region": "Atlantis"}`, http.StatusBadRequest},
		{"malformed body", `{"query":`, http.StatusBadRequest},
		{"unknown field", `{"query": "nursing", "limit": 3}`, http.StatusBadRequest},
	}
	ts := newTestServer(t, &fakePipeline{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/v1/search", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)

			var body errorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestSearchTimeout(t *testing.T) {
	ts := newTestServer(t, &fakePipeline{err: context.DeadlineExceeded})

	resp := postJSON(t, ts.URL+"/v1/search", SearchRequest{Query: "nursing"})
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
}

func TestVerifyPrograms(t *testing.T) {
	ts := newTestServer(t, &fakePipeline{})

	resp := postJSON(t, ts.URL+"/v1/verify/programs", VerifyProgramsRequest{
		Records: []core.Record{
			{InstitutionID: "manoa", Description: "Nursing (BSN)", ClassificationCode: "51.3801"},
			{InstitutionID: "hilo", Description: "Accounting", ClassificationCode: "52.0301"},
		},
		Query: "nursing",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body VerifyProgramsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Records, 2)
	assert.Equal(t, "51.3801", body.Records[0].Validation.ValidatedCode)
	assert.Equal(t, core.SourceRules, body.Records[1].Validation.Source)
}

func TestVerifyCareers(t *testing.T) {
	pipeline := &fakePipeline{}
	ts := newTestServer(t, pipeline)

	resp := postJSON(t, ts.URL+"/v1/verify/careers", VerifyCareersRequest{
		Mappings:       []core.CareerCodeSet{{Code: "51.3801", CareerCodes: []string{"29-1141"}}},
		Query:          "nursing",
		ProgramContext: "Nursing (BSN)",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body VerifyCareersResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Mappings, 1)
	assert.Equal(t, []string{"29-1141"}, body.Mappings[0].KeptCodes())
	assert.Equal(t, "Nursing (BSN)", pipeline.programContext)
}

func TestMetricsEndpoint(t *testing.T) {
	recorder := metrics.NewRecorder(metrics.DefaultConfig())
	recorder.RecordSearch(10*time.Millisecond, 3, false)
	ts := newTestServer(t, &fakePipeline{}, WithMetrics(recorder))

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	without := newTestServer(t, &fakePipeline{})
	resp2, err := http.Get(without.URL + "/metrics")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s, err := New(&fakePipeline{}, WithShutdownTimeout(time.Second))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
