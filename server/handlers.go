package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/poiesic/pathways/core"
	"github.com/poiesic/pathways/storage"
)

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Query        string      `json:"query"`
	Region       string      `json:"region,omitempty"`
	MaxResults   int         `json:"max_results,omitempty"`
	MinRelevance int         `json:"min_relevance,omitempty"`
	Conversation []core.Turn `json:"conversation,omitempty"`
}

// SearchResponse is the body returned by POST /v1/search.
type SearchResponse struct {
	RequestID string                 `json:"request_id,omitempty"`
	Results   []core.RankedCandidate `json:"results"`
}

// VerifyProgramsRequest is the body of POST /v1/verify/programs.
type VerifyProgramsRequest struct {
	Records      []core.Record `json:"records"`
	Query        string        `json:"query"`
	Conversation []core.Turn   `json:"conversation,omitempty"`
}

// VerifyProgramsResponse is the body returned by POST /v1/verify/programs.
type VerifyProgramsResponse struct {
	Records []core.VerifiedRecord `json:"records"`
}

// VerifyCareersRequest is the body of POST /v1/verify/careers.
type VerifyCareersRequest struct {
	Mappings       []core.CareerCodeSet `json:"mappings"`
	Query          string               `json:"query"`
	Conversation   []core.Turn          `json:"conversation,omitempty"`
	ProgramContext string               `json:"program_context,omitempty"`
}

// VerifyCareersResponse is the body returned by POST /v1/verify/careers.
type VerifyCareersResponse struct {
	Mappings []core.CareerMapping `json:"mappings"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := s.pipeline.Regions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if regions == nil {
		regions = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"regions": regions})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	results, err := s.pipeline.Search(ctx, req.Query, strings.TrimSpace(req.Region), core.SearchOptions{
		MaxResults:   req.MaxResults,
		MinRelevance: req.MinRelevance,
		Conversation: req.Conversation,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if results == nil {
		results = []core.RankedCandidate{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		RequestID: middleware.GetReqID(r.Context()),
		Results:   results,
	})
}

func (s *Server) handleVerifyPrograms(w http.ResponseWriter, r *http.Request) {
	var req VerifyProgramsRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	verified, err := s.pipeline.VerifyPrograms(ctx, req.Records, req.Query, req.Conversation)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if verified == nil {
		verified = []core.VerifiedRecord{}
	}
	writeJSON(w, http.StatusOK, VerifyProgramsResponse{Records: verified})
}

func (s *Server) handleVerifyCareers(w http.ResponseWriter, r *http.Request) {
	var req VerifyCareersRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	mappings, err := s.pipeline.VerifyCareers(ctx, req.Mappings, req.Query, req.Conversation, req.ProgramContext)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if mappings == nil {
		mappings = []core.CareerMapping{}
	}
	writeJSON(w, http.StatusOK, VerifyCareersResponse{Mappings: mappings})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"path", r.URL.Path,
			"err", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrEmptyQuery),
		errors.Is(err, core.ErrInvalidSearchOptions),
		errors.Is(err, storage.ErrUnknownRegion):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// client went away
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
