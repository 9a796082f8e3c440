package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/storm-guidance-service/internal/answer"
	"github.com/couchcryptid/storm-guidance-service/internal/domain"
)

const maxRequestBytes = 16 << 10

type tipsResponse struct {
	Region  string            `json:"region"`
	Name    string            `json:"name,omitempty"`
	Month   string            `json:"month"`
	Risk    *domain.RiskLevel `json:"risk,omitempty"`
	Hazards []string          `json:"hazards"`
	Tips    []string          `json:"tips"`
}

type askRequest struct {
	Question string `json:"question"`
	Region   string `json:"region"`
	Month    string `json:"month"`
}

type askResponse struct {
	Answer    string    `json:"answer"`
	Preferred bool      `json:"preferred"`
	AskedAt   time.Time `json:"asked_at"`
	Error     string    `json:"error,omitempty"`
}

// apiError is a client-facing failure with its HTTP status.
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string { return e.msg }

func writeError(w http.ResponseWriter, err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		sharedobs.WriteJSON(w, ae.status, map[string]string{"error": ae.msg})
		return
	}
	sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.deps.Regions.AllRegions())
}

func (s *Server) handleAssistant(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string]bool{
		"preferred_available": s.deps.Assistant.IsPreferredAvailable(),
	})
}

func (s *Server) handleTips(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	month, err := parseMonth(q.Get("month"))
	if err != nil {
		writeError(w, err)
		return
	}
	region, err := s.resolveRegion(r.Context(), q.Get("region"), q.Get("lat"), q.Get("lon"), q.Get("place"))
	if err != nil {
		writeError(w, err)
		return
	}

	tips := s.deps.Tips.Tips(region, month)
	s.deps.Metrics.TipsServed.Observe(float64(len(tips)))

	resp := tipsResponse{Month: month, Hazards: []string{}, Tips: tips}
	if region != nil {
		risk := domain.PeakRisk(*region, month)
		resp.Region = region.Code
		resp.Name = region.Name
		resp.Risk = &risk
		resp.Hazards = domain.ActiveHazards(*region, month)
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	req, ac, err := s.decodeAsk(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	question, reply, err := s.deps.Assistant.Exchange(r.Context(), req.Question, ac)
	s.record(question, reply)

	resp := askResponse{Answer: reply.Text, Preferred: reply.Preferred, AskedAt: question.CreatedAt}
	if err != nil {
		s.logger.Warn("ask failed", "error", err, "region", reply.Region)
		resp.Error = err.Error()
		sharedobs.WriteJSON(w, http.StatusBadGateway, resp)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNewConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Assistant.NewConversation(r.Context()); err != nil {
		sharedobs.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEndConversation(w http.ResponseWriter, _ *http.Request) {
	s.deps.Assistant.EndConversation()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decodeAsk(w http.ResponseWriter, r *http.Request) (askRequest, domain.AskContext, error) {
	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		return req, domain.AskContext{}, &apiError{http.StatusBadRequest, "invalid request body"}
	}

	month, err := parseMonth(req.Month)
	if err != nil {
		return req, domain.AskContext{}, err
	}
	region, err := s.resolveRegion(r.Context(), req.Region, "", "", "")
	if err != nil {
		return req, domain.AskContext{}, err
	}
	return req, domain.AskContext{Region: region, Month: month}, nil
}

// resolveRegion picks the region from an explicit code, coordinates, or a
// place name, in that order. It returns nil when none is given.
func (s *Server) resolveRegion(ctx context.Context, code, lat, lon, place string) (*domain.Region, error) {
	if code == "" && (lat != "" || lon != "" || place != "") {
		located, err := s.locate(ctx, lat, lon, place)
		if err != nil {
			return nil, err
		}
		code = located
	}
	if code == "" {
		return nil, nil
	}

	region, ok := s.deps.Regions.Region(strings.ToUpper(strings.TrimSpace(code)))
	if !ok {
		return nil, &apiError{http.StatusNotFound, "unknown region " + strconv.Quote(code)}
	}
	return &region, nil
}

func (s *Server) locate(ctx context.Context, lat, lon, place string) (string, error) {
	if s.deps.Locator == nil {
		return "", &apiError{http.StatusBadRequest, "location lookup is disabled; pass region"}
	}

	var (
		code string
		err  error
	)
	if lat != "" || lon != "" {
		latF, errLat := strconv.ParseFloat(lat, 64)
		lonF, errLon := strconv.ParseFloat(lon, 64)
		if errLat != nil || errLon != nil || latF < -90 || latF > 90 || lonF < -180 || lonF > 180 {
			return "", &apiError{http.StatusBadRequest, "invalid coordinates"}
		}
		code, err = s.deps.Locator.LocateRegion(ctx, latF, lonF)
	} else {
		code, err = s.deps.Locator.ResolvePlace(ctx, place)
	}
	if err != nil {
		s.logger.Warn("region lookup failed", "error", err)
		return "", &apiError{http.StatusBadGateway, "region lookup failed"}
	}
	if code == "" {
		return "", &apiError{http.StatusNotFound, "no region found for location"}
	}
	return code, nil
}

func parseMonth(s string) (string, error) {
	if s == "" {
		return domain.CurrentMonth(), nil
	}
	month, ok := domain.NormalizeMonth(s)
	if !ok {
		return "", &apiError{http.StatusBadRequest, "invalid month " + strconv.Quote(s)}
	}
	return month, nil
}

func (s *Server) record(messages ...domain.Message) {
	if s.deps.Journal == nil {
		return
	}
	s.deps.Journal.Record(messages...)
}

// failureAnswer is the answer recorded when a streamed answer fails.
func failureAnswer(preferred bool, ac domain.AskContext) domain.Message {
	return domain.NewAnswer(answer.FailureReply, preferred, ac)
}
