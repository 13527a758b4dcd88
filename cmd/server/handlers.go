package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/blackmass/internal/app"
	"github.com/Simplici0/blackmass/internal/comparison"
	"github.com/Simplici0/blackmass/internal/logging"
	"github.com/Simplici0/blackmass/internal/report"
	"github.com/Simplici0/blackmass/internal/scenario"
	"github.com/Simplici0/blackmass/internal/store"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type scenarioListResponse struct {
	Names    []string `json:"names"`
	Current  string   `json:"current"`
	Warnings []string `json:"warnings,omitempty"`
}

type createScenarioRequest struct {
	Name     string `json:"name"`
	CopyFrom string `json:"copy_from"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type entryRequest struct {
	Item  string   `json:"item"`
	Value *float64 `json:"value"`
}

type updateEntryRequest struct {
	Name  *string  `json:"name"`
	Value *float64 `json:"value"`
}

type valueRequest struct {
	Value *float64 `json:"value"`
}

type textRequest struct {
	Text string `json:"text"`
}

type compareRequest struct {
	Scenarios   []string `json:"scenarios"`
	CaseStudies []string `json:"case_studies"`
	Base        string   `json:"base"`
}

type errorResponse struct {
	Error string `json:"error"`
}

var errValueRequired = errors.New("value is required")

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeError(w, http.StatusNotFound, "authentication is disabled")
		return
	}

	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	valid, err := s.auth.validateCredentials(r.Context(), req.Username, req.Password)
	if err != nil {
		s.log.Error(r.Context(), "authentication error", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "authentication error")
		return
	}
	if !valid {
		writeError(w, http.StatusUnauthorized, store.ErrInvalidCredentials.Error())
		return
	}

	s.auth.setSessionCookie(w, req.Username)
	writeJSON(w, http.StatusOK, map[string]string{"username": req.Username})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.auth != nil {
		s.auth.clearSessionCookie(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeError(w, http.StatusNotFound, "authentication is disabled")
		return
	}

	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := s.auth.users.Register(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, store.ErrUserExists):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, store.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.log.Error(r.Context(), "register failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "register failed")
		return
	}

	s.auth.setSessionCookie(w, strings.TrimSpace(req.Username))
	writeJSON(w, http.StatusCreated, map[string]string{"username": strings.TrimSpace(req.Username)})
}

func (s *server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	writeJSON(w, http.StatusOK, scenarioListResponse{Names: st.Names(), Current: st.Current(), Warnings: st.LoadWarnings()})
}

func (s *server) handleCreateScenario(w http.ResponseWriter, r *http.Request) {
	var req createScenarioRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.state(r).Create(r.Context(), strings.TrimSpace(req.Name), req.CopyFrom); err != nil {
		s.writeStateError(w, r, err)
		return
	}
	s.writeScenario(w, r, http.StatusCreated, strings.TrimSpace(req.Name))
}

func (s *server) handleSelectScenario(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	st := s.state(r)
	if err := st.Select(req.Name); err != nil {
		s.writeStateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scenarioListResponse{Names: st.Names(), Current: st.Current()})
}

func (s *server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	s.writeScenario(w, r, http.StatusOK, urlParam(r, "name"))
}

func (s *server) handleRenameScenario(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	newName := strings.TrimSpace(req.Name)
	if err := s.state(r).Rename(r.Context(), urlParam(r, "name"), newName); err != nil {
		s.writeStateError(w, r, err)
		return
	}
	s.writeScenario(w, r, http.StatusOK, newName)
}

func (s *server) handleDeleteScenario(w http.ResponseWriter, r *http.Request) {
	if err := s.state(r).Delete(r.Context(), urlParam(r, "name")); err != nil {
		s.writeStateError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleResults(w http.ResponseWriter, r *http.Request) {
	res, err := s.state(r).Results(urlParam(r, "name"))
	if err != nil {
		s.writeStateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleResultsPDF(w http.ResponseWriter, r *http.Request) {
	res, err := s.state(r).Results(urlParam(r, "name"))
	if err != nil {
		s.writeStateError(w, r, err)
		return
	}
	out, err := report.Scenario(res, s.now())
	if err != nil {
		s.log.Error(r.Context(), "render scenario pdf", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "failed to render pdf")
		return
	}
	writePDF(w, res.Name+".pdf", out)
}

func (s *server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	sec, ok := s.section(w, r)
	if !ok {
		return
	}
	var req entryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Value == nil {
		s.writeStateError(w, r, errValueRequired)
		return
	}
	name := urlParam(r, "name")
	if err := s.state(r).AddEntry(r.Context(), name, sec, req.Item, *req.Value); err != nil {
		s.writeStateError(w, r, err)
		return
	}
	s.writeScenario(w, r, http.StatusCreated, name)
}

// handleUpdateEntry renames the line when name is given and sets its value
// when value is given, as one edit.
func (s *server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	sec, ok := s.section(w, r)
	if !ok {
		return
	}
	var req updateEntryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == nil && req.Value == nil {
		s.writeStateError(w, r, errValueRequired)
		return
	}

	name := urlParam(r, "name")
	if err := s.state(r).UpdateEntry(r.Context(), name, sec, urlParam(r, "item"), req.Name, req.Value); err != nil {
		s.writeStateError(w, r, err)
		return
	}
	s.writeScenario(w, r, http.StatusOK, name)
}

func (s *server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	sec, ok := s.section(w, r)
	if !ok {
		return
	}
	name := urlParam(r, "name")
	if err := s.state(r).DeleteEntry(r.Context(), name, sec, urlParam(r, "item")); err != nil {
		s.writeStateError(w, r, err)
		return
	}
	s.writeScenario(w, r, http.StatusOK, name)
}

func (s *server) handleSetEnergyCost(w http.ResponseWriter, r *http.Request) {
	s.setValue(w, r, (*app.State).SetEnergyCost)
}

func (s *server) handleSetBlackMass(w http.ResponseWriter, r *http.Request) {
	s.setValue(w, r, (*app.State).SetBlackMass)
}

func (s *server) handleAddAssumption(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name := urlParam(r, "name")
	if err := s.state(r).AddAssumption(r.Context(), name, req.Text); err != nil {
		s.writeStateError(w, r, err)
		return
	}
	s.writeScenario(w, r, http.StatusCreated, name)
}

func (s *server) handleSetAssumption(w http.ResponseWriter, r *http.Request) {
	index, ok := s.index(w, r)
	if !ok {
		return
	}
	var req textRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name := urlParam(r, "name")
	if err := s.state(r).SetAssumption(r.Context(), name, index, req.Text); err != nil {
		s.writeStateError(w, r, err)
		return
	}
	s.writeScenario(w, r, http.StatusOK, name)
}

func (s *server) handleDeleteAssumption(w http.ResponseWriter, r *http.Request) {
	index, ok := s.index(w, r)
	if !ok {
		return
	}
	name := urlParam(r, "name")
	if err := s.state(r).DeleteAssumption(r.Context(), name, index); err != nil {
		s.writeStateError(w, r, err)
		return
	}
	s.writeScenario(w, r, http.StatusOK, name)
}

func (s *server) handleAddPhase(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name := urlParam(r, "name")
	if err := s.state(r).AddPhase(r.Context(), name, req.Name); err != nil {
		s.writeStateError(w, r, err)
		return
	}
	s.writeScenario(w, r, http.StatusCreated, name)
}

func (s *server) handleRenamePhase(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name := urlParam(r, "name")
	if err := s.state(r).RenamePhase(r.Context(), name, urlParam(r, "phase"), req.Name); err != nil {
		s.writeStateError(w, r, err)
		return
	}
	s.writeScenario(w, r, http.StatusOK, name)
}

func (s *server) handleDeletePhase(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	if err := s.state(r).DeletePhase(r.Context(), name, urlParam(r, "phase")); err != nil {
		s.writeStateError(w, r, err)
		return
	}
	s.writeScenario(w, r, http.StatusOK, name)
}

func (s *server) handleSetPhaseMass(w http.ResponseWriter, r *http.Request) {
	s.setPhaseValue(w, r, (*app.State).SetPhaseMass)
}

func (s *server) handleDeletePhaseMass(w http.ResponseWriter, r *http.Request) {
	s.deletePhaseValue(w, r, (*app.State).DeletePhaseMass)
}

func (s *server) handleSetPhaseLiquid(w http.ResponseWriter, r *http.Request) {
	s.setPhaseValue(w, r, (*app.State).SetPhaseLiquid)
}

func (s *server) handleDeletePhaseLiquid(w http.ResponseWriter, r *http.Request) {
	s.deletePhaseValue(w, r, (*app.State).DeletePhaseLiquid)
}

func (s *server) handleListCaseStudies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"names": s.state(r).CaseStudies()})
}

func (s *server) handleCompare(w http.ResponseWriter, r *http.Request) {
	res, ok := s.compare(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleComparePDF(w http.ResponseWriter, r *http.Request) {
	res, ok := s.compare(w, r)
	if !ok {
		return
	}
	out, err := report.Comparison(res, s.now())
	if err != nil {
		s.log.Error(r.Context(), "render comparison pdf", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "failed to render pdf")
		return
	}
	writePDF(w, "comparison.pdf", out)
}

func (s *server) compare(w http.ResponseWriter, r *http.Request) (comparison.Result, bool) {
	var req compareRequest
	if !decodeBody(w, r, &req) {
		return comparison.Result{}, false
	}
	res, err := s.state(r).Compare(req.Scenarios, req.CaseStudies, req.Base)
	if err != nil {
		s.writeStateError(w, r, err)
		return comparison.Result{}, false
	}
	return res, true
}

func (s *server) setValue(w http.ResponseWriter, r *http.Request, set func(*app.State, context.Context, string, float64) error) {
	var req valueRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Value == nil {
		s.writeStateError(w, r, errValueRequired)
		return
	}
	name := urlParam(r, "name")
	if err := set(s.state(r), r.Context(), name, *req.Value); err != nil {
		s.writeStateError(w, r, err)
		return
	}
	s.writeScenario(w, r, http.StatusOK, name)
}

func (s *server) setPhaseValue(w http.ResponseWriter, r *http.Request, set func(*app.State, context.Context, string, string, string, float64) error) {
	var req valueRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Value == nil {
		s.writeStateError(w, r, errValueRequired)
		return
	}
	name := urlParam(r, "name")
	if err := set(s.state(r), r.Context(), name, urlParam(r, "phase"), urlParam(r, "key"), *req.Value); err != nil {
		s.writeStateError(w, r, err)
		return
	}
	s.writeScenario(w, r, http.StatusOK, name)
}

func (s *server) deletePhaseValue(w http.ResponseWriter, r *http.Request, del func(*app.State, context.Context, string, string, string) error) {
	name := urlParam(r, "name")
	if err := del(s.state(r), r.Context(), name, urlParam(r, "phase"), urlParam(r, "key")); err != nil {
		s.writeStateError(w, r, err)
		return
	}
	s.writeScenario(w, r, http.StatusOK, name)
}

func (s *server) section(w http.ResponseWriter, r *http.Request) (app.Section, bool) {
	sec, err := app.ParseSection(urlParam(r, "section"))
	if err != nil {
		s.writeStateError(w, r, err)
		return "", false
	}
	return sec, true
}

func (s *server) index(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(urlParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return 0, false
	}
	return index, true
}

func (s *server) writeScenario(w http.ResponseWriter, r *http.Request, status int, name string) {
	sc, err := s.state(r).Scenario(name)
	if err != nil {
		s.writeStateError(w, r, err)
		return
	}
	writeJSON(w, status, sc)
}

// writeStateError maps domain errors to HTTP statuses.
func (s *server) writeStateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, scenario.ErrNotFound), errors.Is(err, app.ErrUnknownCaseStudy):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scenario.ErrDuplicateName), errors.Is(err, app.ErrLastScenario),
		errors.Is(err, comparison.ErrDuplicateName):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, scenario.ErrReservedName), errors.Is(err, scenario.ErrNegativeValue),
		errors.Is(err, scenario.ErrEmptyName), errors.Is(err, app.ErrBlackMassTooSmall),
		errors.Is(err, app.ErrPercentRange),
		errors.Is(err, app.ErrUnknownSection), errors.Is(err, app.ErrIndexOutOfRange),
		errors.Is(err, comparison.ErrNoSources), errors.Is(err, comparison.ErrUnknownBase),
		errors.Is(err, errValueRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error(r.Context(), "request failed", logging.String("path", r.URL.Path), logging.Err(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

// urlParam returns the unescaped route parameter so names may contain spaces.
func urlParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writePDF(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(filename, `"`, "")+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
