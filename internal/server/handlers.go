package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gymbot/internal/auth"
	"gymbot/internal/excel"
	"gymbot/internal/models"
	"gymbot/internal/repository"

	"github.com/go-chi/chi/v5"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
	// exportLimit сколько записей попадает в xlsx
	exportLimit = 100000
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- auth ---

type authResponse struct {
	Token string        `json:"token"`
	User  auth.Identity `json:"user"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	if s.users != nil && id.AuthType != auth.AuthPassword {
		userID, _ := strconv.ParseInt(id.ID, 10, 64)
		u := models.User{ID: userID, FirstName: id.FirstName, LastName: id.LastName, Username: id.Username}
		if err := s.users.Touch(r.Context(), u, s.now().In(s.loc)); err != nil {
			s.log.Warn("user not registered on login", "user_id", userID, "error", err)
		}
	}

	token, err := s.auth.Issue(id)
	if err != nil {
		s.log.Error("issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	s.log.Info("login", "auth_type", id.AuthType, "subject", id.ID, "role", s.auth.Role(id))
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: id})
}

func (s *Server) handleTelegramLogin(w http.ResponseWriter, r *http.Request) {
	var data auth.LoginData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	id, err := s.auth.VerifyLogin(data)
	if err != nil {
		s.log.Warn("telegram login rejected", "user_id", data.ID, "error", err)
		writeError(w, http.StatusUnauthorized, "invalid Telegram authentication data")
		return
	}
	s.login(w, r, id)
}

func (s *Server) handleWebAppLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InitData string `json:"initData"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	id, err := s.auth.VerifyWebApp(req.InitData)
	if err != nil {
		s.log.Warn("web app login rejected", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid Telegram Web App data")
		return
	}
	s.login(w, r, id)
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	id, err := s.auth.VerifyAdmin(req.Username, req.Password)
	if err != nil {
		s.log.Warn("admin login rejected", "username", req.Username)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	s.login(w, r, id)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, claimsFromContext(r))
}

func (s *Server) handleStaticData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.presets.Get())
}

// --- каталог ---

func (s *Server) handleListMuscles(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	muscles, err := s.catalog.AllMuscles(r.Context())
	if err != nil {
		s.storageError(w, "list muscles", err)
		return
	}
	writeJSON(w, http.StatusOK, page(muscles, skip, limit))
}

type muscleRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateMuscle(w http.ResponseWriter, r *http.Request) {
	var req muscleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	name, err := models.ValidateName("name", req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := s.catalog.CreateMuscle(r.Context(), name)
	if err != nil {
		s.catalogError(w, "create muscle", err, "muscle group with this name already exists")
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleUpdateMuscle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid muscle ID")
		return
	}
	var req muscleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	name, err := models.ValidateName("name", req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := s.catalog.UpdateMuscle(r.Context(), id, name)
	if err != nil {
		s.catalogError(w, "update muscle", err, "muscle group with this name already exists")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	muscleID, err := queryInt(r, "muscle_id", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid muscle_id")
		return
	}
	exercises, err := s.catalog.AllExercises(r.Context(), muscleID)
	if err != nil {
		s.storageError(w, "list exercises", err)
		return
	}
	writeJSON(w, http.StatusOK, page(exercises, skip, limit))
}

type exerciseRequest struct {
	Name   string `json:"name"`
	Muscle int    `json:"muscle"`
}

func (r exerciseRequest) validate() (string, error) {
	name, err := models.ValidateName("name", r.Name)
	if err != nil {
		return "", err
	}
	if r.Muscle <= 0 {
		return "", models.ValidationError{Field: "muscle", Message: "muscle is required"}
	}
	return name, nil
}

func (s *Server) handleCreateExercise(w http.ResponseWriter, r *http.Request) {
	var req exerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	name, err := req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := s.catalog.CreateExercise(r.Context(), name, req.Muscle)
	if err != nil {
		s.catalogError(w, "create exercise", err, "exercise with this name already exists for this muscle group")
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdateExercise(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid exercise ID")
		return
	}
	var req exerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	name, err := req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := s.catalog.UpdateExercise(r.Context(), id, name, req.Muscle)
	if err != nil {
		s.catalogError(w, "update exercise", err, "exercise with this name already exists for this muscle group")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleListTraining(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	trainings, err := s.trainings.ListAll(r.Context(), limit, skip)
	if err != nil {
		s.storageError(w, "list training", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(trainings))
}

// --- данные пользователя ---

func (s *Server) handleUserMuscles(w http.ResponseWriter, r *http.Request) {
	muscles, err := s.catalog.VisibleMuscles(r.Context(), userIDFromContext(r))
	if err != nil {
		s.storageError(w, "user muscles", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(muscles))
}

func (s *Server) handleUserExercises(w http.ResponseWriter, r *http.Request) {
	muscleID, err := queryInt(r, "muscle_id", 0)
	if err != nil || muscleID <= 0 {
		writeError(w, http.StatusBadRequest, "muscle_id parameter required")
		return
	}
	exercises, err := s.catalog.VisibleExercises(r.Context(), userIDFromContext(r), muscleID)
	if err != nil {
		s.storageError(w, "user exercises", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(exercises))
}

func (s *Server) handleUserTraining(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	trainings, err := s.trainings.ListByUser(r.Context(), userIDFromContext(r), limit, skip)
	if err != nil {
		s.storageError(w, "user training", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(trainings))
}

// trainingRequest числа приходят строками из выпадающих списков
type trainingRequest struct {
	MuscleName   string `json:"muscle_name"`
	ExerciseName string `json:"exercise_name"`
	SetID        string `json:"set_id"`
	Weight       string `json:"weight"`
	Reps         string `json:"reps"`
}

func parseReps(s string) (int, error) {
	reps, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, models.ValidationError{Field: "reps", Message: "Reps must be a whole number"}
	}
	return reps, models.ValidateReps(reps)
}

func (s *Server) handleCreateUserTraining(w http.ResponseWriter, r *http.Request) {
	var req trainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	set, err := strconv.Atoi(strings.TrimSpace(req.SetID))
	if err == nil {
		err = models.ValidateSet(set)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid set")
		return
	}
	weight, err := models.ParseWeight(req.Weight)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reps, err := parseReps(req.Reps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry := models.TrainingEntry{
		ID:       s.newID(),
		Date:     s.now().In(s.loc),
		UserID:   userIDFromContext(r),
		Muscle:   strings.TrimSpace(req.MuscleName),
		Exercise: strings.TrimSpace(req.ExerciseName),
		Set:      set,
		Weight:   weight,
		Reps:     reps,
	}
	if err := s.trainings.Save(r.Context(), entry); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "muscle or exercise not found")
			return
		}
		s.storageError(w, "save training", err)
		return
	}
	s.log.Info("training saved via api", "user_id", entry.UserID, "id", entry.ID,
		"muscle", entry.Muscle, "exercise", entry.Exercise)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": entry.ID})
}

func (s *Server) handleUpdateUserTraining(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Weight string `json:"weight"`
		Reps   string `json:"reps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	weight, err := models.ParseWeight(req.Weight)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reps, err := parseReps(req.Reps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = s.trainings.Update(r.Context(), chi.URLParam(r, "id"), userIDFromContext(r), weight, reps)
	if errors.Is(err, repository.ErrAccessDenied) {
		writeError(w, http.StatusNotFound, "training record not found or access denied")
		return
	}
	if err != nil {
		s.storageError(w, "update training", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleExportUserTraining(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r)
	trainings, err := s.trainings.ListByUser(r.Context(), userID, exportLimit, 0)
	if err != nil {
		s.storageError(w, "export training", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="training.xlsx"`)
	if err := excel.WriteTrainings(w, trainings); err != nil {
		s.log.Error("export training", "user_id", userID, "error", err)
	}
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) storageError(w http.ResponseWriter, op string, err error) {
	s.log.Error("storage error", "op", op, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) catalogError(w http.ResponseWriter, op string, err error, conflict string) {
	switch {
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusConflict, conflict)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		s.storageError(w, op, err)
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func parsePage(r *http.Request) (skip, limit int, err error) {
	skip, err = queryInt(r, "skip", 0)
	if err != nil || skip < 0 {
		return 0, 0, errors.New("invalid skip")
	}
	limit, err = queryInt(r, "limit", defaultLimit)
	if err != nil || limit <= 0 {
		return 0, 0, errors.New("invalid limit")
	}
	return skip, min(limit, maxLimit), nil
}

func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	return items[skip:min(skip+limit, len(items))]
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
