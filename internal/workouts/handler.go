package workouts

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/2beens/liftlog/internal/metrics"
	"github.com/2beens/liftlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type AddRecordResponse struct {
	Record
	CountToday int `json:"countToday"`
}

type ListResponse struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
}

type DeleteRecordsResponse struct {
	Deleted int `json:"deleted"`
}

type ProgressionResponse struct {
	Exercise string             `json:"exercise"`
	Points   []ProgressionPoint `json:"points"`
}

type MaxPerDayResponse struct {
	Entries []MaxPerDayEntry `json:"entries"`
}

type Handler struct {
	store          *Store
	analyzer       *Analyzer
	metricsManager *metrics.Manager
}

func NewHandler(store *Store, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		store:          store,
		analyzer:       NewAnalyzer(store),
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	workoutsRouter := mainRouter.PathPrefix("/workouts").Subrouter()
	workoutsRouter.HandleFunc("", handler.HandleAdd).Methods("POST", "OPTIONS").Name("add-workout-record")
	workoutsRouter.HandleFunc("", handler.HandleList).Methods("GET", "OPTIONS").Name("list-workout-records")
	workoutsRouter.HandleFunc("", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-workout-records")
	workoutsRouter.HandleFunc("/exercises", handler.HandleExercises).Methods("GET", "OPTIONS").Name("exercises")
	workoutsRouter.HandleFunc("/maxperday", handler.HandleMaxPerDay).Methods("GET", "OPTIONS").Name("max-per-day")
	workoutsRouter.HandleFunc("/progression/{exercise}", handler.HandleProgression).Methods("GET", "OPTIONS").Name("progression")
	workoutsRouter.HandleFunc("/export", handler.HandleExportCSV).Methods("GET", "OPTIONS").Name("export-csv")
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	type addRequest struct {
		Exercise string    `json:"exercise"`
		Weight   float64   `json:"weight"`
		Date     time.Time `json:"date"`
	}

	var addReq addRequest
	if err := json.NewDecoder(r.Body).Decode(&addReq); err != nil {
		log.Tracef("new workout record, unmarshal json params: %s", err)
		http.Error(w, "add workout record failed", http.StatusBadRequest)
		return
	}

	if addReq.Exercise == "" {
		http.Error(w, "error, exercise empty", http.StatusBadRequest)
		return
	}

	if addReq.Date.IsZero() {
		addReq.Date = time.Now()
	}

	record, err := handler.store.Add(addReq.Exercise, addReq.Weight, addReq.Date)
	switch {
	case errors.Is(err, ErrInvalidWeight):
		http.Error(w, "error, weight must be greater than zero", http.StatusBadRequest)
		return
	case errors.Is(err, ErrUnknownExercise):
		http.Error(w, "error, unknown exercise", http.StatusBadRequest)
		return
	case err != nil:
		log.Errorf("failed to add new workout record [%s]: %s", addReq.Exercise, err)
		http.Error(w, "error, failed to add new workout record", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterRecordsAdded.Inc()

	addRecordResponse := AddRecordResponse{
		Record:     *record,
		CountToday: handler.store.CountForDay(record.Exercise, record.Date),
	}

	addedRecordJson, err := json.Marshal(addRecordResponse)
	if err != nil {
		log.Errorf("failed to marshal new workout record: %s", err)
		http.Error(w, "error, failed to add new workout record", http.StatusInternalServerError)
		return
	}

	log.Debugf("new workout record added: %s", addedRecordJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedRecordJson, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	var records []Record
	if exercise := r.URL.Query().Get("exercise"); exercise != "" {
		records = handler.store.FilterByExercise(exercise)
	} else {
		records = handler.store.List()
	}

	listResponseJson, err := json.Marshal(ListResponse{
		Records: records,
		Total:   len(records),
	})
	if err != nil {
		log.Errorf("marshal workout records error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, listResponseJson, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	type deleteRequest struct {
		IDs []int `json:"ids"`
	}

	var deleteReq deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&deleteReq); err != nil {
		log.Tracef("delete workout records, unmarshal json params: %s", err)
		http.Error(w, "delete workout records failed", http.StatusBadRequest)
		return
	}

	deleted, err := handler.store.Delete(deleteReq.IDs)
	switch {
	case errors.Is(err, ErrEmptySelection):
		http.Error(w, "error, no records selected to delete", http.StatusBadRequest)
		return
	case err != nil:
		log.Errorf("failed to delete workout records %v: %s", deleteReq.IDs, err)
		http.Error(w, "error, failed to delete workout records", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterRecordsDeleted.Add(float64(deleted))

	deleteRespJson, err := json.Marshal(DeleteRecordsResponse{
		Deleted: deleted,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}

	log.Debugf("deleted %d workout records", deleted)
	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

func (handler *Handler) HandleExercises(w http.ResponseWriter, _ *http.Request) {
	catalogJson, err := json.Marshal(ExerciseCatalog)
	if err != nil {
		log.Errorf("failed to marshal exercise catalog: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, catalogJson, http.StatusOK)
}

func (handler *Handler) HandleProgression(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	exercise := vars["exercise"]
	if exercise == "" {
		http.Error(w, "error, exercise empty", http.StatusBadRequest)
		return
	}
	if !KnownExercise(exercise) {
		http.Error(w, "error, unknown exercise", http.StatusBadRequest)
		return
	}

	progressionJson, err := json.Marshal(ProgressionResponse{
		Exercise: exercise,
		Points:   handler.analyzer.Progression(exercise),
	})
	if err != nil {
		log.Errorf("failed to marshal progression for [%s]: %s", exercise, err)
		http.Error(w, "failed to marshal progression", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, progressionJson, http.StatusOK)
}

func (handler *Handler) HandleMaxPerDay(w http.ResponseWriter, _ *http.Request) {
	maxPerDayJson, err := json.Marshal(MaxPerDayResponse{
		Entries: handler.analyzer.MaxPerDay(),
	})
	if err != nil {
		log.Errorf("failed to marshal max per day entries: %s", err)
		http.Error(w, "failed to marshal max per day entries", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, maxPerDayJson, http.StatusOK)
}

func (handler *Handler) HandleExportCSV(w http.ResponseWriter, _ *http.Request) {
	csvContent, err := handler.store.ExportCSV()
	if err != nil {
		log.Errorf("failed to export workout records csv: %s", err)
		http.Error(w, "failed to export workout records", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="workout_records.csv"`)
	pkg.WriteResponseBytes(w, pkg.ContentType.CSV, csvContent, http.StatusOK)
}
