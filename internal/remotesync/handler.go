package remotesync

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/2beens/liftlog/internal/metrics"
	"github.com/2beens/liftlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// csvExporter is the part of the record store the sync handler needs.
type csvExporter interface {
	ExportCSV() ([]byte, error)
}

type PushResponse struct {
	SHA     string `json:"sha"`
	Created bool   `json:"created"`
	Size    int    `json:"size"`
}

type StatusResponse struct {
	Exists      bool   `json:"exists"`
	SHA         string `json:"sha,omitempty"`
	Size        int    `json:"size,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

type Handler struct {
	client         *Client
	records        csvExporter
	remoteFilePath string
	metricsManager *metrics.Manager
}

func NewHandler(
	client *Client,
	records csvExporter,
	remoteFilePath string,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		client:         client,
		records:        records,
		remoteFilePath: remoteFilePath,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	syncRouter := mainRouter.PathPrefix("/sync").Subrouter()
	syncRouter.HandleFunc("/push", handler.handlePush).Methods("POST").Name("sync-push")
	syncRouter.HandleFunc("/status", handler.handleStatus).Methods("GET").Name("sync-status")
}

func (handler *Handler) handlePush(w http.ResponseWriter, r *http.Request) {
	csvContent, err := handler.records.ExportCSV()
	if err != nil {
		log.Errorf("sync push, export workout records csv: %s", err)
		http.Error(w, "error, failed to export workout records", http.StatusInternalServerError)
		return
	}

	pushStart := time.Now()
	message := fmt.Sprintf("update workout records: %s", pushStart.Format("2006-01-02 15:04:05"))
	result, err := handler.client.Push(r.Context(), handler.remoteFilePath, csvContent, message)
	switch {
	case errors.Is(err, ErrRemoteRejected):
		log.Warnf("sync push rejected by remote: %s", err)
		http.Error(w, "error, remote file changed, push rejected", http.StatusConflict)
		return
	case errors.Is(err, ErrRemoteUnreachable):
		log.Errorf("sync push, remote unreachable: %s", err)
		http.Error(w, "error, remote unreachable", http.StatusBadGateway)
		return
	case err != nil:
		log.Errorf("sync push failed: %s", err)
		http.Error(w, "error, sync push failed", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterSyncPushes.Inc()
	handler.metricsManager.HistSyncPushDuration.Observe(time.Since(pushStart).Seconds())

	pushRespJson, err := json.Marshal(PushResponse{
		SHA:     result.SHA,
		Created: result.Created,
		Size:    len(csvContent),
	})
	if err != nil {
		log.Errorf("sync push, marshal response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Debugf("sync push done, %d bytes, new sha: %s", len(csvContent), result.SHA)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, pushRespJson, http.StatusOK)
}

func (handler *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	statusResp := StatusResponse{}

	meta, err := handler.client.FetchMeta(r.Context(), handler.remoteFilePath)
	switch {
	case errors.Is(err, ErrRemoteFileNotFound):
		// not an error, the file simply was not pushed yet
	case errors.Is(err, ErrRemoteUnreachable):
		log.Errorf("sync status, remote unreachable: %s", err)
		http.Error(w, "error, remote unreachable", http.StatusBadGateway)
		return
	case err != nil:
		log.Errorf("sync status failed: %s", err)
		http.Error(w, "error, sync status failed", http.StatusInternalServerError)
		return
	default:
		statusResp.Exists = true
		statusResp.SHA = meta.SHA
		statusResp.Size = meta.Size
		statusResp.DownloadURL = meta.DownloadURL
	}

	statusRespJson, err := json.Marshal(statusResp)
	if err != nil {
		log.Errorf("sync status, marshal response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, statusRespJson, http.StatusOK)
}
