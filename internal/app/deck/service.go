package deck

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/airenas/slidego/internal/pkg/api"
	"bitbucket.org/airenas/slidego/internal/pkg/cmdapp"
	"bitbucket.org/airenas/slidego/internal/pkg/errs"
	"bitbucket.org/airenas/slidego/internal/pkg/events"
	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
	"bitbucket.org/airenas/slidego/internal/pkg/orchestrator"
	"bitbucket.org/airenas/slidego/internal/pkg/status"
	"github.com/facebookgo/grace/gracehttp"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heptiolabs/healthcheck"
)

type serviceMetric struct {
	generateResponseDur prometheus.ObserverVec
	generateRequestSize prometheus.ObserverVec

	jobResponseDur prometheus.ObserverVec
}

// Pipeline drives jobs through the generation state machine
type Pipeline interface {
	Submit(ctx context.Context, req *orchestrator.SubmitRequest) (*api.SubmitResult, error)
	Get(ctx context.Context, id string) (*jobs.Job, error)
	Cancel(ctx context.Context, id string) error
	SubmitFeedback(ctx context.Context, id string, feedback string) (*jobs.Job, error)
	Confirm(ctx context.Context, id string) error
}

// FileSaver saves the uploaded audio with the provided name
type FileSaver interface {
	Save(name string, reader io.Reader) (string, error)
}

// ServiceData keeps data required for service work
type ServiceData struct {
	Pipeline  Pipeline
	FileSaver FileSaver
	Bus       *events.Bus

	Port    int
	health  healthcheck.Handler
	metrics serviceMetric
}

// StartWebServer starts the HTTP service and listens for the requests
func StartWebServer(data *ServiceData) error {
	cmdapp.Log.Infof("Starting HTTP service at %d", data.Port)
	r := NewRouter(data)

	portStr := strconv.Itoa(data.Port)
	srv := http.Server{
		Addr:              ":" + portStr,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       180 * time.Second,
		Handler:           r,
	}

	w := cmdapp.Log.Writer()
	defer w.Close()
	l := log.New(w, "", 0)
	gracehttp.SetLogger(l)

	return gracehttp.Serve(&srv)
}

// NewRouter creates the router for HTTP service
func NewRouter(data *ServiceData) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	gh := promhttp.InstrumentHandlerDuration(data.metrics.generateResponseDur,
		promhttp.InstrumentHandlerRequestSize(data.metrics.generateRequestSize, generateHandler{data: data}))
	jh := promhttp.InstrumentHandlerDuration(data.metrics.jobResponseDur, jobHandler{data: data})
	router.Methods("POST").Path("/generate").Handler(gh)
	router.Methods("GET").Path("/jobs/{id}").Handler(jh)
	router.Methods("DELETE").Path("/jobs/{id}").Handler(cancelHandler{data: data})
	router.Methods("POST").Path("/jobs/{id}/edit-structure").Handler(feedbackHandler{data: data})
	router.Methods("POST").Path("/jobs/{id}/confirm-generation").Handler(confirmHandler{data: data})
	router.Methods("GET").Path("/jobs/{id}/result").Handler(resultHandler{data: data})
	router.Methods("GET").Path("/jobs/{id}/transcription").Handler(transcriptionHandler{data: data})
	router.Methods("GET").Path("/themes").Handler(themesHandler{})
	router.Handle("/subscribe", websocketHandler{data: data})
	router.Methods("GET").Path("/metrics").Handler(promhttp.Handler())
	if data.health != nil {
		router.Methods("GET").Path("/live").HandlerFunc(data.health.LiveEndpoint)
		router.Methods("GET").Path("/ready").HandlerFunc(data.health.ReadyEndpoint)
	}
	return router
}

type generateHandler struct {
	data *ServiceData
}

func (h generateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cmdapp.Log.Infof("Generate request from %s", r.Host)

	err := r.ParseMultipartForm(32 << 20)
	if err != nil {
		setError(w, errs.Wrap(errs.InvalidInput, err, "can't parse MultipartForm"))
		return
	}
	defer cleanFiles(r.MultipartForm)

	file, handler, err := r.FormFile("file")
	if err != nil {
		setError(w, errs.New(errs.InvalidInput, "no file"))
		cmdapp.Log.Error(err)
		return
	}
	defer file.Close()

	cfg := jobs.Config{Theme: r.FormValue("theme"),
		IncludeImages:   boolParam(r, "include_images", true),
		InteractiveMode: boolParam(r, "interactive_mode", false),
		SaveTranscript:  boolParam(r, "save_transcription", false)}

	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(handler.Filename))
	saved, err := h.data.FileSaver.Save(id+ext, file)
	if err != nil {
		setError(w, errors.Wrap(err, "can't save file"))
		return
	}

	res, err := h.data.Pipeline.Submit(r.Context(), &orchestrator.SubmitRequest{
		ID: id, File: saved, FileName: handler.Filename,
		SizeMB: float64(handler.Size) / (1 << 20), Config: cfg})
	if err != nil {
		setError(w, err)
		return
	}
	writeJSON(w, res)
}

type jobHandler struct {
	data *ServiceData
}

func (h jobHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	job, err := h.data.Pipeline.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		setError(w, err)
		return
	}
	writeJSON(w, api.NewJobView(job))
}

type cancelHandler struct {
	data *ServiceData
}

func (h cancelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.data.Pipeline.Cancel(r.Context(), id); err != nil {
		setError(w, err)
		return
	}
	job, err := h.data.Pipeline.Get(r.Context(), id)
	if err != nil {
		setError(w, err)
		return
	}
	writeJSON(w, api.NewJobView(job))
}

type feedbackHandler struct {
	data *ServiceData
}

func (h feedbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req api.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		setError(w, errs.Wrap(errs.InvalidInput, err, "can't decode request"))
		return
	}
	job, err := h.data.Pipeline.SubmitFeedback(r.Context(), mux.Vars(r)["id"], req.Feedback)
	if err != nil {
		setError(w, err)
		return
	}
	writeJSON(w, api.FeedbackResult{Structure: job.Structure, EditNumber: len(job.EditLog)})
}

type confirmHandler struct {
	data *ServiceData
}

func (h confirmHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.data.Pipeline.Confirm(r.Context(), id); err != nil {
		setError(w, err)
		return
	}
	job, err := h.data.Pipeline.Get(r.Context(), id)
	if err != nil {
		setError(w, err)
		return
	}
	writeJSON(w, api.NewJobView(job))
}

type resultHandler struct {
	data *ServiceData
}

func (h resultHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	job, err := h.data.Pipeline.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		setError(w, err)
		return
	}
	if job.Status != status.Completed || job.DeckFile == "" {
		setError(w, errs.Errorf(errs.InvalidState, "no result in state '%s'", status.Name(job.Status)))
		return
	}
	file, err := os.Open(job.DeckFile)
	if err != nil {
		setError(w, errors.Wrap(err, "can't open deck file"))
		return
	}
	defer file.Close()
	fileInfo, err := file.Stat()
	if err != nil {
		setError(w, errors.Wrap(err, "can't stat deck file"))
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename="+fileInfo.Name())
	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation")
	http.ServeContent(w, r, fileInfo.Name(), fileInfo.ModTime(), file)
}

type transcriptionHandler struct {
	data *ServiceData
}

func (h transcriptionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	job, err := h.data.Pipeline.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		setError(w, err)
		return
	}
	if !job.Config.SaveTranscript || job.Transcript == nil {
		setError(w, errs.New(errs.NotFound, "no transcription saved"))
		return
	}
	writeJSON(w, job.Transcript)
}

type themesHandler struct {
}

func (h themesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, api.ThemesResult{Themes: jobs.Themes})
}

type errorResult struct {
	ErrorCode string `json:"errorCode"`
	Error     string `json:"error"`
}

func setError(w http.ResponseWriter, err error) {
	cmdapp.Log.Error(err)
	kind := errs.KindOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpCode(kind))
	cmdapp.LogIf(json.NewEncoder(w).Encode(errorResult{ErrorCode: kind.Code(), Error: err.Error()}))
}

func httpCode(kind errs.Kind) int {
	switch kind {
	case errs.InvalidInput:
		return http.StatusBadRequest
	case errs.NotFound:
		return http.StatusNotFound
	case errs.InvalidState:
		return http.StatusConflict
	case errs.EditRejected:
		return http.StatusUnprocessableEntity
	case errs.ProviderUnavailable:
		return http.StatusServiceUnavailable
	case errs.Timeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Can not prepare result", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
	}
}

func boolParam(r *http.Request, name string, def bool) bool {
	v := r.FormValue(name)
	if v == "" {
		return def
	}
	res, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return res
}

func cleanFiles(f *multipart.Form) {
	if f != nil {
		cmdapp.LogIf(f.RemoveAll())
	}
}
