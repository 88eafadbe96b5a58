package deck

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bitbucket.org/airenas/slidego/internal/pkg/api"
	"bitbucket.org/airenas/slidego/internal/pkg/errs"
	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
	"bitbucket.org/airenas/slidego/internal/pkg/orchestrator"
	"bitbucket.org/airenas/slidego/internal/pkg/status"
	"github.com/gorilla/mux"
	"github.com/heptiolabs/healthcheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct {
	submitReq   *orchestrator.SubmitRequest
	submitRes   *api.SubmitResult
	submitErr   error
	job         *jobs.Job
	getErr      error
	cancelErr   error
	feedback    string
	feedbackErr error
	confirmErr  error
}

func (f *fakePipeline) Submit(ctx context.Context, req *orchestrator.SubmitRequest) (*api.SubmitResult, error) {
	f.submitReq = req
	return f.submitRes, f.submitErr
}

func (f *fakePipeline) Get(ctx context.Context, id string) (*jobs.Job, error) {
	return f.job, f.getErr
}

func (f *fakePipeline) Cancel(ctx context.Context, id string) error {
	return f.cancelErr
}

func (f *fakePipeline) SubmitFeedback(ctx context.Context, id string, feedback string) (*jobs.Job, error) {
	f.feedback = feedback
	return f.job, f.feedbackErr
}

func (f *fakePipeline) Confirm(ctx context.Context, id string) error {
	return f.confirmErr
}

type fakeSaver struct {
	name string
	err  error
}

func (f *fakeSaver) Save(name string, reader io.Reader) (string, error) {
	f.name = name
	if f.err != nil {
		return "", f.err
	}
	return "/data/uploads/" + name, nil
}

type testRouter struct {
	router   *mux.Router
	pipeline *fakePipeline
	saver    *fakeSaver
}

func newTestRouter(t *testing.T) *testRouter {
	t.Helper()
	res := &testRouter{pipeline: &fakePipeline{
		submitRes: &api.SubmitResult{ID: "id1", Status: "pending", EstimatedTime: 300},
		job:       &jobs.Job{ID: "id1", Status: status.Analyzing, Progress: 30}},
		saver: &fakeSaver{}}
	data := &ServiceData{Pipeline: res.pipeline, FileSaver: res.saver}
	data.health = healthcheck.NewHandler()
	require.Nil(t, initMetrics(data))
	res.router = NewRouter(data)
	return res
}

func newGenerateRequest(t *testing.T, params map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "talk.mp3")
	require.Nil(t, err)
	_, err = part.Write([]byte("olia audio bytes"))
	require.Nil(t, err)
	for k, v := range params {
		require.Nil(t, writer.WriteField(k, v))
	}
	require.Nil(t, writer.Close())
	req := httptest.NewRequest("POST", "/generate", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestGenerate(t *testing.T) {
	tr := newTestRouter(t)
	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, newGenerateRequest(t, map[string]string{"theme": "Dark Mode"}))

	assert.Equal(t, http.StatusOK, resp.Code)
	var res api.SubmitResult
	require.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.Equal(t, "id1", res.ID)
	assert.Equal(t, "pending", res.Status)
	assert.Equal(t, 300, res.EstimatedTime)

	require.NotNil(t, tr.pipeline.submitReq)
	assert.Equal(t, "talk.mp3", tr.pipeline.submitReq.FileName)
	assert.Equal(t, "Dark Mode", tr.pipeline.submitReq.Config.Theme)
	assert.True(t, tr.pipeline.submitReq.Config.IncludeImages)
	assert.False(t, tr.pipeline.submitReq.Config.InteractiveMode)
	assert.True(t, strings.HasSuffix(tr.saver.name, ".mp3"))
	assert.Equal(t, "/data/uploads/"+tr.saver.name, tr.pipeline.submitReq.File)
}

func TestGenerate_Params(t *testing.T) {
	tr := newTestRouter(t)
	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, newGenerateRequest(t, map[string]string{
		"include_images": "false", "interactive_mode": "true", "save_transcription": "true"}))

	assert.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, tr.pipeline.submitReq)
	assert.False(t, tr.pipeline.submitReq.Config.IncludeImages)
	assert.True(t, tr.pipeline.submitReq.Config.InteractiveMode)
	assert.True(t, tr.pipeline.submitReq.Config.SaveTranscript)
}

func TestGenerate_NoFile(t *testing.T) {
	tr := newTestRouter(t)
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.Nil(t, writer.WriteField("theme", "Dark Mode"))
	require.Nil(t, writer.Close())
	req := httptest.NewRequest("POST", "/generate", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "INVALID_INPUT")
}

func TestGenerate_SubmitFails(t *testing.T) {
	tr := newTestRouter(t)
	tr.pipeline.submitErr = errs.New(errs.InvalidInput, "unsupported audio format '.pdf'")
	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, newGenerateRequest(t, nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "unsupported audio format")
}

func TestJob(t *testing.T) {
	tr := newTestRouter(t)
	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, httptest.NewRequest("GET", "/jobs/id1", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	var res api.JobView
	require.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.Equal(t, "id1", res.ID)
	assert.Equal(t, "analyzing", res.Status)
	assert.Equal(t, int32(30), res.Progress)
}

func TestJob_NotFound(t *testing.T) {
	tr := newTestRouter(t)
	tr.pipeline.getErr = errs.New(errs.NotFound, "no job")
	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, httptest.NewRequest("GET", "/jobs/olia", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), "NOT_FOUND")
}

func TestCancel(t *testing.T) {
	tr := newTestRouter(t)
	tr.pipeline.job.Status = status.Cancelled
	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, httptest.NewRequest("DELETE", "/jobs/id1", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	var res api.JobView
	require.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.Equal(t, "cancelled", res.Status)
}

func TestFeedback(t *testing.T) {
	tr := newTestRouter(t)
	tr.pipeline.job = &jobs.Job{ID: "id1", Status: status.Editing,
		Structure: &jobs.Structure{Title: "Deck", Slides: []jobs.Slide{{Title: "One"}}},
		EditLog:   []jobs.EditEvent{{Seq: 1}}}
	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, httptest.NewRequest("POST", "/jobs/id1/edit-structure",
		strings.NewReader(`{"feedback": "remove slide 3"}`)))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "remove slide 3", tr.pipeline.feedback)
	var res api.FeedbackResult
	require.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.Equal(t, 1, res.EditNumber)
	require.NotNil(t, res.Structure)
	assert.Equal(t, "Deck", res.Structure.Title)
}

func TestFeedback_Rejected(t *testing.T) {
	tr := newTestRouter(t)
	tr.pipeline.feedbackErr = errs.New(errs.EditRejected, "would empty the deck")
	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, httptest.NewRequest("POST", "/jobs/id1/edit-structure",
		strings.NewReader(`{"feedback": "remove everything"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, resp.Body.String(), "EDIT_REJECTED")
}

func TestFeedback_BadBody(t *testing.T) {
	tr := newTestRouter(t)
	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, httptest.NewRequest("POST", "/jobs/id1/edit-structure",
		strings.NewReader("olia")))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestConfirm(t *testing.T) {
	tr := newTestRouter(t)
	tr.pipeline.job.Status = status.Generating
	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, httptest.NewRequest("POST", "/jobs/id1/confirm-generation", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	var res api.JobView
	require.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.Equal(t, "generating", res.Status)
}

func TestConfirm_WrongState(t *testing.T) {
	tr := newTestRouter(t)
	tr.pipeline.confirmErr = errs.New(errs.InvalidState, "can't confirm generation in state 'pending'")
	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, httptest.NewRequest("POST", "/jobs/id1/confirm-generation", nil))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), "INVALID_STATE")
}

func TestResult(t *testing.T) {
	tr := newTestRouter(t)
	deck := filepath.Join(t.TempDir(), "id1.pptx")
	require.Nil(t, os.WriteFile(deck, []byte("PK deck bytes"), 0644))
	tr.pipeline.job = &jobs.Job{ID: "id1", Status: status.Completed, DeckFile: deck}

	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, httptest.NewRequest("GET", "/jobs/id1/result", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "PK deck bytes", resp.Body.String())
	assert.Equal(t, "attachment; filename=id1.pptx", resp.Header().Get("Content-Disposition"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		resp.Header().Get("Content-Type"))
}

func TestResult_NotReady(t *testing.T) {
	tr := newTestRouter(t)
	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, httptest.NewRequest("GET", "/jobs/id1/result", nil))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), "no result in state 'analyzing'")
}

func TestTranscription(t *testing.T) {
	tr := newTestRouter(t)
	tr.pipeline.job = &jobs.Job{ID: "id1", Status: status.Completed,
		Config:     jobs.Config{SaveTranscript: true},
		Transcript: &jobs.Transcript{Text: "olia talk", Words: []jobs.Word{{Word: "olia"}}}}
	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, httptest.NewRequest("GET", "/jobs/id1/transcription", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	var res jobs.Transcript
	require.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.Equal(t, "olia talk", res.Text)
	require.Equal(t, 1, len(res.Words))
	assert.Equal(t, "olia", res.Words[0].Word)
}

func TestTranscription_NotSaved(t *testing.T) {
	tr := newTestRouter(t)
	tr.pipeline.job = &jobs.Job{ID: "id1", Status: status.Completed,
		Transcript: &jobs.Transcript{Text: "olia talk"}}
	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, httptest.NewRequest("GET", "/jobs/id1/transcription", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), "no transcription saved")
}

func TestThemes(t *testing.T) {
	tr := newTestRouter(t)
	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, httptest.NewRequest("GET", "/themes", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	var res api.ThemesResult
	require.Nil(t, json.Unmarshal(resp.Body.Bytes(), &res))
	require.Equal(t, len(jobs.Themes), len(res.Themes))
	assert.Equal(t, "Modern Professional", res.Themes[0].Name)
}

func TestWrongPath(t *testing.T) {
	tr := newTestRouter(t)
	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, httptest.NewRequest("GET", "/olia", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestLive(t *testing.T) {
	tr := newTestRouter(t)
	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, httptest.NewRequest("GET", "/live", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestReady(t *testing.T) {
	tr := newTestRouter(t)
	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestProviderDown(t *testing.T) {
	tr := newTestRouter(t)
	tr.pipeline.getErr = errs.New(errs.ProviderUnavailable, "speech service down")
	resp := httptest.NewRecorder()
	tr.router.ServeHTTP(resp, httptest.NewRequest("GET", "/jobs/id1", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
