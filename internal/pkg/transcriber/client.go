package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"bitbucket.org/airenas/slidego/internal/pkg/cmdapp"
	"bitbucket.org/airenas/slidego/internal/pkg/errs"
	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
	"bitbucket.org/airenas/slidego/internal/pkg/utils"
	"github.com/pkg/errors"
)

// Client comunicates with the speech to text service
type Client struct {
	httpclient *http.Client
	url        string
	key        string
	model      string
}

// NewClient creates a transcriber client
func NewClient() (*Client, error) {
	res := Client{}
	var err error
	res.url, err = utils.GetURLFromConfig("transcriber.url")
	if err != nil {
		return nil, err
	}
	res.key = cmdapp.Config.GetString("transcriber.key")
	if res.key == "" {
		return nil, errors.New("No transcriber.key setting provided")
	}
	res.model = cmdapp.Config.GetString("transcriber.model")
	if res.model == "" {
		res.model = "en_v2"
	}
	res.httpclient = &http.Client{Timeout: time.Minute * 5}
	return &res, nil
}

type trWord struct {
	Text       string `json:"text"`
	StartMs    int    `json:"start_ms"`
	DurationMs int    `json:"duration_ms"`
}

type trResponse struct {
	Text  string   `json:"text"`
	Words []trWord `json:"words"`
}

// Transcribe uploads the audio file and returns the recognized text
// with word level timestamps
func (c *Client) Transcribe(ctx context.Context, filePath string) (*jobs.Transcript, error) {
	cmdapp.Log.Infof("Sending audio to: %s", c.url)
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidInput, err, "can't open audio file")
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, errors.Wrap(err, "Can't add file to request")
	}
	_, err = io.Copy(part, file)
	if err != nil {
		return nil, errors.Wrap(err, "Can't add file to request")
	}
	writer.WriteField("model", c.model)
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		utils.URLJoin(c.url, "v1", "transcribe"), body)
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.key)

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindFromTransport(err), err, "can't call transcriber")
	}
	defer resp.Body.Close()
	if err := utils.ValidateResponse(resp); err != nil {
		return nil, errs.Wrap(errs.KindFromHTTP(resp.StatusCode), err, "transcriber failed")
	}

	var respData trResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, err, "can't decode transcriber response")
	}
	if respData.Text == "" {
		return nil, errs.New(errs.InvalidInput, "empty transcription result")
	}
	return mapTranscript(&respData), nil
}

func mapTranscript(data *trResponse) *jobs.Transcript {
	res := &jobs.Transcript{Text: data.Text}
	for _, w := range data.Words {
		res.Words = append(res.Words, jobs.Word{Word: w.Text,
			Start: float64(w.StartMs) / 1000,
			End:   float64(w.StartMs+w.DurationMs) / 1000})
	}
	return res
}
