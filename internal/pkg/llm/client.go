package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"bitbucket.org/airenas/slidego/internal/pkg/cmdapp"
	"bitbucket.org/airenas/slidego/internal/pkg/errs"
	"bitbucket.org/airenas/slidego/internal/pkg/utils"
	"github.com/pkg/errors"
)

// Block is one prompt content part. Cache marks the part as stable
// across calls so the provider may reuse it. Behavior is identical
// whether or not the provider honors the hint
type Block struct {
	Text  string
	Cache bool
}

// Completer produces one model completion for the prompt blocks
type Completer interface {
	Complete(ctx context.Context, blocks []Block) (string, error)
}

// Client comunicates with the LLM messages API
type Client struct {
	httpclient *http.Client
	url        string
	key        string
	model      string
	maxTokens  int
}

// NewClient creates an LLM client
func NewClient() (*Client, error) {
	res := Client{}
	var err error
	res.url, err = utils.GetURLFromConfig("llm.url")
	if err != nil {
		return nil, err
	}
	res.key = cmdapp.Config.GetString("llm.key")
	if res.key == "" {
		return nil, errors.New("No llm.key setting provided")
	}
	res.model = cmdapp.Config.GetString("llm.model")
	if res.model == "" {
		return nil, errors.New("No llm.model setting provided")
	}
	res.maxTokens = cmdapp.Config.GetInt("llm.maxTokens")
	if res.maxTokens <= 0 {
		res.maxTokens = 4096
	}
	res.httpclient = &http.Client{Timeout: time.Minute * 3}
	return &res, nil
}

type cacheControl struct {
	Type string `json:"type"`
}

type contentBlock struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *cacheControl `json:"cache_control,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete implements Completer
func (c *Client) Complete(ctx context.Context, blocks []Block) (string, error) {
	content := make([]contentBlock, 0, len(blocks))
	for _, b := range blocks {
		cb := contentBlock{Type: "text", Text: b.Text}
		if b.Cache {
			cb.CacheControl = &cacheControl{Type: "ephemeral"}
		}
		content = append(content, cb)
	}
	reqData := request{Model: c.model, MaxTokens: c.maxTokens,
		Messages: []message{{Role: "user", Content: content}}}
	reqBytes, err := json.Marshal(&reqData)
	if err != nil {
		return "", errors.Wrap(err, "Can't marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		utils.URLJoin(c.url, "v1", "messages"), bytes.NewReader(reqBytes))
	if err != nil {
		return "", errors.Wrap(err, "Can't prepare request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.key)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return "", errs.Wrap(errs.KindFromTransport(err), err, "can't call llm")
	}
	defer resp.Body.Close()
	if err := utils.ValidateResponse(resp); err != nil {
		return "", errs.Wrap(errs.KindFromHTTP(resp.StatusCode), err, "llm failed")
	}

	var respData response
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", errs.Wrap(errs.ProviderUnavailable, err, "can't decode llm response")
	}
	res := ""
	for _, cb := range respData.Content {
		if cb.Type == "text" {
			res += cb.Text
		}
	}
	if res == "" {
		return "", errs.New(errs.ProviderUnavailable, "empty llm response")
	}
	return res, nil
}
