package images

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"bitbucket.org/airenas/slidego/internal/pkg/cmdapp"
	"bitbucket.org/airenas/slidego/internal/pkg/errs"
	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
	"bitbucket.org/airenas/slidego/internal/pkg/utils"
	"github.com/pkg/errors"
)

// Client searches a stock photo service for slide images
type Client struct {
	httpclient *http.Client
	url        string
	key        string
}

// NewClient creates an image search client from config keys
// images.url, images.key
func NewClient() (*Client, error) {
	res := Client{}
	var err error
	res.url, err = utils.GetURLFromConfig("images.url")
	if err != nil {
		return nil, err
	}
	res.key = cmdapp.Config.GetString("images.key")
	if res.key == "" {
		return nil, errors.New("No images.key")
	}
	res.httpclient = &http.Client{Timeout: time.Second * 30}
	return &res, nil
}

type searchResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
		} `json:"urls"`
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		Description string `json:"description"`
		User        struct {
			Name string `json:"name"`
		} `json:"user"`
	} `json:"results"`
}

// Resolve finds one image per query. The result is aligned with the
// input by index. A query with no usable image yields a descriptor
// with Missing set, it never fails the whole batch
func (c *Client) Resolve(ctx context.Context, queries []string) ([]jobs.ImageDescriptor, error) {
	res := make([]jobs.ImageDescriptor, len(queries))
	for i, q := range queries {
		if q == "" {
			res[i] = jobs.ImageDescriptor{Missing: true}
			continue
		}
		img, err := c.search(ctx, q)
		if err != nil {
			return nil, err
		}
		res[i] = *img
	}
	return res, nil
}

func (c *Client) search(ctx context.Context, query string) (*jobs.ImageDescriptor, error) {
	urlStr := utils.URLJoin(c.url, "search", "photos") + "?" + url.Values{
		"query":       []string{query},
		"orientation": []string{"landscape"},
		"per_page":    []string{strconv.Itoa(1)},
	}.Encode()
	cmdapp.Log.Debugf("Searching image for '%s'", query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare request to "+urlStr)
	}
	req.Header.Set("Authorization", "Client-ID "+c.key)
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindFromTransport(err), err, "can't call image service")
	}
	defer resp.Body.Close()
	if err := utils.ValidateResponse(resp); err != nil {
		return nil, errs.Wrap(errs.KindFromHTTP(resp.StatusCode), err, "image search failed")
	}
	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, err, "can't decode image search response")
	}
	if len(sr.Results) == 0 {
		cmdapp.Log.Infof("No image found for '%s'", query)
		return &jobs.ImageDescriptor{Missing: true}, nil
	}
	r := sr.Results[0]
	return &jobs.ImageDescriptor{URL: r.URLs.Regular, Width: r.Width, Height: r.Height,
		Description: r.Description, Attribution: r.User.Name}, nil
}
