// File: internal/detector/client.go

// Package detector talks to the UI element parsing service. The service takes
// a raw screenshot and returns an annotated (set-of-mark) copy plus the list
// of detected interface elements.
package detector

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/gazerhq/gazer/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// parseRequest is the wire request of the parsing endpoint.
type parseRequest struct {
	Base64Image string `json:"base64_image"`
}

// parseResponse is the wire response of the parsing endpoint. The image and
// element-list fields are pointers so an absent key is distinguishable from
// an empty value.
type parseResponse struct {
	SOMImageBase64    *string        `json:"som_image_base64"`
	ParsedContentList *[]wireElement `json:"parsed_content_list"`
	Latency           float64        `json:"latency"`
}

type wireElement struct {
	Type          string    `json:"type"`
	Content       string    `json:"content"`
	Interactivity bool      `json:"interactivity"`
	Center        []float64 `json:"center"`
}

// Client is an HTTP client for the detector service. Model inference on the
// service side routinely takes tens of seconds, so the request timeout is
// far above normal HTTP defaults.
type Client struct {
	parseURL   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a detector client for the parse endpoint at parseURL.
func NewClient(parseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		parseURL:   parseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("detector"),
	}
}

// Parse submits a PNG screenshot and returns the annotated screenshot bytes
// together with the detected elements. An empty element list is a valid
// outcome (a blank page has nothing to detect). All service failures are
// reported as ErrUpstreamParsing.
func (c *Client) Parse(ctx context.Context, screenshot []byte) ([]byte, []schemas.UIElement, error) {
	if len(screenshot) == 0 {
		return nil, nil, fmt.Errorf("%w: empty screenshot", schemas.ErrInvalidInput)
	}

	body, err := json.Marshal(parseRequest{
		Base64Image: base64.StdEncoding.EncodeToString(screenshot),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encoding request: %v", schemas.ErrUpstreamParsing, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.parseURL, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: building request: %v", schemas.ErrUpstreamParsing, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Parse request failed", zap.Error(err))
		return nil, nil, fmt.Errorf("%w: %v", schemas.ErrUpstreamParsing, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("Parse request rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return nil, nil, fmt.Errorf("%w: unexpected status %d", schemas.ErrUpstreamParsing, resp.StatusCode)
	}

	var parsed parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, nil, fmt.Errorf("%w: decoding response: %v", schemas.ErrUpstreamParsing, err)
	}
	if parsed.SOMImageBase64 == nil {
		return nil, nil, fmt.Errorf("%w: response missing som_image_base64", schemas.ErrUpstreamParsing)
	}
	if parsed.ParsedContentList == nil {
		return nil, nil, fmt.Errorf("%w: response missing parsed_content_list", schemas.ErrUpstreamParsing)
	}

	annotated, err := base64.StdEncoding.DecodeString(*parsed.SOMImageBase64)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid som_image_base64: %v", schemas.ErrUpstreamParsing, err)
	}

	elements := make([]schemas.UIElement, 0, len(*parsed.ParsedContentList))
	for i, el := range *parsed.ParsedContentList {
		elem := schemas.UIElement{
			ID:      i,
			Type:    schemas.UIElementType(el.Type),
			Content: el.Content,
		}
		if len(el.Center) == 2 {
			elem.Center = []int{int(el.Center[0]), int(el.Center[1])}
		}
		elements = append(elements, elem)
	}

	c.logger.Debug("Screenshot parsed",
		zap.Int("elements", len(elements)),
		zap.Float64("service_latency_s", parsed.Latency),
		zap.Duration("round_trip", time.Since(start)))
	return annotated, elements, nil
}

// CheckHealth probes the service's health endpoint. A non-2xx answer or a
// transport failure means the service is not ready.
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.probeURL(), nil)
	if err != nil {
		return fmt.Errorf("%w: building probe request: %v", schemas.ErrUpstreamParsing, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", schemas.ErrUpstreamParsing, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: probe returned status %d", schemas.ErrUpstreamParsing, resp.StatusCode)
	}
	return nil
}

// probeURL derives the health endpoint from the parse endpoint.
func (c *Client) probeURL() string {
	u, err := url.Parse(c.parseURL)
	if err != nil {
		return strings.TrimSuffix(c.parseURL, "/") + "/probe/"
	}
	u.Path = "/probe/"
	u.RawQuery = ""
	return u.String()
}
