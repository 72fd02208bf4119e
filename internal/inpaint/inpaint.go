// Package inpaint is a client for the hosted flux-inpaint endpoint: it sends
// a source URL, a mask URL and an instruction and receives the edited image.
package inpaint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

const (
	DefaultEndpoint      = "https://api.segmind.com/v1/flux-inpaint"
	DefaultScheduler     = "FlowMatchEulerDiscreteScheduler"
	DefaultGuidanceScale = 3.5
	DefaultSteps         = 24
	DefaultStrength      = 0.9
	DefaultSamples       = 1
	DefaultTimeout       = 2 * time.Minute

	// maxSeed bounds generated seeds, exclusive.
	maxSeed = 1_000_000
	// maxResultSize caps the image read back from the service.
	maxResultSize = 64 << 20
	// maxErrorBody is how much of a failed response is kept in StatusError.
	maxErrorBody = 512
)

// ErrEmptyPrompt is returned when the prompt has no text after sanitising.
var ErrEmptyPrompt = errors.New("prompt is empty")

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("inpaint service returned %d", e.Code)
	}
	return fmt.Sprintf("inpaint service returned %d: %s", e.Code, e.Body)
}

// Options holds the generation parameters sent with every request.
type Options struct {
	Endpoint      string
	APIKey        string
	Scheduler     string
	GuidanceScale float64
	Steps         int
	Strength      float64
	Samples       int
	Timeout       time.Duration
}

// DefaultOptions returns the service defaults.
func DefaultOptions() Options {
	return Options{
		Endpoint:      DefaultEndpoint,
		Scheduler:     DefaultScheduler,
		GuidanceScale: DefaultGuidanceScale,
		Steps:         DefaultSteps,
		Strength:      DefaultStrength,
		Samples:       DefaultSamples,
		Timeout:       DefaultTimeout,
	}
}

// Request is one inpainting job. ImageURL and MaskURL must be reachable by
// the service. A nil Seed picks a random one.
type Request struct {
	ImageURL       string
	MaskURL        string
	Prompt         string
	NegativePrompt string
	Seed           *int
}

// Result is the generated image.
type Result struct {
	Data        []byte
	ContentType string
	Seed        int
}

type payload struct {
	Image             string  `json:"image"`
	Mask              string  `json:"mask"`
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt"`
	Samples           int     `json:"samples"`
	Scheduler         string  `json:"scheduler"`
	GuidanceScale     float64 `json:"guidance_scale"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	Strength          float64 `json:"strength"`
	Seed              int     `json:"seed"`
	Base64            bool    `json:"base64"`
}

// Client calls the inpainting service.
type Client struct {
	opts   Options
	http   *http.Client
	policy *bluemonday.Policy
	seed   func() int
}

// NewClient fills unset options with defaults. A nil hc gets a client with
// opts.Timeout.
func NewClient(opts Options, hc *http.Client) *Client {
	def := DefaultOptions()
	if opts.Endpoint == "" {
		opts.Endpoint = def.Endpoint
	}
	if opts.Scheduler == "" {
		opts.Scheduler = def.Scheduler
	}
	if opts.GuidanceScale <= 0 {
		opts.GuidanceScale = def.GuidanceScale
	}
	if opts.Steps <= 0 {
		opts.Steps = def.Steps
	}
	if opts.Strength <= 0 {
		opts.Strength = def.Strength
	}
	if opts.Samples <= 0 {
		opts.Samples = def.Samples
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		opts:   opts,
		http:   hc,
		policy: bluemonday.StrictPolicy(),
		seed:   func() int { return rand.IntN(maxSeed) },
	}
}

// SanitizePrompt strips markup and surrounding space from user text. The
// policy escapes what it keeps, so entities are decoded back to plain text.
func (c *Client) SanitizePrompt(s string) string {
	return strings.TrimSpace(html.UnescapeString(c.policy.Sanitize(s)))
}

// Inpaint submits req and returns the generated image.
func (c *Client) Inpaint(ctx context.Context, req Request) (*Result, error) {
	prompt := c.SanitizePrompt(req.Prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	if req.ImageURL == "" || req.MaskURL == "" {
		return nil, fmt.Errorf("image and mask URLs are required")
	}
	seed := c.seed()
	if req.Seed != nil {
		seed = *req.Seed
	}
	body, err := json.Marshal(payload{
		Image:             req.ImageURL,
		Mask:              req.MaskURL,
		Prompt:            prompt,
		NegativePrompt:    c.SanitizePrompt(req.NegativePrompt),
		Samples:           c.opts.Samples,
		Scheduler:         c.opts.Scheduler,
		GuidanceScale:     c.opts.GuidanceScale,
		NumInferenceSteps: c.opts.Steps,
		Strength:          c.opts.Strength,
		Seed:              seed,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	if c.opts.APIKey != "" {
		hreq.Header.Set("x-api-key", c.opts.APIKey)
	}

	resp, err := c.http.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", c.opts.Endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResultSize+1))
	if err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}
	if len(data) > maxResultSize {
		return nil, fmt.Errorf("result exceeds %d bytes", maxResultSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty result")
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	return &Result{Data: data, ContentType: ct, Seed: seed}, nil
}
