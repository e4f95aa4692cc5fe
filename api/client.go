package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"melody-gate/debug"
	"melody-gate/melody"
)

// Endpoint paths on the image service
const (
	PathChallenge = "/auth/challenge"
	PathVerify    = "/auth/verify"
	PathGenerate  = "/generate"
)

// RequestIDHeader carries a per-request id so client and server logs line up.
const RequestIDHeader = "X-Request-Id"

// maxImageBytes bounds the generated image we are willing to hold in memory.
const maxImageBytes = 32 << 20

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// ChallengeResult carries the required melody length. Err is set when the
// fetch failed, in which case Length holds the fallback.
type ChallengeResult struct {
	Length int
	Err    error
}

// VerifyResult is the server's verdict on an attempt. Err distinguishes a
// failed request from a wrong melody.
type VerifyResult struct {
	Success bool
	Err     error
}

// GenerateResult is the binary image returned by the service.
type GenerateResult struct {
	Image       []byte
	ContentType string
	Duration    time.Duration
	Err         error
}

// OK reports whether the generation produced an image.
func (r GenerateResult) OK() bool {
	return r.Err == nil && len(r.Image) > 0
}

type challengeResponse struct {
	Melody int `json:"melody"`
}

type verifyRequest struct {
	Attempt []melody.Note `json:"attempt"`
}

type verifyResponse struct {
	Success bool `json:"success"`
}

// GenerateRequest is the body of a generation call.
type GenerateRequest struct {
	Type   string `json:"type"`
	Prompt string `json:"prompt"`
}

// Service is what the gate session needs from the image service.
type Service interface {
	FetchChallenge(ctx context.Context) ChallengeResult
	Verify(ctx context.Context, attempt []melody.Note) VerifyResult
	Generate(ctx context.Context, req GenerateRequest) GenerateResult
}

// Client talks to the image service over HTTP.
type Client struct {
	base          string
	http          *http.Client
	defaultLength int
}

// NewClient creates a client for base, e.g. "https://imagen.ai-n.workers.dev".
// A nil httpClient uses one with the given timeout.
func NewClient(base string, httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		base:          strings.TrimRight(base, "/"),
		http:          httpClient,
		defaultLength: melody.DefaultLength,
	}
}

// WithDefaultLength sets the length reported when the challenge is unavailable.
func (c *Client) WithDefaultLength(n int) *Client {
	if n > 0 {
		c.defaultLength = n
	}
	return c
}

func (c *Client) Base() string { return c.base }

// FetchChallenge asks for the required melody length. It never retries.
func (c *Client) FetchChallenge(ctx context.Context) ChallengeResult {
	res := ChallengeResult{Length: c.defaultLength}

	body, _, err := c.do(ctx, http.MethodGet, PathChallenge, nil)
	if err != nil {
		res.Err = fmt.Errorf("fetch challenge: %w", err)
		return res
	}

	var cr challengeResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		res.Err = fmt.Errorf("decode challenge: %w", err)
		return res
	}
	if cr.Melody > 0 {
		res.Length = cr.Melody
	}
	return res
}

// Verify submits the attempt for checking.
func (c *Client) Verify(ctx context.Context, attempt []melody.Note) VerifyResult {
	if attempt == nil {
		attempt = []melody.Note{}
	}
	body, _, err := c.do(ctx, http.MethodPost, PathVerify, verifyRequest{Attempt: attempt})
	if err != nil {
		return VerifyResult{Err: fmt.Errorf("verify melody: %w", err)}
	}

	var vr verifyResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		return VerifyResult{Err: fmt.Errorf("decode verify: %w", err)}
	}
	return VerifyResult{Success: vr.Success}
}

// Generate requests an image for the prompt.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) GenerateResult {
	start := time.Now()
	body, contentType, err := c.do(ctx, http.MethodPost, PathGenerate, req)
	res := GenerateResult{Duration: time.Since(start)}
	if err != nil {
		res.Err = fmt.Errorf("generation failed: %w", err)
		return res
	}
	if len(body) == 0 {
		res.Err = fmt.Errorf("generation failed: empty response")
		return res
	}
	res.Image = body
	res.ContentType = contentType
	return res
}

// do performs one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, string, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, "", fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, "", err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	id := uuid.NewString()
	req.Header.Set(RequestIDHeader, id)

	debug.Log("api", "%s %s id=%s", method, path, id)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		debug.Log("api", "%s %s id=%s status=%d", method, path, id, resp.StatusCode)
		return nil, "", &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read response: %w", err)
	}
	if len(body) > maxImageBytes {
		return nil, "", fmt.Errorf("response larger than %d bytes", maxImageBytes)
	}
	debug.Log("api", "%s %s id=%s status=%d bytes=%d", method, path, id, resp.StatusCode, len(body))
	return body, resp.Header.Get("Content-Type"), nil
}
