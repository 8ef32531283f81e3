package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrAuth marks a credential rejection. Unlike every other failure it
// is terminal: the same key goes to every candidate, so trying the
// next one cannot succeed.
var ErrAuth = errors.New("completions endpoint rejected credentials")

// Candidate is one endpoint and model pairing to try.
type Candidate struct {
	BaseURL string
	Model   string
}

// Candidates pairs one base URL with each model identifier, keeping
// the configured order.
func Candidates(baseURL string, models []string) []Candidate {
	out := make([]Candidate, 0, len(models))
	for _, m := range models {
		out = append(out, Candidate{BaseURL: baseURL, Model: m})
	}
	return out
}

// failureKind classifies one failed attempt.
type failureKind int

const (
	// failTransient covers network errors, rate limits and server
	// errors. The next candidate may still work.
	failTransient failureKind = iota
	// failUnsupported means this endpoint does not serve this model.
	failUnsupported
	// failAuth means the credentials are bad. Terminal.
	failAuth
)

func classify(err error) failureKind {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return failTransient
	}
	switch apiErr.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return failAuth
	case http.StatusNotFound:
		return failUnsupported
	}
	body := strings.ToLower(apiErr.Body)
	if strings.Contains(body, "model not found") ||
		strings.Contains(body, "does not exist") {
		return failUnsupported
	}
	return failTransient
}

// Negotiator walks a candidate list until a completion succeeds. The
// result of a successful negotiation includes the working candidate so
// follow-up turns in the same exchange can reuse it directly instead
// of renegotiating.
type Negotiator struct {
	client     *Client
	candidates []Candidate
}

// NewNegotiator builds a Negotiator over an ordered candidate list.
func NewNegotiator(client *Client, candidates []Candidate) *Negotiator {
	return &Negotiator{client: client, candidates: candidates}
}

// Chat tries each candidate with the request's tool declarations, then
// each candidate again without them. The tools-disabled pass exists
// because some models reject requests that carry tool schemas while
// still serving plain completions; a degraded answer beats none.
//
// A credential rejection aborts both passes immediately with an error
// wrapping [ErrAuth].
func (n *Negotiator) Chat(ctx context.Context, req Request) (*ChatResponse, Candidate, error) {
	passes := [][]map[string]any{req.Tools}
	if len(req.Tools) > 0 {
		passes = append(passes, nil)
	}

	var lastErr error
	var lastCand Candidate
	for _, tools := range passes {
		for _, cand := range n.candidates {
			attempt := req
			attempt.BaseURL = cand.BaseURL
			attempt.Model = cand.Model
			attempt.Tools = tools

			resp, err := n.client.Chat(ctx, attempt)
			if err == nil {
				return resp, cand, nil
			}
			lastErr = err
			lastCand = cand

			switch classify(err) {
			case failAuth:
				n.client.logger.Error("credentials rejected, aborting negotiation",
					"model", cand.Model, "error", err)
				return nil, cand, fmt.Errorf("%w (model %s): check the configured API key: %v",
					ErrAuth, cand.Model, err)
			case failUnsupported:
				n.client.logger.Info("model unavailable, trying next candidate",
					"model", cand.Model, "error", err)
			default:
				n.client.logger.Warn("completion attempt failed, trying next candidate",
					"model", cand.Model, "error", err)
			}
			if ctx.Err() != nil {
				return nil, cand, ctx.Err()
			}
		}
	}

	if lastErr == nil {
		return nil, Candidate{}, errors.New("no model candidates configured")
	}
	hint := "verify the endpoint base URL is reachable and retry shortly"
	if classify(lastErr) == failUnsupported {
		hint = "the endpoint does not serve these models; verify the configured model list"
	}
	return nil, lastCand, fmt.Errorf(
		"all model candidates failed; last attempt %s at %s: %w (%s)",
		lastCand.Model, lastCand.BaseURL, lastErr, hint)
}
