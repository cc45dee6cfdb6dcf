package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"govflow/flow"
)

// TokenSource supplies the bearer credential attached to every request.
// Credential issuance and refresh belong to the session layer, not here.
type TokenSource func() string

// HTTPClient implements Client against the governance backend's REST
// surface.
type HTTPClient struct {
	baseURL string
	token   TokenSource
	http    *http.Client
}

// NewHTTPClient builds a store client for the given base URL.
func NewHTTPClient(baseURL string, token TokenSource) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// WithHTTP swaps the underlying http.Client, mainly for tests.
func (c *HTTPClient) WithHTTP(h *http.Client) *HTTPClient {
	c.http = h
	return c
}

func (c *HTTPClient) FlowsForReviewer(ctx context.Context, profileID string) ([]flow.FlowView, error) {
	var recs []FlowRecord
	path := "/approvalflow/approver/" + url.PathEscape(profileID)
	if err := c.do(ctx, http.MethodGet, path, nil, &recs); err != nil {
		return nil, err
	}
	views := make([]flow.FlowView, 0, len(recs))
	for _, r := range recs {
		views = append(views, r.View())
	}
	return views, nil
}

func (c *HTTPClient) Participants(ctx context.Context, approvalID string) ([]flow.Participant, error) {
	path := "/approvalflowparticipant"
	if approvalID != "" {
		path += "?approvalId=" + url.QueryEscape(approvalID)
	}
	var recs []ParticipantRecord
	if err := c.do(ctx, http.MethodGet, path, nil, &recs); err != nil {
		return nil, err
	}
	parts := make([]flow.Participant, 0, len(recs))
	for _, r := range recs {
		parts = append(parts, r.Participant())
	}
	return parts, nil
}

func (c *HTTPClient) UpdateParticipant(ctx context.Context, p flow.Participant) (flow.Participant, error) {
	var rec ParticipantRecord
	path := "/approvalflowparticipant/" + url.PathEscape(p.ID)
	if err := c.do(ctx, http.MethodPut, path, NewParticipantRecord(p), &rec); err != nil {
		return flow.Participant{}, err
	}
	return rec.Participant(), nil
}

func (c *HTTPClient) UpdateFlow(ctx context.Context, f flow.ApprovalFlow) (flow.ApprovalFlow, error) {
	var rec FlowRecord
	path := "/approvalflow/" + url.PathEscape(f.ApprovalID)
	if err := c.do(ctx, http.MethodPut, path, NewFlowRecord(f), &rec); err != nil {
		return flow.ApprovalFlow{}, err
	}
	return rec.Flow(), nil
}

func (c *HTTPClient) Reject(ctx context.Context, approvalID, profileID, comment string) (RejectResult, error) {
	var resp RejectResponse
	path := "/approvalflow/reject/" + url.PathEscape(approvalID)
	req := RejectRequest{ProfileID: profileID, Comment: comment}
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return RejectResult{}, err
	}
	return RejectResult{
		AffectedParticipants: resp.AffectedParticipants,
		AffectedResources:    resp.AffectedResources,
	}, nil
}

// ResourceLinks queries the flow log search endpoint. The backend may
// return records for other flows; they are filtered out here, matching
// the contract's client-filtered semantics.
func (c *HTTPClient) ResourceLinks(ctx context.Context, approvalID string) ([]flow.ResourceLink, error) {
	path := "/approvalflowlog/search?approvalId=" + url.QueryEscape(approvalID)
	var recs []ResourceRecord
	if err := c.do(ctx, http.MethodGet, path, nil, &recs); err != nil {
		return nil, err
	}
	links := make([]flow.ResourceLink, 0, len(recs))
	for _, r := range recs {
		if r.ApprovalID != approvalID {
			continue
		}
		links = append(links, r.ResourceLink())
	}
	return links, nil
}

// RecordDecision calls the backend's atomic decision endpoint.
func (c *HTTPClient) RecordDecision(ctx context.Context, approvalID, profileID, comment string) (flow.Status, error) {
	var resp DecisionResponse
	path := "/approvalflow/decision/" + url.PathEscape(approvalID)
	req := DecisionRequest{ProfileID: profileID, Comment: comment}
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return "", err
	}
	return flow.Status(resp.Status), nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("store: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("store: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode, method, path); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", ErrTransport, method, path, err)
	}
	return nil
}

func classifyStatus(code int, method, path string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	case code == http.StatusConflict:
		return fmt.Errorf("%w: %s %s", ErrConflict, method, path)
	case code == http.StatusPreconditionFailed:
		return fmt.Errorf("%w: %s %s", ErrInvalidState, method, path)
	default:
		return fmt.Errorf("%w: %s %s returned %d", ErrTransport, method, path, code)
	}
}
