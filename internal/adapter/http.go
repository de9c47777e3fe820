package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/reqledger/go-req-ledger/internal/config"
	"github.com/reqledger/go-req-ledger/internal/logger"
	"github.com/reqledger/go-req-ledger/internal/utils"
	"github.com/reqledger/go-req-ledger/models"
)

type httpServerAdapter struct {
	client *utils.HTTPClient
	tokens TokenSource

	logger *logger.Logger
}

// NewHTTPServerAdapter constructs an HTTP/JSON implementation of
// [ServerAdapter]. It normalises and validates the base URL from
// syncCfg.Endpoint and configures the underlying HTTP client with the
// resolved base URL and request timeout. tokens supplies the bearer token
// attached to each request at send time, so a token refresh never requires
// rebuilding the adapter.
//
// Returns an error if syncCfg.Endpoint is non-empty and cannot be parsed as
// a valid URL. An empty endpoint is allowed at construction time; requests
// fail until SetEndpoint is called with a usable address.
func NewHTTPServerAdapter(syncCfg config.Sync, adapterCfg config.Adapter, tokens TokenSource, logger *logger.Logger) (ServerAdapter, error) {
	client := utils.NewHTTPClient()
	client.SetTimeout(adapterCfg.RequestTimeout)

	a := &httpServerAdapter{client: client, tokens: tokens, logger: logger}

	if syncCfg.Endpoint != "" {
		if err := a.SetEndpoint(syncCfg.Endpoint); err != nil {
			return nil, fmt.Errorf("invalid sync endpoint: %w", err)
		}
	}

	return a, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// SetEndpoint implements [ServerAdapter]. It validates and normalises the
// address, then repoints the underlying client at it.
func (h *httpServerAdapter) SetEndpoint(endpoint string) error {
	baseURL, err := normalizeBaseURL(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}

	h.client.SetBaseURL(baseURL)
	return nil
}

// PushChanges implements [ServerAdapter]. It POSTs the batch to
// POST /api/sync/requests. The batch counts as delivered only when the server
// answers 2xx; on any error the caller keeps the changes queued.
func (h *httpServerAdapter) PushChanges(ctx context.Context, batch models.ChangeBatch) (models.SyncResult, error) {
	var result models.SyncResult

	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(batch).
		SetResult(&result).
		Post("/api/sync/requests")
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("push changes request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.SyncResult{}, err
	}

	return result, nil
}

// SyncDelta implements [ServerAdapter]. It POSTs the incremental payload to
// POST /api/sync and decodes the server's update list from the response body.
func (h *httpServerAdapter) SyncDelta(ctx context.Context, payload any) (models.SyncResponse, error) {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/api/sync")
	if err != nil {
		return models.SyncResponse{}, fmt.Errorf("sync request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.SyncResponse{}, err
	}

	var sr models.SyncResponse
	if err = json.Unmarshal(resp.Body(), &sr); err != nil {
		return models.SyncResponse{}, fmt.Errorf("decode sync response: %w", err)
	}

	return sr, nil
}

// Upload implements [ServerAdapter]. It POSTs the full dataset to
// POST /api/sync/upload.
func (h *httpServerAdapter) Upload(ctx context.Context, payload any) (models.SyncResult, error) {
	var result models.SyncResult

	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		SetResult(&result).
		Post("/api/sync/upload")
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("upload request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.SyncResult{}, err
	}

	return result, nil
}

// Download implements [ServerAdapter]. It GETs GET /api/sync/download with
// the filter criteria encoded as query parameters and decodes the returned
// record list.
func (h *httpServerAdapter) Download(ctx context.Context, query models.DownloadQuery) (models.DownloadResponse, error) {
	req := h.authedRequest(ctx)
	if query.Since > 0 {
		req.SetQueryParam("since", strconv.FormatInt(query.Since, 10))
	}
	if query.Limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(query.Limit))
	}
	if len(query.Methods) > 0 {
		req.SetQueryParam("methods", strings.Join(query.Methods, ","))
	}
	if query.URLLike != "" {
		req.SetQueryParam("urlLike", query.URLLike)
	}

	resp, err := req.Get("/api/sync/download")
	if err != nil {
		return models.DownloadResponse{}, fmt.Errorf("download request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.DownloadResponse{}, err
	}

	var dr models.DownloadResponse
	if err = json.Unmarshal(resp.Body(), &dr); err != nil {
		return models.DownloadResponse{}, fmt.Errorf("decode download response: %w", err)
	}

	return dr, nil
}

// SyncNamed implements [ServerAdapter]. It POSTs options to
// POST /api/sync/{resourceKind}.
func (h *httpServerAdapter) SyncNamed(ctx context.Context, resourceKind string, options any) (models.SyncResult, error) {
	resourceKind = strings.Trim(resourceKind, "/")
	if resourceKind == "" {
		return models.SyncResult{}, fmt.Errorf("%w: empty resource kind", ErrBadRequest)
	}

	var result models.SyncResult

	req := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetResult(&result)
	if options != nil {
		req.SetBody(options)
	}

	resp, err := req.Post("/api/sync/" + url.PathEscape(resourceKind))
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("sync %s request: %w", resourceKind, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.SyncResult{}, err
	}

	return result, nil
}

func (h *httpServerAdapter) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)

	if h.tokens == nil {
		return req
	}

	token, err := h.tokens.CurrentToken()
	if err != nil {
		h.logger.Debug().Err(err).Msg("no usable token, sending anonymous request")
		return req
	}
	if token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}

	return req
}
