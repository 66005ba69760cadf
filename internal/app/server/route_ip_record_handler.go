package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/eitanMobb/marinus-sm/internal/filter"
	"github.com/eitanMobb/marinus-sm/internal/records"
	"github.com/eitanMobb/marinus-sm/internal/sanitize"
)

const maxSearchBodyBytes = 64 << 10

const (
	selectorAll            = ""
	selectorIP             = "ip"
	selectorTracked        = "tracked"
	selectorManaged        = "managed"
	selectorZone           = "zone"
	selectorDomain         = "domain"
	selectorHostingPartner = "hosting_partner"
	selectorHostCIDR       = "host_cidr"
	selectorVersion        = "version"
)

// First present selector wins.
var selectorOrder = []string{
	selectorIP,
	selectorTracked,
	selectorManaged,
	selectorZone,
	selectorDomain,
	selectorHostingPartner,
	selectorHostCIDR,
	selectorVersion,
}

var errBadRequest = errors.New("bad request")

type ipRecordRequest struct {
	selector string
	value    string
	version  int
	count    bool
	page     filter.Page
}

type ipRecordHandler struct {
	svc *records.Service
}

func (h *ipRecordHandler) query(w http.ResponseWriter, r *http.Request) {
	req, err := parseQueryRequest(sanitize.Query(r.URL.Query()))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.respond(w, r, req)
}

func (h *ipRecordHandler) count(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.CountAll(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (h *ipRecordHandler) search(w http.ResponseWriter, r *http.Request) {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxSearchBodyBytes))
	decoder.UseNumber()

	var body map[string]any
	if err := decoder.Decode(&body); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req, err := parseSearchRequest(sanitize.Object(body))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.respond(w, r, req)
}

func (h *ipRecordHandler) respond(w http.ResponseWriter, r *http.Request, req ipRecordRequest) {
	result, err := h.execute(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ipRecordHandler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, records.ErrInvalidFilter) {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.Error("ip record query failed", "error", err)
	writeError(w, "Failed to query ip records", http.StatusInternalServerError)
}

func (h *ipRecordHandler) execute(ctx context.Context, req ipRecordRequest) (any, error) {
	if req.count {
		count, err := h.countFor(ctx, req)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"count": count}, nil
	}

	switch req.selector {
	case selectorIP:
		return h.svc.FindByIP(ctx, req.value)
	case selectorTracked:
		return h.svc.ListTracked(ctx, req.page)
	case selectorManaged:
		return h.svc.ListManaged(ctx, req.page)
	case selectorZone:
		return h.svc.FindByZone(ctx, req.value)
	case selectorDomain:
		return h.svc.FindByDomain(ctx, req.value)
	case selectorHostingPartner:
		return h.svc.FindByHostPartner(ctx, req.value, req.page)
	case selectorHostCIDR:
		return h.svc.FindByHostCIDR(ctx, req.value)
	case selectorVersion:
		return h.svc.FindByIPVersion(ctx, req.version, req.page)
	default:
		return h.svc.ListAll(ctx, req.page)
	}
}

func (h *ipRecordHandler) countFor(ctx context.Context, req ipRecordRequest) (int64, error) {
	switch req.selector {
	case selectorIP:
		// No dedicated count for address lookups.
		found, err := h.svc.FindByIP(ctx, req.value)
		return int64(len(found)), err
	case selectorTracked:
		return h.svc.CountTracked(ctx)
	case selectorManaged:
		return h.svc.CountManaged(ctx)
	case selectorZone:
		return h.svc.CountByZone(ctx, req.value)
	case selectorDomain:
		return h.svc.CountByDomain(ctx, req.value)
	case selectorHostingPartner:
		return h.svc.CountByHostPartner(ctx, req.value)
	case selectorHostCIDR:
		return h.svc.CountByHostCIDR(ctx, req.value)
	case selectorVersion:
		return h.svc.CountByIPVersion(ctx, req.version)
	default:
		return h.svc.CountAll(ctx)
	}
}

func parseQueryRequest(values url.Values) (ipRecordRequest, error) {
	var req ipRecordRequest

	count, err := queryFlag(values, "count")
	if err != nil {
		return req, err
	}
	req.count = count

	if req.page.Limit, err = queryInt(values, "limit"); err != nil {
		return req, err
	}
	if req.page.Page, err = queryInt(values, "page"); err != nil {
		return req, err
	}

	for _, selector := range selectorOrder {
		if _, ok := values[selector]; !ok {
			continue
		}

		switch selector {
		case selectorTracked, selectorManaged:
			enabled, err := queryFlag(values, selector)
			if err != nil {
				return req, err
			}
			if !enabled {
				continue
			}
		case selectorVersion:
			version, err := strconv.Atoi(strings.TrimSpace(values.Get(selector)))
			if err != nil {
				return req, fmt.Errorf("%w: version must be an integer", errBadRequest)
			}
			req.version = version
		default:
			value := strings.TrimSpace(values.Get(selector))
			if value == "" {
				return req, fmt.Errorf("%w: %s must not be empty", errBadRequest, selector)
			}
			req.value = value
		}

		req.selector = selector
		return req, nil
	}

	req.selector = selectorAll
	return req, nil
}

func parseSearchRequest(body map[string]any) (ipRecordRequest, error) {
	var req ipRecordRequest
	var err error

	if req.count, err = bodyFlag(body, "count"); err != nil {
		return req, err
	}
	if req.page.Limit, err = bodyInt(body, "limit"); err != nil {
		return req, err
	}
	if req.page.Page, err = bodyInt(body, "page"); err != nil {
		return req, err
	}

	for _, selector := range selectorOrder {
		raw, ok := body[selector]
		if !ok {
			continue
		}

		switch selector {
		case selectorTracked, selectorManaged:
			enabled, err := bodyFlag(body, selector)
			if err != nil {
				return req, err
			}
			if !enabled {
				continue
			}
		case selectorVersion:
			version, err := bodyInt(body, selector)
			if err != nil {
				return req, err
			}
			req.version = version
		default:
			clean, err := sanitize.Scalar(raw)
			if err != nil {
				return req, fmt.Errorf("%w: %s: %w", errBadRequest, selector, err)
			}
			value, ok := clean.(string)
			if !ok || strings.TrimSpace(value) == "" {
				return req, fmt.Errorf("%w: %s must be a non-empty string", errBadRequest, selector)
			}
			req.value = strings.TrimSpace(value)
		}

		req.selector = selector
		return req, nil
	}

	req.selector = selectorAll
	return req, nil
}

func queryFlag(values url.Values, key string) (bool, error) {
	if _, ok := values[key]; !ok {
		return false, nil
	}
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return true, nil
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", errBadRequest, key)
	}
	return enabled, nil
}

func queryInt(values url.Values, key string) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, key)
	}
	return parsed, nil
}

func bodyFlag(body map[string]any, key string) (bool, error) {
	raw, ok := body[key]
	if !ok {
		return false, nil
	}

	clean, err := sanitize.Scalar(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", errBadRequest, key, err)
	}

	switch v := clean.(type) {
	case bool:
		return v, nil
	case json.Number:
		return v.String() != "0", nil
	case string:
		enabled, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("%w: %s must be a boolean", errBadRequest, key)
		}
		return enabled, nil
	default:
		return false, fmt.Errorf("%w: %s must be a boolean", errBadRequest, key)
	}
}

func bodyInt(body map[string]any, key string) (int, error) {
	raw, ok := body[key]
	if !ok {
		return 0, nil
	}

	clean, err := sanitize.Scalar(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", errBadRequest, key, err)
	}

	var text string
	switch v := clean.(type) {
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
	default:
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, key)
	}

	parsed, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, key)
	}
	return parsed, nil
}
