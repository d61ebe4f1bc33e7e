package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/large-farva/skywindow/internal/window"
)

// findBody is the POST /api/find payload. Omitted fields keep the daemon's
// configured defaults.
type findBody struct {
	Catalog     *string          `json:"catalog"`
	Start       *string          `json:"start"`
	Windows     *int             `json:"windows"`
	Duration    *int             `json:"duration_minutes"`
	SubInterval *int             `json:"sub_interval_minutes"`
	Cumulative  *bool            `json:"cumulative"`
	Location    *window.Observer `json:"location"`
}

// decodeFindBody overrides req with the POST body and reports whether the
// body carried a location.
func (a *App) decodeFindBody(w http.ResponseWriter, r *http.Request, req *window.Request) (bool, error) {
	var body findBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return false, fmt.Errorf("%w: request body: %w", window.ErrInvalidArgument, err)
	}

	if body.Catalog != nil {
		src, err := a.catalogParam(*body.Catalog)
		if err != nil {
			return false, err
		}
		req.CatalogURL = src
	}
	if body.Start != nil {
		t, err := window.ParseInstant(*body.Start)
		if err != nil {
			return false, err
		}
		req.Start = t
	}
	if body.Windows != nil {
		req.Windows = *body.Windows
	}
	if body.Duration != nil {
		req.Duration = *body.Duration
	}
	if body.SubInterval != nil {
		req.SubInterval = *body.SubInterval
	}
	if body.Cumulative != nil {
		req.Cumulative = *body.Cumulative
	}
	if body.Location != nil {
		req.Location = *body.Location
	}
	return body.Location != nil, nil
}

// applyFindQuery overrides req with GET /api/find query parameters and
// reports whether a location was given.
func (a *App) applyFindQuery(r *http.Request, req *window.Request) (bool, error) {
	q := r.URL.Query()
	var err error

	if v := q.Get("catalog"); v != "" {
		if req.CatalogURL, err = a.catalogParam(v); err != nil {
			return false, err
		}
	}
	if v := q.Get("start"); v != "" {
		if req.Start, err = window.ParseInstant(v); err != nil {
			return false, err
		}
	}
	if v := q.Get("windows"); v != "" {
		if req.Windows, err = window.ParseCount("windows", v); err != nil {
			return false, err
		}
	}
	if v := q.Get("duration"); v != "" {
		if req.Duration, err = window.ParseCount("duration", v); err != nil {
			return false, err
		}
	}
	if v := q.Get("sub_interval"); v != "" {
		if req.SubInterval, err = window.ParseCount("sub_interval", v); err != nil {
			return false, err
		}
	}
	if v := q.Get("cumulative"); v != "" {
		if req.Cumulative, err = window.ParseFlag("cumulative", v); err != nil {
			return false, err
		}
	}
	v := q.Get("location")
	if v == "" {
		return false, nil
	}
	if req.Location, err = window.ParseLocation(v); err != nil {
		return false, err
	}
	return true, nil
}

// observerParam reads ?location=lat,lon[,alt], falling back to the station.
func (a *App) observerParam(r *http.Request) (window.Observer, error) {
	if v := r.URL.Query().Get("location"); v != "" {
		return window.ParseLocation(v)
	}
	return a.predictor.ResolveLocation(r.Context()), nil
}

func instantParam(v string, def time.Time) (time.Time, error) {
	if v == "" {
		return def, nil
	}
	return window.ParseInstant(v)
}

// catalogParam vets a client-named catalog source. Empty means the
// configured catalog. Local paths and file URLs are refused so a client
// cannot read the daemon's filesystem.
func (a *App) catalogParam(v string) (string, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "" || v == a.cfg.Catalog.URL:
		return a.cfg.Catalog.URL, nil
	case strings.HasPrefix(v, "embedded:"):
		return v, nil
	case !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://"):
		return "", fmt.Errorf("%w: catalog %q must be an http(s) URL or embedded:<name>", window.ErrInvalidArgument, v)
	}

	allow := a.cfg.Server.CatalogAllow
	if len(allow) == 0 {
		return v, nil
	}
	for _, prefix := range allow {
		if strings.HasPrefix(v, prefix) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: catalog %q is not in server.catalog_allow", window.ErrInvalidArgument, v)
}
