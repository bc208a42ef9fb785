package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"fedisync/internal/model"
)

const nodeinfoTimeout = 10 * time.Second

// SoftwareDetector identifies the software an instance runs via its
// nodeinfo document, so newly registered hosts get the right dialect
// backend without the operator stating it.
type SoftwareDetector struct {
	httpClient *http.Client

	mu    sync.Mutex
	cache map[string]model.Software
}

func NewSoftwareDetector() *SoftwareDetector {
	return &SoftwareDetector{
		httpClient: &http.Client{Timeout: nodeinfoTimeout},
		cache:      make(map[string]model.Software),
	}
}

type nodeinfoWellKnown struct {
	Links []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
	} `json:"links"`
}

type nodeinfoDocument struct {
	Software struct {
		Name string `json:"name"`
	} `json:"software"`
}

// Detect maps a host's nodeinfo software name onto a dialect. Software
// with no dedicated backend falls back to the generic read-only one.
func (d *SoftwareDetector) Detect(ctx context.Context, host string) (model.Software, error) {
	d.mu.Lock()
	cached, ok := d.cache[host]
	d.mu.Unlock()
	if ok {
		return cached, nil
	}

	var wellKnown nodeinfoWellKnown
	if err := d.getJSON(ctx, fmt.Sprintf("https://%s/.well-known/nodeinfo", host), &wellKnown); err != nil {
		return "", err
	}

	// prefer the newest schema the host publishes
	var href string
	for _, schema := range []string{"2.1", "2.0", "1.1", "1.0"} {
		rel := "http://nodeinfo.diaspora.software/ns/schema/" + schema
		for _, link := range wellKnown.Links {
			if link.Rel == rel {
				href = link.Href
				break
			}
		}
		if href != "" {
			break
		}
	}
	if href == "" {
		return "", fmt.Errorf("%w: %s publishes no nodeinfo schema link", ErrNotFound, host)
	}

	var doc nodeinfoDocument
	if err := d.getJSON(ctx, href, &doc); err != nil {
		return "", err
	}

	var software model.Software
	switch strings.ToLower(doc.Software.Name) {
	case "lemmy":
		software = model.SoftwareLemmy
	case "mbin", "kbin":
		software = model.SoftwareMbin
	default:
		software = model.SoftwareActivityPub
	}

	d.mu.Lock()
	d.cache[host] = software
	d.mu.Unlock()
	return software, nil
}

func (d *SoftwareDetector) getJSON(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return wrapTransport(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return &StatusError{Code: resp.StatusCode, Body: string(data)}
	}
	return json.NewDecoder(resp.Body).Decode(result)
}
