// Package discovery resolves the broker address from a service registry.
// The registrar instance advertises the address in its metadata; when the
// registry is unreachable or has no usable instance the fallback is used.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// MetadataKey is the registrar metadata entry holding the broker URL.
	MetadataKey = "brokerUrl"
	httpTimeout = 10 * time.Second
)

// Resolver caches the last resolved broker address.
type Resolver struct {
	registryURL string
	app         string
	fallback    string
	client      *http.Client
	log         *slog.Logger

	mu   sync.RWMutex
	addr string
}

// NewResolver returns a Resolver that answers fallback until the first
// successful Refresh. An empty registryURL disables lookups.
func NewResolver(registryURL, app, fallback string, log *slog.Logger) *Resolver {
	return &Resolver{
		registryURL: strings.TrimRight(registryURL, "/"),
		app:         app,
		fallback:    fallback,
		client:      &http.Client{Timeout: httpTimeout},
		log:         log,
		addr:        fallback,
	}
}

// Addr returns the current broker address.
func (r *Resolver) Addr() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.addr
}

// registryResponse mirrors the registry's single-application document.
type registryResponse struct {
	Application struct {
		Name     string             `json:"name"`
		Instance []registryInstance `json:"instance"`
	} `json:"application"`
}

type registryInstance struct {
	InstanceID string            `json:"instanceId"`
	Status     string            `json:"status"`
	Metadata   map[string]string `json:"metadata"`
}

// Refresh queries the registry and stores the result. Lookup failures fall
// back to the configured address and are logged, never returned; the error
// return is reserved for a cancelled context.
func (r *Resolver) Refresh(ctx context.Context) (string, error) {
	if r.registryURL == "" {
		return r.set(r.fallback), nil
	}

	addr, err := r.lookup(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return r.Addr(), ctx.Err()
		}
		r.log.Warn("broker discovery failed, using fallback", "app", r.app, "fallback", r.fallback, "err", err)
		return r.set(r.fallback), nil
	}
	if prev := r.Addr(); prev != addr {
		r.log.Info("broker discovered", "app", r.app, "addr", addr, "previous", prev)
	}
	return r.set(addr), nil
}

func (r *Resolver) set(addr string) string {
	r.mu.Lock()
	r.addr = addr
	r.mu.Unlock()
	return addr
}

func (r *Resolver) lookup(ctx context.Context) (string, error) {
	endpoint := fmt.Sprintf("%s/apps/%s", r.registryURL, url.PathEscape(strings.ToUpper(r.app)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("registry returned %d: %s", resp.StatusCode, string(body))
	}

	var doc registryResponse
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("json unmarshal: %w", err)
	}

	for _, inst := range doc.Application.Instance {
		if inst.Status != "" && !strings.EqualFold(inst.Status, "UP") {
			continue
		}
		if addr := strings.TrimSpace(inst.Metadata[MetadataKey]); addr != "" {
			return addr, nil
		}
	}
	return "", fmt.Errorf("no %s instance advertises %s", r.app, MetadataKey)
}
