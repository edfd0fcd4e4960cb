package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/utils"
)

// identityHeaders are only ever set by the gateway; client values are dropped
var identityHeaders = []string{
	middleware.HeaderOrgID,
	middleware.HeaderUserID,
	middleware.HeaderUserRole,
	"X-User-Email",
}

// ServiceClient handles HTTP communication with one downstream service
type ServiceClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

// ServiceClients holds all service clients
type ServiceClients struct {
	Portfolio *ServiceClient
	Tenancy   *ServiceClient
	Reports   *ServiceClient
	Activity  *ServiceClient
}

// ServiceHealth is one row of the aggregated health view
type ServiceHealth struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency"`
}

// NewServiceClient creates a new service client
func NewServiceClient(name, baseURL string, timeout time.Duration) *ServiceClient {
	return &ServiceClient{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ProxyRequest forwards the request to the service with the caller's identity
func (sc *ServiceClient) ProxyRequest(c *gin.Context) {
	targetURL := sc.baseURL + c.Request.URL.Path
	if c.Request.URL.RawQuery != "" {
		targetURL += "?" + c.Request.URL.RawQuery
	}

	var body io.Reader
	if c.Request.Body != nil {
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to read request body")
			return
		}
		body = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, targetURL, body)
	if err != nil {
		utils.InternalServerErrorResponse(c, "Failed to create request")
		return
	}

	for key, values := range c.Request.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Del("Authorization")
	for _, h := range identityHeaders {
		req.Header.Del(h)
	}

	req.Header.Set(middleware.HeaderOrgID, c.GetString("org_id"))
	req.Header.Set(middleware.HeaderUserID, c.GetString("user_id"))
	req.Header.Set(middleware.HeaderUserRole, c.GetString("role"))
	if email := c.GetString("email"); email != "" {
		req.Header.Set("X-User-Email", email)
	}

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadGateway, fmt.Sprintf("%s service unavailable", sc.name))
		return
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadGateway, "Failed to read response")
		return
	}

	for key, values := range resp.Header {
		if key == "Content-Length" {
			continue
		}
		for _, value := range values {
			c.Header(key, value)
		}
	}

	c.Data(resp.StatusCode, resp.Header.Get("Content-Type"), responseBody)
}

// HealthCheck checks if a service is healthy
func (sc *ServiceClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sc.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service returned status %d", resp.StatusCode)
	}

	return nil
}

func (scs *ServiceClients) all() []*ServiceClient {
	return []*ServiceClient{scs.Portfolio, scs.Tenancy, scs.Reports, scs.Activity}
}

// GetServiceStatus checks every service in parallel
func (scs *ServiceClients) GetServiceStatus(ctx context.Context) (map[string]ServiceHealth, bool) {
	var mu sync.Mutex
	status := make(map[string]ServiceHealth)
	healthy := true

	g, ctx := errgroup.WithContext(ctx)
	for _, sc := range scs.all() {
		sc := sc
		g.Go(func() error {
			start := time.Now()
			err := sc.HealthCheck(ctx)
			h := ServiceHealth{Healthy: err == nil, Latency: time.Since(start).Round(time.Millisecond).String()}
			if err != nil {
				h.Error = err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			status[sc.name] = h
			healthy = healthy && h.Healthy
			return nil
		})
	}
	_ = g.Wait()

	return status, healthy
}

// routePrefixes lists which service owns each top-level path
func (scs *ServiceClients) routePrefixes() map[string]*ServiceClient {
	return map[string]*ServiceClient{
		"/properties":   scs.Portfolio,
		"/contractors":  scs.Portfolio,
		"/maintenance":  scs.Portfolio,
		"/expenses":     scs.Portfolio,
		"/organization": scs.Portfolio,
		"/tenancies":    scs.Tenancy,
		"/obligations":  scs.Tenancy,
		"/arrears":      scs.Tenancy,
		"/dashboard":    scs.Tenancy,
		"/schedule":     scs.Tenancy,
		"/reports":      scs.Reports,
		"/activity":     scs.Activity,
	}
}

// sortedPrefixes returns route prefixes in a stable order for registration
func sortedPrefixes(m map[string]*ServiceClient) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
