package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"photocache/downloader/internal/config"
	"photocache/downloader/internal/domain"
	"photocache/downloader/internal/proxy"

	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

type CatalogClient interface {
	GetCatalog(ctx context.Context) ([]domain.CatalogEntry, error)
}

type catalogClient struct {
	baseURL    string
	httpClient *resty.Client
}

func NewCatalogClient(cfg config.CatalogConfig, proxySupplier proxy.ProxySupplier) CatalogClient {
	client := resty.New().
		SetTransport(proxy.Transport(proxySupplier)).
		SetTimeout(cfg.TimeoutDuration()).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &catalogClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: client,
	}
}

// GetCatalog fetches the full photo catalog in server order.
func (c *catalogClient) GetCatalog(ctx context.Context) ([]domain.CatalogEntry, error) {
	url := c.baseURL + "/photos"

	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode(), resp.Status())
	}

	var entries []domain.CatalogEntry
	if err := json.Unmarshal([]byte(resp.String()), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	log.Debugf("Fetched catalog with %d entries from %s", len(entries), url)
	return entries, nil
}
