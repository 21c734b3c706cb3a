package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pokesprite/internal/fetcher"
)

// ListLimit is large enough to return every species in one page.
const ListLimit = 1000

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

type Options struct {
	BaseURL string
	Fetcher Fetcher
	// Store caches raw responses. Nil disables response caching.
	Store *Store
	// TTL is how long a cached response stays valid (api.cache_timeout).
	TTL time.Duration
}

// Client talks to PokeAPI. It is built once by the composition root and
// passed to whatever needs it.
type Client struct {
	baseURL string
	fetcher Fetcher
	store   *Store
	ttl     time.Duration
	logger  *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		fetcher: opts.Fetcher,
		store:   opts.Store,
		ttl:     opts.TTL,
		logger:  logger,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// List returns every species entry.
func (c *Client) List(ctx context.Context) ([]Entry, error) {
	url := fmt.Sprintf("%s/pokemon?limit=%d", c.baseURL, ListLimit)

	var resp listResponse
	if err := c.getJSON(ctx, "list", "pokemon_list", url, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return []Entry{}, nil
	}
	return resp.Results, nil
}

// Details returns the record for id, or an error wrapping ErrNotFound when
// PokeAPI has no such species.
func (c *Client) Details(ctx context.Context, id int) (*Details, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid id %d", ErrNotFound, id)
	}
	url := fmt.Sprintf("%s/pokemon/%d", c.baseURL, id)

	var details Details
	if err := c.getJSON(ctx, "details", fmt.Sprintf("pokemon_%d", id), url, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// SpriteURL returns the front_default sprite of id.
func (c *Client) SpriteURL(ctx context.Context, id int) (string, error) {
	details, err := c.Details(ctx, id)
	if err != nil {
		return "", err
	}
	if details.Sprites.FrontDefault == "" {
		return "", &CatalogError{Op: "sprite", Cause: ErrCauseNoSprite, Err: ErrNotFound}
	}
	return details.Sprites.FrontDefault, nil
}

func (c *Client) getJSON(ctx context.Context, op, key, url string, out any) error {
	log := c.logger.With(zap.String("op", op), zap.String("url", url))

	if c.store != nil {
		data, err := c.store.Get(key)
		switch {
		case err == nil:
			if jsonErr := json.Unmarshal(data, out); jsonErr == nil {
				return nil
			}
			log.Warn("Discarding undecodable cached response")
			_ = c.store.Delete(key)
		case errors.Is(err, ErrStoreMiss), errors.Is(err, ErrStoreExpired):
		default:
			log.Warn("Failed to read cached response", zap.Error(err))
		}
	}

	data, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		var fetchErr *fetcher.FetchError
		if errors.As(err, &fetchErr) && fetchErr.Cause == fetcher.ErrCauseNotFound {
			log.Info("Catalog entry not found")
			return &CatalogError{Op: op, Cause: ErrCauseUpstream, Err: fmt.Errorf("%w: %v", ErrNotFound, err)}
		}
		log.Error("Catalog request failed", zap.Error(err))
		return &CatalogError{Op: op, Cause: ErrCauseUpstream, Err: err}
	}

	if err := json.Unmarshal(data, out); err != nil {
		log.Error("Catalog response is not valid JSON", zap.Error(err))
		return &CatalogError{Op: op, Cause: ErrCauseDecode, Err: err}
	}

	if c.store != nil {
		if err := c.store.Put(key, data, c.ttl); err != nil {
			log.Warn("Failed to cache response", zap.Error(err))
		}
	}
	return nil
}
