package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/LandoDApp/varbe-web-sub001/pkg/log"
)

// AnonymousName is the placeholder used when the profile service cannot
// resolve a user.
const AnonymousName = "Anonymous"

// DisplayProfile is the render-facing identity of a user.
type DisplayProfile struct {
	UserID             string `json:"user_id"`
	DisplayName        string `json:"display_name"`
	AvatarURL          string `json:"avatar_url"`
	VerificationStatus string `json:"verification_status"`
}

type profileResponse struct {
	Success bool            `json:"success"`
	Data    *DisplayProfile `json:"data"`
	Error   string          `json:"error,omitempty"`
}

type cachedProfile struct {
	profile   *DisplayProfile
	expiresAt time.Time
}

// ProfileClient resolves display profiles from the external user
// service. Lookups are cached briefly; failures degrade to a
// placeholder profile instead of propagating.
type ProfileClient struct {
	baseURL    string
	httpClient *http.Client
	cache      map[string]*cachedProfile
	cacheTTL   time.Duration
	mu         sync.RWMutex
}

// NewProfileClient creates a profile client.
func NewProfileClient(baseURL string, cacheTTL time.Duration) *ProfileClient {
	return &ProfileClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache:    make(map[string]*cachedProfile),
		cacheTTL: cacheTTL,
	}
}

// Resolve returns the display profile for a user. It never fails: on
// any error the anonymous placeholder is returned.
func (c *ProfileClient) Resolve(ctx context.Context, userID string) *DisplayProfile {
	if p := c.getFromCache(userID); p != nil {
		return p
	}

	profile, err := c.fetch(ctx, userID)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Str(log.FieldUserID, userID).Msg("profile lookup failed, using placeholder")
		return &DisplayProfile{UserID: userID, DisplayName: AnonymousName}
	}

	c.putInCache(userID, profile)
	return profile
}

func (c *ProfileClient) fetch(ctx context.Context, userID string) (*DisplayProfile, error) {
	url := fmt.Sprintf("%s/api/v1/users/%s/profile", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile service returned status %d", resp.StatusCode)
	}

	var body profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode profile response: %w", err)
	}
	if !body.Success || body.Data == nil {
		return nil, fmt.Errorf("profile not found: %s", body.Error)
	}
	if body.Data.DisplayName == "" {
		body.Data.DisplayName = AnonymousName
	}
	return body.Data, nil
}

func (c *ProfileClient) getFromCache(userID string) *DisplayProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.cache[userID]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil
	}
	return entry.profile
}

func (c *ProfileClient) putInCache(userID string, profile *DisplayProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[userID] = &cachedProfile{
		profile:   profile,
		expiresAt: time.Now().Add(c.cacheTTL),
	}
}
