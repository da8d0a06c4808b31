package httpsource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// bearerCredentials implements grpc/credentials.PerRPCCredentials, minting a
// short-lived HMAC-signed bearer assertion from the configured API key and
// reusing it across calls until it is close to expiry.
type bearerCredentials struct {
	apiKey        string
	ttl           time.Duration
	allowInsecure bool

	mu        sync.Mutex
	cached    string
	expiresAt time.Time
}

func newBearerCredentials(apiKey string, ttl time.Duration, allowInsecure bool) (*bearerCredentials, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("indexer api key is required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &bearerCredentials{apiKey: apiKey, ttl: ttl, allowInsecure: allowInsecure}, nil
}

func (c *bearerCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	token, err := c.token()
	if err != nil {
		return nil, err
	}
	return map[string]string{"authorization": "Bearer " + token}, nil
}

func (c *bearerCredentials) RequireTransportSecurity() bool {
	return !c.allowInsecure
}

func (c *bearerCredentials) token() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != "" && time.Now().Before(c.expiresAt.Add(-30*time.Second)) {
		return c.cached, nil
	}

	now := time.Now()
	expiry := now.Add(c.ttl)
	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": expiry.Unix(),
		"iss": "bridge-relayer",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(c.apiKey))
	if err != nil {
		return "", fmt.Errorf("sign indexer bearer token: %w", err)
	}

	c.cached = signed
	c.expiresAt = expiry
	return signed, nil
}
