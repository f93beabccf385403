package cache

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

// DefaultValkeyPrefix namespaces every key written to a shared server
const DefaultValkeyPrefix = "tracksort:"

// ValkeyCache stores entries in a Valkey server under a key prefix
type ValkeyCache struct {
	client valkey.Client
	prefix string
}

// NewValkeyCache connects to valkeyURL and pings the server. Accepted forms
// are valkey://, redis:// and the TLS schemes valkeys:// and rediss://, with
// optional credentials and a database number as the path.
func NewValkeyCache(valkeyURL string) (*ValkeyCache, error) {
	opt, err := valkeyClientOption(valkeyURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Valkey URL: %w", err)
	}

	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	c := &ValkeyCache{client: client, prefix: DefaultValkeyPrefix}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Health(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return c, nil
}

func (c *ValkeyCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Do(ctx, c.client.B().Get().Key(c.prefix+key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &CacheError{Operation: "get", Key: key, Err: err}
	}
	return data, nil
}

func (c *ValkeyCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	var cmd valkey.Completed
	set := c.client.B().Set().Key(c.prefix + key).Value(valkey.BinaryString(value))
	if expiration > 0 {
		cmd = set.Ex(expiration).Build()
	} else {
		cmd = set.Build()
	}

	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return &CacheError{Operation: "set", Key: key, Err: err}
	}
	return nil
}

func (c *ValkeyCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Do(ctx, c.client.B().Del().Key(c.prefix+key).Build()).Error(); err != nil {
		return &CacheError{Operation: "delete", Key: key, Err: err}
	}
	return nil
}

func (c *ValkeyCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Do(ctx, c.client.B().Exists().Key(c.prefix+key).Build()).AsInt64()
	if err != nil {
		return false, &CacheError{Operation: "exists", Key: key, Err: err}
	}
	return n > 0, nil
}

func (c *ValkeyCache) Close() error {
	c.client.Close()
	return nil
}

func (c *ValkeyCache) Health(ctx context.Context) error {
	if err := c.client.Do(ctx, c.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("valkey ping failed: %w", err)
	}
	return nil
}

func valkeyClientOption(valkeyURL string) (valkey.ClientOption, error) {
	var opt valkey.ClientOption

	u, err := url.Parse(valkeyURL)
	if err != nil {
		return opt, fmt.Errorf("invalid URL format: %w", err)
	}

	switch u.Scheme {
	case "valkey", "redis":
	case "valkeys", "rediss":
		opt.TLSConfig = &tls.Config{ServerName: u.Hostname(), MinVersion: tls.VersionTLS12}
	default:
		return opt, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	if u.Host == "" {
		return opt, fmt.Errorf("missing host in URL")
	}
	opt.InitAddress = []string{u.Host}

	if u.User != nil {
		opt.Username = u.User.Username()
		opt.Password, _ = u.User.Password()
	}

	if db := strings.Trim(u.Path, "/"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil || n < 0 {
			return opt, fmt.Errorf("invalid database number %q", db)
		}
		opt.SelectDB = n
	}

	return opt, nil
}
