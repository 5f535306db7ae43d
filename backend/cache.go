package backend

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/fundtrade/date"
	"github.com/etnz/fundtrade/logging"
)

// dailyCache keeps successful GET /fund-classes responses on disk. The key
// includes the current day so entries expire when a new NAV may be published.
type dailyCache struct {
	base   http.RoundTripper
	dir    string
	logger *logging.Logger
	today  func() date.Date
}

func (c *dailyCache) cacheable(req *http.Request) bool {
	return req.Method == http.MethodGet && strings.HasPrefix(req.URL.Path, "/fund-classes")
}

func (c *dailyCache) key(req *http.Request) string {
	today := date.Today
	if c.today != nil {
		today = c.today
	}
	key := fmt.Sprintf("%s %s %s", today(), req.Method, req.URL.String())
	return fmt.Sprintf("ftc-%x", sha1.Sum([]byte(key)))
}

func (c *dailyCache) RoundTrip(req *http.Request) (*http.Response, error) {
	if !c.cacheable(req) {
		return c.base.RoundTrip(req)
	}
	key := c.key(req)
	if resp, err := c.get(key, req); err == nil {
		c.logger.Debug().Str("url", req.URL.Path).Msg("nav cache hit")
		return resp, nil
	}

	resp, err := c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}
	if err := c.put(key, resp); err != nil {
		c.logger.Warn().Err(err).Msg("nav cache write failed (ignored)")
	}
	return resp, nil
}

func (c *dailyCache) path(key string) string {
	dir := c.dir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, key)
}

func (c *dailyCache) get(key string, req *http.Request) (*http.Response, error) {
	content, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(content)), req)
}

// put stores resp, creating the cache directory on first use. DumpResponse
// reads the body and puts a copy back, so resp is still readable by the caller.
func (c *dailyCache) put(key string, resp *http.Response) error {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}
