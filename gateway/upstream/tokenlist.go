package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	getter "github.com/hashicorp/go-getter"
)

// PublicListClient fetches the unauthenticated token list, an array with
// one entry per network
type PublicListClient struct {
	url        string
	httpClient *http.Client
}

// NewPublicListClient creates a client for the list at url
func NewPublicListClient(url string, timeout time.Duration) *PublicListClient {
	return &PublicListClient{url: url, httpClient: newHTTPClient(timeout)}
}

// Fetch returns every list entry
func (c *PublicListClient) Fetch(ctx context.Context) ([]models.TokenList, error) {
	var lists []models.TokenList
	if err := getJSON(ctx, c.httpClient, "public_list", c.url, "", &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// ReadTokenListSnapshot reads a list previously saved by DownloadTokenList
func ReadTokenListSnapshot(path string) ([]models.TokenList, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token list snapshot: %w", err)
	}
	var lists []models.TokenList
	if err := json.Unmarshal(body, &lists); err != nil {
		return nil, models.WrapError(models.KindParse, "failed to parse token list snapshot", err)
	}
	return lists, nil
}

// DownloadTokenList saves the list at src into the file dst. The list is
// downloaded next to dst and only replaces it once it parses, so a failed
// refresh leaves the previous snapshot in place.
//
// Params:
//   - src: any go-getter source, usually the https URL of the public list
//   - dst: the file to write, its directory is created when missing
//
// Usage:
//   - Used to keep an offline copy the testnet resolver can read instead of the network
func DownloadTokenList(ctx context.Context, src, dst string) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	// go-getter creates the file itself, so it gets a fresh temp dir on the
	// same filesystem as dst
	tmpDir, err := os.MkdirTemp(dir, "."+filepath.Base(dst)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	tmpPath := filepath.Join(tmpDir, filepath.Base(dst))

	ctx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	client := getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  tmpPath,
		Mode: getter.ClientModeFile,
		Getters: map[string]getter.Getter{
			"file":  &getter.FileGetter{Copy: true},
			"http":  new(getter.HttpGetter),
			"https": new(getter.HttpGetter),
		},
	}
	log.Info().Str("src", src).Str("dst", dst).Msg("Downloading token list")
	if err := client.Get(); err != nil {
		return fmt.Errorf("failed to download token list: %w", err)
	}

	// refuse to keep a file the resolver could not read
	if _, err := ReadTokenListSnapshot(tmpPath); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("failed to replace token list snapshot: %w", err)
	}
	return nil
}
