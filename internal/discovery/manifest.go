package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hostgate/domain-proxy/internal/domain"
)

// maxManifestBytes bounds how much of a manifest response is read.
const maxManifestBytes = 1 << 20

// FetchManifest retrieves and validates the unit manifest at the
// well-known path under baseURL. Unreachable or invalid manifests return
// an error the engine maps to "unavailable on this backend"; they never
// abort a resolution.
func (p *Prober) FetchManifest(ctx context.Context, baseURL, manifestPath string) (*domain.Manifest, error) {
	url := strings.TrimSuffix(baseURL, "/") + manifestPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "domain-proxy-probe/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("manifest fetch returned status %d", resp.StatusCode)
	}

	var manifest domain.Manifest
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxManifestBytes)).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("manifest is not valid JSON: %w", err)
	}

	if !manifest.Valid() {
		return nil, fmt.Errorf("manifest is missing required name or description")
	}

	return &manifest, nil
}
