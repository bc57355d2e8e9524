// Package update checks GitHub releases for a newer client build,
// downloads it and swaps it in for the running executable.
package update

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/ngtracker/ngt-desktop/common"
)

// DefaultAPIBase is the GitHub REST endpoint.
const DefaultAPIBase = "https://api.github.com"

var (
	// ErrNoAsset is returned when a release has no build for this platform.
	ErrNoAsset = errors.New("no release asset for this platform")
	// ErrChecksumMismatch is returned when a download does not match its
	// published .sha256 asset.
	ErrChecksumMismatch = errors.New("update checksum mismatch")
)

// checksumSuffix marks the asset carrying the SHA-256 of a build.
const checksumSuffix = ".sha256"

// Release describes an available update. It doubles as the payload of the
// update_available and update_downloaded signals.
type Release struct {
	Version   string `json:"version"`
	Notes     string `json:"notes,omitempty"`
	AssetName string `json:"assetName,omitempty"`
	AssetURL  string `json:"assetUrl,omitempty"`
	Size      int64  `json:"size,omitempty"`
	// ChecksumURL points at the build's .sha256 asset, when published.
	ChecksumURL string `json:"checksumUrl,omitempty"`
	// Path is set once the asset has been downloaded.
	Path string `json:"path,omitempty"`
}

type githubRelease struct {
	TagName    string        `json:"tag_name"`
	Body       string        `json:"body"`
	Draft      bool          `json:"draft"`
	Prerelease bool          `json:"prerelease"`
	Assets     []githubAsset `json:"assets"`
}

type githubAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// Checker looks up and fetches releases of one repository.
type Checker struct {
	repo    string
	current string
	dir     string
	apiBase string
	client  *http.Client
}

// NewChecker creates a checker for repo ("owner/name"). Downloads go to dir.
func NewChecker(repo, current, dir string) *Checker {
	return &Checker{
		repo:    repo,
		current: current,
		dir:     dir,
		apiBase: DefaultAPIBase,
		client:  &http.Client{Timeout: common.UpdateCheckTimeout},
	}
}

// SetAPIBase points the checker at another GitHub-compatible endpoint.
func (c *Checker) SetAPIBase(base string) {
	c.apiBase = strings.TrimSuffix(base, "/")
}

// Current returns the running version.
func (c *Checker) Current() string {
	return c.current
}

// Newer reports whether latest is a higher semantic version than current.
// Unparseable versions (such as "dev") never compare as newer.
func Newer(latest, current string) bool {
	l, cur := canonical(latest), canonical(current)
	if !semver.IsValid(l) || !semver.IsValid(cur) {
		return false
	}
	return semver.Compare(l, cur) > 0
}

func canonical(version string) string {
	version = strings.TrimSpace(version)
	if version != "" && !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	return semver.Canonical(version)
}

// Check returns the latest release when it is newer than the running build,
// or nil when already up to date.
func (c *Checker) Check(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.apiBase, c.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query latest release: unexpected status %s", resp.Status)
	}

	var gh githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&gh); err != nil {
		return nil, fmt.Errorf("decode release: %w", err)
	}
	if gh.Draft || gh.Prerelease || !Newer(gh.TagName, c.current) {
		common.LogDebug("No update: latest %s, running %s", gh.TagName, c.current)
		return nil, nil
	}

	asset, ok := pickAsset(gh.Assets, runtime.GOOS, runtime.GOARCH)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoAsset, gh.TagName)
	}

	rel := &Release{
		Version:   gh.TagName,
		Notes:     gh.Body,
		AssetName: asset.Name,
		AssetURL:  asset.BrowserDownloadURL,
		Size:      asset.Size,
	}
	for _, a := range gh.Assets {
		if a.Name == asset.Name+checksumSuffix {
			rel.ChecksumURL = a.BrowserDownloadURL
		}
	}
	return rel, nil
}

// pickAsset selects the asset built for goos/goarch. The platform must
// appear as whole name parts, so "arm" does not match "arm64".
func pickAsset(assets []githubAsset, goos, goarch string) (githubAsset, bool) {
	for _, a := range assets {
		name := strings.ToLower(a.Name)
		if strings.HasSuffix(name, checksumSuffix) {
			continue
		}
		parts := strings.FieldsFunc(name, func(r rune) bool {
			return r == '_' || r == '-' || r == '.'
		})
		if hasPart(parts, goos) && hasPart(parts, goarch) {
			return a, true
		}
	}
	return githubAsset{}, false
}

func hasPart(parts []string, want string) bool {
	for _, p := range parts {
		if p == want {
			return true
		}
	}
	return false
}

// Download fetches the release asset into the checker's directory and sets
// rel.Path. When progress is non-nil it receives the asset size and returns
// a writer that observes the downloaded bytes.
func (c *Checker) Download(ctx context.Context, rel *Release, progress func(total int64) io.Writer) error {
	if rel == nil || rel.AssetURL == "" {
		return ErrNoAsset
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rel.AssetURL, nil)
	if err != nil {
		return err
	}
	// Large assets may exceed the lookup timeout.
	client := &http.Client{Transport: c.client.Transport}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", rel.AssetName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", rel.AssetName, resp.Status)
	}

	dir := filepath.Join(c.dir, "updates")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	digest := sha256.New()
	writers := []io.Writer{tmp, digest}
	if progress != nil {
		writers = append(writers, progress(resp.ContentLength))
	}
	if _, err := io.Copy(io.MultiWriter(writers...), resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("download %s: %w", rel.AssetName, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if rel.ChecksumURL != "" {
		want, err := c.fetchChecksum(ctx, client, rel.ChecksumURL)
		if err != nil {
			return fmt.Errorf("download %s checksum: %w", rel.AssetName, err)
		}
		if got := hex.EncodeToString(digest.Sum(nil)); got != want {
			return fmt.Errorf("%w: %s has %s, want %s", ErrChecksumMismatch, rel.AssetName, got, want)
		}
		common.LogDebug("Verified checksum of %s", rel.AssetName)
	}

	path := filepath.Join(dir, filepath.Base(rel.AssetName))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	if err := os.Chmod(path, 0755); err != nil {
		return err
	}

	rel.Path = path
	common.LogInfo("Downloaded update %s to %s", rel.Version, path)
	return nil
}

// fetchChecksum reads a .sha256 asset in sha256sum format ("<hex>  <name>")
// or as a bare digest.
func (c *Checker) fetchChecksum(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", errors.New("empty checksum file")
	}
	sum := strings.ToLower(fields[0])
	if len(sum) != sha256.Size*2 {
		return "", fmt.Errorf("malformed checksum %q", fields[0])
	}
	return sum, nil
}

// Install replaces the executable at target with the downloaded build at
// path. The previous binary is kept next to it with a .old suffix until the
// next install.
func Install(path, target string) error {
	if !common.FileExists(path) {
		return fmt.Errorf("update file %s not found", path)
	}

	dir := filepath.Dir(target)
	staged, err := os.CreateTemp(dir, ".ngt-update-*")
	if err != nil {
		return fmt.Errorf("stage update: %w", err)
	}
	stagedName := staged.Name()

	src, err := os.Open(path)
	if err != nil {
		staged.Close()
		os.Remove(stagedName)
		return err
	}
	_, err = io.Copy(staged, src)
	src.Close()
	if cerr := staged.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(stagedName)
		return fmt.Errorf("stage update: %w", err)
	}
	if err := os.Chmod(stagedName, 0755); err != nil {
		os.Remove(stagedName)
		return err
	}

	backup := target + ".old"
	os.Remove(backup)
	if err := os.Rename(target, backup); err != nil && !errors.Is(err, os.ErrNotExist) {
		os.Remove(stagedName)
		return fmt.Errorf("back up current executable: %w", err)
	}
	if err := os.Rename(stagedName, target); err != nil {
		os.Rename(backup, target)
		return fmt.Errorf("install update: %w", err)
	}

	os.Remove(path)
	common.LogInfo("Installed update to %s", target)
	return nil
}
