package iofs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gnames/gncldf/internal/iometa"
	"github.com/gnames/gnuuid"
)

var errNotFound = errors.New("not found")

// Fetch downloads a dataset into a subdirectory of cacheDir named by the
// UUID v5 of the URL and returns the local path of the downloaded
// metadata file or archive. For a metadata URL the tables and the
// bibliography are downloaded relative to it, each falling back to a
// zipped file. A complete earlier download is reused.
func Fetch(ctx context.Context, rawURL, cacheDir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", FetchError(rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", DiscoveryError(rawURL, "URL has no file name")
	}

	dir := filepath.Join(cacheDir, gnuuid.New(rawURL).String())
	local := filepath.Join(dir, name)
	if _, err = os.Stat(local); err == nil {
		slog.Info("Using cached download", "url", rawURL, "path", local)
		return local, nil
	}
	if err = touchDir(dir); err != nil {
		return "", err
	}

	if strings.HasSuffix(strings.ToLower(name), ".zip") {
		if err = download(ctx, u, local); err != nil {
			return "", FetchError(rawURL, err)
		}
		return local, nil
	}

	data, err := get(ctx, u)
	if err != nil {
		return "", FetchError(rawURL, err)
	}
	doc, err := iometa.Decode(rawURL, data)
	if err != nil {
		return "", err
	}

	for _, rel := range tableURLs(doc) {
		if err = fetchRelated(ctx, u, dir, rel, false); err != nil {
			return "", err
		}
	}
	if src, ok := doc["dc:source"].(string); ok && src != "" {
		if err = fetchRelated(ctx, u, dir, src, true); err != nil {
			return "", err
		}
	}

	// metadata goes last, its presence marks a complete download
	if err = os.WriteFile(local, data, 0644); err != nil {
		return "", WriteFileError(local, err)
	}
	slog.Info("Downloaded dataset", "url", rawURL, "path", dir)
	return local, nil
}

func tableURLs(doc map[string]any) []string {
	tables, _ := doc["tables"].([]any)
	res := make([]string, 0, len(tables))
	for _, v := range tables {
		t, _ := v.(map[string]any)
		if s, ok := t["url"].(string); ok && s != "" {
			res = append(res, s)
		}
	}
	return res
}

// fetchRelated downloads a file given relative to the metadata URL,
// trying a zipped variant when the plain file is missing. A missing
// optional file is only logged.
func fetchRelated(
	ctx context.Context,
	base *url.URL,
	dir, rel string,
	optional bool,
) error {
	ref, err := url.Parse(rel)
	if err != nil || ref.IsAbs() || !filepath.IsLocal(filepath.FromSlash(ref.Path)) {
		return DiscoveryError(base.String(), fmt.Sprintf("unsupported file URL %q", rel))
	}
	target := base.ResolveReference(ref)
	local := filepath.Join(dir, filepath.FromSlash(ref.Path))
	if err = touchDir(filepath.Dir(local)); err != nil {
		return err
	}

	err = download(ctx, target, local)
	if errors.Is(err, errNotFound) {
		zipped := *target
		zipped.Path += ".zip"
		err = download(ctx, &zipped, local+".zip")
	}
	if optional && errors.Is(err, errNotFound) {
		slog.Warn("File not found", "url", target.String())
		return nil
	}
	if err != nil {
		return FetchError(target.String(), err)
	}
	return nil
}

func request(ctx context.Context, u *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return resp, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", u, errNotFound)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: status %d", u, resp.StatusCode)
	}
}

func get(ctx context.Context, u *url.URL) ([]byte, error) {
	resp, err := request(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func download(ctx context.Context, u *url.URL, path string) error {
	resp, err := request(ctx, u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tmp := path + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
