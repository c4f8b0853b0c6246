package workers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"shelfd/internal/config"
	"shelfd/internal/store"
)

// httpExecutor fetches a single file over HTTP. Books and podcast episodes
// need no external tool, just a download with byte-level progress.
type httpExecutor struct {
	cfg        *config.Config
	client     *http.Client
	defaultExt string
}

func newHTTPExecutor(cfg *config.Config, defaultExt string) *httpExecutor {
	return &httpExecutor{
		cfg:        cfg,
		client:     &http.Client{},
		defaultExt: defaultExt,
	}
}

const downloadChunkSize = 128 * 1024

func (e *httpExecutor) Execute(ctx context.Context, job *store.Job, report ReportFunc) (string, error) {
	if timeout := time.Duration(e.cfg.Downloads.DownloadTimeout) * time.Second; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.Source, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("download %s: %w", job.Source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: unexpected status %d", job.Source, resp.StatusCode)
	}

	output := filepath.Join(e.cfg.Paths.StagingDir, job.ID+extensionFor(job.Source, e.defaultExt))
	file, err := os.Create(output)
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	defer file.Close()

	total := resp.ContentLength
	var written int64
	buf := make([]byte, downloadChunkSize)
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			_ = os.Remove(output)
			if errors.Is(ctxErr, context.Canceled) {
				return "", ErrCancelled
			}
			return "", fmt.Errorf("download %s: %w", job.Source, ctxErr)
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := file.Write(buf[:n]); writeErr != nil {
				_ = os.Remove(output)
				return "", fmt.Errorf("write staging file: %w", writeErr)
			}
			written += int64(n)
			if report != nil && total > 0 {
				report(float64(written)/float64(total)*100, "", "")
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = os.Remove(output)
			if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
				return "", ErrCancelled
			}
			return "", fmt.Errorf("download %s: %w", job.Source, readErr)
		}
	}

	if err := file.Sync(); err != nil {
		return "", fmt.Errorf("sync staging file: %w", err)
	}
	return output, nil
}

// extensionFor guesses a file extension from the source URL path.
func extensionFor(source, fallback string) string {
	parsed, err := url.Parse(source)
	if err != nil {
		return fallback
	}
	if ext := strings.ToLower(path.Ext(parsed.Path)); ext != "" && len(ext) <= 6 {
		return ext
	}
	return fallback
}
