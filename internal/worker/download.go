package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/rs/zerolog"

	"photobot/internal/domain"
	"photobot/internal/notify"
	"photobot/internal/storage"
)

// fetchSource asks the bot process to download a Telegram file into shared
// storage and waits for it to land. The request goes out on the notify bus;
// the response is the file itself appearing at the agreed path.
func (r *Runner) fetchSource(ctx context.Context, base *domain.JobBase, fileID, name string, log zerolog.Logger) (string, error) {
	key := path.Join("downloads", base.GenerationID, name)
	target, err := r.store.AbsPath(key)
	if err != nil {
		return "", domain.NewStepError("download", err)
	}

	if err := r.notifier.Publish(ctx, notify.TopicDownloadFile, notify.DownloadFile{
		FileID:       fileID,
		DownloadPath: target,
	}); err != nil {
		return "", domain.NewStepError("download", err)
	}

	fullPath, err := r.store.WaitFor(ctx, key, r.opts.DownloadTimeout, r.opts.DownloadPollInterval)
	if err != nil {
		if errors.Is(err, storage.ErrWaitTimeout) {
			log.Warn().Str("file_id", fileID).Dur("timeout", r.opts.DownloadTimeout).Msg("worker: source download timed out")
			return "", domain.NewStepError("download", domain.ErrDownloadTimeout)
		}
		return "", domain.NewStepError("download", err)
	}
	return fullPath, nil
}

// fetchURL pulls a provider result into shared storage so the next stage (or
// the delivery message) can work from a local file.
func (r *Runner) fetchURL(ctx context.Context, key, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("fetch result: build request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch result: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch result: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("fetch result: read body: %w", err)
	}
	return r.store.Write(ctx, key, data)
}
