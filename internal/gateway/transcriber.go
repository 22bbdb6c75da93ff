package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/respondaai/automation-server-go/internal/config"
	"github.com/respondaai/automation-server-go/internal/errors"
)

// Transcriber converts voice notes to text. Implementations return an
// error when transcription fails; callers substitute a placeholder.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

// HTTPTranscriber calls an external speech-to-text service.
type HTTPTranscriber struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPTranscriber(baseURL string) *HTTPTranscriber {
	return &HTTPTranscriber{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: config.TranscribeTimeout,
		},
	}
}

type transcribeRequest struct {
	AudioURL string `json:"audio_url"`
}

type transcribeResponse struct {
	Text string `json:"text"`
}

func (t *HTTPTranscriber) Transcribe(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(transcribeRequest{AudioURL: audioURL})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to encode transcribe request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/transcribe", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to build transcribe request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", errors.UpstreamUnavailable("transcriber", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.UpstreamUnavailable("transcriber",
			fmt.Errorf("transcriber returned %d", resp.StatusCode))
	}

	var parsed transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", errors.UpstreamUnavailable("transcriber", err)
	}
	return parsed.Text, nil
}
