package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ExternalBackend is the hosted-decoder fallback. It's consumed only
// through the Decoder interface so the orchestration layer doesn't need
// to know it's remote.
type ExternalBackend struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func NewExternalBackend(endpoint, apiKey string) *ExternalBackend {
	return &ExternalBackend{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type externalDecodeRequest struct {
	AudioPath string  `json:"audio_path"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Lang      string  `json:"lang"`
}

type externalDecodeResponse struct {
	Segments []struct {
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
		Language   string  `json:"language"`
	} `json:"segments"`
}

func (b *ExternalBackend) Decode(ctx context.Context, audioPath string, window Window, opts DecodeOptions) ([]Segment, error) {
	if b.APIKey == "" {
		return nil, fmt.Errorf("external backend: no credential configured")
	}

	body, err := json.Marshal(externalDecodeRequest{
		AudioPath: audioPath,
		Start:     window.Start,
		End:       window.End,
		Lang:      opts.Lang,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.APIKey)

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("external backend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("external backend returned status %d", resp.StatusCode)
	}

	var parsed externalDecodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parsing external backend response: %w", err)
	}

	segments := make([]Segment, 0, len(parsed.Segments))
	for _, s := range parsed.Segments {
		segments = append(segments, Segment{
			Start:      s.Start,
			End:        s.End,
			Text:       s.Text,
			Confidence: s.Confidence,
			Language:   s.Language,
		})
	}
	return segments, nil
}
