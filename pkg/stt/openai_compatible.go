package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// OpenAICompatible adapts the teacher's OpenAISTT/GroqSTT multipart-upload
// shape into a single model-parameterized client. It serves three of the
// four spec variants: "whisper" (model "whisper-1"), "gpt-4o-transcribe"
// and "gpt-4o-mini-transcribe" all hit the same
// /v1/audio/transcriptions-shaped endpoint and differ only by model name,
// so one adapter covers all three instead of three near-identical structs.
type OpenAICompatible struct {
	apiKey     string
	url        string
	model      string
	name       string
	httpClient *http.Client
}

// NewOpenAICompatible builds an adapter for a given named variant. baseURL
// defaults to the OpenAI transcription endpoint; passing a different
// baseURL (e.g. Groq's OpenAI-compatible audio endpoint) lets the same
// variant be served by an alternate host without inventing a new provider
// type, the way the teacher's GroqSTT is structurally identical to its
// OpenAISTT.
func NewOpenAICompatible(name, apiKey, model, baseURL string) *OpenAICompatible {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1/audio/transcriptions"
	}
	return &OpenAICompatible{
		apiKey: apiKey,
		url:    baseURL,
		model:  model,
		name:   name,
		httpClient: &http.Client{
			Timeout: 0, // caller controls the deadline via ctx
		},
	}
}

func (s *OpenAICompatible) Name() string { return s.name }

func (s *OpenAICompatible) Transcribe(ctx context.Context, wavBytes []byte, language string) (Result, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model", s.model); err != nil {
		return Result{}, err
	}
	if language != "" && language != "unknown" {
		if err := writer.WriteField("language", language); err != nil {
			return Result{}, err
		}
	}

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return Result{}, err
	}
	if _, err := part.Write(wavBytes); err != nil {
		return Result{}, err
	}
	if err := writer.Close(); err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, body)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("%s transcription error (status %d): %s", s.name, resp.StatusCode, string(respBody))
	}

	var decoded struct {
		Text     string `json:"text"`
		Language string `json:"language"`
		Segments []struct {
			Text  string  `json:"text"`
			Start float64 `json:"start"`
			End   float64 `json:"end"`
		} `json:"segments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, err
	}

	result := Result{Text: decoded.Text, Language: decoded.Language}
	for _, seg := range decoded.Segments {
		result.Segments = append(result.Segments, Segment{
			Text:  seg.Text,
			Start: secondsToDuration(seg.Start),
			End:   secondsToDuration(seg.End),
		})
	}
	return result, nil
}
