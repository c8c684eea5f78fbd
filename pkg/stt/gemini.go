package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
)

// Gemini implements the gemini-audio variant, adapted from the teacher's
// GoogleLLM JSON request shape (same host, same "contents" envelope) but
// with an inline_data audio part instead of a text part.
type Gemini struct {
	apiKey     string
	url        string
	model      string
	httpClient *http.Client
}

func NewGemini(apiKey, model string) *Gemini {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &Gemini{
		apiKey:     apiKey,
		url:        "https://generativelanguage.googleapis.com/v1beta/models/" + model + ":generateContent",
		model:      model,
		httpClient: &http.Client{},
	}
}

func (g *Gemini) Name() string { return "gemini-audio" }

func (g *Gemini) Transcribe(ctx context.Context, wavBytes []byte, language string) (Result, error) {
	prompt := "Transcribe this audio verbatim. Return only the spoken text, no commentary."
	if language != "" && language != "unknown" {
		prompt = fmt.Sprintf("Transcribe this audio verbatim in %s. Return only the spoken text, no commentary.", language)
	}

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": prompt},
					{
						"inline_data": map[string]string{
							"mime_type": "audio/wav",
							"data":      base64.StdEncoding.EncodeToString(wavBytes),
						},
					},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url+"?key="+g.apiKey, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return Result{}, fmt.Errorf("gemini-audio error (status %d): %v", resp.StatusCode, errResp)
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, err
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return Result{}, fmt.Errorf("no transcription returned from gemini-audio")
	}

	return Result{Text: result.Candidates[0].Content.Parts[0].Text, Language: language}, nil
}
