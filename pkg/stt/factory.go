package stt

import "time"

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Variant names the four provider variants from spec §4.2.
type Variant string

const (
	VariantWhisper             Variant = "whisper"
	VariantGPT4oTranscribe     Variant = "gpt-4o-transcribe"
	VariantGPT4oMiniTranscribe Variant = "gpt-4o-mini-transcribe"
	VariantGeminiAudio         Variant = "gemini-audio"
)

// Keys groups the API credentials the factory needs; a variant only reads
// the key(s) it requires.
type Keys struct {
	OpenAI string
	Gemini string
}

// New builds the Provider for a given variant. Returns nil if the required
// key is missing, to keep startup wiring simple for callers building an
// attempt list (§4.2 step 3) from whichever providers are configured.
func New(variant Variant, keys Keys) Provider {
	switch variant {
	case VariantWhisper:
		if keys.OpenAI == "" {
			return nil
		}
		return NewOpenAICompatible(string(VariantWhisper), keys.OpenAI, "whisper-1", "")
	case VariantGPT4oTranscribe:
		if keys.OpenAI == "" {
			return nil
		}
		return NewOpenAICompatible(string(VariantGPT4oTranscribe), keys.OpenAI, "gpt-4o-transcribe", "")
	case VariantGPT4oMiniTranscribe:
		if keys.OpenAI == "" {
			return nil
		}
		return NewOpenAICompatible(string(VariantGPT4oMiniTranscribe), keys.OpenAI, "gpt-4o-mini-transcribe", "")
	case VariantGeminiAudio:
		if keys.Gemini == "" {
			return nil
		}
		return NewGemini(keys.Gemini, "")
	default:
		return nil
	}
}
