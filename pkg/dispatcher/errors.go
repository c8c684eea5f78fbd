package dispatcher

import "errors"

var (
	// ErrAllProvidersExhausted is recorded (not returned — Submit never
	// returns an error) when every attempt in the fallback chain used up its
	// retries without success; the batch is dropped per §4.2 Edge cases.
	ErrAllProvidersExhausted = errors.New("all transcription providers exhausted their retries")

	// ErrNoProviders means the dispatcher was built with an empty attempt
	// list — nothing can ever transcribe a batch.
	ErrNoProviders = errors.New("dispatcher has no configured providers")
)
