package core

import "context"

// DocumentSource fetches candidate documents from the remote document feed.
// Implementations must return documents in feed order and wrap failures with
// ErrTransient or ErrPermanent.
type DocumentSource interface {
	Fetch(ctx context.Context, count int) ([]Document, error)
}

// Summarizer generates textual summaries through a remote generative-text
// service. Returned text is validated by the caller, not the service.
type Summarizer interface {
	Summarize(ctx context.Context, doc Document, language string) (string, error)
	ShortSummarize(ctx context.Context, doc Document, language string) (string, error)
}

// VoiceParams selects the narration voice for a synthesis call.
type VoiceParams struct {
	LanguageCode string
	Voice        string
	SpeakingRate float64
}

// SpeechClient performs one remote text-to-speech call. The service enforces
// a hard per-call byte budget on the input text; exceeding it is a permanent
// error.
type SpeechClient interface {
	Synthesize(ctx context.Context, text string, params VoiceParams) ([]byte, error)
}

// ObjectStore is a key-value blob store with idempotent whole-object
// overwrite semantics. Upload returns an opaque reference to the stored
// object.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
}
