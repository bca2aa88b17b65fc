package asr

import "context"

// SpeechRecognitionAPI is implemented by remote transcription backends.
// Run submits a complete audio container (WAV bytes) and blocks until the
// backend answers or ctx is cancelled. Failures are returned as values;
// implementations never panic across this boundary.
type SpeechRecognitionAPI interface {
	Run(ctx context.Context, data []byte) (*ASROutput, error)
}

type ASROutput struct {
	Text      string
	ModelName string
}
