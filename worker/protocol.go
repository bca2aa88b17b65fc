package worker

import "encoding/json"

// Request type tags understood by the worker. Only TypeASR is handled;
// every other tag is answered with an unknown_request_type error so the
// daemon's reader stays in lockstep (one line out per well-formed line in).
const (
	TypeASR       = "asr"
	TypeASRResult = "asr_result"
)

// The daemon treats a non-null error as the sole failure signal; these
// tags exist for debugging, not dispatch.
const (
	errTagInvalidRequest = "invalid_request"
	errTagGroqFailed     = "groq_asr_failed"
	errTagHandlerError   = "asr_handler_error"
	errTagUnknownType    = "unknown_request_type"
)

// envelope is the first decode pass: just enough of a request to dispatch
// on its type tag.
type envelope struct {
	Type json.RawMessage `json:"type"`
}

// requestType returns the tag as a string, or the raw JSON for requests
// whose type field isn't one.
func (e envelope) requestType() string {
	var tag string
	if err := json.Unmarshal(e.Type, &tag); err == nil {
		return tag
	}
	return string(e.Type)
}

type ASRRequest struct {
	Type        string  `json:"type"`
	AudioFormat string  `json:"audio_format"`
	SampleRate  int     `json:"sample_rate"`
	Samples     []int64 `json:"samples"`
}

// Response is the single reply shape for every handled request.
// Confidence is never set; the field stays in the schema because the
// daemon's decoder declares it.
type Response struct {
	Type       string   `json:"type"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence"`
	Error      *string  `json:"error"`
}

func successResponse(text string) *Response {
	return &Response{Type: TypeASRResult, Text: text}
}

func errorResponse(tag string, cause string) *Response {
	message := tag + ": " + cause
	return &Response{Type: TypeASRResult, Error: &message}
}
