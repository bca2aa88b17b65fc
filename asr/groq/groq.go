package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/Bumblebee-3/BTW-daemon/asr"
	"github.com/Bumblebee-3/BTW-daemon/utils"
	"go.uber.org/zap"
)

// used for the model name reported back to the daemon
const apiPrefix = "groq-"

const DefaultBaseURL = "https://api.groq.com/openai/v1"

// transcripts are short; anything bigger than this is a broken response
const maxResponseSize = 1024 * 1024

type TranscriptionResponse struct {
	// The transcription
	Text string `json:"text"`
}

type GroqClient struct {
	token   string
	model   string
	baseURL string

	log  *zap.Logger
	http *http.Client
}

type GroqClientOptions struct {
	// Token may be empty: the client is still constructed so that the
	// missing credential surfaces as an auth failure on the first call
	// instead of killing the worker at startup.
	Token     string `env:"GROQ_API_KEY"`
	ModelName string `env:"GROQ_ASR_MODEL" envDefault:"whisper-large-v3-turbo"`
	BaseURL   string `env:"GROQ_API_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
}

func NewGroqClient(options GroqClientOptions, parentLogger *zap.Logger) *GroqClient {
	g := &GroqClient{
		token:   options.Token,
		model:   options.ModelName,
		baseURL: options.BaseURL,
		log:     parentLogger.Named("groq"),
		http:    http.DefaultClient,
	}

	if g.baseURL == "" {
		g.baseURL = DefaultBaseURL
	}
	if g.token == "" {
		g.log.Warn("GROQ_API_KEY is not set")
	}

	return g
}

func (g *GroqClient) runTranscription(ctx context.Context, data []byte) (*TranscriptionResponse, error) {
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)

	file, err := form.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		return nil, fmt.Errorf("writing form file: %w", err)
	}
	if err := form.WriteField("model", g.model); err != nil {
		return nil, fmt.Errorf("writing model field: %w", err)
	}
	if err := form.WriteField("response_format", "json"); err != nil {
		return nil, fmt.Errorf("writing response_format field: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("finalizing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := utils.ReadAllLimit(resp.Body, maxResponseSize)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non-ok http response: [%d] %s", resp.StatusCode, resp.Status)
	}

	var transcription *TranscriptionResponse
	if err := json.Unmarshal(raw, &transcription); err != nil {
		return nil, fmt.Errorf("decoding response json: %w", err)
	}

	return transcription, nil
}

func (g *GroqClient) Run(ctx context.Context, data []byte) (*asr.ASROutput, error) {
	log := utils.GetLogFromContext(ctx, g.log)
	log.Debug("starting transcription", zap.Int("wav_bytes", len(data)), zap.String("model", g.model))

	resp, err := g.runTranscription(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}

	if resp == nil {
		return nil, fmt.Errorf("nil result")
	}

	// a 200 without a text field means an empty transcript, not a failure
	return &asr.ASROutput{
		ModelName: apiPrefix + g.model,
		Text:      resp.Text,
	}, nil
}
