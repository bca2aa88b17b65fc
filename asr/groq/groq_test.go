package groq

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturedRequest struct {
	method        string
	path          string
	authorization string
	model         string
	format        string
	fileName      string
	fileData      []byte
}

func newTranscriptionServer(t *testing.T, body string, status int) (*httptest.Server, *capturedRequest) {
	t.Helper()

	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.authorization = r.Header.Get("Authorization")

		if err := r.ParseMultipartForm(32 << 20); err == nil {
			captured.model = r.FormValue("model")
			captured.format = r.FormValue("response_format")
			if file, header, err := r.FormFile("file"); err == nil {
				captured.fileName = header.Filename
				captured.fileData, _ = io.ReadAll(file)
				file.Close()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv, captured
}

func TestRunUploadsMultipartAndReturnsText(t *testing.T) {
	t.Parallel()

	srv, captured := newTranscriptionServer(t, `{"text":"hello there"}`, http.StatusOK)
	client := NewGroqClient(GroqClientOptions{
		Token:     "test-key",
		ModelName: "whisper-large-v3-turbo",
		BaseURL:   srv.URL,
	}, zap.NewNop())

	out, err := client.Run(context.Background(), []byte("RIFF-ish payload"))
	require.NoError(t, err)
	require.Equal(t, "hello there", out.Text)
	require.Equal(t, "groq-whisper-large-v3-turbo", out.ModelName)

	require.Equal(t, http.MethodPost, captured.method)
	require.Equal(t, "/audio/transcriptions", captured.path)
	require.Equal(t, "Bearer test-key", captured.authorization)
	require.Equal(t, "whisper-large-v3-turbo", captured.model)
	require.Equal(t, "json", captured.format)
	require.Equal(t, "audio.wav", captured.fileName)
	require.Equal(t, []byte("RIFF-ish payload"), captured.fileData)
}

func TestRunMissingTextFieldIsEmptyTranscript(t *testing.T) {
	t.Parallel()

	srv, _ := newTranscriptionServer(t, `{}`, http.StatusOK)
	client := NewGroqClient(GroqClientOptions{Token: "k", ModelName: "m", BaseURL: srv.URL}, zap.NewNop())

	out, err := client.Run(context.Background(), []byte("audio"))
	require.NoError(t, err)
	require.Empty(t, out.Text)
}

func TestRunNonOKStatus(t *testing.T) {
	t.Parallel()

	srv, _ := newTranscriptionServer(t, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	client := NewGroqClient(GroqClientOptions{Token: "bad", ModelName: "m", BaseURL: srv.URL}, zap.NewNop())

	_, err := client.Run(context.Background(), []byte("audio"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}

func TestRunOversizedResponseRejected(t *testing.T) {
	t.Parallel()

	srv, _ := newTranscriptionServer(t, strings.Repeat("x", maxResponseSize+16), http.StatusOK)
	client := NewGroqClient(GroqClientOptions{Token: "k", ModelName: "m", BaseURL: srv.URL}, zap.NewNop())

	_, err := client.Run(context.Background(), []byte("audio"))
	require.Error(t, err)
}

func TestNewGroqClientDefaultsBaseURL(t *testing.T) {
	t.Parallel()

	// empty token is allowed: the failure must surface on first call
	client := NewGroqClient(GroqClientOptions{ModelName: "m"}, zap.NewNop())
	require.NotNil(t, client)
	require.Equal(t, DefaultBaseURL, client.baseURL)
}
