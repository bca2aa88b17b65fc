package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"github.com/Bumblebee-3/BTW-daemon/asr"
	"github.com/Bumblebee-3/BTW-daemon/media"
	"github.com/Bumblebee-3/BTW-daemon/utils"
	"go.uber.org/zap"
)

const expectedAudioFormat = "pcm_s16le"

// the daemon always resamples to 16k before handing audio over
const expectedSampleRate = 16000

type Worker struct {
	log *zap.Logger

	in  *bufio.Reader
	out *bufio.Writer

	newASR func() asr.SpeechRecognitionAPI
	client asr.SpeechRecognitionAPI
}

type WorkerOptions struct {
	Input  io.Reader
	Output io.Writer

	// NewASR constructs the recognition client on the first "asr"
	// request; the handle is kept for the rest of the process lifetime.
	NewASR func() asr.SpeechRecognitionAPI

	ParentLogger *zap.Logger
}

func NewWorker(options WorkerOptions) *Worker {
	return &Worker{
		log:    options.ParentLogger.Named("worker"),
		in:     bufio.NewReader(options.Input),
		out:    bufio.NewWriter(options.Output),
		newASR: options.NewASR,
	}
}

// Run serves the line protocol until the input closes, returning nil on
// EOF. Per-request failures are answered on the output stream; only a
// broken reader or writer ends the loop with an error.
func (w *Worker) Run(ctx context.Context) error {
	requestIndex := 0
	for {
		line, readErr := w.in.ReadString('\n')

		// a trailing line without a newline is still a request
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			requestIndex++
			reqCtx := utils.LogContext(ctx, zap.Int("request_index", requestIndex))

			if resp := w.handleLine(reqCtx, trimmed); resp != nil {
				if err := w.writeResponse(resp); err != nil {
					return fmt.Errorf("writing response: %w", err)
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				w.log.Info("input closed, shutting down")
				return nil
			}
			return fmt.Errorf("reading input: %w", readErr)
		}
	}
}

// handleLine turns one input line into at most one response. A nil
// response means the line is dropped: malformed JSON carries no type tag
// we could trust to correlate a reply, so acknowledging it would desync
// the daemon's reader.
func (w *Worker) handleLine(ctx context.Context, line string) *Response {
	log := utils.GetLogFromContext(ctx, w.log)

	var env envelope
	if err := json.Unmarshal([]byte(line), &env); err != nil {
		if !json.Valid([]byte(line)) {
			log.Error("dropping malformed json request", zap.Error(err))
			return nil
		}
		// valid JSON that isn't an object; answer so the reader stays in sync
		log.Error("request is not an object", zap.Error(err))
		return errorResponse(errTagHandlerError, fmt.Sprintf("unexpected request shape: %v", err))
	}

	if tag := env.requestType(); tag != TypeASR {
		log.Warn("unknown request type", zap.String("request_type", tag))
		return errorResponse(errTagUnknownType, tag)
	}

	return w.handleASR(ctx, line)
}

// handleASR is the recovery boundary for a single request: a panic below
// here is logged with its stack and answered generically instead of
// taking the loop down.
func (w *Worker) handleASR(ctx context.Context, line string) (resp *Response) {
	log := utils.GetLogFromContext(ctx, w.log)

	defer func() {
		if r := recover(); r != nil {
			log.With(zap.String("stack", string(debug.Stack()))).Error("recovered panic in asr handler")
			resp = errorResponse(errTagHandlerError, fmt.Sprintf("panic: %v", r))
		}
	}()

	var req ASRRequest
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return errorResponse(errTagInvalidRequest, err.Error())
	}

	if req.AudioFormat != expectedAudioFormat {
		return errorResponse(errTagInvalidRequest,
			fmt.Sprintf("unsupported audio_format %q; expected %q", req.AudioFormat, expectedAudioFormat))
	}
	if req.SampleRate != expectedSampleRate {
		return errorResponse(errTagInvalidRequest,
			fmt.Sprintf("unsupported sample_rate %d; expected %d", req.SampleRate, expectedSampleRate))
	}
	if req.Samples == nil {
		return errorResponse(errTagInvalidRequest, "samples must be a list of integers")
	}

	ctx, log = utils.LogContextWith(ctx, w.log, zap.Int("sample_count", len(req.Samples)))

	wavData := media.EncodePCM16WAV(media.PCM16Frames(req.Samples), req.SampleRate)

	if w.client == nil {
		w.client = w.newASR()
	}

	output, err := w.client.Run(ctx, wavData)
	if err != nil {
		log.Error("transcription failed", zap.Error(err))
		return errorResponse(errTagGroqFailed, fmt.Sprintf("%T: %v", err, err))
	}

	log.Debug("transcription done",
		zap.String("model", output.ModelName),
		zap.Int("text_length", len(output.Text)))
	return successResponse(output.Text)
}

// writeResponse emits one compact JSON line and flushes so the daemon
// never waits on a buffered partial line. Non-ASCII text is written
// verbatim.
func (w *Worker) writeResponse(resp *Response) error {
	enc := json.NewEncoder(w.out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	return w.out.Flush()
}
