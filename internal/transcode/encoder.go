// Package transcode runs an external ffmpeg process to convert fetched
// audio into one of the fixed output profiles. Invocations are bounded by a
// worker pool; sources that already match the target container skip the
// encoder entirely.
package transcode

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"audiocast/internal/domain"
	"audiocast/internal/metrics"
)

// Error carries the encoder's exit failure with its diagnostic output
// truncated to a stable bound.
type Error struct {
	Profile string
	Stderr  string
	err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transcode to %s failed: %v: %s", e.Profile, e.err, e.Stderr)
}

func (e *Error) Unwrap() error { return e.err }

const maxStderr = 500

func truncateStderr(s string) string {
	if len(s) > maxStderr {
		return s[:maxStderr]
	}
	return s
}

// invoker runs one encoder process to completion. Extracted so tests can
// observe arguments and supply canned output without spawning processes.
type invoker interface {
	invoke(ctx context.Context, argv []string, stdin io.Reader, stdout io.Writer) (stderr string, err error)
}

type execInvoker struct{}

func (execInvoker) invoke(ctx context.Context, argv []string, stdin io.Reader, stdout io.Writer) (string, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	// A non-file Stdin is pumped on its own goroutine by os/exec, so the
	// child never deadlocks against our stdout read.
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

type Encoder struct {
	binary  string
	logger  *slog.Logger
	workers chan struct{}
	inv     invoker
}

func NewEncoder(binary string, workers int, logger *slog.Logger) *Encoder {
	if workers < 1 {
		workers = 1
	}
	return &Encoder{
		binary:  binary,
		logger:  logger,
		workers: make(chan struct{}, workers),
		inv:     execInvoker{},
	}
}

// Check verifies the encoder binary is reachable. Called once at startup;
// a missing binary is fatal for the whole service.
func (e *Encoder) Check() error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return fmt.Errorf("%w: %q", domain.ErrEncoderNotFound, e.binary)
	}
	return nil
}

// Encode converts src into the profile's format. When the source already
// matches the target container (and bit depth, for PCM targets) the bytes
// are returned untouched and no process is spawned. srcHint is a best-effort
// container name from the resolver, used only for logging.
func (e *Encoder) Encode(ctx context.Context, src []byte, srcHint string, profile domain.Profile) ([]byte, error) {
	if container, depth := sniff(src); container == profile.Container {
		if profile.BitDepth == 0 || depth == 0 || depth == profile.BitDepth {
			metrics.TranscodeBypass.Inc()
			e.logger.Debug("source already in target format, bypassing encoder",
				slog.String("container", container),
				slog.Int("bitDepth", depth),
			)
			return src, nil
		}
	}

	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.release()

	if profile.Lossless {
		return e.encodeToFile(ctx, bytes.NewReader(src), "pipe:0", profile)
	}
	return e.encodeToPipe(ctx, bytes.NewReader(src), "pipe:0", profile)
}

// EncodeURL converts a remote source the encoder fetches itself. Used for
// extracted stream URLs where buffering the source locally buys nothing.
func (e *Encoder) EncodeURL(ctx context.Context, srcURL string, profile domain.Profile) ([]byte, error) {
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.release()

	if profile.Lossless {
		return e.encodeToFile(ctx, nil, srcURL, profile)
	}
	return e.encodeToPipe(ctx, nil, srcURL, profile)
}

func (e *Encoder) acquire(ctx context.Context) error {
	select {
	case e.workers <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Encoder) release() { <-e.workers }

// encodeToPipe streams the output over stdout. Suitable for formats whose
// container needs no header backpatching after the stream ends.
func (e *Encoder) encodeToPipe(ctx context.Context, stdin io.Reader, input string, profile domain.Profile) ([]byte, error) {
	argv := append([]string{e.binary, "-i", input, "-vn"}, profile.CodecArgs...)
	argv = append(argv, "pipe:1")

	var out bytes.Buffer
	if err := e.run(ctx, argv, stdin, &out, profile); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// encodeToFile writes the output to a temporary file so the encoder can
// seek back and patch container headers (duration, sample counts), then
// reads the file back.
func (e *Encoder) encodeToFile(ctx context.Context, stdin io.Reader, input string, profile domain.Profile) ([]byte, error) {
	tmp, err := os.CreateTemp("", "audiocast-enc-*"+profile.Ext)
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	argv := append([]string{e.binary, "-y", "-i", input, "-vn"}, profile.CodecArgs...)
	argv = append(argv, tmpPath)

	if err := e.run(ctx, argv, stdin, io.Discard, profile); err != nil {
		return nil, err
	}
	return os.ReadFile(tmpPath)
}

func (e *Encoder) run(ctx context.Context, argv []string, stdin io.Reader, stdout io.Writer, profile domain.Profile) error {
	metrics.TranscodeJobs.Inc()
	start := time.Now()
	stderr, err := e.inv.invoke(ctx, argv, stdin, stdout)
	metrics.TranscodeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TranscodeFailures.Inc()
		terr := &Error{Profile: profile.Key, Stderr: truncateStderr(stderr), err: err}
		e.logger.Error("encoder failed",
			slog.String("profile", profile.Key),
			slog.String("stderr", terr.Stderr),
		)
		return terr
	}
	e.logger.Info("transcode complete",
		slog.String("profile", profile.Key),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}
