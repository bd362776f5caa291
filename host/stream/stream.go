// Package stream sends planned moves to a Marlin-style printer as G1 lines.
//
// In acknowledged mode every line waits for the printer's "ok". Numbered
// lines carry N<line> and *checksum so a "Resend: N" can be replayed from
// the history buffer.
package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"arcmotion/host/serial"
	"arcmotion/standalone"
	"arcmotion/standalone/gcode"
)

var (
	ErrPrinterHalted     = errors.New("printer halted")
	ErrResendUnavailable = errors.New("resend requested for a line no longer in history")
	ErrAckTimeout        = errors.New("timed out waiting for ok")
)

// Options configures a Streamer
type Options struct {
	Numbered    bool          // Prefix N<line> and append *checksum
	HistorySize int           // Numbered lines kept for resends
	AckTimeout  time.Duration // 0 waits forever
}

// DefaultOptions returns options suitable for a USB-connected Marlin board
func DefaultOptions() Options {
	return Options{
		Numbered:    true,
		HistorySize: 64,
		AckTimeout:  30 * time.Second,
	}
}

// Streamer writes moves as G-code and implements planner.Executor
type Streamer struct {
	w    io.Writer
	r    *bufio.Reader // nil when lines are not acknowledged
	opts Options

	lineNo  int
	history map[int]string
	tool    int
	sent    int

	// Debug receives unsolicited printer output (echo:, busy:, temperatures)
	Debug func(string)
}

// NewStreamer creates a streamer that writes without waiting for acknowledgements
func NewStreamer(w io.Writer, opts Options) *Streamer {
	if opts.HistorySize <= 0 {
		opts.HistorySize = 64
	}
	return &Streamer{
		w:       w,
		opts:    opts,
		lineNo:  1,
		history: make(map[int]string),
		tool:    -1,
		Debug:   func(string) {},
	}
}

// NewPrinterStreamer creates a streamer that waits for "ok" after every line
func NewPrinterStreamer(port io.ReadWriter, opts Options) *Streamer {
	s := NewStreamer(port, opts)
	s.r = bufio.NewReader(port)
	return s
}

// Begin resets line numbering and puts the printer in absolute mode
func (s *Streamer) Begin(ctx context.Context) error {
	if s.opts.Numbered {
		s.lineNo = 0
		s.history = make(map[int]string)
		if err := s.Send(ctx, "M110 N0"); err != nil {
			return err
		}
	}
	if err := s.Send(ctx, "G90"); err != nil {
		return err
	}
	return s.Send(ctx, "M82")
}

// Execute sends one planned move
func (s *Streamer) Execute(ctx context.Context, move *standalone.Move) error {
	if move.Tool != s.tool {
		if err := s.Send(ctx, "T"+strconv.Itoa(move.Tool)); err != nil {
			return err
		}
		s.tool = move.Tool
	}
	return s.Send(ctx, FormatMove(move))
}

// FormatMove renders a move as an absolute G1 line; feed rate is in mm/min
func FormatMove(move *standalone.Move) string {
	end := move.End
	return fmt.Sprintf("G1 X%.3f Y%.3f Z%.3f E%.5f F%.0f", end.X, end.Y, end.Z, end.E, move.Velocity*60)
}

// Sent returns the number of lines written, excluding resends
func (s *Streamer) Sent() int {
	return s.sent
}

// Send writes one line and, when acknowledged, waits for its "ok"
func (s *Streamer) Send(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.opts.Numbered {
		body := fmt.Sprintf("N%d %s", s.lineNo, line)
		line = fmt.Sprintf("%s*%d", body, gcode.Checksum(body))
		s.history[s.lineNo] = line
		delete(s.history, s.lineNo-s.opts.HistorySize)
		s.lineNo++
	}

	if _, err := io.WriteString(s.w, line+"\n"); err != nil {
		return fmt.Errorf("write %q: %w", line, err)
	}
	s.sent++

	if s.r == nil {
		return nil
	}
	return s.waitAck(ctx)
}

// waitAck reads printer output until "ok", replaying lines on "Resend:"
func (s *Streamer) waitAck(ctx context.Context) error {
	resendFrom := -1
	for {
		resp, err := s.readLine(ctx)
		if err != nil {
			return err
		}

		switch {
		case strings.HasPrefix(resp, "ok"):
			if resendFrom >= 0 {
				return s.replay(ctx, resendFrom)
			}
			return nil
		case strings.HasPrefix(resp, "Resend:") || strings.HasPrefix(resp, "rs "):
			n, err := parseResend(resp)
			if err != nil {
				return err
			}
			resendFrom = n
		case strings.HasPrefix(resp, "!!"):
			return fmt.Errorf("%w: %s", ErrPrinterHalted, resp)
		case strings.HasPrefix(resp, "Error:"):
			// Checksum and line number errors are followed by a resend request
			if !isRecoverable(resp) {
				return fmt.Errorf("%w: %s", ErrPrinterHalted, resp)
			}
			s.Debug(resp)
		default:
			s.Debug(resp)
		}
	}
}

// replay resends history from line n up to the last line sent
func (s *Streamer) replay(ctx context.Context, n int) error {
	last := s.lineNo
	for i := n; i < last; i++ {
		line, ok := s.history[i]
		if !ok {
			return fmt.Errorf("%w: N%d", ErrResendUnavailable, i)
		}
		if _, err := io.WriteString(s.w, line+"\n"); err != nil {
			return fmt.Errorf("resend %q: %w", line, err)
		}
		if err := s.waitAck(ctx); err != nil {
			return err
		}
	}
	return nil
}

// readLine reads one trimmed response line, retrying across port read timeouts
func (s *Streamer) readLine(ctx context.Context) (string, error) {
	var buf strings.Builder
	start := time.Now()
	for {
		chunk, err := s.r.ReadString('\n')
		buf.WriteString(chunk)
		if err == nil {
			return strings.TrimSpace(buf.String()), nil
		}
		if !errors.Is(err, serial.ErrTimeout) {
			return "", fmt.Errorf("read response: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if s.opts.AckTimeout > 0 && time.Since(start) > s.opts.AckTimeout {
			return "", ErrAckTimeout
		}
	}
}

func parseResend(resp string) (int, error) {
	field := strings.TrimSpace(resp[strings.IndexAny(resp, ": ")+1:])
	n, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("bad resend request %q: %w", resp, err)
	}
	return n, nil
}

func isRecoverable(resp string) bool {
	lower := strings.ToLower(resp)
	return strings.Contains(lower, "checksum") ||
		strings.Contains(lower, "line number") ||
		strings.Contains(lower, "last line")
}
