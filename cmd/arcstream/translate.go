package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"arcmotion/host/stream"
	"arcmotion/standalone"
	"arcmotion/standalone/gcode"
	"arcmotion/standalone/manager"
)

// translator feeds G-code through the manager and writes the result.
// Motion and modal commands are absorbed: the manager turns moves into
// absolute G1 segments. Everything else is forwarded after the moves
// queued before it.
type translator struct {
	mgr    *manager.Manager
	out    *stream.Streamer
	parser *gcode.Parser
	debug  func(string)
	lineNo int
}

func newTranslator(mgr *manager.Manager, out *stream.Streamer) *translator {
	return &translator{
		mgr:    mgr,
		out:    out,
		parser: gcode.NewParser(),
		debug:  func(string) {},
	}
}

// Run translates every line from r. A cancelled context emergency-stops the
// manager so nothing queued after the interrupt is sent.
func (t *translator) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		err := ctx.Err()
		if err == nil {
			err = t.Line(ctx, scanner.Text())
		}
		if err != nil {
			if ctx.Err() != nil {
				t.mgr.EmergencyStop()
			}
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return t.mgr.Flush(ctx)
}

// Line translates a single input line
func (t *translator) Line(ctx context.Context, line string) error {
	t.lineNo++
	line = strings.TrimSpace(line)

	cmd, err := t.parser.ParseLine(line)
	if err != nil {
		return fmt.Errorf("line %d: %w", t.lineNo, err)
	}
	if cmd == nil || cmd.Type == 0 {
		return nil
	}

	if err := t.mgr.ProcessLine(line); err != nil {
		return fmt.Errorf("line %d %q: %w", t.lineNo, line, err)
	}
	if resp := t.mgr.GetOutput(); resp != nil {
		t.debug(strings.TrimSpace(string(resp)))
	}
	if err := t.mgr.Flush(ctx); err != nil {
		return fmt.Errorf("line %d: %w", t.lineNo, err)
	}

	if absorbed(cmd) {
		return nil
	}
	return t.out.Send(ctx, passthrough(line))
}

// absorbed reports whether cmd is fully expressed by the emitted G1/T lines
func absorbed(cmd *standalone.GCodeCommand) bool {
	switch cmd.Type {
	case 'G':
		switch cmd.Number {
		case 0, 1, 2, 3, 17, 18, 19, 90, 91:
			return true
		}
	case 'M':
		return cmd.Number == 82 || cmd.Number == 83
	case 'T':
		return true
	}
	return false
}

// passthrough strips comments, line number and checksum so the line can be renumbered
func passthrough(line string) string {
	if idx := strings.IndexAny(line, ";("); idx >= 0 {
		line = line[:idx]
	}
	if idx := strings.IndexByte(line, '*'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)

	if len(line) > 0 && (line[0] == 'N' || line[0] == 'n') {
		i := 1
		for i < len(line) && line[i] >= '0' && line[i] <= '9' {
			i++
		}
		if i > 1 {
			line = strings.TrimSpace(line[i:])
		}
	}
	return line
}
