// Command arcstream expands G2/G3 arcs into G1 segments and writes the
// result to a file, stdout, or a printer on a serial port.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"strings"
	"time"

	"arcmotion/host/preview"
	"arcmotion/host/serial"
	"arcmotion/host/stream"
	"arcmotion/standalone"
	"arcmotion/standalone/arc"
	"arcmotion/standalone/config"
	"arcmotion/standalone/kinematics"
	"arcmotion/standalone/manager"
	"arcmotion/standalone/planner"
	"arcmotion/standalone/stepgen"
)

var (
	configPath  = flag.String("config", "", "Machine config JSON (default: 220x220x250 cartesian)")
	inPath      = flag.String("in", "-", "Input G-code file ('-' for stdin)")
	outPath     = flag.String("out", "-", "Output file ('-' for stdout); ignored with -device")
	device      = flag.String("device", "", "Stream to a printer on this serial device")
	baud        = flag.Int("baud", 115200, "Serial baud rate")
	resolution  = flag.Float64("resolution", 0, "Arc segment length in mm (overrides config)")
	correction  = flag.Int("correction", 0, "Exact trig correction interval (overrides config)")
	previewPath = flag.String("preview", "", "Render the toolpath to this image (png, svg, pdf)")
	planeName   = flag.String("plane", "xy", "Preview projection plane: xy, xz or yz")
	numbered    = flag.Bool("numbered", false, "Add line numbers and checksums (always on with -device)")
	verbose     = flag.Bool("verbose", false, "Enable verbose output")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	plane, err := preview.ParsePlane(*planeName)
	if err != nil {
		log.Fatalf("plane: %v", err)
	}

	in, err := openInput(*inPath)
	if err != nil {
		log.Fatalf("input: %v", err)
	}
	defer in.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, closeOut, err := openOutput()
	if err != nil {
		log.Fatalf("output: %v", err)
	}
	defer closeOut()

	if *verbose {
		out.Debug = func(msg string) { log.Printf("printer: %s", msg) }
	}

	var exec planner.Executor = out
	var rec *preview.Recorder
	if *previewPath != "" {
		rec = preview.NewRecorder(out)
		exec = rec
	}
	var steps *stepgen.Generator
	if *verbose {
		kin, err := kinematics.New(cfg)
		if err != nil {
			log.Fatalf("kinematics: %v", err)
		}
		if steps, err = stepgen.NewGenerator(cfg, kin, exec); err != nil {
			log.Fatalf("stepgen: %v", err)
		}
		exec = steps
	}

	mgr, err := manager.NewManagerWithConfig(cfg)
	if err != nil {
		log.Fatalf("manager: %v", err)
	}
	if *verbose {
		mgr.SetDebugWriter(func(msg string) { log.Print(msg) })
	}
	if err := mgr.Initialize(exec); err != nil {
		log.Fatalf("initialize: %v", err)
	}
	if *verbose {
		mgr.Interpreter().SetArcObserver(logArc)
	}

	if err := mgr.Start(); err != nil {
		log.Fatalf("start: %v", err)
	}
	if err := out.Begin(ctx); err != nil {
		log.Fatalf("begin: %v", err)
	}

	t := newTranslator(mgr, out)
	if *verbose {
		t.debug = func(msg string) { log.Print(msg) }
	}
	start := time.Now()
	if err := t.Run(ctx, in); err != nil {
		if ctx.Err() != nil {
			log.Printf("interrupted: %s", strings.TrimSpace(string(mgr.GetOutput())))
		}
		log.Fatalf("%v", err)
	}
	if *verbose {
		log.Printf("sent %d lines in %v", out.Sent(), time.Since(start).Round(time.Millisecond))
		log.Printf("steps: %s", steps.Summary())
	}

	if rec != nil {
		if err := preview.Render(rec.Moves, plane, *previewPath); err != nil {
			log.Fatalf("preview: %v", err)
		}
		log.Printf("preview written to %s (%d moves)", *previewPath, len(rec.Moves))
	}
}

func loadConfig() (*standalone.MachineConfig, error) {
	cfg := config.DefaultCartesianConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			return nil, err
		}
	}
	if *resolution > 0 {
		cfg.Arc.MMPerArcSegment = *resolution
	}
	if *correction > 0 {
		cfg.Arc.NArcCorrection = *correction
	}
	return cfg, config.Validate(cfg)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func openOutput() (*stream.Streamer, func(), error) {
	opts := stream.DefaultOptions()

	if *device != "" {
		serialCfg := serial.DefaultConfig(*device)
		serialCfg.Baud = *baud
		port, err := serial.Open(serialCfg)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("connected to %s at %d baud", *device, *baud)
		return stream.NewPrinterStreamer(port, opts), func() { port.Close() }, nil
	}

	opts.Numbered = *numbered
	if *outPath == "-" {
		return stream.NewStreamer(os.Stdout, opts), func() {}, nil
	}
	f, err := os.Create(*outPath)
	if err != nil {
		return nil, nil, err
	}
	return stream.NewStreamer(f, opts), func() {
		if err := f.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close %s: %v\n", *outPath, err)
		}
	}, nil
}

func logArc(req arc.Request, g arc.Geometry) {
	dir := "G3"
	if req.Direction == arc.Clockwise {
		dir = "G2"
	}
	log.Printf("%s r=%.3f center=(%.3f, %.3f) sweep=%.1f° length=%.3f segments=%d",
		dir, req.Radius, g.CenterA, g.CenterB, g.AngularTravel*180/math.Pi, g.PathLength, g.Segments)
}
