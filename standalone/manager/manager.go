package manager

import (
	"context"
	"errors"
	"fmt"

	"arcmotion/standalone"
	"arcmotion/standalone/config"
	"arcmotion/standalone/gcode"
	"arcmotion/standalone/kinematics"
	"arcmotion/standalone/planner"
)

// ErrStopped is returned for input received after Stop or EmergencyStop
var ErrStopped = errors.New("manager stopped")

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Manager coordinates all standalone mode components
type Manager struct {
	config      *standalone.MachineConfig
	parser      *gcode.Parser
	interpreter *gcode.Interpreter
	planner     *planner.Planner
	kinematics  kinematics.Kinematics
	debug       DebugWriter

	// Serial interface
	inputBuffer  []byte
	outputBuffer []byte

	// Status
	initialized bool
	running     bool
	stopped     bool // Set by Stop, cleared by Start
}

// NewManager creates a new standalone mode manager
func NewManager(configData []byte) (*Manager, error) {
	// Load configuration
	cfg, err := config.LoadConfig(configData)
	if err != nil {
		return nil, err
	}

	return NewManagerWithConfig(cfg)
}

// NewManagerWithConfig creates a manager with an existing config
func NewManagerWithConfig(cfg *standalone.MachineConfig) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	mgr := &Manager{
		config:       cfg,
		parser:       gcode.NewParser(),
		debug:        func(string) {}, // No-op by default
		inputBuffer:  make([]byte, 0, 256),
		outputBuffer: make([]byte, 0, 256),
	}

	return mgr, nil
}

// SetDebugWriter sets the debug output function
func (m *Manager) SetDebugWriter(writer DebugWriter) {
	if writer == nil {
		writer = func(string) {}
	}
	m.debug = writer
}

// Initialize sets up all components; planned moves are handed to exec on Flush
func (m *Manager) Initialize(exec planner.Executor) error {
	if m.initialized {
		return errors.New("already initialized")
	}

	kin, err := kinematics.New(m.config)
	if err != nil {
		return err
	}
	m.kinematics = kin

	m.planner = planner.NewPlanner(m.config, kin, exec)

	m.interpreter, err = gcode.NewInterpreter(m.config, m.planner)
	if err != nil {
		return err
	}
	if m.config.SoftEndstops {
		m.interpreter.SetClamp(kinematics.ArcClamp(kin))
	}
	m.interpreter.SetResponder(m.SendResponse)

	m.initialized = true
	return nil
}

// Interpreter returns the G-code interpreter (nil before Initialize)
func (m *Manager) Interpreter() *gcode.Interpreter {
	return m.interpreter
}

// ProcessLine processes a line of G-code
func (m *Manager) ProcessLine(line string) error {
	if !m.initialized {
		return errors.New("manager not initialized")
	}
	if m.stopped {
		return ErrStopped
	}

	// Parse G-code
	cmd, err := m.parser.ParseLine(line)
	if err != nil {
		return err
	}

	// Execute command
	if cmd != nil {
		if err := m.interpreter.Execute(cmd); err != nil {
			m.debug(fmt.Sprintf("command %q failed: %v", line, err))
			return err
		}
	}

	return nil
}

// ProcessByte processes a single byte of input (for serial streaming)
func (m *Manager) ProcessByte(b byte) error {
	// Check for line terminator
	if b != '\n' && b != '\r' {
		m.inputBuffer = append(m.inputBuffer, b)
		return nil
	}

	line := string(m.inputBuffer)
	m.inputBuffer = m.inputBuffer[:0] // Clear buffer

	// Remove trailing whitespace
	for len(line) > 0 && (line[len(line)-1] == ' ' || line[len(line)-1] == '\t') {
		line = line[:len(line)-1]
	}

	if len(line) == 0 {
		return nil
	}

	if err := m.ProcessLine(line); err != nil {
		m.SendResponse("Error:" + err.Error() + "\n")
		return err
	}

	m.SendResponse("ok\n")
	return nil
}

// Flush hands all planned moves to the executor
func (m *Manager) Flush(ctx context.Context) error {
	if !m.initialized {
		return errors.New("manager not initialized")
	}
	return m.planner.Flush(ctx)
}

// SendResponse queues a response to be sent to the host
func (m *Manager) SendResponse(response string) {
	m.outputBuffer = append(m.outputBuffer, []byte(response)...)
}

// GetOutput returns any pending output and clears the buffer
func (m *Manager) GetOutput() []byte {
	if len(m.outputBuffer) == 0 {
		return nil
	}

	output := make([]byte, len(m.outputBuffer))
	copy(output, m.outputBuffer)
	m.outputBuffer = m.outputBuffer[:0]
	return output
}

// Start begins standalone operation
func (m *Manager) Start() error {
	if !m.initialized {
		return errors.New("manager not initialized")
	}

	m.running = true
	m.stopped = false
	m.SendResponse("start\n")
	return nil
}

// Stop halts all operation, drops pending moves and rejects input until Start
func (m *Manager) Stop() {
	m.running = false
	m.stopped = true
	if m.planner != nil {
		m.planner.ClearQueue()
	}
}

// IsRunning returns whether the manager is running
func (m *Manager) IsRunning() bool {
	return m.running
}

// GetState returns the current machine state
func (m *Manager) GetState() *standalone.MachineState {
	if m.interpreter != nil {
		return m.interpreter.GetState()
	}
	return nil
}

// EmergencyStop drops everything queued and reports the halt
func (m *Manager) EmergencyStop() {
	m.Stop()
	m.inputBuffer = m.inputBuffer[:0]
	m.SendResponse("!! emergency stop\n")
	m.debug("emergency stop")
}
