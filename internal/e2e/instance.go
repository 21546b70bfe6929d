package e2e

import (
	"bytes"
	"context"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	GameLogName    = "game.log"
	DefaultLogsDir = "logs"

	shutdownTimeout = 5 * time.Second
)

// Instance is a running game process owned by one scenario
type Instance struct {
	Name string
	// Dir holds the game log and screenshots, ie. "logs/Click_the_button"
	Dir     string
	LogFile string
	Port    int

	cmd     *exec.Cmd
	output  *lockedBuffer
	exited  chan struct{}
	waitErr error
}

// Addr is host:port of the test bridge
func (inst *Instance) Addr() string {
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(inst.Port))
}

func (inst *Instance) BaseURL() string {
	return "http://" + inst.Addr()
}

func (inst *Instance) WebSocketURL() string {
	return "ws://" + inst.Addr() + "/ws"
}

// Output is what the process wrote to stdout and stderr
func (inst *Instance) Output() string {
	return inst.output.String()
}

// Exited reports whether the process has stopped
func (inst *Instance) Exited() bool {
	select {
	case <-inst.exited:
		return true
	default:
		return false
	}
}

type InstanceManagerOptions struct {
	// Binary is the built game executable
	Binary string
	// LogsDir defaults to DefaultLogsDir
	LogsDir string
	// Env is appended to the runner's own environment
	Env []string
	Log *log.Logger
}

// InstanceManager starts and stops game processes, one per scenario
type InstanceManager struct {
	options InstanceManagerOptions
	log     *log.Logger

	mu        sync.Mutex
	instances map[*Instance]struct{}
	// dirs are the scenario dirs held by running instances
	dirs map[string]struct{}
}

func NewInstanceManager(options InstanceManagerOptions) (*InstanceManager, error) {
	if options.Binary == "" {
		return nil, errors.New("cannot give empty game binary path")
	}
	if options.LogsDir == "" {
		options.LogsDir = DefaultLogsDir
	}
	logsDir, err := filepath.Abs(options.LogsDir)
	if err != nil {
		return nil, errors.Wrap(err, "unable to resolve logs dir")
	}
	options.LogsDir = logsDir
	logger := options.Log
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	return &InstanceManager{
		options:   options,
		log:       logger,
		instances: make(map[*Instance]struct{}),
		dirs:      make(map[string]struct{}),
	}, nil
}

// ScenarioDir is where a scenario's log and screenshots go. Instances running
// at the same time with the same dir get a "-N" suffix, see reserveDir.
func (m *InstanceManager) ScenarioDir(scenario string) string {
	return filepath.Join(m.options.LogsDir, SanitizeName(scenario))
}

// reserveDir returns ScenarioDir, or the first free "-2", "-3"... variant
// while another running instance holds it. Sanitised names are truncated, so
// different scenarios can collide, as do Scenario Outline rows.
func (m *InstanceManager) reserveDir(scenario string) string {
	base := m.ScenarioDir(scenario)
	m.mu.Lock()
	defer m.mu.Unlock()
	dir := base
	for n := 2; ; n++ {
		if _, taken := m.dirs[dir]; !taken {
			break
		}
		dir = base + "-" + strconv.Itoa(n)
	}
	m.dirs[dir] = struct{}{}
	return dir
}

func (m *InstanceManager) releaseDir(dir string) {
	m.mu.Lock()
	delete(m.dirs, dir)
	m.mu.Unlock()
}

// Start spawns the game in test mode and waits until its bridge accepts
// websocket connections.
func (m *InstanceManager) Start(ctx context.Context, scenario string) (*Instance, error) {
	dir := m.reserveDir(scenario)
	inst, err := m.start(scenario, dir)
	if err != nil {
		m.releaseDir(dir)
		return nil, err
	}
	if err := m.WaitForReady(ctx, inst); err != nil {
		m.Stop(inst)
		return nil, err
	}
	return inst, nil
}

func (m *InstanceManager) start(scenario, dir string) (*Instance, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "unable to create scenario dir %s", dir)
	}
	logFile := filepath.Join(dir, GameLogName)
	// start each scenario with an empty log so assertions only see this run
	if err := os.WriteFile(logFile, nil, 0o644); err != nil {
		return nil, errors.Wrapf(err, "unable to reset log file %s", logFile)
	}
	port, err := findAvailablePort()
	if err != nil {
		return nil, err
	}

	output := &lockedBuffer{}
	cmd := exec.Command(m.options.Binary, "--test-mode")
	cmd.Env = append(os.Environ(), m.options.Env...)
	cmd.Env = append(cmd.Env,
		"TEST_PORT="+strconv.Itoa(port),
		"TEST_LOG_FILE="+logFile,
	)
	cmd.Stdout = output
	cmd.Stderr = output

	m.log.Debug("starting game", "scenario", scenario, "binary", m.options.Binary, "port", port, "dir", dir)
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "unable to start %s", m.options.Binary)
	}
	inst := &Instance{
		Name:    scenario,
		Dir:     dir,
		LogFile: logFile,
		Port:    port,
		cmd:     cmd,
		output:  output,
		exited:  make(chan struct{}),
	}
	go func() {
		inst.waitErr = cmd.Wait()
		close(inst.exited)
	}()

	m.mu.Lock()
	m.instances[inst] = struct{}{}
	m.mu.Unlock()
	return inst, nil
}

// WaitForReady retries a websocket handshake against the instance
func (m *InstanceManager) WaitForReady(ctx context.Context, inst *Instance) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second

	var lastErr error
	err := backoff.Retry(func() error {
		if inst.Exited() {
			return backoff.Permanent(errors.Errorf("game exited before it was ready: %v\n%s", inst.waitErr, inst.Output()))
		}
		dialCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, inst.WebSocketURL(), nil)
		if err != nil {
			lastErr = err
			m.log.Debug("game not ready yet", "addr", inst.Addr(), "err", err)
			return err
		}
		conn.Close()
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		if lastErr != nil && !inst.Exited() {
			return errors.Wrapf(lastErr, "timed out waiting for game on %s", inst.Addr())
		}
		return err
	}
	m.log.Debug("game is ready", "addr", inst.Addr())
	return nil
}

// Stop asks the game to exit with SIGTERM and kills it if it hasn't after 5 seconds
func (m *InstanceManager) Stop(inst *Instance) error {
	m.mu.Lock()
	delete(m.instances, inst)
	m.mu.Unlock()
	// the dir stays taken until the game can no longer write to it
	defer m.releaseDir(inst.Dir)

	if inst.Exited() {
		return nil
	}
	if err := inst.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// ie. Windows
		m.log.Debug("SIGTERM failed, killing game", "err", err)
		return m.kill(inst)
	}
	select {
	case <-inst.exited:
		return nil
	case <-time.After(shutdownTimeout):
		m.log.Warn("game did not exit in time, killing it", "scenario", inst.Name)
		return m.kill(inst)
	}
}

func (m *InstanceManager) kill(inst *Instance) error {
	if err := inst.cmd.Process.Kill(); err != nil && !inst.Exited() {
		return errors.Wrap(err, "unable to kill game")
	}
	<-inst.exited
	return nil
}

// StopAll stops any instance still running, used on interrupt
func (m *InstanceManager) StopAll() {
	m.mu.Lock()
	instances := make([]*Instance, 0, len(m.instances))
	for inst := range m.instances {
		instances = append(instances, inst)
	}
	m.mu.Unlock()

	for _, inst := range instances {
		if err := m.Stop(inst); err != nil {
			m.log.Error("unable to stop game", "scenario", inst.Name, "err", err)
		}
	}
}

func findAvailablePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, errors.Wrap(err, "no available port")
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
