package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	serviceScript = "gesture_service.py"
	idleShutdown  = 30 * time.Second
)

// MediaPipeRecognizer runs the MediaPipe gesture recognizer in a Python
// subprocess. Each request is an 8-byte millisecond timestamp, a 4-byte
// length and a JPEG frame; each response is one JSON line.
type MediaPipeRecognizer struct {
	config    Config
	script    string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	lastTS    int64
	idleTimer *time.Timer

	// command builds the service process; exec.Command when nil.
	command func(name string, args ...string) *exec.Cmd
}

// NewMediaPipeRecognizer creates a recognizer backed by the Python service.
// The process is started lazily on the first frame.
func NewMediaPipeRecognizer(config Config) (*MediaPipeRecognizer, error) {
	script := findScript(serviceScript)
	if script == "" {
		return nil, fmt.Errorf("%s not found", serviceScript)
	}
	if config.ModelPath == "" {
		return nil, fmt.Errorf("gesture model path not configured")
	}
	if config.MaxHands <= 0 {
		config.MaxHands = DefaultConfig().MaxHands
	}

	return &MediaPipeRecognizer{config: config, script: script}, nil
}

// Recognize sends a frame to the service and decodes its answer.
func (d *MediaPipeRecognizer) Recognize(frame *gocv.Mat, ts time.Time) (*Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// The video running mode rejects non-increasing timestamps.
	ms := ts.UnixMilli()
	if ms <= d.lastTS {
		ms = d.lastTS + 1
	}
	d.lastTS = ms

	// After a transport failure the stream is out of sync, so the process
	// is restarted on the next frame.
	if err := writeRequest(d.stdin, ms, buf.GetBytes()); err != nil {
		d.reset()
		return nil, err
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		d.reset()
		return nil, fmt.Errorf("read response: %w", err)
	}

	result, err := decodeResponse(line)
	if err != nil {
		d.reset()
		return nil, err
	}

	d.resetIdleTimer()
	return result, nil
}

// Close shuts down the Python process.
func (d *MediaPipeRecognizer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeRecognizer) ensureStarted() error {
	if d.started {
		return nil
	}

	python := findScript("venv/bin/python")
	if python == "" {
		python = "python3"
	}

	args := []string{
		d.script,
		"--model", d.config.ModelPath,
		"--num-hands", strconv.Itoa(d.config.MaxHands),
		"--min-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', 2, 64),
	}
	command := d.command
	if command == nil {
		command = exec.Command
	}
	d.cmd = command(python, args...)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start gesture service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	return nil
}

func (d *MediaPipeRecognizer) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil
	return err
}

// reset kills the service and forgets it.
func (d *MediaPipeRecognizer) reset() {
	if d.cmd != nil && d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	d.shutdown()
}

func (d *MediaPipeRecognizer) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

// writeRequest frames one image for the service.
func writeRequest(w io.Writer, tsMillis int64, jpeg []byte) error {
	header := make([]byte, 12)
	binary.BigEndian.PutUint64(header[:8], uint64(tsMillis))
	binary.BigEndian.PutUint32(header[8:], uint32(len(jpeg)))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Write(jpeg); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonResponse struct {
	Hands    []jsonHand   `json:"hands"`
	Gestures [][]Category `json:"gestures"`
	Error    string       `json:"error,omitempty"`
}

// decodeResponse parses one JSON line from the service.
func decodeResponse(line []byte) (*Result, error) {
	var resp jsonResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("gesture service: %s", resp.Error)
	}

	result := &Result{
		Hands:    make([]HandLandmarks, len(resp.Hands)),
		Gestures: resp.Gestures,
	}
	for i, h := range resp.Hands {
		result.Hands[i] = h.toHandLandmarks()
	}
	return result, nil
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	for i := 0; i < NumLandmarks && i < len(h.Points); i++ {
		lm.Points[i] = Point3D(h.Points[i])
	}
	return lm
}

// findScript looks for a file relative to the working directory, the
// executable, and ~/.signassess.
func findScript(name string) string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", name),
		filepath.Join("..", "scripts", name),
		name,
		filepath.Join("..", name),
	}
	if execDir != "" {
		candidates = append(candidates,
			filepath.Join(execDir, "scripts", name),
			filepath.Join(execDir, name),
		)
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".signassess", "scripts", name))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
