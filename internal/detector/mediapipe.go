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

	"gocv.io/x/gocv"
)

// Message tags for the landmarker service protocol.
const (
	msgFrame = 'F'
	msgMode  = 'M'
)

// MediaPipeCapability implements Capability using a Python MediaPipe hand
// landmarker subprocess. Frames are sent as tagged, length-prefixed JPEG
// messages with an inference timestamp; responses come back as JSON lines.
type MediaPipeCapability struct {
	options Options
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
}

// NewMediaPipeCapability starts the landmarker service with the requested
// accelerator tier and waits for it to report readiness. Construction fails
// when the script is missing, the process cannot start, or the service
// cannot bring up the requested delegate (for example no usable GPU).
func NewMediaPipeCapability(opts Options) (Capability, error) {
	scriptPath := findLandmarkerScript()
	if scriptPath == "" {
		return nil, fmt.Errorf("hand_landmarker.py not found")
	}

	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	maxHands := opts.MaxHands
	if maxHands <= 0 {
		maxHands = DefaultOptions().MaxHands
	}

	cmd := exec.Command(pythonPath, scriptPath,
		"--delegate", string(opts.Acceleration),
		"--max-hands", fmt.Sprintf("%d", maxHands),
		"--min-confidence", fmt.Sprintf("%g", opts.MinConfidence),
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	// Capture stderr for debugging
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start landmarker service: %w", err)
	}

	c := &MediaPipeCapability{
		options: opts,
		cmd:     cmd,
		stdin:   stdin,
		stdout:  bufio.NewReader(stdout),
	}

	// The service reports whether the requested delegate came up before
	// accepting frames. A GPU failure surfaces here so the caller can
	// retry on CPU.
	line, err := c.stdout.ReadString('\n')
	if err != nil {
		c.shutdown()
		return nil, fmt.Errorf("read ready line: %w", err)
	}

	var ready struct {
		Ready bool   `json:"ready"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(line), &ready); err != nil {
		c.shutdown()
		return nil, fmt.Errorf("parse ready line: %w", err)
	}
	if !ready.Ready {
		c.shutdown()
		return nil, fmt.Errorf("landmarker service on %s: %s", opts.Acceleration, ready.Error)
	}

	return c, nil
}

// DetectForVideo sends one frame to the service and reads back the hands.
func (c *MediaPipeCapability) DetectForVideo(frame *gocv.Mat, timestampMs int64) ([]HandLandmarks, error) {
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	// Tag byte + 4-byte big-endian length + 8-byte big-endian timestamp + data
	header := make([]byte, 13)
	header[0] = msgFrame
	binary.BigEndian.PutUint32(header[1:5], uint32(len(data)))
	binary.BigEndian.PutUint64(header[5:13], uint64(timestampMs))

	if _, err := c.stdin.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if _, err := c.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := c.stdout.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var response struct {
		Hands []jsonHand `json:"hands"`
	}
	if err := json.Unmarshal([]byte(line), &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	result := make([]HandLandmarks, len(response.Hands))
	for i, h := range response.Hands {
		result[i] = h.toHandLandmarks()
	}

	return result, nil
}

// SetRunningMode switches the service between image and video input.
func (c *MediaPipeCapability) SetRunningMode(mode RunningMode) error {
	msg := []byte{msgMode, 0}
	if mode == ModeVideo {
		msg[1] = 1
	}

	if _, err := c.stdin.Write(msg); err != nil {
		return fmt.Errorf("write mode message: %w", err)
	}
	return nil
}

// Close shuts down the Python process.
func (c *MediaPipeCapability) Close() error {
	return c.shutdown()
}

func (c *MediaPipeCapability) shutdown() error {
	if c.cmd == nil {
		return nil
	}

	if c.stdin != nil {
		c.stdin.Close()
	}

	err := c.cmd.Wait()
	c.cmd = nil
	c.stdin = nil
	c.stdout = nil

	return err
}

func findLandmarkerScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/hand_landmarker.py",
		"../scripts/hand_landmarker.py",
		filepath.Join(execDir, "scripts/hand_landmarker.py"),
		filepath.Join(os.Getenv("HOME"), ".hanvas/scripts/hand_landmarker.py"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".hanvas/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	for i := 0; i < NumLandmarks && i < len(h.Points); i++ {
		lm.Points[i] = Point3D{
			X: h.Points[i].X,
			Y: h.Points[i].Y,
			Z: h.Points[i].Z,
		}
	}

	return lm
}
