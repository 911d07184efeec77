// Package gesture classifies detected hand landmarks into coarse hand states.
package gesture

import (
	"errors"
	"math"
	"sync"

	"github.com/rrocketmann/Hanvas/internal/detector"
)

// State is the coarse classification of a hand for one frame. Derived, never
// persisted.
type State string

const (
	// StateOpen means at least OpenMin fingers are extended.
	StateOpen State = "open_hand"
	// StateFist means at most FistMax fingers are extended.
	StateFist State = "fist"
	// StatePartial is everything in between.
	StatePartial State = "partial_hand"
	// StateNone means no hand was detected in the frame.
	StateNone State = "no_hand"
)

// ErrInvalidHand is returned when a landmark set with fewer than 21 points
// reaches the classifier.
var ErrInvalidHand = errors.New("hand must contain 21 landmarks")

// Config holds the classification thresholds. The stock values are empirical:
// the extension ratio rejects near-straight-but-folded fingers while
// tolerating measurement noise. They are tuning knobs, not anatomy.
type Config struct {
	// ExtensionRatio is the proportional slack a fingertip's wrist distance
	// must exceed its base joint's wrist distance by to count as extended.
	ExtensionRatio float64 `json:"extension_ratio"`

	// OpenMin is the extended-finger count at or above which the hand is open.
	OpenMin int `json:"open_min"`

	// FistMax is the extended-finger count at or below which the hand is a fist.
	FistMax int `json:"fist_max"`
}

// DefaultConfig returns the stock classification thresholds.
func DefaultConfig() Config {
	return Config{
		ExtensionRatio: 1.15,
		OpenMin:        4,
		FistMax:        1,
	}
}

// fingerPairs lists the fingertip and base joint index for each finger,
// thumb first.
var fingerPairs = [5][2]int{
	{detector.ThumbTip, detector.ThumbMCP},
	{detector.IndexTip, detector.IndexMCP},
	{detector.MiddleTip, detector.MiddleMCP},
	{detector.RingTip, detector.RingMCP},
	{detector.PinkyTip, detector.PinkyMCP},
}

// Classifier turns landmark sets into hand states. Classification is pure and
// deterministic; the config may be swapped at runtime.
type Classifier struct {
	mu     sync.RWMutex
	config Config
}

// NewClassifier creates a Classifier with the given thresholds.
func NewClassifier(config Config) *Classifier {
	return &Classifier{config: config}
}

// Config returns the current thresholds.
func (c *Classifier) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// SetConfig replaces the thresholds. Safe to call while classification runs.
func (c *Classifier) SetConfig(config Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = config
}

// Classify maps a 21-point landmark set to a hand state. A finger counts as
// extended iff its tip is further from the wrist than its base joint times
// the extension ratio; distances include the depth component, with absent
// depth contributing zero. Fails with ErrInvalidHand when fewer than 21
// points are supplied.
func (c *Classifier) Classify(points []detector.Point3D) (State, error) {
	if len(points) < detector.NumLandmarks {
		return StateNone, ErrInvalidHand
	}

	config := c.Config()
	wrist := points[detector.Wrist]

	extended := 0
	for _, pair := range fingerPairs {
		tipDist := distance3D(points[pair[0]], wrist)
		baseDist := distance3D(points[pair[1]], wrist)
		if tipDist > baseDist*config.ExtensionRatio {
			extended++
		}
	}

	switch {
	case extended >= config.OpenMin:
		return StateOpen, nil
	case extended <= config.FistMax:
		return StateFist, nil
	default:
		return StatePartial, nil
	}
}

// ClassifyHand classifies a detected hand.
func (c *Classifier) ClassifyHand(hand *detector.HandLandmarks) (State, error) {
	return c.Classify(hand.Points[:])
}

// ClassifyResult applies the primary-hand policy to a detection result: only
// the first hand is classified, and an empty result is StateNone.
func (c *Classifier) ClassifyResult(hands []detector.HandLandmarks) State {
	if len(hands) == 0 {
		return StateNone
	}

	state, err := c.ClassifyHand(&hands[0])
	if err != nil {
		return StateNone
	}
	return state
}

// distance3D calculates the Euclidean distance between two 3D points.
func distance3D(a, b detector.Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
