package motion

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/teslashibe/go-avatar/pkg/protocol"
)

// Micro-motion waves added on top of active tracking, in degrees and rad/s.
// They are a function of absolute time so every session breathes in phase.
const (
	breathingFreq = 0.3
	breathingAmp  = 0.5
	eyeDriftXFreq = 1.7
	eyeDriftXAmp  = 0.3
	eyeDriftYFreq = 2.1
	eyeDriftYAmp  = 0.2
)

// Controller converts face samples into output frames, one call per tick.
// It is not safe for concurrent use; each session owns its own Controller.
type Controller struct {
	cfg   Config
	rng   RandSource
	state State
	mode  Mode

	started bool
}

// NewController creates a controller with a fresh state.
// A nil rng is replaced by a randomly seeded source.
func NewController(cfg Config, rng RandSource) *Controller {
	if rng == nil {
		rng = NewRand(rand.Uint64())
	}
	return &Controller{
		cfg:  cfg,
		rng:  rng,
		mode: ModeGrace,
	}
}

// Mode returns the mode chosen by the last Advance.
func (c *Controller) Mode() Mode {
	return c.mode
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	return c.state
}

// Config returns the controller's configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Advance runs one tick. pos is the latest sample (Detected=false when no
// face is visible) and now is the tick timestamp.
//
// The first call treats now as the last detection time, so a session that
// never sees a face spends the grace period decaying before it idles.
func (c *Controller) Advance(pos protocol.FacePosition, now time.Time) protocol.OutputFrame {
	if !c.started {
		c.state.LastDetection = now
		c.started = true
	}

	if pos.Detected {
		c.mode = ModeActive
		return c.active(pos, now)
	}

	if now.Sub(c.state.LastDetection) > c.cfg.GracePeriod {
		if c.mode != ModeIdle {
			c.mode = ModeIdle
			c.state.IdleStart = now
		}
		return c.idle(now)
	}

	c.mode = ModeGrace
	return c.grace()
}

// Targets returns the rotations the smoothing stage chases for pos.
//
// Centering is (x-0.5)*2 in float64, so x=0.65 gives nx=0.30000000000000004
// and turns the body even though 0.3 itself is under the threshold.
func (c *Controller) Targets(pos protocol.FacePosition) Rotations {
	nx := (pos.X - 0.5) * 2
	ny := (pos.Y - 0.5) * 2
	return c.targets(nx, ny, pos.Z)
}

// targets works in centered coordinates: nx, ny in [-1,1], nz in [0,1].
func (c *Controller) targets(nx, ny, nz float64) Rotations {
	l := c.cfg.Limits

	var t Rotations
	if math.Abs(nx) > c.cfg.BodyThreshold {
		t.BodyY = nx * l.BodyY
	}
	t.HeadX = nx * l.HeadX
	t.HeadY = -ny * l.HeadY
	t.EyeX = nx * l.EyeX * c.cfg.EyeReach
	t.EyeY = -ny * l.EyeY * c.cfg.EyeReach

	// Closer faces (small z) produce larger motion.
	return t.Scale(1 + (0.5-nz)*c.cfg.DistanceGain)
}

func (c *Controller) active(pos protocol.FacePosition, now time.Time) protocol.OutputFrame {
	c.state.LastDetection = now

	t := c.Targets(pos)
	s := &c.state.Rotations
	s.BodyY += (t.BodyY - s.BodyY) * c.cfg.BodyGain
	s.HeadX += (t.HeadX - s.HeadX) * c.cfg.HeadGain
	s.HeadY += (t.HeadY - s.HeadY) * c.cfg.HeadGain
	s.EyeX += (t.EyeX - s.EyeX) * c.cfg.EyeGain
	s.EyeY += (t.EyeY - s.EyeY) * c.cfg.EyeGain

	sec := unixSeconds(now)
	s.HeadY += math.Sin(sec*breathingFreq) * breathingAmp
	s.EyeX += math.Sin(sec*eyeDriftXFreq) * eyeDriftXAmp
	s.EyeY += math.Cos(sec*eyeDriftYFreq) * eyeDriftYAmp

	return c.compose(c.cfg.BlinkRate)
}

func (c *Controller) grace() protocol.OutputFrame {
	c.state.Rotations = c.state.Rotations.Scale(1 - c.cfg.Decay)
	return c.compose(c.cfg.BlinkRate)
}

func (c *Controller) idle(now time.Time) protocol.OutputFrame {
	f := IdlePose(now.Sub(c.state.IdleStart))
	f.Blink = c.blink(c.cfg.IdleBlinkRate)
	return f
}

// compose applies body→head and head→eye coupling to the current state.
func (c *Controller) compose(blinkRate float64) protocol.OutputFrame {
	r := c.state.Rotations
	return protocol.OutputFrame{
		Body: protocol.BodyRotation{Y: r.BodyY},
		Head: protocol.Rotation{
			X: r.HeadX - r.BodyY*c.cfg.BodyToHead,
			Y: r.HeadY,
		},
		Eyes: protocol.Rotation{
			X: r.EyeX - r.HeadX*c.cfg.HeadToEye,
			Y: r.EyeY - r.HeadY*c.cfg.HeadToEye,
		},
		Blink: c.blink(blinkRate),
	}
}

func (c *Controller) blink(rate float64) bool {
	return c.rng.Float64() < rate
}

// IdlePose is the idle animation at elapsed time t since idle began.
// It never blinks; the controller draws blinks separately.
func IdlePose(t time.Duration) protocol.OutputFrame {
	s := t.Seconds()
	return protocol.OutputFrame{
		Body: protocol.BodyRotation{Y: math.Sin(s*0.1) * 5},
		Head: protocol.Rotation{
			X: math.Sin(s*0.15) * 8,
			Y: math.Cos(s*0.2) * 5,
		},
		Eyes: protocol.Rotation{
			X: math.Sin(s*0.3) * 10,
			Y: math.Cos(s*0.25) * 5,
		},
	}
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
