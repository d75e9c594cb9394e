package force

import (
	"math"
	"math/rand/v2"
)

const (
	initialRadius = 10.0
	// DefaultAlphaMin is the alpha below which a simulation stops.
	DefaultAlphaMin = 0.001
	// DefaultVelocityDecay is the fraction of velocity lost per tick.
	DefaultVelocityDecay = 0.4
)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// DefaultAlphaDecay cools alpha from 1 to [DefaultAlphaMin] in 300 ticks.
var DefaultAlphaDecay = 1 - math.Pow(DefaultAlphaMin, 1.0/300)

// Body is one simulated point. A body with FX (or FY) set is pinned on that
// axis: its position is reset to the pin after every tick and its velocity is
// zeroed.
type Body struct {
	ID     string
	Index  int
	X, Y   float64
	VX, VY float64
	FX, FY *float64
}

// Pin fixes the body at (x, y) until [Body.Unpin] is called.
func (b *Body) Pin(x, y float64) {
	b.FX, b.FY = &x, &y
}

// Unpin releases the body back to the forces.
func (b *Body) Unpin() { b.FX, b.FY = nil, nil }

// Pinned reports whether the body is pinned on either axis.
func (b *Body) Pinned() bool { return b.FX != nil || b.FY != nil }

// Force is one contribution to body velocities. Init is called whenever the
// force is registered or the body set changes; Apply is called once per tick.
type Force interface {
	Init(bodies []*Body, rng *rand.Rand)
	Apply(alpha float64)
}

// Options tunes a [Simulation]. Zero fields take their defaults.
type Options struct {
	AlphaMin      float64
	AlphaDecay    float64
	VelocityDecay float64
	Seed          uint64
}

type namedForce struct {
	name  string
	force Force
}

// Simulation is a steppable velocity Verlet force simulation in the style of
// d3-force. It does not run on its own; the owner calls [Simulation.Tick].
//
// Simulation is not safe for concurrent use.
type Simulation struct {
	bodies        []*Body
	forces        []namedForce
	alpha         float64
	alphaMin      float64
	alphaDecay    float64
	alphaTarget   float64
	velocityDecay float64
	rng           *rand.Rand
	stopped       bool
}

// New creates a simulation over bodies. Bodies whose X or Y is NaN are
// placed on a phyllotaxis spiral around the origin.
func New(bodies []*Body, opts *Options) *Simulation {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	if o.AlphaMin <= 0 {
		o.AlphaMin = DefaultAlphaMin
	}
	if o.AlphaDecay <= 0 {
		o.AlphaDecay = DefaultAlphaDecay
	}
	if o.VelocityDecay <= 0 {
		o.VelocityDecay = DefaultVelocityDecay
	}
	s := &Simulation{
		bodies:        bodies,
		alpha:         1,
		alphaMin:      o.AlphaMin,
		alphaDecay:    o.AlphaDecay,
		velocityDecay: 1 - o.VelocityDecay,
		rng:           rand.New(rand.NewPCG(o.Seed, o.Seed^0xdeadbeef)),
	}
	s.initBodies()
	return s
}

func (s *Simulation) initBodies() {
	for i, b := range s.bodies {
		b.Index = i
		if b.FX != nil {
			b.X = *b.FX
		}
		if b.FY != nil {
			b.Y = *b.FY
		}
		if math.IsNaN(b.X) || math.IsNaN(b.Y) {
			r := initialRadius * math.Sqrt(0.5+float64(i))
			a := float64(i) * initialAngle
			b.X, b.Y = r*math.Cos(a), r*math.Sin(a)
		}
		if math.IsNaN(b.VX) || math.IsNaN(b.VY) {
			b.VX, b.VY = 0, 0
		}
	}
}

// SetForce registers f under name, replacing any force with the same name.
// Forces are applied in registration order.
func (s *Simulation) SetForce(name string, f Force) {
	f.Init(s.bodies, s.rng)
	for i := range s.forces {
		if s.forces[i].name == name {
			s.forces[i].force = f
			return
		}
	}
	s.forces = append(s.forces, namedForce{name: name, force: f})
}

// Force returns the force registered under name, or nil.
func (s *Simulation) Force(name string) Force {
	for _, nf := range s.forces {
		if nf.name == name {
			return nf.force
		}
	}
	return nil
}

// Bodies returns the simulated bodies in index order.
func (s *Simulation) Bodies() []*Body { return s.bodies }

// Tick advances the simulation one step: alpha moves toward the target,
// every force adjusts velocities, then positions integrate. When alpha falls
// below alpha min the simulation reports itself inactive until the next
// [Simulation.Restart].
func (s *Simulation) Tick() {
	s.alpha += (s.alphaTarget - s.alpha) * s.alphaDecay
	for _, nf := range s.forces {
		nf.force.Apply(s.alpha)
	}
	for _, b := range s.bodies {
		if b.FX == nil {
			b.VX *= s.velocityDecay
			b.X += b.VX
		} else {
			b.X, b.VX = *b.FX, 0
		}
		if b.FY == nil {
			b.VY *= s.velocityDecay
			b.Y += b.VY
		} else {
			b.Y, b.VY = *b.FY, 0
		}
	}
	if s.alpha < s.alphaMin {
		s.stopped = true
	}
}

// Active reports whether the simulation still wants ticks.
func (s *Simulation) Active() bool { return !s.stopped }

// Alpha returns the current alpha.
func (s *Simulation) Alpha() float64 { return s.alpha }

// SetAlpha overrides the current alpha.
func (s *Simulation) SetAlpha(a float64) { s.alpha = max(a, 0) }

// AlphaTarget returns the value alpha decays toward.
func (s *Simulation) AlphaTarget() float64 { return s.alphaTarget }

// SetAlphaTarget sets the value alpha decays toward. A target above alpha
// min keeps a restarted simulation running; 0 lets it cool.
func (s *Simulation) SetAlphaTarget(t float64) { s.alphaTarget = max(t, 0) }

// Restart marks the simulation active again without touching alpha.
func (s *Simulation) Restart() { s.stopped = false }

// Stop marks the simulation inactive.
func (s *Simulation) Stop() { s.stopped = true }

// jiggle returns a tiny random offset used to separate coincident bodies.
func jiggle(rng *rand.Rand) float64 {
	return (rng.Float64() - 0.5) * 1e-6
}
