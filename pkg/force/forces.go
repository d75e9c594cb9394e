package force

import (
	"math"
	"math/rand/v2"
)

// DefaultLinkDistance is the rest length of a [LinkForce] spring.
const DefaultLinkDistance = 30.0

// Link connects two bodies by index.
type Link struct {
	Source int
	Target int
}

// LinkForce pulls linked bodies toward Distance apart. Each link's strength
// is 1/min(degree(source), degree(target)), and the correction is split
// between the endpoints in proportion to their degrees, so hubs move less.
type LinkForce struct {
	Links      []Link
	Distance   float64
	Iterations int

	bodies   []*Body
	rng      *rand.Rand
	strength []float64
	bias     []float64
}

// NewLink returns a link force with the default distance and one iteration.
func NewLink(links []Link) *LinkForce {
	return &LinkForce{Links: links, Distance: DefaultLinkDistance, Iterations: 1}
}

func (f *LinkForce) Init(bodies []*Body, rng *rand.Rand) {
	f.bodies, f.rng = bodies, rng

	valid := f.Links[:0:0]
	for _, l := range f.Links {
		if l.Source >= 0 && l.Source < len(bodies) && l.Target >= 0 && l.Target < len(bodies) {
			valid = append(valid, l)
		}
	}
	f.Links = valid

	degree := make([]int, len(bodies))
	for _, l := range f.Links {
		degree[l.Source]++
		degree[l.Target]++
	}
	f.strength = make([]float64, len(f.Links))
	f.bias = make([]float64, len(f.Links))
	for i, l := range f.Links {
		ds, dt := float64(degree[l.Source]), float64(degree[l.Target])
		f.strength[i] = 1 / min(ds, dt)
		f.bias[i] = ds / (ds + dt)
	}
}

func (f *LinkForce) Apply(alpha float64) {
	for range max(f.Iterations, 1) {
		for i, l := range f.Links {
			s, t := f.bodies[l.Source], f.bodies[l.Target]
			x := t.X + t.VX - s.X - s.VX
			if x == 0 {
				x = jiggle(f.rng)
			}
			y := t.Y + t.VY - s.Y - s.VY
			if y == 0 {
				y = jiggle(f.rng)
			}
			d := math.Sqrt(x*x + y*y)
			k := (d - f.Distance) / d * alpha * f.strength[i]
			x, y = x*k, y*k

			b := f.bias[i]
			t.VX -= x * b
			t.VY -= y * b
			s.VX += x * (1 - b)
			s.VY += y * (1 - b)
		}
	}
}

// ManyBody applies a pairwise inverse-distance force between all bodies.
// Positive Strength attracts, negative repels. Pairs at or beyond
// DistanceMax do not interact, and distances below DistanceMin are softened
// to avoid huge forces between close bodies.
//
// Pairs are evaluated exactly rather than through a quadtree approximation.
type ManyBody struct {
	Strength    float64
	DistanceMin float64
	DistanceMax float64

	bodies []*Body
	rng    *rand.Rand
}

// NewManyBody returns a many-body force with the given bounds. A zero or
// negative distanceMax means unbounded.
func NewManyBody(strength, distanceMin, distanceMax float64) *ManyBody {
	if distanceMax <= 0 {
		distanceMax = math.Inf(1)
	}
	return &ManyBody{Strength: strength, DistanceMin: distanceMin, DistanceMax: distanceMax}
}

func (f *ManyBody) Init(bodies []*Body, rng *rand.Rand) {
	f.bodies, f.rng = bodies, rng
}

func (f *ManyBody) Apply(alpha float64) {
	dmin2 := f.DistanceMin * f.DistanceMin
	dmax2 := f.DistanceMax * f.DistanceMax
	for _, n := range f.bodies {
		for _, o := range f.bodies {
			if o == n {
				continue
			}
			x, y := o.X-n.X, o.Y-n.Y
			l := x*x + y*y
			if l >= dmax2 {
				continue
			}
			if x == 0 {
				x = jiggle(f.rng)
				l += x * x
			}
			if y == 0 {
				y = jiggle(f.rng)
				l += y * y
			}
			if l < dmin2 {
				l = math.Sqrt(dmin2 * l)
			}
			w := f.Strength * alpha / l
			n.VX += x * w
			n.VY += y * w
		}
	}
}

// Center translates all bodies so their mean position moves toward (X, Y).
// It shifts positions directly and leaves velocities alone.
type Center struct {
	X, Y     float64
	Strength float64

	bodies []*Body
}

// NewCenter returns a centering force with strength 1.
func NewCenter(x, y float64) *Center {
	return &Center{X: x, Y: y, Strength: 1}
}

func (f *Center) Init(bodies []*Body, _ *rand.Rand) { f.bodies = bodies }

func (f *Center) Apply(float64) {
	if len(f.bodies) == 0 {
		return
	}
	var sx, sy float64
	for _, b := range f.bodies {
		sx += b.X
		sy += b.Y
	}
	n := float64(len(f.bodies))
	dx := (sx/n - f.X) * f.Strength
	dy := (sy/n - f.Y) * f.Strength
	for _, b := range f.bodies {
		b.X -= dx
		b.Y -= dy
	}
}
