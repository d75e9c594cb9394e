package force

import (
	"math"
	"math/rand/v2"
	"testing"
)

func dist(a, b *Body) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }

func TestLinkPullsTowardDistance(t *testing.T) {
	bodies := []*Body{{X: 0, Y: 0}, {X: 200, Y: 0}}
	sim := New(bodies, nil)
	sim.SetForce("link", NewLink([]Link{{Source: 0, Target: 1}}))
	for range 300 {
		sim.Tick()
	}
	if d := dist(bodies[0], bodies[1]); math.Abs(d-DefaultLinkDistance) > 2 {
		t.Errorf("distance = %v, want about %v", d, DefaultLinkDistance)
	}
}

func TestLinkStrengthAndBias(t *testing.T) {
	bodies := []*Body{{}, {}, {}}
	f := NewLink([]Link{{0, 1}, {0, 2}, {5, 0}})
	f.Init(bodies, rand.New(rand.NewPCG(1, 1)))

	if len(f.Links) != 2 {
		t.Fatalf("links = %d, want out-of-range link dropped", len(f.Links))
	}
	// Body 0 has degree 2, bodies 1 and 2 degree 1.
	if f.strength[0] != 1 {
		t.Errorf("strength = %v, want 1", f.strength[0])
	}
	if math.Abs(f.bias[0]-2.0/3) > 1e-12 {
		t.Errorf("bias = %v, want 2/3", f.bias[0])
	}
}

func TestManyBodyRepels(t *testing.T) {
	bodies := []*Body{{X: 0, Y: 0}, {X: 5, Y: 0}}
	sim := New(bodies, nil)
	sim.SetForce("repel", NewManyBody(-175, 10, 100))
	before := dist(bodies[0], bodies[1])
	sim.Tick()
	if after := dist(bodies[0], bodies[1]); after <= before {
		t.Errorf("distance %v -> %v, want increase", before, after)
	}
}

func TestManyBodyAttracts(t *testing.T) {
	bodies := []*Body{{X: 0, Y: 0}, {X: 500, Y: 0}}
	sim := New(bodies, nil)
	sim.SetForce("attract", NewManyBody(0.005, 60, 10000))
	before := dist(bodies[0], bodies[1])
	sim.Tick()
	if after := dist(bodies[0], bodies[1]); after >= before {
		t.Errorf("distance %v -> %v, want decrease", before, after)
	}
}

func TestManyBodyDistanceMax(t *testing.T) {
	bodies := []*Body{{X: 0, Y: 0}, {X: 150, Y: 0}}
	f := NewManyBody(-175, 10, 100)
	f.Init(bodies, rand.New(rand.NewPCG(1, 1)))
	f.Apply(1)
	if bodies[0].VX != 0 || bodies[1].VX != 0 {
		t.Error("bodies beyond DistanceMax should not interact")
	}
}

func TestManyBodyCoincidentBodiesSeparate(t *testing.T) {
	bodies := []*Body{{X: 3, Y: 3}, {X: 3, Y: 3}}
	f := NewManyBody(-10, 1, 0)
	f.Init(bodies, rand.New(rand.NewPCG(7, 7)))
	f.Apply(1)
	if bodies[0].VX == 0 && bodies[0].VY == 0 {
		t.Error("coincident bodies received no force")
	}
	for _, b := range bodies {
		if math.IsNaN(b.VX) || math.IsNaN(b.VY) || math.IsInf(b.VX, 0) {
			t.Fatal("non-finite velocity")
		}
	}
}

func TestCenter(t *testing.T) {
	bodies := []*Body{{X: 0, Y: 0}, {X: 10, Y: 20}}
	f := NewCenter(100, 100)
	f.Init(bodies, nil)
	f.Apply(1)

	mx := (bodies[0].X + bodies[1].X) / 2
	my := (bodies[0].Y + bodies[1].Y) / 2
	if math.Abs(mx-100) > 1e-9 || math.Abs(my-100) > 1e-9 {
		t.Errorf("mean = (%v, %v), want (100, 100)", mx, my)
	}
	if bodies[1].X-bodies[0].X != 10 {
		t.Error("centering changed relative positions")
	}
}
