// Package force implements a small, steppable force-directed simulation.
//
// The model follows d3-force: bodies carry position and velocity, every
// registered [Force] nudges velocities once per [Simulation.Tick], and
// positions then integrate with velocity decay. Alpha, the simulation's
// temperature, scales every force and decays toward a target each tick.
// Raising the target (and calling [Simulation.Restart]) reheats a settled
// simulation; setting it back to 0 lets it cool and stop.
//
// Three forces are provided: [LinkForce] springs, [ManyBody] pairwise
// attraction or repulsion, and [Center]. Randomness (initial jiggle for
// coincident bodies) comes from a seeded generator, so runs with the same
// seed and inputs produce the same positions.
//
//	sim := force.New(bodies, &force.Options{Seed: 1})
//	sim.SetForce("link", force.NewLink(links))
//	sim.SetForce("repel", force.NewManyBody(-175, 10, 100))
//	sim.SetForce("center", force.NewCenter(800, 300))
//	for sim.Active() {
//		sim.Tick()
//	}
package force
