package scape

import (
	"math"

	"naptime/internal/grammar"
)

const (
	robotRadius = 12.0
	treatRadius = 4.0
	// Extra gap beyond touching at which a centered treat can be picked up.
	pickUpReach = 2.0
	maxSpeed    = 2.0
	fieldOfView = math.Pi / 6

	backupSteps = 20
	uturnSteps  = 30
)

type vec struct {
	x, y float64
}

func (v vec) add(o vec) vec          { return vec{v.x + o.x, v.y + o.y} }
func (v vec) sub(o vec) vec          { return vec{v.x - o.x, v.y - o.y} }
func (v vec) scale(k float64) vec    { return vec{v.x * k, v.y * k} }
func (v vec) dot(o vec) float64      { return v.x*o.x + v.y*o.y }
func (v vec) length() float64        { return math.Hypot(v.x, v.y) }
func (v vec) distance(o vec) float64 { return v.sub(o).length() }

func direction(angle float64) vec {
	return vec{math.Cos(angle), math.Sin(angle)}
}

// wrapAngle maps an angle into [-pi, pi].
func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

type treat struct {
	pos     vec
	carrier *robot
	scored  bool
}

func (t *treat) free() bool {
	return t.carrier == nil && !t.scored
}

type robot struct {
	world   *world
	team    int
	program *grammar.Expr

	pos       vec
	heading   float64
	left      float64
	right     float64
	state     grammar.State
	phase     int
	carrying  *treat
	travelled float64
}

var _ grammar.Agent = (*robot)(nil)

// Range casts sensor ray i, evenly spaced around the body starting at the
// heading, and returns the free distance from the body edge to the nearest
// wall or robot, capped at the sensor range.
func (r *robot) Range(sensor int) float64 {
	dir := direction(r.heading + float64(sensor)*2*math.Pi/grammar.SensorCount)
	limit := r.world.cfg.SensorRange + robotRadius
	hit := limit

	if dir.x > 0 {
		hit = math.Min(hit, (r.world.cfg.Length-r.pos.x)/dir.x)
	} else if dir.x < 0 {
		hit = math.Min(hit, -r.pos.x/dir.x)
	}
	if dir.y > 0 {
		hit = math.Min(hit, (r.world.cfg.Width-r.pos.y)/dir.y)
	} else if dir.y < 0 {
		hit = math.Min(hit, -r.pos.y/dir.y)
	}

	for _, other := range r.world.robots {
		if other == r {
			continue
		}
		if t, ok := rayCircle(r.pos, dir, other.pos, robotRadius); ok {
			hit = math.Min(hit, t)
		}
	}
	return clamp(hit-robotRadius, 0, r.world.cfg.SensorRange)
}

// rayCircle returns the distance along a unit ray to the first intersection
// with a circle in front of the origin.
func rayCircle(origin, dir, center vec, radius float64) (float64, bool) {
	oc := center.sub(origin)
	along := oc.dot(dir)
	if along <= 0 {
		return 0, false
	}
	perp2 := oc.dot(oc) - along*along
	r2 := radius * radius
	if perp2 > r2 {
		return 0, false
	}
	return along - math.Sqrt(r2-perp2), true
}

// inView finds the nearest free treat inside the camera's field of view.
func (r *robot) inView() (*treat, float64, float64) {
	var nearest *treat
	bestDist, bestAngle := math.Inf(1), 0.0
	for _, t := range r.world.treats {
		if !t.free() {
			continue
		}
		rel := t.pos.sub(r.pos)
		angle := wrapAngle(math.Atan2(rel.y, rel.x) - r.heading)
		if math.Abs(angle) >= fieldOfView {
			continue
		}
		if d := rel.length(); d < bestDist {
			nearest, bestDist, bestAngle = t, d, angle
		}
	}
	return nearest, bestDist, bestAngle
}

// MidpointInView is the bearing of the nearest visible treat scaled to
// (-1, 1), positive to the left; 0 when nothing is visible.
func (r *robot) MidpointInView() float64 {
	t, _, angle := r.inView()
	if t == nil {
		return 0
	}
	return angle / fieldOfView
}

// WidthInView is the angular width in radians the nearest visible treat
// spans; 0 when nothing is visible.
func (r *robot) WidthInView() float64 {
	t, dist, _ := r.inView()
	if t == nil {
		return 0
	}
	return 2 * math.Atan2(treatRadius, dist)
}

func (r *robot) InState(state grammar.State) bool {
	return r.state == state
}

func (r *robot) IsCarrying() bool {
	return r.state == grammar.StateCarry
}

// PickUp grabs the nearest visible treat when it is within reach and
// roughly centered in view.
func (r *robot) PickUp() bool {
	if r.carrying != nil {
		return false
	}
	t, dist, angle := r.inView()
	if t == nil || dist > robotRadius+treatRadius+pickUpReach || math.Abs(angle) > fieldOfView/2 {
		return false
	}
	t.carrier = r
	r.carrying = t
	r.setState(grammar.StateCarry)
	return true
}

func (r *robot) SetSpeed(left, right float64) {
	r.left = clamp(left, -maxSpeed, maxSpeed)
	r.right = clamp(right, -maxSpeed, maxSpeed)
}

func (r *robot) setState(state grammar.State) {
	r.state = state
	r.phase = 0
}

// advanceState moves through the timed backup and uturn phases that follow
// a delivery.
func (r *robot) advanceState() {
	r.phase++
	switch {
	case r.state == grammar.StateBackup && r.phase >= backupSteps:
		r.setState(grammar.StateUturn)
	case r.state == grammar.StateUturn && r.phase >= uturnSteps:
		r.setState(grammar.StateSearch)
	}
}

// move applies differential drive for one step. A move that would leave the
// field or overlap another robot is cancelled, the turn is kept.
func (r *robot) move() {
	r.heading = wrapAngle(r.heading + (r.right-r.left)/robotRadius)
	speed := (r.left + r.right) / 2
	next := r.pos.add(direction(r.heading).scale(speed))

	cfg := r.world.cfg
	if next.x < robotRadius || next.x > cfg.Length-robotRadius || next.y < robotRadius || next.y > cfg.Width-robotRadius {
		return
	}
	for _, other := range r.world.robots {
		if other != r && next.distance(other.pos) < 2*robotRadius {
			return
		}
	}
	r.travelled += next.distance(r.pos)
	r.pos = next
	if r.carrying != nil {
		r.carrying.pos = r.pos.add(direction(r.heading).scale(robotRadius + treatRadius))
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
