package entity

import (
	"time"

	"github.com/danmuck/entmux/internal/world"
)

// PatrolBehaviour walks a body back and forth along its row, turning
// around at walls and impassable cells.
type PatrolBehaviour struct {
	world   *world.Map
	step    time.Duration
	startX  uint32
	startY  uint32
	dir     int
	pending time.Duration
}

func NewPatrolBehaviour(m *world.Map, startX, startY uint32, step time.Duration) *PatrolBehaviour {
	if step <= 0 {
		step = time.Second
	}
	return &PatrolBehaviour{world: m, step: step, startX: startX, startY: startY, dir: 1}
}

func (p *PatrolBehaviour) Init(b Body) {
	b.MoveTo(p.startX, p.startY)
	p.pending = 0
}

func (p *PatrolBehaviour) Update(b Body, dt time.Duration) {
	p.pending += dt
	for p.pending >= p.step {
		p.pending -= p.step
		p.advance(b)
	}
}

func (p *PatrolBehaviour) advance(b Body) {
	x, y := b.Position()
	for attempt := 0; attempt < 2; attempt++ {
		nx, ok := p.next(x)
		if ok && p.world.Passable(nx, y) {
			b.MoveTo(nx, y)
			return
		}
		p.dir = -p.dir
	}
}

func (p *PatrolBehaviour) next(x uint32) (uint32, bool) {
	if p.dir < 0 {
		if x == 0 {
			return 0, false
		}
		return x - 1, true
	}
	return x + 1, true
}
