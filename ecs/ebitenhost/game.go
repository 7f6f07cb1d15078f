// Package ebitenhost runs a World inside an ebiten game loop. Update drives World.Update at the
// game's tick rate and Draw drives World.Render with the screen image as the Painter.
package ebitenhost

import (
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/plus3/famecs/ecs"
)

// Overlay is drawn over the world each frame. The ImGui backend in ecs/debugui/ebiten implements
// it; BeginFrame and EndFrame bracket the world's render pass so systems can submit widgets from
// RenderBase.
type Overlay interface {
	BeginFrame()
	EndFrame()
	Draw(screen *ebiten.Image)
	Layout(outsideWidth, outsideHeight int)
}

// Game implements ebiten.Game for a World.
type Game struct {
	world      *ecs.World
	overlay    Overlay
	width      int
	height     int
	fixedDelta float64
	quit       atomic.Bool
}

type Option func(*Game)

// WithOverlay draws overlay on top of every frame.
func WithOverlay(overlay Overlay) Option {
	return func(g *Game) {
		g.overlay = overlay
	}
}

// WithScreenSize fixes the logical screen size. By default the outside size is used.
func WithScreenSize(width, height int) Option {
	return func(g *Game) {
		g.width = width
		g.height = height
	}
}

// WithFixedDelta passes dt to every World.Update instead of 1/TPS.
func WithFixedDelta(dt float64) Option {
	return func(g *Game) {
		g.fixedDelta = dt
	}
}

func NewGame(w *ecs.World, opts ...Option) *Game {
	g := &Game{world: w}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Game) World() *ecs.World {
	return g.world
}

// Quit ends the game loop after the current tick.
func (g *Game) Quit() {
	g.quit.Store(true)
}

func (g *Game) Update() error {
	if g.quit.Load() {
		return ebiten.Termination
	}
	g.world.Update(g.delta())
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.overlay != nil {
		g.overlay.BeginFrame()
	}
	g.world.Render(screen)
	if g.overlay != nil {
		g.overlay.EndFrame()
		g.overlay.Draw(screen)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if g.overlay != nil {
		g.overlay.Layout(outsideWidth, outsideHeight)
	}
	if g.width > 0 && g.height > 0 {
		return g.width, g.height
	}
	return outsideWidth, outsideHeight
}

func (g *Game) delta() float64 {
	if g.fixedDelta > 0 {
		return g.fixedDelta
	}
	return 1.0 / float64(ebiten.TPS())
}

// Run opens a window and blocks until the game ends. tickRate sets ebiten's TPS when positive.
func (g *Game) Run(title string, tickRate int) error {
	ebiten.SetWindowTitle(title)
	if g.width > 0 && g.height > 0 {
		ebiten.SetWindowSize(g.width, g.height)
	}
	if tickRate > 0 {
		ebiten.SetTPS(tickRate)
	}
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(g)
}

// Screen returns the ebiten image a render pass draws to, when the painter is one.
func Screen(p ecs.Painter) (*ebiten.Image, bool) {
	screen, ok := p.(*ebiten.Image)
	return screen, ok && screen != nil
}
