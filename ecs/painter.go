package ecs

// Painter is the render target handed to Renderer systems. The world never inspects it; the host
// decides what it is, for example an *ebiten.Image wrapped by ebitenhost.
type Painter any
