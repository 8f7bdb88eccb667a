package renderer

import "image/color"

// FrameSink receives rendered pixels
type FrameSink interface {
	Width() int
	Height() int
	PutPixel(x, y int, c color.RGBA)
}

// Locker is implemented by sinks that need exclusive access while pixels are written
type Locker interface {
	Lock() error
	Unlock()
}

// Presenter is implemented by sinks that publish a finished frame
type Presenter interface {
	Present() error
}
