package texture

import "image"

// Allocator creates and destroys GPU textures. Implementations are bound
// to the goroutine that owns the graphics context.
type Allocator interface {
	Upload(img *image.RGBA) (uint32, error)
	Delete(id uint32)
}
