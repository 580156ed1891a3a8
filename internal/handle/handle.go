// Package handle wraps opaque native identifiers with exclusive ownership.
//
// A Handle is created by exactly one constructor call and released by
// exactly one destructor call. Once released, every operation fails with
// ErrUseAfterRelease. Identifiers are never compared across release
// boundaries; the native side is free to recycle them.
package handle

import (
	"errors"
	"fmt"
)

var (
	// ErrAllocationFailed is returned when a constructor reports a zero identifier.
	ErrAllocationFailed = errors.New("native allocation failed")

	// ErrUseAfterRelease is returned by operations on a released handle.
	ErrUseAfterRelease = errors.New("handle used after release")
)

// Constructor creates one native object and returns its identifier.
type Constructor func() (uint64, error)

// Destructor frees the native object behind id. It is called at most once.
type Destructor func(id uint64)

// Handle owns one native identifier. Handles are not safe for concurrent
// use; they belong to the goroutine that owns the native context.
type Handle struct {
	kind     string
	id       uint64
	destroy  Destructor
	released bool
}

// Acquire runs create and wraps the identifier it returns. kind names the
// resource in error messages.
func Acquire(kind string, create Constructor, destroy Destructor) (*Handle, error) {
	id, err := create()
	if err != nil {
		return nil, fmt.Errorf("acquiring %s: %w", kind, err)
	}
	if id == 0 {
		return nil, fmt.Errorf("acquiring %s: %w", kind, ErrAllocationFailed)
	}
	return &Handle{kind: kind, id: id, destroy: destroy}, nil
}

// ID returns the native identifier.
func (h *Handle) ID() (uint64, error) {
	if h.released {
		return 0, fmt.Errorf("%s: %w", h.kind, ErrUseAfterRelease)
	}
	return h.id, nil
}

// Kind returns the resource name given at acquisition.
func (h *Handle) Kind() string {
	return h.kind
}

// Released reports whether Release has already run.
func (h *Handle) Released() bool {
	return h.released
}

// Release calls the destructor. A second call is rejected with
// ErrUseAfterRelease and does not reach the destructor again.
func (h *Handle) Release() error {
	if h.released {
		return fmt.Errorf("releasing %s: %w", h.kind, ErrUseAfterRelease)
	}
	h.released = true
	if h.destroy != nil {
		h.destroy(h.id)
	}
	return nil
}

// Texture is a handle bound to a slot of a model's texture table.
type Texture struct {
	*Handle
	Index int
}

// AcquireTexture acquires a texture handle for slot index.
func AcquireTexture(index int, create Constructor, destroy Destructor) (*Texture, error) {
	h, err := Acquire(fmt.Sprintf("texture %d", index), create, destroy)
	if err != nil {
		return nil, err
	}
	return &Texture{Handle: h, Index: index}, nil
}
