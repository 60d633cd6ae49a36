package wayland

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/neurlang/wayland/wl"
	"golang.org/x/sys/unix"

	"github.com/dustpile/fresco/internal/render"
)

// shmBuffer is one shared-memory buffer backed by a memfd. The
// compositor reads it directly, so it must not be written while busy.
type shmBuffer struct {
	buf    *wl.Buffer
	pool   *wl.ShmPool
	fd     int
	data   []byte
	pix    []uint32
	width  int
	height int
	busy   bool
}

func newShmBuffer(shm *wl.Shm, width, height int) (*shmBuffer, error) {
	stride := width * 4
	size := stride * height

	fd, err := unix.MemfdCreate("fresco-buffer", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ftruncate: %w", err)
	}
	data, err := syscall.Mmap(fd, 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("mmap: %w", err)
	}

	pool, err := shm.CreatePool(uintptr(fd), int32(size))
	if err != nil {
		syscall.Munmap(data)
		unix.Close(fd)
		return nil, fmt.Errorf("create shm pool: %w", err)
	}
	buf, err := pool.CreateBuffer(0, int32(width), int32(height), int32(stride), wl.ShmFormatXrgb8888)
	if err != nil {
		pool.Destroy()
		syscall.Munmap(data)
		unix.Close(fd)
		return nil, fmt.Errorf("create buffer: %w", err)
	}

	return &shmBuffer{
		buf:    buf,
		pool:   pool,
		fd:     fd,
		data:   data,
		pix:    unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), width*height),
		width:  width,
		height: height,
	}, nil
}

// write copies a frame's pixels into the mapping. The frame must match the
// buffer's dimensions.
func (b *shmBuffer) write(f *render.Frame) error {
	if f.Width != b.width || f.Height != b.height {
		return fmt.Errorf("frame %dx%d does not fit buffer %dx%d", f.Width, f.Height, b.width, b.height)
	}
	copy(b.pix, f.Pix)
	return nil
}

func (b *shmBuffer) destroy() {
	if b.buf != nil {
		b.buf.Destroy()
		b.buf = nil
	}
	if b.pool != nil {
		b.pool.Destroy()
		b.pool = nil
	}
	if b.data != nil {
		syscall.Munmap(b.data)
		b.data = nil
		b.pix = nil
	}
	if b.fd >= 0 {
		unix.Close(b.fd)
		b.fd = -1
	}
}
