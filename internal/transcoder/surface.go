package transcoder

import (
	"bytes"
	"errors"
	"image"
	"io"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// ErrNoFrame is returned by Poster when nothing was drawn on the surface.
var ErrNoFrame = errors.New("no frame has been drawn")

// SurfaceHost owns the rendering surfaces of in-flight conversions.
type SurfaceHost struct {
	mu       sync.Mutex
	next     int
	attached map[int]*Surface
}

// NewSurfaceHost returns an empty host.
func NewSurfaceHost() *SurfaceHost {
	return &SurfaceHost{attached: make(map[int]*Surface)}
}

// NewSurface attaches a new width×height RGBA surface.
func (h *SurfaceHost) NewSurface(width, height int) *Surface {
	s := &Surface{
		host: h,
		img:  image.NewRGBA(image.Rect(0, 0, width, height)),
	}
	h.mu.Lock()
	h.next++
	s.id = h.next
	h.attached[s.id] = s
	n := len(h.attached)
	h.mu.Unlock()

	if o := observe(); o != nil {
		o.ObserveSurfaces(n)
	}
	return s
}

// Attached returns the number of surfaces not yet removed.
func (h *SurfaceHost) Attached() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.attached)
}

func (h *SurfaceHost) detach(id int) {
	h.mu.Lock()
	delete(h.attached, id)
	n := len(h.attached)
	h.mu.Unlock()

	if o := observe(); o != nil {
		o.ObserveSurfaces(n)
	}
}

// Surface is an RGBA raster that frames are drawn onto and that a capture
// feed reads from.
type Surface struct {
	host *SurfaceHost
	id   int

	mu     sync.Mutex
	img    *image.RGBA
	drawn  bool
	frames int

	removeOnce sync.Once
}

// Bounds returns the surface rectangle.
func (s *Surface) Bounds() image.Rectangle {
	return s.img.Bounds()
}

// Draw scales frame onto the whole surface.
func (s *Surface) Draw(frame image.Image) {
	if frame == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	draw.ApproxBiLinear.Scale(s.img, s.img.Bounds(), frame, frame.Bounds(), draw.Src, nil)
	s.drawn = true
	s.frames++
}

// Frames returns how many frames were drawn.
func (s *Surface) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Snapshot appends the current pixels to dst.
func (s *Surface) Snapshot(dst []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(dst[:0], s.img.Pix...)
}

// Poster encodes a JPEG thumbnail of the surface that fits in size×size.
func (s *Surface) Poster(size int) ([]byte, error) {
	s.mu.Lock()
	if !s.drawn {
		s.mu.Unlock()
		return nil, ErrNoFrame
	}
	thumb := imaging.Fit(s.img, size, size, imaging.Lanczos)
	s.mu.Unlock()

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Remove detaches the surface from its host. Only the first call has an
// effect.
func (s *Surface) Remove() error {
	s.removeOnce.Do(func() {
		s.host.detach(s.id)
	})
	return nil
}

// Feed copies the surface into w as raw RGBA frames at fps frames per
// second once started.
func (s *Surface) Feed(w io.Writer, fps int, scheduler Scheduler) *Feed {
	if fps <= 0 {
		fps = 30
	}
	return &Feed{
		surface:   s,
		w:         w,
		interval:  time.Second / time.Duration(fps),
		scheduler: scheduler,
		errc:      make(chan error, 1),
		stop:      make(chan struct{}),
	}
}

// Feed is the live link between a surface and a capture sink.
type Feed struct {
	surface   *Surface
	w         io.Writer
	interval  time.Duration
	scheduler Scheduler

	errc     chan error
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	written  int
	mu       sync.Mutex
}

// Start writes the first frame and keeps writing on every tick until Stop.
func (f *Feed) Start() {
	ticker := f.scheduler.NewTicker(f.interval)
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer ticker.Stop()

		var frame []byte
		if !f.push(&frame) {
			return
		}
		for {
			select {
			case <-f.stop:
				return
			case <-ticker.C():
				if !f.push(&frame) {
					return
				}
			}
		}
	}()
}

func (f *Feed) push(frame *[]byte) bool {
	*frame = f.surface.Snapshot(*frame)
	if _, err := f.w.Write(*frame); err != nil {
		select {
		case <-f.stop:
		case f.errc <- err:
		default:
		}
		return false
	}
	f.mu.Lock()
	f.written++
	f.mu.Unlock()
	return true
}

// Err delivers a failed write to the sink.
func (f *Feed) Err() <-chan error {
	return f.errc
}

// Written returns the number of frames written.
func (f *Feed) Written() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written
}

// Stop ends the feed and waits for the writer to exit. Safe to call more
// than once.
func (f *Feed) Stop() error {
	f.stopOnce.Do(func() { close(f.stop) })
	f.wg.Wait()
	return nil
}
