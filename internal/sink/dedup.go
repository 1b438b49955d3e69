package sink

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash"

	"github.com/coreman2200/turn-coordinator/internal/sprite"
)

// Deduper drops frames identical to the one before. A slow bus (SPI panel,
// websocket clients) then only carries frames that actually changed.
type Deduper struct {
	next sprite.Sink

	mu      sync.Mutex
	last    uint64
	have    bool
	skipped uint64
	buf     []byte
}

func Dedup(next sprite.Sink) *Deduper { return &Deduper{next: next} }

func (d *Deduper) Present(x, y, w, h int, pix []sprite.Pixel) error {
	d.mu.Lock()
	sum := d.hash(x, y, w, h, pix)
	if d.have && sum == d.last {
		d.skipped++
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	if err := d.next.Present(x, y, w, h, pix); err != nil {
		return err
	}

	d.mu.Lock()
	d.last, d.have = sum, true
	d.mu.Unlock()
	return nil
}

// Skipped counts suppressed frames.
func (d *Deduper) Skipped() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.skipped
}

// Reset forgets the previous frame so the next one is always sent.
func (d *Deduper) Reset() {
	d.mu.Lock()
	d.have = false
	d.mu.Unlock()
}

func (d *Deduper) hash(x, y, w, h int, pix []sprite.Pixel) uint64 {
	n := 16 + 2*len(pix)
	if cap(d.buf) < n {
		d.buf = make([]byte, n)
	}
	b := d.buf[:n]
	binary.LittleEndian.PutUint32(b[0:], uint32(x))
	binary.LittleEndian.PutUint32(b[4:], uint32(y))
	binary.LittleEndian.PutUint32(b[8:], uint32(w))
	binary.LittleEndian.PutUint32(b[12:], uint32(h))
	for i, p := range pix {
		binary.LittleEndian.PutUint16(b[16+2*i:], uint16(p))
	}
	return xxhash.Sum64(b)
}
