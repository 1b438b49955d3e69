package asset

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/coreman2200/turn-coordinator/internal/sprite"
)

// Logical names the compositor looks up.
const (
	Dial   = "dial"
	Ball   = "ball"
	Needle = "plane"

	// Lamp faces shared between several lamps.
	APDot       = "lamp.ap_dot"
	AltDot      = "lamp.alt_dot"
	UpDot       = "lamp.up_dot"
	DownDot     = "lamp.down_dot"
	ReadyDot    = "lamp.ready_dot"
	LowVoltFlag = "lamp.low_volt_flag"
)

var ErrMissing = errors.New("asset not registered")

// Registry attaches decoded bitmaps to logical names at startup, so the
// compositor never depends on how the pixel data was stored.
type Registry struct{ m map[string]*sprite.Bitmap }

func NewRegistry() *Registry { return &Registry{m: map[string]*sprite.Bitmap{}} }

// Register binds name to b, replacing any earlier binding.
func (r *Registry) Register(name string, b *sprite.Bitmap) error {
	if name == "" {
		return errors.New("asset name is empty")
	}
	if b == nil {
		return fmt.Errorf("asset %q: nil bitmap", name)
	}
	r.m[name] = b
	return nil
}

func (r *Registry) Get(name string) (*sprite.Bitmap, bool) { b, ok := r.m[name]; return b, ok }

// Lookup is Get with an error naming the missing asset.
func (r *Registry) Lookup(name string) (*sprite.Bitmap, error) {
	b, ok := r.m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissing, name)
	}
	return b, nil
}

// Require reports every name in names that is not registered.
func (r *Registry) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := r.m[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	return nil
}

func (r *Registry) List() []string {
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
