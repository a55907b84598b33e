package core

import (
	"sort"
	"sync"
)

// ── Registry ──────────────────────────────────────────────────────────────────

// DefaultRegistry is the built-in thread-safe Registry.  A format's decoder
// and encoder share one slot, so a unified backend (e.g. the libvips adapter)
// registers both sides of a format together.
type DefaultRegistry struct {
	mu     sync.RWMutex
	codecs map[Format]*codecSlot
}

type codecSlot struct {
	dec Decoder
	enc Encoder
}

// NewRegistry returns an empty DefaultRegistry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{codecs: make(map[Format]*codecSlot)}
}

func (r *DefaultRegistry) slot(f Format) *codecSlot {
	s, ok := r.codecs[f]
	if !ok {
		s = &codecSlot{}
		r.codecs[f] = s
	}
	return s
}

func (r *DefaultRegistry) RegisterDecoder(f Format, d Decoder) {
	r.mu.Lock()
	r.slot(f).dec = d
	r.mu.Unlock()
}

func (r *DefaultRegistry) RegisterEncoder(f Format, e Encoder) {
	r.mu.Lock()
	r.slot(f).enc = e
	r.mu.Unlock()
}

func (r *DefaultRegistry) DecoderFor(f Format) (Decoder, bool) {
	r.mu.RLock()
	s, ok := r.codecs[f]
	r.mu.RUnlock()
	if !ok || s.dec == nil {
		return nil, false
	}
	return s.dec, true
}

func (r *DefaultRegistry) EncoderFor(f Format) (Encoder, bool) {
	r.mu.RLock()
	s, ok := r.codecs[f]
	r.mu.RUnlock()
	if !ok || s.enc == nil {
		return nil, false
	}
	return s.enc, true
}

// DecodeFormats lists every format with a registered decoder, sorted so the
// list is stable in error messages.
func (r *DefaultRegistry) DecodeFormats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Format, 0, len(r.codecs))
	for f, s := range r.codecs {
		if s.dec != nil {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
