package profile

import (
	"sort"

	"github.com/otus-rohc/rohc/pkg/rohc"
)

// Registry holds the set of enabled profile handlers and selects among
// them in the §7 fallback precedence: RTP -> UDP-Lite/ESP -> UDP -> IP ->
// Uncompressed, with the ROHCv2 variants slotted in next to their RFC
// 3095 counterparts. A profile that is not enabled can never Match,
// regardless of how well the packet would otherwise fit it (§6).
type Registry struct {
	handlers map[rohc.ProfileID]Handler
	enabled  map[rohc.ProfileID]bool
	order    []Handler // sorted by Precedence, recomputed on EnableProfiles
}

// NewRegistry builds a registry containing every profile this engine
// implements; none are enabled until EnableProfiles is called
// (enable_profiles must be set explicitly).
func NewRegistry() *Registry {
	r := &Registry{
		handlers: make(map[rohc.ProfileID]Handler),
		enabled:  make(map[rohc.ProfileID]bool),
	}
	for _, h := range allHandlers() {
		r.handlers[h.Spec().ID] = h
	}
	return r
}

// EnableProfiles replaces the enabled set. Unknown profile IDs are
// ignored rather than erroring, since a config file listing a profile
// this build doesn't implement should degrade gracefully to "not
// available" rather than refuse to start.
func (r *Registry) EnableProfiles(ids ...rohc.ProfileID) {
	r.enabled = make(map[rohc.ProfileID]bool, len(ids))
	for _, id := range ids {
		if _, ok := r.handlers[id]; ok {
			r.enabled[id] = true
		}
	}
	r.order = r.order[:0]
	for id := range r.enabled {
		r.order = append(r.order, r.handlers[id])
	}
	sort.Slice(r.order, func(i, j int) bool {
		return r.order[i].Spec().Precedence < r.order[j].Spec().Precedence
	})
}

// Enabled reports whether id is currently in the enabled set.
func (r *Registry) Enabled(id rohc.ProfileID) bool { return r.enabled[id] }

// Handler returns the handler for id regardless of whether it is
// currently enabled (used by the decompressor, which must be able to
// parse a profile its peer chose even if the local config's
// enable_profiles list hasn't been told about it yet).
func (r *Registry) Handler(id rohc.ProfileID) (Handler, bool) {
	h, ok := r.handlers[id]
	return h, ok
}

// Select runs cp through every enabled handler in precedence order and
// returns the first match (§7 fallback order). It returns
// ErrNoMatchingProfile if nothing enabled matches, which can only happen
// if Uncompressed itself was left disabled, since Uncompressed matches
// everything.
func (r *Registry) Select(cp ClassifiedPacket) (Handler, error) {
	for _, h := range r.order {
		if h.Match(cp) {
			return h, nil
		}
	}
	return nil, rohc.ErrNoMatchingProfile
}
