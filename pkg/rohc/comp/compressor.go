// Package comp implements the compressor engine (§4.1): per-CID context
// table, profile selection with the §7 fallback order, and feedback
// ingestion. It is a thin driver over pkg/rohc/profile's chain coders —
// the actual IR/FO/SO state machine and wire encoding live there, shared
// with the decompressor's Commit/Decompress pair, since both sides of one
// profile must stay byte-for-byte in agreement (§9 Design Notes).
package comp

import (
	"fmt"
	"sync"

	"github.com/otus-rohc/rohc/internal/rohclog"
	"github.com/otus-rohc/rohc/pkg/rohc"
	"github.com/otus-rohc/rohc/pkg/rohc/feedback"
	"github.com/otus-rohc/rohc/pkg/rohc/profile"
)

// Options configures a new Compressor (§6 External Interfaces).
type Options struct {
	CIDType      rohc.CIDType
	MaxContexts  int
	Mode         rohc.Mode
	Features     rohc.Features
	Trace        rohc.TraceFunc
	RNG          rohc.RNGFunc
	RTPDetect    rohc.RTPDetectFunc
	ReorderRatio uint8
	// Dumper receives a hex dump of every wire packet Compress emits when
	// Features has FeatureDumpPackets set; nil disables dumping even if
	// the flag is set.
	Dumper *rohclog.PacketDumper
}

// Compressor is one engine instance: one context table, one enabled
// profile set, serialized behind a mutex since callers may compress from
// multiple goroutines sharing one engine (§5 Concurrency & Resource
// Model: "the engine itself does not spawn goroutines, but must tolerate
// concurrent callers serializing through its own lock").
type Compressor struct {
	mu       sync.Mutex
	opts     Options
	registry *profile.Registry
	contexts *rohc.Table[profile.CompContext]
}

// New constructs a Compressor with no profiles enabled; call
// EnableProfiles before the first Compress (§6).
func New(opts Options) *Compressor {
	if opts.MaxContexts <= 0 {
		opts.MaxContexts = int(opts.CIDType.MaxCID()) + 1
	}
	return &Compressor{
		opts:     opts,
		registry: profile.NewRegistry(),
		contexts: rohc.NewTable[profile.CompContext](opts.CIDType, opts.MaxContexts),
	}
}

// EnableProfiles restricts which profiles Compress may select (§6:
// "enable_profiles(set)").
func (c *Compressor) EnableProfiles(ids ...rohc.ProfileID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.EnableProfiles(ids...)
}

// SetWLSBWidth overrides the default W-LSB window width new contexts are
// built with (§6: "set_wlsb_width"). It does not affect contexts already
// allocated.
func (c *Compressor) SetWLSBWidth(width uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	profile.SetWindowWidth(width)
}

// SetFeatures replaces the feature bitset Compress consults for optional
// behavior (§6 Features bitset).
func (c *Compressor) SetFeatures(f rohc.Features) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.Features = f
}

// Compress classifies pkt, selects (or reuses) a profile context, and
// returns the compressed wire bytes. The returned CID names the context
// that was used; the caller hands it to the decompressor alongside the
// wire bytes. Compress takes no CID itself: it picks the context on every
// call (see contextFor).
func (c *Compressor) Compress(pkt []byte) (wire []byte, cid uint16, status rohc.Status, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp, err := profile.Classify(pkt, c.opts.RTPDetect)
	if err != nil {
		return nil, 0, rohc.StatusMalformed, err
	}
	h, err := c.registry.Select(cp)
	if err != nil {
		return nil, 0, rohc.StatusError, err
	}

	cid, ctx := c.contextFor(h, cp)
	if ctx.ReorderRatio == 0 {
		ctx.ReorderRatio = c.opts.ReorderRatio
	}
	out, pt, err := h.Compress(ctx, cp)
	if err != nil {
		return nil, cid, rohc.StatusError, err
	}
	c.trace(rohc.TraceDebug, h.Spec().ID, fmt.Sprintf("cid=%d packet=%s bytes=%d", cid, pt, len(out)))
	if c.opts.Features&rohc.FeatureDumpPackets != 0 && c.opts.Dumper != nil {
		c.opts.Dumper.Dump(fmt.Sprintf("cid=%d compressed", cid), out)
	}
	return out, cid, rohc.StatusOK, nil
}

// contextFor returns the lowest-CID existing context of h's profile, or
// allocates a fresh one. Flow identity is approximated by profile alone:
// the static chain is not compared, so two flows of the same profile share
// one context, and each switch between them is a static-chain change that
// forces an IR.
func (c *Compressor) contextFor(h profile.Handler, cp profile.ClassifiedPacket) (uint16, *profile.CompContext) {
	var found uint16
	var hit *profile.CompContext
	c.contexts.Range(func(cid uint16, ctx *profile.CompContext) {
		if hit != nil || ctx.Profile != h.Spec().ID {
			return
		}
		hit = ctx
		found = cid
	})
	if hit != nil {
		return found, hit
	}
	cid := c.nextFreeCID()
	ctx := h.NewCompContext(cid)
	_, _ = c.contexts.Set(cid, ctx)
	return cid, ctx
}

func (c *Compressor) nextFreeCID() uint16 {
	for cid := 0; cid < c.contexts.MaxContexts(); cid++ {
		if c.contexts.Peek(uint16(cid)) == nil {
			return uint16(cid)
		}
	}
	return 0 // Table.Set evicts the LRU entry when every slot is taken.
}

// DeliverFeedback routes one decoded FEEDBACK-1/2 message to the context
// it names, adjusting compressor state (§4.1, §6).
func (c *Compressor) DeliverFeedback(cid uint16, fb feedback.Feedback) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctx := c.contexts.Get(cid)
	if ctx == nil {
		return rohc.ErrNoContext
	}
	h, ok := c.registry.Handler(ctx.Profile)
	if !ok {
		return rohc.ErrProfileNotEnabled
	}
	h.HandleFeedback(ctx, fb)
	return nil
}

func (c *Compressor) trace(level rohc.TraceLevel, id rohc.ProfileID, msg string) {
	if c.opts.Trace != nil {
		c.opts.Trace(level, "compressor", id, msg)
	}
}
