package dispatch

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"transmit/internal/channel"
	"transmit/internal/types"
)

// DefaultSendConcurrency bounds concurrent provider sends within one dispatch.
const DefaultSendConcurrency = 4

// Config wires a Dispatcher.
type Config struct {
	Channels []channel.Channel
	Registry *Registry
	Metrics  Metrics
	Logger   types.Logger
	Clock    types.Clock

	// SendConcurrency defaults to DefaultSendConcurrency when zero.
	SendConcurrency int
}

// Dispatcher fans one dispatch context out to every configured channel.
type Dispatcher struct {
	channels    []channel.Channel
	registry    *Registry
	metrics     Metrics
	logger      types.Logger
	clock       types.Clock
	concurrency int
	newID       func() string
}

// NewDispatcher validates cfg and fills defaults.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.Registry == nil {
		return nil, types.NewAppError(types.ErrCodeInvalidArgument, "dispatcher requires a provider registry", nil)
	}
	for _, ch := range cfg.Channels {
		if ch == nil {
			return nil, types.NewAppError(types.ErrCodeInvalidArgument, "dispatcher channel must not be nil", nil)
		}
	}

	d := &Dispatcher{
		channels:    cfg.Channels,
		registry:    cfg.Registry,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		clock:       cfg.Clock,
		concurrency: cfg.SendConcurrency,
		newID:       uuid.NewString,
	}
	if d.metrics == nil {
		d.metrics = NoopMetrics{}
	}
	if d.logger == nil {
		d.logger = types.NopLogger{}
	}
	if d.clock == nil {
		d.clock = types.RealClock{}
	}
	if d.concurrency <= 0 {
		d.concurrency = DefaultSendConcurrency
	}
	return d, nil
}

// Dispatch generates and sends one communication per channel.
//
// Resource streams are read and closed once, up front, and every channel
// generates from its own in-memory copy. Generation runs in channel order;
// sends run concurrently. Per-channel failures are reported in Results; the
// returned error is non-nil only when the dispatch could not start at all
// (nil context, cancellation, unreadable resource).
func (d *Dispatcher) Dispatch(ctx context.Context, dc *types.DispatchContext) (Results, error) {
	if dc == nil {
		return nil, types.NewAppError(types.ErrCodeInvalidArgument, "dispatch context is required", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dc, err := bufferResources(ctx, dc)
	if err != nil {
		return nil, err
	}

	results := make(Results, len(d.channels))
	for i, ch := range d.channels {
		results[i] = d.generate(ctx, ch, dc)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for i := range results {
		if results[i].Communication == nil {
			continue
		}
		i := i
		g.Go(func() error {
			d.send(gCtx, d.channels[i], &results[i])
			// Failures stay in the result so other channels still send.
			return nil
		})
	}
	_ = g.Wait()

	d.logger.Info("dispatch completed",
		"channel_count", len(d.channels),
		"sent_count", results.Sent(),
	)
	return results, nil
}

// bufferResources drains every resource of dc exactly once and returns a
// copy of dc backed by seekable in-memory readers. The caller's context and
// resources are left as they are, apart from the streams being consumed.
func bufferResources(ctx context.Context, dc *types.DispatchContext) (*types.DispatchContext, error) {
	resources := dc.Resources()
	if len(resources) == 0 {
		return dc, nil
	}
	attachments, err := channel.MapAttachments(ctx, resources)
	if err != nil {
		return nil, fmt.Errorf("buffering resources: %w", err)
	}
	buffered := make([]*types.Resource, len(attachments))
	for i, a := range attachments {
		buffered[i] = &types.Resource{
			Name:        a.Name,
			ContentType: a.ContentType,
			Content:     bytes.NewReader(a.Content),
		}
	}
	return dc.WithResources(buffered), nil
}

func (d *Dispatcher) generate(ctx context.Context, ch channel.Channel, dc *types.DispatchContext) Result {
	res := Result{Channel: ch.Type()}
	log := d.logger.With("channel", string(ch.Type()))

	scoped := dc.WithIdentities(supportedIdentities(ch, dc.PlatformIdentities))
	if len(scoped.PlatformIdentities) == 0 {
		res.Skipped = true
		d.metrics.RecordDelivery(ctx, ch.Type(), "", MetricSkipped)
		log.Info("channel skipped, no supported recipient addresses")
		return res
	}

	comm, err := ch.GenerateCommunication(ctx, scoped)
	if err != nil {
		res.Err = err
		d.metrics.RecordGenerated(ctx, ch.Type(), MetricFailed)
		log.Error("communication generation failed", "error", err.Error(), "code", string(types.CodeOf(err)))
		return res
	}

	res.Communication = comm
	res.DispatchID = d.newID()
	d.metrics.RecordGenerated(ctx, ch.Type(), MetricSuccess)
	return res
}

func (d *Dispatcher) send(ctx context.Context, ch channel.Channel, res *Result) {
	log := d.logger.With("channel", string(ch.Type()), "dispatch_id", res.DispatchID)

	p, err := d.registry.Select(ch.Type(), ch.AllowedChannelProviderIDs())
	if err != nil {
		res.Err = err
		d.metrics.RecordDelivery(ctx, ch.Type(), "", MetricFailed)
		log.Error("provider selection failed", "error", err.Error())
		return
	}
	res.ProviderID = p.ID()

	start := d.clock.Now()
	receipt, err := p.Send(ctx, res.DispatchID, res.Communication)
	d.metrics.RecordLatency(ctx, ch.Type(), d.clock.Now().Sub(start))

	if err != nil {
		res.Err = err
		d.metrics.RecordDelivery(ctx, ch.Type(), p.ID(), MetricFailed)
		log.Error("provider send failed",
			"provider", p.ID(),
			"error", err.Error(),
			"retryable", types.CodeOf(err).Retryable(),
		)
		return
	}

	res.Receipt = receipt
	d.metrics.RecordDelivery(ctx, ch.Type(), p.ID(), MetricSuccess)
	log.Info("communication sent",
		"provider", p.ID(),
		"recipient_count", len(res.Communication.Recipients()),
	)
}

// supportedIdentities keeps only the addresses ch supports and drops
// identities left with none. Input slices are never modified.
func supportedIdentities(ch channel.Channel, ids []types.PlatformIdentity) []types.PlatformIdentity {
	out := make([]types.PlatformIdentity, 0, len(ids))
	for _, id := range ids {
		var addrs []types.IdentityAddress
		for _, a := range id.Addresses {
			if ch.SupportsIdentityAddress(a) {
				addrs = append(addrs, a)
			}
		}
		if len(addrs) == 0 {
			continue
		}
		id.Addresses = addrs
		out = append(out, id)
	}
	return out
}
