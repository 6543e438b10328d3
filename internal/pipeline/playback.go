package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/communage/communage/internal/observe"
	"github.com/communage/communage/pkg/audio"
)

// deviceRef wraps the output device so an absent device (nil interface) is
// still representable as a stored pointer.
type deviceRef struct {
	dev audio.OutputDevice
}

// Player drains synthesised clips into the active output device.
//
// The device reference is swappable at any time via [Player.SetOutputDevice];
// clips already queued before a swap play on whichever device is active when
// they reach the front. Each clip reads the reference exactly once, so a
// single clip never straddles two devices.
type Player struct {
	source  string
	device  atomic.Pointer[deviceRef]
	metrics *observe.Metrics
}

// NewPlayer creates a Player initially bound to dev. A nil dev is allowed:
// clips are dropped until a device is set.
func NewPlayer(source string, dev audio.OutputDevice, m *observe.Metrics) *Player {
	if m == nil {
		m = observe.DefaultMetrics()
	}
	p := &Player{source: source, metrics: m}
	p.device.Store(&deviceRef{dev: dev})
	return p
}

// SetOutputDevice redirects all future playback to dev. Safe to call from
// any goroutine; a nil dev mutes playback.
func (p *Player) SetOutputDevice(dev audio.OutputDevice) {
	p.device.Store(&deviceRef{dev: dev})
}

// OutputDevice returns the currently active device, or nil when muted.
func (p *Player) OutputDevice() audio.OutputDevice {
	return p.device.Load().dev
}

// Worker binds the stage to its clip queue.
func (p *Player) Worker(in <-chan Clip) *Worker[Clip] {
	return NewWorker("playback/"+p.source, in, p.process)
}

func (p *Player) process(ctx context.Context, clip Clip) error {
	dev := p.device.Load().dev
	if dev == nil {
		p.metrics.RecordDrop(ctx, clip.Source, "playback")
		slog.Debug("playback muted, dropping clip", "source", clip.Source, "bytes", len(clip.PCM))
		return nil
	}

	start := time.Now()
	err := dev.Play(ctx, clip.PCM, clip.SampleRate)
	p.metrics.PlaybackDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("source", clip.Source)))
	if err != nil {
		return fmt.Errorf("play on %q: %w", dev.Name(), err)
	}
	return nil
}
