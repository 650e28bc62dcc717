package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hitoshi/chatline/internal/client"
)

// DefaultQueueSize は通知キューの既定の長さ。
const DefaultQueueSize = 32

// Deduper はメッセージIDで重複を除いて通知する。
// IDは単調増加するため、最後に通知したID以下のメッセージは通知しない。
type Deduper struct {
	alerter Alerter
	logger  *slog.Logger
	queue   chan Alert

	mu   sync.Mutex
	last int64

	fired   atomic.Int64
	dropped atomic.Int64

	startOnce sync.Once
	closeOnce sync.Once
	stop      chan struct{}
	wg        sync.WaitGroup
}

// DeduperOptions はDeduperの設定。
type DeduperOptions struct {
	QueueSize int
	Logger    *slog.Logger
}

// NewDeduper はDeduperを生成する。通知を配信するにはStartを呼ぶ。
func NewDeduper(alerter Alerter, opts DeduperOptions) *Deduper {
	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduper{
		alerter: alerter,
		logger:  logger,
		queue:   make(chan Alert, size),
		stop:    make(chan struct{}),
	}
}

// Notify はmsgが未通知であれば通知を予約する。
// キューが満杯の場合は通知を捨てる。呼び出し元をブロックしない。
func (d *Deduper) Notify(msg client.Message) {
	d.mu.Lock()
	if msg.ID <= d.last {
		d.mu.Unlock()
		return
	}
	d.last = msg.ID
	d.mu.Unlock()

	select {
	case d.queue <- AlertFor(msg):
	default:
		d.dropped.Add(1)
		d.logger.Warn("通知キューが満杯のため通知を破棄しました",
			slog.Int64("message_id", msg.ID),
		)
	}
}

// Start はバックグラウンドで通知の配信を開始する。複数回呼んでも1度だけ開始する。
func (d *Deduper) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		d.wg.Add(1)
		go d.deliver(ctx)
	})
}

// Close は配信を停止し、配信ゴルーチンの終了を待つ。
func (d *Deduper) Close() {
	d.closeOnce.Do(func() {
		close(d.stop)
	})
	d.wg.Wait()
}

// CountFired は配信した通知の件数を返す。
func (d *Deduper) CountFired() int64 {
	return d.fired.Load()
}

// CountDropped はキュー満杯で破棄した通知の件数を返す。
func (d *Deduper) CountDropped() int64 {
	return d.dropped.Load()
}

func (d *Deduper) deliver(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stop:
			return
		case alert := <-d.queue:
			if err := d.alerter.Alert(ctx, alert); err != nil {
				d.logger.Warn("通知に失敗しました",
					slog.Int64("message_id", alert.MessageID),
					slog.String("error", err.Error()),
				)
				continue
			}
			d.fired.Add(1)
		}
	}
}
