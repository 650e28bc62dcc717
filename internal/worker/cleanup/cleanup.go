// Package cleanup は期限切れセッションの自動削除ジョブを提供する。
// 読み取り側は expires_at で有効性を判定するため、このジョブは容量回収のみを目的とする。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/chatline/internal/metrics"
)

// DefaultInterval は削除ジョブの既定の実行間隔。
const DefaultInterval = time.Hour

const deleteExpiredSessionsQuery = `DELETE FROM sessions WHERE expires_at <= now()`

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SessionReaper は期限切れセッションを削除するジョブ。
// 冪等で、削除対象がない場合もエラーにならない。
type SessionReaper struct {
	db      Executor
	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// NewSessionReaper は新しいSessionReaperを生成する。
func NewSessionReaper(db Executor, logger *slog.Logger, mc metrics.MetricsCollector) *SessionReaper {
	if logger == nil {
		logger = slog.Default()
	}
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &SessionReaper{
		db:      db,
		logger:  logger,
		metrics: mc,
	}
}

// Run は expires_at が現在時刻以前のセッションを削除し、削除件数を返す。
func (j *SessionReaper) Run(ctx context.Context) (int64, error) {
	start := time.Now()

	result, err := j.db.ExecContext(ctx, deleteExpiredSessionsQuery)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	j.metrics.RecordSessionsReaped(deletedCount)

	j.logger.Info("期限切れセッションの削除が完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return deletedCount, nil
}

// Start は起動直後とinterval毎にRunを実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *SessionReaper) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("セッション削除ジョブを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	j.runLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("セッション削除ジョブを停止しました")
			return
		case <-ticker.C:
			j.runLogged(ctx)
		}
	}
}

// runLogged はRunを実行する。エラーはRun内でログ済みのため破棄する。
func (j *SessionReaper) runLogged(ctx context.Context) {
	_, _ = j.Run(ctx)
}
