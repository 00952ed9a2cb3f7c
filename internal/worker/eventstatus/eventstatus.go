// Package eventstatus は終了日時を過ぎたイベントの状態更新ジョブを提供する。
// scheduledのまま終了したイベントをcompletedに更新する。
package eventstatus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/eventhub/internal/metrics"
)

// EventCompleter は終了済みイベントを一括で完了状態にする。
// repository.EventRepositoryが満たす。
type EventCompleter interface {
	CompletePastEvents(ctx context.Context, now time.Time) (int64, error)
}

// Job はイベント状態の定期更新ジョブ。
// 更新は条件付きUPDATEのみで行うため、複数プロセスから同時に実行しても結果は変わらない。
type Job struct {
	events   EventCompleter
	logger   *slog.Logger
	recorder metrics.Recorder
	now      func() time.Time
}

// NewJob は新しいJobを生成する。recorderがnilの場合は記録しない。
func NewJob(events EventCompleter, logger *slog.Logger, recorder metrics.Recorder) *Job {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Job{
		events:   events,
		logger:   logger,
		recorder: recorder,
		now:      time.Now,
	}
}

// Run は終了日時を過ぎたscheduledイベントをcompletedに更新し、更新件数を返す。
func (j *Job) Run(ctx context.Context) (int64, error) {
	start := time.Now()

	n, err := j.events.CompletePastEvents(ctx, j.now().UTC())
	if err != nil {
		j.logger.Error("failed to complete past events",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("event status update failed: %w", err)
	}

	j.recorder.RecordEventsCompleted(n)
	j.logger.Info("event status update completed",
		slog.Int64("completed_count", n),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return n, nil
}

// Start は起動直後に1回実行し、以降interval間隔でRunを繰り返す。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("event status worker started", slog.Duration("interval", interval))

	// 失敗は次の周期で再試行するためログのみ
	_, _ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("event status worker stopped")
			return
		case <-ticker.C:
			_, _ = j.Run(ctx)
		}
	}
}
