// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/eventhub/internal/model"
)

// DBTX は*sql.DBと*sql.Txの共通インターフェース。
// リポジトリはどちらの上でも動作する。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CRUDRepository はリソース共通の永続化インターフェース。
type CRUDRepository[T any] interface {
	// Insert はレコードを作成する。IDが空の場合は採番する。
	Insert(ctx context.Context, rec T) error
	// FindAll は全レコードを取得する。
	FindAll(ctx context.Context) ([]T, error)
	// FindByID は指定IDのレコードを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (T, error)
	// Update はレコードを上書き更新する。
	Update(ctx context.Context, rec T) error
	// DeleteByID は指定IDのレコードを削除する。削除対象がなければfalseを返す。
	DeleteByID(ctx context.Context, id string) (bool, error)
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	CRUDRepository[*model.User]

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// EventRepository はイベントデータの永続化インターフェース。
type EventRepository interface {
	CRUDRepository[*model.Event]

	// CompletePastEvents はend_dateがnowより前のscheduledイベントをcompletedに更新し、件数を返す。
	CompletePastEvents(ctx context.Context, now time.Time) (int64, error)
	// Summarize はeventsの主催者・会場・カテゴリを解決する。結果はeventsと同じ順序。
	Summarize(ctx context.Context, events []*model.Event) ([]*model.EventSummary, error)
	// Detail はSummarizeの内容にチケット種別と登壇者を加える。
	Detail(ctx context.Context, event *model.Event) (*model.EventDetail, error)
}

// EventSpeakerRepository はイベントと登壇者の紐付けの永続化インターフェース。
type EventSpeakerRepository interface {
	// ListByEvent はイベントの登壇者一覧を返す。
	ListByEvent(ctx context.Context, eventID string) ([]model.EventSpeakerDetail, error)
	// Upsert は紐付けを作成し、既存なら役割を更新する。
	Upsert(ctx context.Context, link *model.EventSpeaker) error
	// Delete は紐付けを削除する。対象がなければfalseを返す。
	Delete(ctx context.Context, eventID, speakerID string) (bool, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
