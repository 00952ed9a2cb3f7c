// Package resource はリソース種別に依存しない汎用CRUDディスパッチャーとルート定義を提供する。
// 認可は access パッケージのポリシーに従い、永続化は Store に委譲する。
package resource

import (
	"context"
	"encoding/json"

	"github.com/hitoshi/eventhub/internal/model"
)

// Record はディスパッチャーが扱うレコードの最小インターフェース。
type Record interface {
	GetID() string
	SetID(id string)
	// Validate はフィールド単位のエラーを返す。問題がなければ空。
	Validate() []string
}

// textSanitizer は自由記述テキストを持つレコードが実装する。
type textSanitizer interface {
	SanitizeText(clean func(string) string)
}

// Store はリソース種別ごとの永続化インターフェース。
// FindByID はレコードが存在しない場合にゼロ値(nil)を返す。
type Store[T Record] interface {
	Insert(ctx context.Context, rec T) error
	FindAll(ctx context.Context) ([]T, error)
	FindByID(ctx context.Context, id string) (T, error)
	Update(ctx context.Context, rec T) error
	DeleteByID(ctx context.Context, id string) (bool, error)
}

// OwnershipFunc はレコードがidentityの所有かどうかを判定する。
// 関連レコードを辿る必要がある場合はストレージを参照してよい。
type OwnershipFunc[T Record] func(ctx context.Context, rec T, identity *model.Identity) (bool, error)

// Patch は更新リクエストのボディをフィールド名ごとに保持する。
type Patch map[string]json.RawMessage

// String はfieldが文字列として指定されていればその値を返す。
func (p Patch) String(field string) (string, bool) {
	raw, ok := p[field]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Hooks はリソース固有の振る舞いを差し込むためのフック群。いずれも省略できる。
type Hooks[T Record] struct {
	// Defaults は作成時の検証前に呼ばれ、呼び出し元から導出される既定値を設定する。
	Defaults func(identity *model.Identity, rec T)
	// GuardUpdate は認可後、マージ前に呼ばれる。エラーを返すと更新を中止する。
	GuardUpdate func(ctx context.Context, identity *model.Identity, current T, patch Patch) error
	// GuardDelete は認可後、削除前に呼ばれる。
	GuardDelete func(ctx context.Context, identity *model.Identity, rec T) error
	// Prepare は検証後、永続化の直前に作成・更新の両方で呼ばれる。
	Prepare func(ctx context.Context, rec T) error
	// ExpandList は一覧応答の直前に呼ばれ、関連レコードを解決した応答値を返す。
	ExpandList func(ctx context.Context, recs []T) (any, error)
	// ExpandGet は単一取得応答の直前に呼ばれる。
	ExpandGet func(ctx context.Context, rec T) (any, error)
}

// isAbsent はFindByIDの結果がレコードなしを表すかどうかを返す。
func isAbsent[T Record](rec T) bool {
	var zero T
	return any(rec) == any(zero)
}
