package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"


	"github.com/hitoshi/eventhub/internal/access"
	"github.com/hitoshi/eventhub/internal/metrics"
	"github.com/hitoshi/eventhub/internal/model"
)

// Options はDispatcherの生成オプション。
type Options[T Record] struct {
	// Label はメッセージに使うリソースの表示名（例: "Event"）。
	Label string
	// New は空のレコードを生成する。
	New func() T
	// Ownership は所有判定。ResourceConfig.OwnerFieldが設定されている場合は必須。
	Ownership OwnershipFunc[T]
	Hooks     Hooks[T]
	// Sanitize は自由記述テキストの無害化関数。nilの場合は無害化しない。
	Sanitize func(string) string
	Recorder metrics.Recorder
}

// Dispatcher はリソース種別Tに対する5つのCRUD操作を認可付きで提供する。
type Dispatcher[T Record] struct {
	cfg   access.ResourceConfig
	store Store[T]
	opts  Options[T]
}

// NewDispatcher は新しいDispatcherを生成する。
func NewDispatcher[T Record](cfg access.ResourceConfig, store Store[T], opts Options[T]) *Dispatcher[T] {
	if opts.Label == "" {
		opts.Label = cfg.Name
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.Nop{}
	}
	return &Dispatcher[T]{cfg: cfg, store: store, opts: opts}
}

// Config はリソースの認可設定を返す。
func (d *Dispatcher[T]) Config() access.ResourceConfig {
	return d.cfg
}

// Label はリソースの表示名を返す。
func (d *Dispatcher[T]) Label() string {
	return d.opts.Label
}

// HasOwnership は所有判定が設定されているかどうかを返す。
func (d *Dispatcher[T]) HasOwnership() bool {
	return d.opts.Ownership != nil
}

// Create はpayloadから新しいレコードを作成する。IDは常に採番される。
// 認可は入力検証より先に行い、他者名義の作成は入力の不備にかかわらずFORBIDDENとなる。
func (d *Dispatcher[T]) Create(ctx context.Context, identity *model.Identity, payload []byte) (rec T, err error) {
	defer d.record(access.ActionCreate, &err)

	rec = d.opts.New()
	if err := decodePayload(payload, rec); err != nil {
		return rec, err
	}
	rec.SetID("")
	if d.opts.Hooks.Defaults != nil && identity != nil {
		d.opts.Hooks.Defaults(identity, rec)
	}
	if err := d.authorize(ctx, identity, access.ActionCreate, rec); err != nil {
		d.denied(identity, access.ActionCreate, err)
		return rec, err
	}
	if err := d.sanitizeAndValidate(rec); err != nil {
		return rec, err
	}
	if err := d.prepare(ctx, rec); err != nil {
		return rec, err
	}
	if err := d.store.Insert(ctx, rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// List は呼び出し元が参照できるレコードの一覧を返す。
// 公開リソースでなければレコードごとに参照権限を評価し、権限のないものを除外する。
func (d *Dispatcher[T]) List(ctx context.Context, identity *model.Identity) (_ []T, err error) {
	defer d.record(access.ActionRead, &err)

	if !d.cfg.PublicRead {
		if err := access.CheckAccess(identity, d.cfg, access.ActionRead, nil); err != nil {
			d.denied(identity, access.ActionRead, err)
			return nil, err
		}
	}

	all, err := d.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	visible := make([]T, 0, len(all))
	for _, rec := range all {
		err := d.authorize(ctx, identity, access.ActionRead, rec)
		var apiErr *model.APIError
		switch {
		case err == nil:
			visible = append(visible, rec)
		case errors.As(err, &apiErr):
			continue
		default:
			return nil, err
		}
	}
	return visible, nil
}

// Get はIDで指定されたレコードを返す。
// 存在しないIDは認可の評価より前にNOT_FOUNDとなる。
func (d *Dispatcher[T]) Get(ctx context.Context, identity *model.Identity, id string) (rec T, err error) {
	defer d.record(access.ActionRead, &err)

	rec, err = d.fetch(ctx, id)
	if err != nil {
		return rec, err
	}
	if err := d.authorize(ctx, identity, access.ActionRead, rec); err != nil {
		d.denied(identity, access.ActionRead, err)
		return rec, err
	}
	return rec, nil
}

// Update はpayloadを既存レコードに部分的に適用して保存する。IDは変更できない。
func (d *Dispatcher[T]) Update(ctx context.Context, identity *model.Identity, id string, payload []byte) (rec T, err error) {
	defer d.record(access.ActionUpdate, &err)

	rec, err = d.fetch(ctx, id)
	if err != nil {
		return rec, err
	}
	if err := d.authorize(ctx, identity, access.ActionUpdate, rec); err != nil {
		d.denied(identity, access.ActionUpdate, err)
		return rec, err
	}

	var patch Patch
	if err := decodePayload(payload, &patch); err != nil {
		return rec, err
	}
	if d.opts.Hooks.GuardUpdate != nil {
		if err := d.opts.Hooks.GuardUpdate(ctx, identity, rec, patch); err != nil {
			d.denied(identity, access.ActionUpdate, err)
			return rec, err
		}
	}

	if err := decodePayload(payload, rec); err != nil {
		return rec, err
	}
	rec.SetID(id)

	if err := d.sanitizeAndValidate(rec); err != nil {
		return rec, err
	}
	if err := d.checkRetainedOwnership(ctx, identity, rec); err != nil {
		d.denied(identity, access.ActionUpdate, err)
		return rec, err
	}
	if err := d.prepare(ctx, rec); err != nil {
		return rec, err
	}
	if err := d.store.Update(ctx, rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// Delete はIDで指定されたレコードを削除する。削除済みのIDはNOT_FOUNDとなる。
func (d *Dispatcher[T]) Delete(ctx context.Context, identity *model.Identity, id string) (err error) {
	defer d.record(access.ActionDelete, &err)

	rec, err := d.fetch(ctx, id)
	if err != nil {
		return err
	}
	if err := d.authorize(ctx, identity, access.ActionDelete, rec); err != nil {
		d.denied(identity, access.ActionDelete, err)
		return err
	}
	if d.opts.Hooks.GuardDelete != nil {
		if err := d.opts.Hooks.GuardDelete(ctx, identity, rec); err != nil {
			d.denied(identity, access.ActionDelete, err)
			return err
		}
	}

	deleted, err := d.store.DeleteByID(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewNotFoundError(d.opts.Label)
	}
	return nil
}

// fetch はIDを検証してレコードを取得する。不正な形式のIDも存在しないIDとして扱う。
func (d *Dispatcher[T]) fetch(ctx context.Context, id string) (T, error) {
	var zero T
	if !model.ValidID(id) {
		return zero, model.NewNotFoundError(d.opts.Label)
	}
	rec, err := d.store.FindByID(ctx, id)
	if err != nil {
		return zero, err
	}
	if isAbsent(rec) {
		return zero, model.NewNotFoundError(d.opts.Label)
	}
	return rec, nil
}

// authorize はアクセスポリシーを評価する。
// 所有判定が必要な場合のみストレージを参照する。
func (d *Dispatcher[T]) authorize(ctx context.Context, identity *model.Identity, action access.Action, rec T) error {
	var target access.Target
	if d.needsOwnership(identity, action) {
		owned, err := d.opts.Ownership(ctx, rec, identity)
		if err != nil {
			return fmt.Errorf("failed to evaluate ownership of %s: %w", d.cfg.Name, err)
		}
		target = access.TargetFunc(func(*model.Identity) bool { return owned })
	}
	return access.CheckAccess(identity, d.cfg, action, target)
}

func (d *Dispatcher[T]) needsOwnership(identity *model.Identity, action access.Action) bool {
	if d.cfg.OwnerField == "" || d.opts.Ownership == nil {
		return false
	}
	if identity == nil || identity.IsAdmin() {
		return false
	}
	return !(action == access.ActionRead && d.cfg.PublicRead)
}

// checkRetainedOwnership はマージ後のレコードを呼び出し元が引き続き所有していることを確認する。
// 非管理者による所有者の付け替えを防ぐ。
func (d *Dispatcher[T]) checkRetainedOwnership(ctx context.Context, identity *model.Identity, rec T) error {
	if !d.needsOwnership(identity, access.ActionUpdate) {
		return nil
	}
	owned, err := d.opts.Ownership(ctx, rec, identity)
	if err != nil {
		return fmt.Errorf("failed to evaluate ownership of %s: %w", d.cfg.Name, err)
	}
	if !owned {
		return model.NewForbiddenError("Forbidden: You cannot transfer ownership of this resource")
	}
	return nil
}

func (d *Dispatcher[T]) sanitizeAndValidate(rec T) error {
	if d.opts.Sanitize != nil {
		if s, ok := any(rec).(textSanitizer); ok {
			s.SanitizeText(d.opts.Sanitize)
		}
	}
	if errs := rec.Validate(); len(errs) > 0 {
		return model.NewValidationError("Validation error.", errs...)
	}
	return nil
}

func (d *Dispatcher[T]) prepare(ctx context.Context, rec T) error {
	if d.opts.Hooks.Prepare == nil {
		return nil
	}
	return d.opts.Hooks.Prepare(ctx, rec)
}

// denied は認可拒否をログとメトリクスに記録する。
func (d *Dispatcher[T]) denied(identity *model.Identity, action access.Action, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeForbidden {
		return
	}
	role := "anonymous"
	userID := ""
	if identity != nil {
		role = string(identity.Role)
		userID = identity.ID
	}
	d.opts.Recorder.RecordAccessDenied(d.cfg.Name, string(action), role)
	slog.Warn("access denied",
		slog.String("resource", d.cfg.Name),
		slog.String("action", string(action)),
		slog.String("user_id", userID),
		slog.String("role", role),
		slog.String("reason", apiErr.Message),
	)
}

// record は操作結果をメトリクスに記録する。
func (d *Dispatcher[T]) record(action access.Action, errp *error) {
	d.opts.Recorder.RecordResourceOperation(d.cfg.Name, string(action), outcome(*errp))
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return "error"
	}
	switch apiErr.Code {
	case model.ErrCodeUnauthenticated, model.ErrCodeForbidden:
		return "denied"
	case model.ErrCodeNotFound:
		return "not_found"
	case model.ErrCodeValidation, model.ErrCodeConflict:
		return "invalid"
	default:
		return "error"
	}
}

// decodePayload はJSONボディをdstにデコードする。
func decodePayload(payload []byte, dst any) error {
	if len(payload) == 0 {
		return model.NewValidationError("Request body is required.")
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return model.NewValidationError("Invalid request body.", err.Error())
	}
	return nil
}
