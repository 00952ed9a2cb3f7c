package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/eventhub/internal/access"
	"github.com/hitoshi/eventhub/internal/metrics"
	"github.com/hitoshi/eventhub/internal/model"
	"github.com/hitoshi/eventhub/internal/repository"
	"github.com/hitoshi/eventhub/internal/resource"
)

// PasswordHasher はユーザー更新時のパスワードハッシュ化に使う。
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// ResourceOptions はリソースエンドポイント生成時の共通設定。
type ResourceOptions struct {
	Hasher   PasswordHasher
	Sanitize func(string) string
	Recorder metrics.Recorder
}

// Resource は /api/<name> にマウントされる1リソース分のエンドポイント。
type Resource struct {
	Base     string
	Endpoint resource.Endpoint
	extra    func(authn func(http.Handler) http.Handler) []resource.Route
}

// Routes は認可設定から生成したルートにリソース固有のルートを加えて返す。
func (r Resource) Routes(authn func(http.Handler) http.Handler) []resource.Route {
	routes := resource.Bind(r.Endpoint, authn)
	if r.extra != nil {
		routes = append(routes, r.extra(authn)...)
	}
	return routes
}

// NewResources は全リソースのディスパッチャーを構築する。
// policiesに存在しないリソースがある場合はエラーを返す。
func NewResources(policies access.Policies, stores *repository.Stores, opts ResourceOptions) ([]Resource, error) {
	for _, name := range []string{"users", "venues", "categories", "events", "ticket-types", "speakers", "registrations", "payments"} {
		if _, ok := policies.Get(name); !ok {
			return nil, fmt.Errorf("missing resource policy: %s", name)
		}
	}

	eventsCfg := policies.MustGet("events")
	events := resource.NewDispatcher[*model.Event](eventsCfg, stores.Events, resource.Options[*model.Event]{
		Label:     "Event",
		New:       func() *model.Event { return &model.Event{} },
		Ownership: eventOwnership,
		Hooks: resource.Hooks[*model.Event]{
			Defaults: func(identity *model.Identity, e *model.Event) {
				if e.OrganizerID == "" {
					e.OrganizerID = identity.ID
				}
			},
			ExpandList: func(ctx context.Context, es []*model.Event) (any, error) {
				return stores.Events.Summarize(ctx, es)
			},
			ExpandGet: func(ctx context.Context, e *model.Event) (any, error) {
				return stores.Events.Detail(ctx, e)
			},
		},
		Sanitize: opts.Sanitize,
		Recorder: opts.Recorder,
	})
	speakers := NewEventSpeakerHandler(eventsCfg, stores.Events, stores.Speakers, stores.EventSpeakers, opts.Sanitize)

	return []Resource{
		{
			Base: "/api/users",
			Endpoint: resource.NewDispatcher[*model.User](policies.MustGet("users"), stores.Users, resource.Options[*model.User]{
				Label:     "User",
				New:       func() *model.User { return &model.User{} },
				Ownership: userOwnership,
				Hooks:     userHooks(opts.Hasher),
				Sanitize:  opts.Sanitize,
				Recorder:  opts.Recorder,
			}),
		},
		{
			Base: "/api/venues",
			Endpoint: resource.NewDispatcher[*model.Venue](policies.MustGet("venues"), stores.Venues, resource.Options[*model.Venue]{
				Label:    "Venue",
				New:      func() *model.Venue { return &model.Venue{} },
				Sanitize: opts.Sanitize,
				Recorder: opts.Recorder,
			}),
		},
		{
			Base: "/api/categories",
			Endpoint: resource.NewDispatcher[*model.Category](policies.MustGet("categories"), stores.Categories, resource.Options[*model.Category]{
				Label:    "Category",
				New:      func() *model.Category { return &model.Category{} },
				Sanitize: opts.Sanitize,
				Recorder: opts.Recorder,
			}),
		},
		{
			Base:     "/api/events",
			Endpoint: events,
			extra:    speakers.Routes,
		},
		{
			Base: "/api/ticket-types",
			Endpoint: resource.NewDispatcher[*model.TicketType](policies.MustGet("ticket-types"), stores.TicketTypes, resource.Options[*model.TicketType]{
				Label:     "TicketType",
				New:       func() *model.TicketType { return &model.TicketType{} },
				Ownership: ticketTypeOwnership(stores.Events),
				Sanitize:  opts.Sanitize,
				Recorder:  opts.Recorder,
			}),
		},
		{
			Base: "/api/speakers",
			Endpoint: resource.NewDispatcher[*model.Speaker](policies.MustGet("speakers"), stores.Speakers, resource.Options[*model.Speaker]{
				Label:    "Speaker",
				New:      func() *model.Speaker { return &model.Speaker{} },
				Sanitize: opts.Sanitize,
				Recorder: opts.Recorder,
			}),
		},
		{
			Base: "/api/registrations",
			Endpoint: resource.NewDispatcher[*model.Registration](policies.MustGet("registrations"), stores.Registrations, resource.Options[*model.Registration]{
				Label:     "Registration",
				New:       func() *model.Registration { return &model.Registration{} },
				Ownership: registrationOwnership,
				Hooks: resource.Hooks[*model.Registration]{
					Defaults: func(identity *model.Identity, r *model.Registration) {
						if r.UserID == "" {
							r.UserID = identity.ID
						}
					},
				},
				Sanitize: opts.Sanitize,
				Recorder: opts.Recorder,
			}),
		},
		{
			Base: "/api/payments",
			Endpoint: resource.NewDispatcher[*model.Payment](policies.MustGet("payments"), stores.Payments, resource.Options[*model.Payment]{
				Label:     "Payment",
				New:       func() *model.Payment { return &model.Payment{} },
				Ownership: paymentOwnership(stores.Registrations),
				Sanitize:  opts.Sanitize,
				Recorder:  opts.Recorder,
			}),
		},
	}, nil
}

// userHooks はユーザーリソース固有の制約を返す。
// 非管理者はロールを変更できず、管理者は自分自身を削除できない。
// 更新でパスワードが指定された場合は再ハッシュする。
func userHooks(hasher PasswordHasher) resource.Hooks[*model.User] {
	return resource.Hooks[*model.User]{
		GuardUpdate: func(_ context.Context, identity *model.Identity, current *model.User, patch resource.Patch) error {
			if identity.IsAdmin() {
				return nil
			}
			if _, present := patch["role"]; !present {
				return nil
			}
			if role, ok := patch.String("role"); ok && model.Role(role) == current.Role {
				return nil
			}
			return model.NewForbiddenError("Forbidden: You do not have permission to change roles.")
		},
		GuardDelete: func(_ context.Context, identity *model.Identity, u *model.User) error {
			if identity != nil && identity.ID == u.ID {
				return model.NewForbiddenError("Forbidden: An admin cannot delete their own account.")
			}
			return nil
		},
		Prepare: func(_ context.Context, u *model.User) error {
			if u.Password == "" {
				return nil
			}
			hash, err := hasher.Hash(u.Password)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
			u.PasswordHash = hash
			u.Password = ""
			return nil
		},
	}
}

func userOwnership(_ context.Context, u *model.User, identity *model.Identity) (bool, error) {
	return u.ID == identity.ID, nil
}

func eventOwnership(_ context.Context, e *model.Event, identity *model.Identity) (bool, error) {
	return e.OwnedBy(identity.ID), nil
}

func registrationOwnership(_ context.Context, r *model.Registration, identity *model.Identity) (bool, error) {
	return r.OwnedBy(identity.ID), nil
}

// ticketTypeOwnership はチケット種別の所有者を紐付くイベントの主催者とする。
func ticketTypeOwnership(events repository.CRUDRepository[*model.Event]) resource.OwnershipFunc[*model.TicketType] {
	return func(ctx context.Context, t *model.TicketType, identity *model.Identity) (bool, error) {
		event, err := events.FindByID(ctx, t.EventID)
		if err != nil {
			return false, err
		}
		return event != nil && event.OwnedBy(identity.ID), nil
	}
}

// paymentOwnership は支払いの所有者を紐付く申込のユーザーとする。
func paymentOwnership(registrations repository.CRUDRepository[*model.Registration]) resource.OwnershipFunc[*model.Payment] {
	return func(ctx context.Context, p *model.Payment, identity *model.Identity) (bool, error) {
		reg, err := registrations.FindByID(ctx, p.RegistrationID)
		if err != nil {
			return false, err
		}
		return reg != nil && reg.OwnedBy(identity.ID), nil
	}
}
