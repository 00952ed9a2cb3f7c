package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/eventhub/internal/access"
	"github.com/hitoshi/eventhub/internal/auth"
	"github.com/hitoshi/eventhub/internal/metrics"
	"github.com/hitoshi/eventhub/internal/middleware"
	"github.com/hitoshi/eventhub/internal/model"
	"github.com/hitoshi/eventhub/internal/repository"
	"github.com/hitoshi/eventhub/internal/resource"
)

// --- インメモリのリポジトリ ---

func clonePtr[V any](p *V) *V {
	c := *p
	return &c
}

type fakeRepo[T resource.Record] struct {
	mu    sync.Mutex
	rows  map[string]T
	order []string
	clone func(T) T
}

func newFakeRepo[T resource.Record](clone func(T) T) *fakeRepo[T] {
	return &fakeRepo[T]{rows: make(map[string]T), clone: clone}
}

func (f *fakeRepo[T]) Insert(_ context.Context, rec T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec.GetID() == "" {
		rec.SetID(uuid.NewString())
	}
	f.rows[rec.GetID()] = f.clone(rec)
	f.order = append(f.order, rec.GetID())
	return nil
}

func (f *fakeRepo[T]) FindAll(context.Context) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]T, 0, len(f.rows))
	for _, id := range f.order {
		if rec, ok := f.rows[id]; ok {
			out = append(out, f.clone(rec))
		}
	}
	return out, nil
}

func (f *fakeRepo[T]) FindByID(_ context.Context, id string) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.rows[id]
	if !ok {
		var zero T
		return zero, nil
	}
	return f.clone(rec), nil
}

func (f *fakeRepo[T]) Update(_ context.Context, rec T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[rec.GetID()]; !ok {
		return model.NewNotFoundError("Record")
	}
	f.rows[rec.GetID()] = f.clone(rec)
	return nil
}

func (f *fakeRepo[T]) DeleteByID(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return false, nil
	}
	delete(f.rows, id)
	return true, nil
}

func (f *fakeRepo[T]) get(id string) T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id]
}

type fakeUserRepo struct {
	*fakeRepo[*model.User]
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.Email == email {
			return clonePtr(u), nil
		}
	}
	return nil, nil
}

type fakeEventRepo struct {
	*fakeRepo[*model.Event]
	users       *fakeUserRepo
	venues      *fakeRepo[*model.Venue]
	categories  *fakeRepo[*model.Category]
	ticketTypes *fakeRepo[*model.TicketType]
	links       *fakeEventSpeakerRepo
}

func (f *fakeEventRepo) Summarize(_ context.Context, events []*model.Event) ([]*model.EventSummary, error) {
	out := make([]*model.EventSummary, 0, len(events))
	for _, e := range events {
		out = append(out, &model.EventSummary{
			Event:     e,
			Organizer: model.NewEventOrganizer(f.users.get(e.OrganizerID)),
			Venue:     f.venues.get(e.VenueID),
			Category:  f.categories.get(e.CategoryID),
		})
	}
	return out, nil
}

func (f *fakeEventRepo) Detail(ctx context.Context, e *model.Event) (*model.EventDetail, error) {
	summaries, err := f.Summarize(ctx, []*model.Event{e})
	if err != nil {
		return nil, err
	}
	ticketTypes := []*model.TicketType{}
	all, _ := f.ticketTypes.FindAll(ctx)
	for _, t := range all {
		if t.EventID == e.ID {
			ticketTypes = append(ticketTypes, t)
		}
	}
	speakers, _ := f.links.ListByEvent(ctx, e.ID)
	if speakers == nil {
		speakers = []model.EventSpeakerDetail{}
	}
	return &model.EventDetail{EventSummary: *summaries[0], TicketTypes: ticketTypes, Speakers: speakers}, nil
}

func (f *fakeEventRepo) CompletePastEvents(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.rows {
		if e.Status == model.EventStatusScheduled && e.EndDate.Before(now) {
			e.Status = model.EventStatusCompleted
			n++
		}
	}
	return n, nil
}

type fakeEventSpeakerRepo struct {
	mu       sync.Mutex
	links    map[[2]string]string
	speakers *fakeRepo[*model.Speaker]
}

func (f *fakeEventSpeakerRepo) ListByEvent(_ context.Context, eventID string) ([]model.EventSpeakerDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.EventSpeakerDetail
	for key, role := range f.links {
		if key[0] != eventID {
			continue
		}
		if sp := f.speakers.get(key[1]); sp != nil {
			out = append(out, model.EventSpeakerDetail{Speaker: *sp, Role: role})
		}
	}
	return out, nil
}

func (f *fakeEventSpeakerRepo) Upsert(_ context.Context, link *model.EventSpeaker) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[[2]string{link.EventID, link.SpeakerID}] = link.Role
	return nil
}

func (f *fakeEventSpeakerRepo) Delete(_ context.Context, eventID, speakerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]string{eventID, speakerID}
	if _, ok := f.links[key]; !ok {
		return false, nil
	}
	delete(f.links, key)
	return true, nil
}

type fakeStores struct {
	users         *fakeUserRepo
	venues        *fakeRepo[*model.Venue]
	categories    *fakeRepo[*model.Category]
	events        *fakeEventRepo
	ticketTypes   *fakeRepo[*model.TicketType]
	speakers      *fakeRepo[*model.Speaker]
	eventSpeakers *fakeEventSpeakerRepo
	registrations *fakeRepo[*model.Registration]
	payments      *fakeRepo[*model.Payment]
}

func newFakeStores() *fakeStores {
	speakers := newFakeRepo(clonePtr[model.Speaker])
	users := &fakeUserRepo{newFakeRepo(clonePtr[model.User])}
	venues := newFakeRepo(clonePtr[model.Venue])
	categories := newFakeRepo(clonePtr[model.Category])
	ticketTypes := newFakeRepo(clonePtr[model.TicketType])
	links := &fakeEventSpeakerRepo{links: make(map[[2]string]string), speakers: speakers}
	return &fakeStores{
		users:      users,
		venues:     venues,
		categories: categories,
		events: &fakeEventRepo{
			fakeRepo:    newFakeRepo(clonePtr[model.Event]),
			users:       users,
			venues:      venues,
			categories:  categories,
			ticketTypes: ticketTypes,
			links:       links,
		},
		ticketTypes:   ticketTypes,
		speakers:      speakers,
		eventSpeakers: links,
		registrations: newFakeRepo(clonePtr[model.Registration]),
		payments:      newFakeRepo(clonePtr[model.Payment]),
	}
}

func (f *fakeStores) stores() *repository.Stores {
	return &repository.Stores{
		Users:         f.users,
		Venues:        f.venues,
		Categories:    f.categories,
		Events:        f.events,
		TicketTypes:   f.ticketTypes,
		Speakers:      f.speakers,
		EventSpeakers: f.eventSpeakers,
		Registrations: f.registrations,
		Payments:      f.payments,
	}
}

// --- ルーター全体のテストハーネス ---

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type harness struct {
	t       *testing.T
	router  http.Handler
	fakes   *fakeStores
	tokens  *auth.TokenService
	hasher  *auth.PasswordHasher
	limiter *middleware.RateLimiter
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  "access-secret-access-secret-0123",
		RefreshSecret: "refresh-secret-refresh-secret-01",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	hasher := auth.NewPasswordHasher(4)
	fakes := newFakeStores()
	stores := fakes.stores()

	policies, err := access.DefaultPolicies()
	if err != nil {
		t.Fatalf("DefaultPolicies: %v", err)
	}
	resources, err := NewResources(policies, stores, ResourceOptions{Hasher: hasher, Recorder: metrics.Nop{}})
	if err != nil {
		t.Fatalf("NewResources: %v", err)
	}

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Window:     time.Minute,
		GeneralMax: 10000,
		AuthMax:    10000,
	}, metrics.Nop{})
	t.Cleanup(limiter.Stop)

	router := NewRouter(&RouterDeps{
		Verifier:          tokens,
		RateLimiter:       limiter,
		CORSAllowedOrigin: "http://localhost:3000",
		DB:                fakePinger{},
		AuthService:       auth.NewService(stores.Users, tokens, hasher, auth.NewMemoryRevocationStore(), nil),
		Resources:         resources,
	})

	return &harness{t: t, router: router, fakes: fakes, tokens: tokens, hasher: hasher, limiter: limiter}
}

// seedUser はユーザーを直接登録し、そのアクセストークンを返す。
func (h *harness) seedUser(username string, role model.Role) (*model.User, string) {
	h.t.Helper()
	hash, err := h.hasher.Hash("password123")
	if err != nil {
		h.t.Fatal(err)
	}
	u := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         role,
	}
	if err := h.fakes.users.Insert(context.Background(), u); err != nil {
		h.t.Fatal(err)
	}
	token, err := h.tokens.IssueAccessToken(u)
	if err != nil {
		h.t.Fatal(err)
	}
	return u, token
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				h.t.Fatal(err)
			}
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Errors  []string        `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode body: %v\nraw: %s", err, w.Body.String())
	}
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	env := decodeEnvelope(t, w)
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("failed to decode data: %v\nraw: %s", err, string(env.Data))
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d\nbody: %s", w.Code, want, w.Body.String())
	}
}
