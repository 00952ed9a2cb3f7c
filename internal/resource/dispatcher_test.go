package resource

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/eventhub/internal/access"
	"github.com/hitoshi/eventhub/internal/model"
)

// note はテスト用のレコード。OwnerIDが所有者を表す。
type note struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	Title   string `json:"title"`
	Body    string `json:"body,omitempty"`
	Secret  string `json:"-"`
}

func (n *note) GetID() string   { return n.ID }
func (n *note) SetID(id string) { n.ID = id }

func (n *note) Validate() []string {
	var errs []string
	if n.Title == "" {
		errs = append(errs, "title is required")
	}
	if n.OwnerID == "" {
		errs = append(errs, "ownerId is required")
	}
	return errs
}

func (n *note) SanitizeText(clean func(string) string) {
	n.Title = clean(n.Title)
	n.Body = clean(n.Body)
}

// memStore はコピーを保持するインメモリのStore。
type memStore struct {
	mu      sync.Mutex
	rows    map[string]note
	findErr error
	finds   int
}

func newMemStore(rows ...note) *memStore {
	s := &memStore{rows: make(map[string]note)}
	for _, r := range rows {
		s.rows[r.ID] = r
	}
	return s
}

func (s *memStore) Insert(_ context.Context, rec *note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	s.rows[rec.ID] = *rec
	return nil
}

func (s *memStore) FindAll(context.Context) ([]*note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	out := make([]*note, 0, len(s.rows))
	for _, r := range s.rows {
		r := r
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) FindByID(_ context.Context, id string) (*note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds++
	if s.findErr != nil {
		return nil, s.findErr
	}
	r, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *memStore) Update(_ context.Context, rec *note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[rec.ID]; !ok {
		return model.NewNotFoundError("Note")
	}
	s.rows[rec.ID] = *rec
	return nil
}

func (s *memStore) DeleteByID(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return false, nil
	}
	delete(s.rows, id)
	return true, nil
}

var _ Store[*note] = (*memStore)(nil)

var (
	admin     = &model.Identity{ID: "00000000-0000-0000-0000-00000000000a", Role: model.RoleAdmin}
	attendee1 = &model.Identity{ID: "u1", Role: model.RoleAttendee}
	attendee2 = &model.Identity{ID: "u2", Role: model.RoleAttendee}
	organizer = &model.Identity{ID: "o1", Role: model.RoleOrganizer}

	idR1 = "11111111-1111-1111-1111-111111111111"
	idR2 = "22222222-2222-2222-2222-222222222222"
)

// registrationsConfig は所有者フィールドを持つ非公開リソースの設定。
func registrationsConfig() access.ResourceConfig {
	return access.ResourceConfig{
		Name:        "notes",
		CreateRoles: access.Roles(model.RoleAdmin, model.RoleAttendee),
		UpdateRoles: access.Roles(model.RoleAdmin, model.RoleAttendee),
		DeleteRoles: access.Roles(model.RoleAdmin, model.RoleAttendee),
		OwnerField:  "ownerId",
	}
}

func publicConfig() access.ResourceConfig {
	return access.ResourceConfig{
		Name:        "notes",
		CreateRoles: access.Roles(model.RoleAdmin, model.RoleOrganizer),
		UpdateRoles: access.Roles(model.RoleAdmin, model.RoleOrganizer),
		DeleteRoles: access.Roles(model.RoleAdmin),
		PublicRead:  true,
	}
}

type ownershipSpy struct {
	calls int
}

func (o *ownershipSpy) check(_ context.Context, rec *note, identity *model.Identity) (bool, error) {
	o.calls++
	return rec.OwnerID == identity.ID, nil
}

func newNoteDispatcher(cfg access.ResourceConfig, store Store[*note], own *ownershipSpy, hooks Hooks[*note]) *Dispatcher[*note] {
	opts := Options[*note]{
		Label:    "Note",
		New:      func() *note { return &note{} },
		Hooks:    hooks,
		Sanitize: strings.TrimSpace,
	}
	if own != nil {
		opts.Ownership = own.check
	}
	return NewDispatcher(cfg, store, opts)
}

func requireAPIError(t *testing.T, err error, code string) *model.APIError {
	t.Helper()
	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr), "expected *model.APIError, got %v", err)
	assert.Equal(t, code, apiErr.Code, apiErr.Message)
	return apiErr
}

func TestDispatcher_CreateThenGetRoundTrip(t *testing.T) {
	d := newNoteDispatcher(publicConfig(), newMemStore(), nil, Hooks[*note]{})
	ctx := context.Background()

	created, err := d.Create(ctx, organizer, []byte(`{"id":"ignored","ownerId":"o1","title":"  Keynote  ","body":"hello"}`))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.NotEqual(t, "ignored", created.ID)
	_, err = uuid.Parse(created.ID)
	require.NoError(t, err)

	got, err := d.Get(ctx, nil, created.ID)
	require.NoError(t, err)
	assert.Equal(t, &note{ID: created.ID, OwnerID: "o1", Title: "Keynote", Body: "hello"}, got)
}

func TestDispatcher_CreateValidationError(t *testing.T) {
	d := newNoteDispatcher(publicConfig(), newMemStore(), nil, Hooks[*note]{})

	_, err := d.Create(context.Background(), organizer, []byte(`{"body":"no title"}`))
	apiErr := requireAPIError(t, err, model.ErrCodeValidation)
	assert.ElementsMatch(t, []string{"title is required", "ownerId is required"}, apiErr.Errors)

	_, err = d.Create(context.Background(), organizer, []byte(`{not json`))
	requireAPIError(t, err, model.ErrCodeValidation)

	_, err = d.Create(context.Background(), organizer, nil)
	requireAPIError(t, err, model.ErrCodeValidation)
}

func TestDispatcher_CreateOwnership(t *testing.T) {
	own := &ownershipSpy{}
	hooks := Hooks[*note]{Defaults: func(identity *model.Identity, rec *note) {
		if rec.OwnerID == "" {
			rec.OwnerID = identity.ID
		}
	}}
	d := newNoteDispatcher(registrationsConfig(), newMemStore(), own, hooks)
	ctx := context.Background()

	created, err := d.Create(ctx, attendee1, []byte(`{"title":"mine"}`))
	require.NoError(t, err)
	assert.Equal(t, "u1", created.OwnerID)

	_, err = d.Create(ctx, attendee1, []byte(`{"title":"theirs","ownerId":"u2"}`))
	requireAPIError(t, err, model.ErrCodeForbidden)

	created, err = d.Create(ctx, admin, []byte(`{"title":"on behalf","ownerId":"u2"}`))
	require.NoError(t, err)
	assert.Equal(t, "u2", created.OwnerID)
}

func TestDispatcher_CreateAuthorizesBeforeValidating(t *testing.T) {
	own := &ownershipSpy{}
	hooks := Hooks[*note]{Defaults: func(identity *model.Identity, rec *note) {
		if rec.OwnerID == "" {
			rec.OwnerID = identity.ID
		}
	}}
	store := newMemStore()
	d := newNoteDispatcher(registrationsConfig(), store, own, hooks)
	ctx := context.Background()

	// 他者名義かつtitle欠落: 入力エラーの一覧ではなくFORBIDDENを返す
	_, err := d.Create(ctx, attendee1, []byte(`{"ownerId":"u2"}`))
	apiErr := requireAPIError(t, err, model.ErrCodeForbidden)
	assert.Empty(t, apiErr.Errors)

	// 自分名義なら入力検証に進む
	_, err = d.Create(ctx, attendee1, []byte(`{}`))
	apiErr = requireAPIError(t, err, model.ErrCodeValidation)
	assert.Equal(t, []string{"title is required"}, apiErr.Errors)

	assert.Empty(t, store.rows)
}

func TestDispatcher_NonCanonicalIDIsNotFound(t *testing.T) {
	store := newMemStore(note{ID: idR1, OwnerID: "o1", Title: "r1"})
	d := newNoteDispatcher(publicConfig(), store, nil, Hooks[*note]{})
	ctx := context.Background()

	for _, id := range []string{
		"urn:uuid:" + idR1,
		"{" + idR1 + "}",
		strings.ReplaceAll(idR1, "-", ""),
	} {
		t.Run(id, func(t *testing.T) {
			finds := store.finds
			_, err := d.Get(ctx, nil, id)
			requireAPIError(t, err, model.ErrCodeNotFound)

			err = d.Delete(ctx, admin, id)
			requireAPIError(t, err, model.ErrCodeNotFound)
			assert.Equal(t, finds, store.finds, "non-canonical id should not reach the store")
		})
	}
	assert.Contains(t, store.rows, idR1)
}

func TestDispatcher_MissingIDIsNotFoundBeforePolicy(t *testing.T) {
	own := &ownershipSpy{}
	store := newMemStore(note{ID: idR1, OwnerID: "u1", Title: "a"})
	d := newNoteDispatcher(registrationsConfig(), store, own, Hooks[*note]{})
	ctx := context.Background()
	missing := uuid.NewString()

	for _, identity := range []*model.Identity{admin, attendee2, nil} {
		_, err := d.Get(ctx, identity, missing)
		requireAPIError(t, err, model.ErrCodeNotFound)

		_, err = d.Update(ctx, identity, missing, []byte(`{"title":"x"}`))
		requireAPIError(t, err, model.ErrCodeNotFound)

		err = d.Delete(ctx, identity, missing)
		requireAPIError(t, err, model.ErrCodeNotFound)
	}

	finds := store.finds
	_, err := d.Get(ctx, admin, "not-a-uuid")
	apiErr := requireAPIError(t, err, model.ErrCodeNotFound)
	assert.Equal(t, "Note not found.", apiErr.Message)
	assert.Equal(t, finds, store.finds, "malformed id should not reach the store")

	assert.Zero(t, own.calls)
}

func TestDispatcher_OwnerScenario(t *testing.T) {
	store := newMemStore(
		note{ID: idR1, OwnerID: "u1", Title: "r1"},
		note{ID: idR2, OwnerID: "u2", Title: "r2"},
	)
	d := newNoteDispatcher(registrationsConfig(), store, &ownershipSpy{}, Hooks[*note]{})
	ctx := context.Background()

	updated, err := d.Update(ctx, attendee1, idR1, []byte(`{"body":"updated"}`))
	require.NoError(t, err)
	assert.Equal(t, "updated", updated.Body)
	assert.Equal(t, "r1", updated.Title, "fields absent from the payload are kept")

	_, err = d.Update(ctx, attendee1, idR2, []byte(`{"body":"hijack"}`))
	apiErr := requireAPIError(t, err, model.ErrCodeForbidden)
	assert.Equal(t, "Forbidden: You do not own this resource", apiErr.Message)
	assert.Equal(t, "r2", store.rows[idR2].Title)
	assert.Empty(t, store.rows[idR2].Body)

	err = d.Delete(ctx, attendee1, idR2)
	requireAPIError(t, err, model.ErrCodeForbidden)
	require.NoError(t, d.Delete(ctx, attendee2, idR2))
}

func TestDispatcher_AdminBypassesOwnership(t *testing.T) {
	own := &ownershipSpy{}
	store := newMemStore(note{ID: idR1, OwnerID: "u1", Title: "r1"})
	d := newNoteDispatcher(registrationsConfig(), store, own, Hooks[*note]{})
	ctx := context.Background()

	_, err := d.Get(ctx, admin, idR1)
	require.NoError(t, err)
	_, err = d.Update(ctx, admin, idR1, []byte(`{"ownerId":"u2"}`))
	require.NoError(t, err)
	require.NoError(t, d.Delete(ctx, admin, idR1))
	assert.Zero(t, own.calls, "admins never need an ownership lookup")
}

func TestDispatcher_UpdateCannotTransferOwnership(t *testing.T) {
	store := newMemStore(note{ID: idR1, OwnerID: "u1", Title: "r1"})
	d := newNoteDispatcher(registrationsConfig(), store, &ownershipSpy{}, Hooks[*note]{})

	_, err := d.Update(context.Background(), attendee1, idR1, []byte(`{"ownerId":"u2"}`))
	requireAPIError(t, err, model.ErrCodeForbidden)
	assert.Equal(t, "u1", store.rows[idR1].OwnerID)
}

func TestDispatcher_UpdateKeepsIDAndValidates(t *testing.T) {
	store := newMemStore(note{ID: idR1, OwnerID: "o1", Title: "r1"})
	d := newNoteDispatcher(publicConfig(), store, nil, Hooks[*note]{})
	ctx := context.Background()

	updated, err := d.Update(ctx, organizer, idR1, []byte(`{"id":"other","title":"new"}`))
	require.NoError(t, err)
	assert.Equal(t, idR1, updated.ID)
	assert.Equal(t, "new", store.rows[idR1].Title)

	_, err = d.Update(ctx, organizer, idR1, []byte(`{"title":""}`))
	requireAPIError(t, err, model.ErrCodeValidation)
	assert.Equal(t, "new", store.rows[idR1].Title)
}

func TestDispatcher_Hooks(t *testing.T) {
	store := newMemStore(note{ID: idR1, OwnerID: "o1", Title: "r1"})
	var guardedPatch Patch
	hooks := Hooks[*note]{
		GuardUpdate: func(_ context.Context, identity *model.Identity, current *note, patch Patch) error {
			guardedPatch = patch
			if v, ok := patch.String("title"); ok && v == "locked" && !identity.IsAdmin() {
				return model.NewForbiddenError("Forbidden: locked")
			}
			return nil
		},
		GuardDelete: func(_ context.Context, identity *model.Identity, rec *note) error {
			if rec.OwnerID == identity.ID {
				return model.NewForbiddenError("Forbidden: cannot delete own note")
			}
			return nil
		},
		Prepare: func(_ context.Context, rec *note) error {
			rec.Secret = "prepared:" + rec.Title
			return nil
		},
	}
	d := newNoteDispatcher(publicConfig(), store, nil, hooks)
	ctx := context.Background()

	_, err := d.Update(ctx, organizer, idR1, []byte(`{"title":"locked"}`))
	requireAPIError(t, err, model.ErrCodeForbidden)
	assert.Contains(t, guardedPatch, "title")

	_, err = d.Update(ctx, organizer, idR1, []byte(`{"title":"open"}`))
	require.NoError(t, err)
	assert.Equal(t, "prepared:open", store.rows[idR1].Secret)

	err = d.Delete(ctx, &model.Identity{ID: "o1", Role: model.RoleAdmin}, idR1)
	requireAPIError(t, err, model.ErrCodeForbidden)
}

func TestDispatcher_DeleteTwiceIsNotFound(t *testing.T) {
	store := newMemStore(note{ID: idR1, OwnerID: "o1", Title: "r1"})
	d := newNoteDispatcher(publicConfig(), store, nil, Hooks[*note]{})
	ctx := context.Background()

	require.NoError(t, d.Delete(ctx, admin, idR1))
	err := d.Delete(ctx, admin, idR1)
	requireAPIError(t, err, model.ErrCodeNotFound)
}

func TestDispatcher_ListPublicWithoutIdentity(t *testing.T) {
	store := newMemStore(
		note{ID: idR1, OwnerID: "o1", Title: "r1"},
		note{ID: idR2, OwnerID: "o2", Title: "r2"},
	)
	d := newNoteDispatcher(publicConfig(), store, nil, Hooks[*note]{})

	recs, err := d.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestDispatcher_ListOwnerScoped(t *testing.T) {
	store := newMemStore(
		note{ID: idR1, OwnerID: "u1", Title: "r1"},
		note{ID: idR2, OwnerID: "u2", Title: "r2"},
	)
	d := newNoteDispatcher(registrationsConfig(), store, &ownershipSpy{}, Hooks[*note]{})
	ctx := context.Background()

	recs, err := d.List(ctx, attendee1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, idR1, recs[0].ID)

	recs, err = d.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	_, err = d.List(ctx, nil)
	requireAPIError(t, err, model.ErrCodeUnauthenticated)

	_, err = d.List(ctx, organizer)
	requireAPIError(t, err, model.ErrCodeForbidden)
}

func TestDispatcher_ListEmptyIsNotNil(t *testing.T) {
	d := newNoteDispatcher(publicConfig(), newMemStore(), nil, Hooks[*note]{})
	recs, err := d.List(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestDispatcher_StoreFailurePropagates(t *testing.T) {
	store := newMemStore()
	store.findErr = fmt.Errorf("connection reset")
	d := newNoteDispatcher(publicConfig(), store, nil, Hooks[*note]{})

	_, err := d.Get(context.Background(), admin, idR1)
	require.Error(t, err)
	var apiErr *model.APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", outcome(nil))
	assert.Equal(t, "denied", outcome(model.NewForbiddenError("x")))
	assert.Equal(t, "denied", outcome(model.NewUnauthenticatedError("x")))
	assert.Equal(t, "not_found", outcome(model.NewNotFoundError("Note")))
	assert.Equal(t, "invalid", outcome(model.NewConflictError("dup")))
	assert.Equal(t, "error", outcome(errors.New("boom")))
}

func TestPatchString(t *testing.T) {
	p := Patch{"role": []byte(`"admin"`), "count": []byte(`3`)}
	v, ok := p.String("role")
	assert.True(t, ok)
	assert.Equal(t, "admin", v)
	_, ok = p.String("count")
	assert.False(t, ok)
	_, ok = p.String("missing")
	assert.False(t, ok)
}
