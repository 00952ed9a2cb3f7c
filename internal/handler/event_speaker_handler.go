package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/eventhub/internal/access"
	"github.com/hitoshi/eventhub/internal/middleware"
	"github.com/hitoshi/eventhub/internal/model"
	"github.com/hitoshi/eventhub/internal/repository"
	"github.com/hitoshi/eventhub/internal/resource"
)

// EventSpeakerHandler はイベントと登壇者の紐付けを扱うHTTPハンドラー。
// 紐付けの変更はイベントの更新として認可する。
type EventSpeakerHandler struct {
	eventsCfg access.ResourceConfig
	events    repository.CRUDRepository[*model.Event]
	speakers  repository.CRUDRepository[*model.Speaker]
	links     repository.EventSpeakerRepository
	sanitize  func(string) string
}

// NewEventSpeakerHandler はEventSpeakerHandlerを生成する。
func NewEventSpeakerHandler(
	eventsCfg access.ResourceConfig,
	events repository.CRUDRepository[*model.Event],
	speakers repository.CRUDRepository[*model.Speaker],
	links repository.EventSpeakerRepository,
	sanitize func(string) string,
) *EventSpeakerHandler {
	if sanitize == nil {
		sanitize = func(s string) string { return s }
	}
	return &EventSpeakerHandler{
		eventsCfg: eventsCfg,
		events:    events,
		speakers:  speakers,
		links:     links,
		sanitize:  sanitize,
	}
}

// Routes はイベント配下の登壇者ルートを返す。
// 一覧は公開、追加・削除はイベントの更新ロールを要求する。
func (h *EventSpeakerHandler) Routes(authn func(http.Handler) http.Handler) []resource.Route {
	guard := []func(http.Handler) http.Handler{authn, middleware.RequireRole(h.eventsCfg.UpdateRoles)}
	return []resource.Route{
		{Method: http.MethodGet, Pattern: "/{id}/speakers", Handler: h.List},
		{Method: http.MethodPut, Pattern: "/{id}/speakers/{speakerId}", Middlewares: guard, Handler: h.Put},
		{Method: http.MethodDelete, Pattern: "/{id}/speakers/{speakerId}", Middlewares: guard, Handler: h.Delete},
	}
}

type putEventSpeakerRequest struct {
	Role string `json:"role"`
}

// List はイベントの登壇者一覧を返す。
// GET /api/events/{id}/speakers
func (h *EventSpeakerHandler) List(w http.ResponseWriter, r *http.Request) {
	event, err := h.findEvent(r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	details, err := h.links.ListByEvent(r.Context(), event.ID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if details == nil {
		details = []model.EventSpeakerDetail{}
	}
	middleware.WriteSuccess(w, http.StatusOK, "", details)
}

// Put は登壇者をイベントに紐付ける。既に紐付いている場合は役割を更新する。
// PUT /api/events/{id}/speakers/{speakerId}
func (h *EventSpeakerHandler) Put(w http.ResponseWriter, r *http.Request) {
	event, err := h.authorizedEvent(r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	var req putEventSpeakerRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			middleware.WriteError(w, r, model.NewValidationError("Invalid request body.", err.Error()))
			return
		}
	}
	req.Role = h.sanitize(req.Role)
	if utf8.RuneCountInString(req.Role) > 100 {
		middleware.WriteError(w, r, model.NewValidationError("Validation error.", "role must be at most 100 characters"))
		return
	}

	speakerID := chi.URLParam(r, "speakerId")
	speaker, err := h.speakers.FindByID(r.Context(), speakerID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if speaker == nil {
		middleware.WriteError(w, r, model.NewNotFoundError("Speaker"))
		return
	}

	link := &model.EventSpeaker{EventID: event.ID, SpeakerID: speaker.ID, Role: req.Role}
	if err := h.links.Upsert(r.Context(), link); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteSuccess(w, http.StatusOK, "Speaker assigned to event successfully.", link)
}

// Delete は登壇者の紐付けを解除する。
// DELETE /api/events/{id}/speakers/{speakerId}
func (h *EventSpeakerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	event, err := h.authorizedEvent(r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	deleted, err := h.links.Delete(r.Context(), event.ID, chi.URLParam(r, "speakerId"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if !deleted {
		middleware.WriteError(w, r, model.NewNotFoundError("Event speaker"))
		return
	}
	middleware.WriteSuccess(w, http.StatusOK, "Speaker removed from event successfully.", nil)
}

func (h *EventSpeakerHandler) findEvent(r *http.Request) (*model.Event, error) {
	event, err := h.events.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, fmt.Errorf("failed to find event: %w", err)
	}
	if event == nil {
		return nil, model.NewNotFoundError("Event")
	}
	return event, nil
}

// authorizedEvent はイベントを取得し、呼び出し元がそのイベントを更新できるか検査する。
func (h *EventSpeakerHandler) authorizedEvent(r *http.Request) (*model.Event, error) {
	event, err := h.findEvent(r)
	if err != nil {
		return nil, err
	}
	identity := middleware.IdentityFromContext(r.Context())
	target := access.TargetFunc(func(id *model.Identity) bool { return event.OwnedBy(id.ID) })
	if err := access.CheckAccess(identity, h.eventsCfg, access.ActionUpdate, target); err != nil {
		return nil, err
	}
	return event, nil
}
