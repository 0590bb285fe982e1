package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Vishalkumjan/realtime-code-collab/internal/domain"
	"github.com/Vishalkumjan/realtime-code-collab/internal/postgres"
	"github.com/Vishalkumjan/realtime-code-collab/internal/service"
	httpmw "github.com/Vishalkumjan/realtime-code-collab/internal/transport/http/middleware"
)

type Handler struct {
	authSvc *service.AuthService
	roomSvc *service.RoomService
	chatSvc *service.ChatService
	fileSvc *service.FileService
}

func NewHandler(auth *service.AuthService, room *service.RoomService, chat *service.ChatService, file *service.FileService) *Handler {
	return &Handler{
		authSvc: auth,
		roomSvc: room,
		chatSvc: chat,
		fileSvc: file,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	u, token, err := h.authSvc.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			writeJSON(w, http.StatusConflict, ErrorResponse{Error: "email already registered"})
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrPasswordTooShort):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			slog.Error("handler.Register:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Token: token,
		User:  UserItem{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName},
	})
}

// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	u, token, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrWrongPassword) {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		slog.Error("handler.Login:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Token: token,
		User:  UserItem{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName},
	})
}

// GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())
	u, err := h.authSvc.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		slog.Error("handler.Me:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, UserItem{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName})
}

// POST /api/rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	var ownerID *int64
	if uid := httpmw.UserIDFromCtx(r.Context()); uid != 0 {
		ownerID = &uid
	}

	room, err := h.roomSvc.CreateRoom(r.Context(), req.Name, ownerID, isPublic, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrPasswordTooShort):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		case errors.Is(err, domain.ErrRoomExists):
			writeJSON(w, http.StatusConflict, ErrorResponse{Error: "room already exists"})
		default:
			slog.Error("handler.CreateRoom:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, roomItem(&service.RoomState{Room: room}))
}

// GET /api/rooms/{id}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := h.roomSvc.GetRoom(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		slog.Error("handler.GetRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, roomItem(state))
}

// POST /api/rooms/{id}/join
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	userID := httpmw.UserIDFromCtx(r.Context())
	if userID == 0 {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user id"})
		return
	}
	var req JoinRoomRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
	}

	if err := h.roomSvc.JoinRoom(r.Context(), roomID, userID, req.Password); err != nil {
		switch {
		case errors.Is(err, domain.ErrRoomNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
		case errors.Is(err, domain.ErrWrongPassword), errors.Is(err, domain.ErrRoomNotPublic):
			writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "access denied"})
		default:
			slog.Error("handler.JoinRoom:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, JoinRoomResponse{RoomID: roomID, Status: "joined"})
}

// DELETE /api/rooms/{id}
func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	userID := httpmw.UserIDFromCtx(r.Context())
	if userID == 0 {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user id"})
		return
	}

	if err := h.roomSvc.DeleteRoom(r.Context(), roomID, userID); err != nil {
		switch {
		case errors.Is(err, domain.ErrRoomNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
		case errors.Is(err, domain.ErrInvalidArgument):
			writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "not the owner"})
		default:
			slog.Error("handler.DeleteRoom:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GET /api/rooms/{id}/messages?after=&limit=
func (h *Handler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	after := r.URL.Query().Get("after")
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	items, next, err := h.chatSvc.History(r.Context(), roomID, after, limit)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid cursor"})
			return
		}
		slog.Error("handler.GetChatHistory:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	resp := ChatHistoryResponse{Items: make([]ChatMessageItem, 0, len(items)), NextCursor: next}
	for _, m := range items {
		resp.Items = append(resp.Items, ChatMessageItem{
			ID:         m.ID,
			RoomID:     m.RoomID,
			SenderID:   m.SenderID,
			SenderName: m.SenderName,
			Text:       m.Text,
			CreatedAt:  m.CreatedAt.Truncate(time.Millisecond),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /api/rooms/{id}/files
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	var req UploadFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	f, err := h.fileSvc.Upload(r.Context(), roomID, domain.FileRecord{
		Filename:   req.Filename,
		Content:    req.Content,
		Language:   req.Language,
		UploadedBy: httpmw.UsernameFromCtx(r.Context()),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "filename required"})
		case errors.Is(err, domain.ErrFileTooLarge):
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "file too large"})
		default:
			slog.Error("handler.UploadFile:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, f)
}

// GET /api/rooms/{id}/files
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	items, err := h.fileSvc.List(r.Context(), roomID)
	if err != nil {
		slog.Error("handler.ListFiles:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, FilesResponse{Items: items})
}

// DELETE /api/rooms/{id}/files/{filename}
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	filename := chi.URLParam(r, "filename")
	if err := h.fileSvc.Delete(r.Context(), roomID, filename); err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "file not found"})
			return
		}
		slog.Error("handler.DeleteFile:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func roomItem(state *service.RoomState) RoomItem {
	rm := state.Room
	return RoomItem{
		RoomID:      rm.RoomID,
		Name:        rm.Name,
		Code:        rm.Code,
		Language:    rm.Language,
		IsPublic:    rm.IsPublic,
		Live:        state.Live,
		LiveMembers: state.LiveMembers,
		CreatedAt:   rm.CreatedAt,
	}
}
