// Package chats implements listing conversations between users and the
// websocket rooms that carry chat messages and live hive updates.
package chats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"unihive/models"
	"unihive/utils"
)

const (
	defaultHistory = 50
	maxHistory     = 200
	maxTextLength  = 2000
)

type Handler struct {
	Repo Repository
	Hub  *Hub
}

func NewHandler(repo Repository, hub *Hub) *Handler {
	return &Handler{Repo: repo, Hub: hub}
}

type startChatRequest struct {
	With      string `json:"with"`
	ListingID string `json:"listingId"`
}

type chatEvent struct {
	Type    string         `json:"type"`
	Message models.Message `json:"message"`
}

// StartChat opens (or reuses) the conversation with another user.
func (h *Handler) StartChat(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	var req startChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.With == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if req.With == userID {
		utils.RespondWithError(w, http.StatusBadRequest, "Cannot start a chat with yourself")
		return
	}
	chat, err := h.Repo.FindOrCreate(r.Context(), []string{userID, req.With}, req.ListingID)
	if err != nil {
		log.Printf("[chats] start chat: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to start chat")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"data": chat})
}

func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	chats, err := h.Repo.ListForUser(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		log.Printf("[chats] list: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load chats")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"data": chats})
}

// participantChat loads the chat and checks membership, writing the error response itself.
func (h *Handler) participantChat(w http.ResponseWriter, r *http.Request, chatID string) (models.Chat, bool) {
	chat, err := h.Repo.Get(r.Context(), chatID)
	if errors.Is(err, ErrChatNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "Chat not found")
		return chat, false
	}
	if err != nil {
		log.Printf("[chats] get %s: %v", chatID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load chat")
		return chat, false
	}
	if !chat.HasUser(utils.GetUserIDFromRequest(r)) {
		utils.RespondWithError(w, http.StatusForbidden, "Forbidden")
		return chat, false
	}
	return chat, true
}

func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	chatID := ps.ByName("chatid")
	if _, ok := h.participantChat(w, r, chatID); !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultHistory
	}
	if limit > maxHistory {
		limit = maxHistory
	}
	msgs, err := h.Repo.Messages(r.Context(), chatID, limit)
	if err != nil {
		log.Printf("[chats] messages %s: %v", chatID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load messages")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"chatid": chatID, "data": msgs})
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	chatID := ps.ByName("chatid")
	var input struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if _, ok := h.participantChat(w, r, chatID); !ok {
		return
	}
	msg, err := h.post(r.Context(), chatID, utils.GetUserIDFromRequest(r), input.Text)
	if err != nil {
		if errors.Is(err, errBadText) {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[chats] send %s: %v", chatID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"data": msg})
}

var errBadText = errors.New("message text must be 1-2000 characters")

// post stores a message and fans it out to the chat room.
func (h *Handler) post(ctx context.Context, chatID, userID, text string) (models.Message, error) {
	text = utils.StripHTML(text)
	if text == "" || len([]rune(text)) > maxTextLength {
		return models.Message{}, errBadText
	}
	msg := models.Message{
		MessageID: utils.GetUUID(),
		ChatID:    chatID,
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Repo.AddMessage(ctx, msg); err != nil {
		return models.Message{}, err
	}
	h.Hub.BroadcastJSON(ChatRoom(chatID), chatEvent{Type: "message", Message: msg})
	return msg, nil
}

// ChatSocket joins the chat room; text sent over the socket is stored like a REST message.
func (h *Handler) ChatSocket(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	chatID := ps.ByName("chatid")
	if _, ok := h.participantChat(w, r, chatID); !ok {
		return
	}
	userID := utils.GetUserIDFromRequest(r)
	serve(h.Hub, w, r, ChatRoom(chatID), userID, func(text string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := h.post(ctx, chatID, userID, text); err != nil {
			log.Printf("[ws] chat %s: %v", chatID, err)
		}
	})
}

// HiveSocket subscribes to live updates of one hive. It is receive-only.
func (h *Handler) HiveSocket(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	hive, err := models.ParseHive(ps.ByName("category"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown hive")
		return
	}
	serve(h.Hub, w, r, HiveRoom(hive), utils.GetUserIDFromRequest(r), nil)
}
