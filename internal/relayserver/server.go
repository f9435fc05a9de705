package relayserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"chatseal/internal/domain"
	"chatseal/internal/services/identity"
)

const (
	maxBodyBytes      = 1 << 20
	defaultHeartbeat  = 15 * time.Second
	maxMessagesPerGet = 1000
)

// Server is the relay's HTTP front end.
type Server struct {
	store  Store
	notify Notifier
	log    logrus.FieldLogger
	now    func() time.Time

	// Heartbeat is the interval between keep-alive comments on event
	// streams.
	Heartbeat time.Duration
}

// NewServer returns a Server over store. A nil notifier means an
// in-process MemoryNotifier.
func NewServer(store Store, notify Notifier, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if notify == nil {
		notify = NewMemoryNotifier(log)
	}
	return &Server{
		store:     store,
		notify:    notify,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		Heartbeat: defaultHeartbeat,
	}
}

// Router returns the relay's routes wrapped in the access log.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.accessLog)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	r.HandleFunc("/profiles/{user}", s.putProfile).Methods(http.MethodPut)
	r.HandleFunc("/profiles/{user}", s.getProfile).Methods(http.MethodGet)

	r.HandleFunc("/conversations", s.createConversation).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}", s.getConversation).Methods(http.MethodGet)
	r.HandleFunc("/users/{user}/conversations", s.listConversations).Methods(http.MethodGet)

	r.HandleFunc("/conversations/{id}/keys", s.addKeys).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}/keys/{user}", s.getKey).Methods(http.MethodGet)

	r.HandleFunc("/conversations/{id}/messages", s.addMessage).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}/messages", s.listMessages).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}/events", s.events).Methods(http.MethodGet)

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeError(w, r, fmt.Errorf("store unavailable: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) putProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PublicKey string `json:"publicKey"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	p := domain.Profile{UserID: domain.UserID(mux.Vars(r)["user"]), PublicKey: req.PublicKey}
	if !identity.ValidatePublicKey(p.PublicKey) {
		s.writeError(w, r, fmt.Errorf("%w: public key for %s is not 32 bytes of base64", domain.ErrInvalidRecord, p.UserID))
		return
	}
	if err := s.store.PutProfile(r.Context(), p); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProfile(r.Context(), domain.UserID(mux.Vars(r)["user"]))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Conversation domain.Conversation                  `json:"conversation"`
		Keys         []domain.SealedConversationKeyRecord `json:"keys"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	c := req.Conversation
	if err := checkConversation(c); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := checkKeys(c, req.Keys); err != nil {
		s.writeError(w, r, err)
		return
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	if err := s.store.CreateConversation(r.Context(), c, req.Keys); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetConversation(r.Context(), domain.ConversationID(mux.Vars(r)["id"]))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	cs, err := s.store.ListConversations(r.Context(), domain.UserID(mux.Vars(r)["user"]))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if cs == nil {
		cs = []domain.Conversation{}
	}
	writeJSON(w, http.StatusOK, cs)
}

func (s *Server) addKeys(w http.ResponseWriter, r *http.Request) {
	var keys []domain.SealedConversationKeyRecord
	if !s.decode(w, r, &keys) {
		return
	}
	c, ok := s.conversation(w, r)
	if !ok {
		return
	}
	if err := checkKeys(c, keys); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.AddSealedKeys(r.Context(), c.ID, keys); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"stored": len(keys)})
}

func (s *Server) getKey(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rec, err := s.store.GetSealedKey(r.Context(), domain.ConversationID(vars["id"]), domain.UserID(vars["user"]))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) addMessage(w http.ResponseWriter, r *http.Request) {
	var msg domain.Message
	if !s.decode(w, r, &msg) {
		return
	}
	c, ok := s.conversation(w, r)
	if !ok {
		return
	}
	if msg.ConversationID != c.ID {
		s.writeError(w, r, fmt.Errorf("%w: message for %s posted to %s", domain.ErrInvalidRecord, msg.ConversationID, c.ID))
		return
	}
	if err := msg.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !c.HasParticipant(msg.SenderID) {
		s.writeError(w, r, fmt.Errorf("%w: sender %s", domain.ErrNotParticipant, msg.SenderID))
		return
	}
	if msg.Scheme == domain.SchemePairwise && !c.HasParticipant(msg.RecipientID) {
		s.writeError(w, r, fmt.Errorf("%w: recipient %s", domain.ErrNotParticipant, msg.RecipientID))
		return
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	if err := s.store.AddMessage(r.Context(), msg); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.notify.Publish(r.Context(), msg); err != nil {
		s.log.WithError(err).WithField("conversation_id", c.ID).Warn("relay: publish failed")
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	limit := maxMessagesPerGet
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, fmt.Errorf("%w: bad limit %q", domain.ErrInvalidRecord, v))
			return
		}
		limit = min(n, maxMessagesPerGet)
	}
	id := domain.ConversationID(mux.Vars(r)["id"])
	if _, err := s.store.GetConversation(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	msgs, err := s.store.ListMessages(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, errors.New("streaming unsupported"))
		return
	}
	c, ok := s.conversation(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	ch, cancel, err := s.notify.Subscribe(ctx, c.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	tick := time.NewTicker(s.Heartbeat)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg, open := <-ch:
			if !open {
				return
			}
			b, err := json.Marshal(msg)
			if err != nil {
				s.log.WithError(err).Warn("relay: encode event")
				continue
			}
			fmt.Fprintf(w, "id: %s\ndata: %s\n\n", msg.ID, b)
			flusher.Flush()
		}
	}
}

// conversation loads the {id} conversation or writes the error response.
func (s *Server) conversation(w http.ResponseWriter, r *http.Request) (domain.Conversation, bool) {
	c, err := s.store.GetConversation(r.Context(), domain.ConversationID(mux.Vars(r)["id"]))
	if err != nil {
		s.writeError(w, r, err)
		return domain.Conversation{}, false
	}
	return c, true
}

func checkConversation(c domain.Conversation) error {
	switch {
	case c.ID == "":
		return fmt.Errorf("%w: conversation without id", domain.ErrInvalidRecord)
	case len(c.Participants) == 0:
		return fmt.Errorf("%w: conversation %s without participants", domain.ErrInvalidRecord, c.ID)
	case c.CreatedBy == "":
		return fmt.Errorf("%w: conversation %s without creator", domain.ErrInvalidRecord, c.ID)
	case !c.HasParticipant(c.CreatedBy):
		return fmt.Errorf("%w: creator %s", domain.ErrNotParticipant, c.CreatedBy)
	}
	for _, u := range c.Participants {
		if u == "" {
			return fmt.Errorf("%w: empty participant in %s", domain.ErrInvalidRecord, c.ID)
		}
	}
	return nil
}

func checkKeys(c domain.Conversation, keys []domain.SealedConversationKeyRecord) error {
	for _, k := range keys {
		switch {
		case k.ConversationID != c.ID:
			return fmt.Errorf("%w: key for %s sent to %s", domain.ErrInvalidRecord, k.ConversationID, c.ID)
		case k.EncryptedKey == "":
			return fmt.Errorf("%w: empty sealed key for %s", domain.ErrInvalidRecord, k.UserID)
		case !c.HasParticipant(k.UserID):
			return fmt.Errorf("%w: key for %s", domain.ErrNotParticipant, k.UserID)
		}
	}
	return nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err))
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidRecord):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.log.WithError(err).WithField("path", r.URL.Path).Error("relay: internal error")
		msg = http.StatusText(code)
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
