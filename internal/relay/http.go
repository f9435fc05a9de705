package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"chatseal/internal/domain"
)

// HTTP talks to a relay server at Base.
type HTTP struct {
	Base string
	HTTP *http.Client
	Log  logrus.FieldLogger

	// Stream is used for long-lived event streams. When nil a client sharing
	// HTTP's transport but without its timeout is used.
	Stream *http.Client
}

// NewHTTP returns a client for the relay at base. A nil client uses
// http.DefaultClient and a nil logger the standard logger.
func NewHTTP(base string, client *http.Client, log logrus.FieldLogger) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &HTTP{Base: base, HTTP: client, Log: log}
}

type publishKeyRequest struct {
	PublicKey string `json:"publicKey"`
}

type createConversationRequest struct {
	Conversation domain.Conversation                  `json:"conversation"`
	Keys         []domain.SealedConversationKeyRecord `json:"keys"`
}

// FetchProfile returns userID's profile; unknown users are domain.ErrNotFound.
func (c *HTTP) FetchProfile(ctx context.Context, userID domain.UserID) (domain.Profile, error) {
	var out domain.Profile
	if err := c.do(ctx, http.MethodGet, "/profiles/"+url.PathEscape(string(userID)), nil, &out); err != nil {
		return domain.Profile{}, err
	}
	return out, nil
}

// PublishPublicKey sets userID's public key.
func (c *HTTP) PublishPublicKey(ctx context.Context, userID domain.UserID, publicKey string) error {
	return c.do(ctx, http.MethodPut, "/profiles/"+url.PathEscape(string(userID)),
		publishKeyRequest{PublicKey: publicKey}, nil)
}

// CreateConversation stores a conversation and its sealed keys in one request.
func (c *HTTP) CreateConversation(
	ctx context.Context,
	conversation domain.Conversation,
	keys []domain.SealedConversationKeyRecord,
) error {
	return c.do(ctx, http.MethodPost, "/conversations",
		createConversationRequest{Conversation: conversation, Keys: keys}, nil)
}

// FetchConversation returns a conversation record.
func (c *HTTP) FetchConversation(ctx context.Context, id domain.ConversationID) (domain.Conversation, error) {
	var out domain.Conversation
	if err := c.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(string(id)), nil, &out); err != nil {
		return domain.Conversation{}, err
	}
	return out, nil
}

// ListConversations returns the conversations userID takes part in.
func (c *HTTP) ListConversations(ctx context.Context, userID domain.UserID) ([]domain.Conversation, error) {
	var out []domain.Conversation
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(string(userID))+"/conversations", nil, &out)
	return out, err
}

// StoreSealedKeys stores sealed key records for a conversation. The relay
// rejects the whole batch with domain.ErrConflict if any participant
// already has a record.
func (c *HTTP) StoreSealedKeys(
	ctx context.Context,
	id domain.ConversationID,
	keys []domain.SealedConversationKeyRecord,
) error {
	return c.do(ctx, http.MethodPost, "/conversations/"+url.PathEscape(string(id))+"/keys", keys, nil)
}

// FetchSealedKey returns userID's sealed record, with ok=false if none exists.
func (c *HTTP) FetchSealedKey(
	ctx context.Context,
	id domain.ConversationID,
	userID domain.UserID,
) (domain.SealedConversationKeyRecord, bool, error) {
	var out domain.SealedConversationKeyRecord
	path := "/conversations/" + url.PathEscape(string(id)) + "/keys/" + url.PathEscape(string(userID))
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.SealedConversationKeyRecord{}, false, nil
	}
	if err != nil {
		return domain.SealedConversationKeyRecord{}, false, err
	}
	return out, true, nil
}

// SaveMessage stores an encrypted message.
func (c *HTTP) SaveMessage(ctx context.Context, msg domain.Message) error {
	return c.do(ctx, http.MethodPost, "/conversations/"+url.PathEscape(string(msg.ConversationID))+"/messages", msg, nil)
}

// FetchMessages returns up to limit of the conversation's newest messages,
// oldest first. limit <= 0 means all.
func (c *HTTP) FetchMessages(ctx context.Context, id domain.ConversationID, limit int) ([]domain.Message, error) {
	path := "/conversations/" + url.PathEscape(string(id)) + "/messages"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []domain.Message
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	valid := out[:0]
	for _, m := range out {
		if err := m.Validate(); err != nil {
			c.Log.WithError(err).WithField("conversation_id", id).Warn("relay: skipping invalid message")
			continue
		}
		valid = append(valid, m)
	}
	return valid, nil
}

func (c *HTTP) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return err
		}
		body = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.Log.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	}).Debug("relay: request")

	if resp.StatusCode/100 != 2 {
		return statusError(req, resp)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func statusError(req *http.Request, resp *http.Response) error {
	e := &StatusError{
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}
	var reply struct {
		Error string `json:"error"`
	}
	if b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<10)); err == nil && json.Unmarshal(b, &reply) == nil {
		e.Message = reply.Error
	}
	return e
}

// Compile-time assertion that HTTP implements domain.RemoteStore.
var _ domain.RemoteStore = (*HTTP)(nil)
