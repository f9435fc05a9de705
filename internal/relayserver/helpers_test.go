package relayserver_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"chatseal/internal/domain"
	"chatseal/internal/relayserver"
	"chatseal/internal/services/identity"
)

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newRelay(t *testing.T) *httptest.Server {
	t.Helper()
	srv := relayserver.NewServer(relayserver.NewMemoryStore(), nil, quietLogger())
	srv.Heartbeat = 50 * time.Millisecond
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func validKey(t *testing.T) string {
	t.Helper()
	pair, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	return pair.PublicKey
}

func call(t *testing.T, method, url string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func errorText(t *testing.T, body []byte) string {
	t.Helper()
	var reply struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &reply))
	return reply.Error
}

type createReq struct {
	Conversation domain.Conversation                  `json:"conversation"`
	Keys         []domain.SealedConversationKeyRecord `json:"keys"`
}

func conv(id domain.ConversationID, users ...domain.UserID) domain.Conversation {
	return domain.Conversation{ID: id, Participants: users, CreatedBy: users[0], CreatedAt: t0}
}

func sealed(id domain.ConversationID, u domain.UserID) domain.SealedConversationKeyRecord {
	return domain.SealedConversationKeyRecord{ConversationID: id, UserID: u, EncryptedKey: "c2VhbGVk-" + string(u)}
}

func msg(id domain.MessageID, c domain.ConversationID, from domain.UserID, at time.Time) domain.Message {
	return domain.Message{
		ID:             id,
		ConversationID: c,
		SenderID:       from,
		Scheme:         domain.SchemeConversation,
		CipherText:     "Y2lwaGVy",
		Nonce:          "bm9uY2U=",
		CreatedAt:      at,
	}
}
