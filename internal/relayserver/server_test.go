package relayserver_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatseal/internal/domain"
)

func TestHealth(t *testing.T) {
	ts := newRelay(t)
	code, body := call(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestProfiles(t *testing.T) {
	ts := newRelay(t)

	code, body := call(t, http.MethodGet, ts.URL+"/profiles/alice", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, errorText(t, body), "not found")

	pub := validKey(t)
	code, _ = call(t, http.MethodPut, ts.URL+"/profiles/alice", map[string]string{"publicKey": pub})
	require.Equal(t, http.StatusOK, code)

	code, body = call(t, http.MethodGet, ts.URL+"/profiles/alice", nil)
	require.Equal(t, http.StatusOK, code)
	var p domain.Profile
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, domain.Profile{UserID: "alice", PublicKey: pub}, p)

	code, body = call(t, http.MethodPut, ts.URL+"/profiles/alice", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, errorText(t, body))
}

func TestProfileRejectsMalformedKey(t *testing.T) {
	ts := newRelay(t)

	for _, key := range []string{"", "cHVi", "not base64!"} {
		code, body := call(t, http.MethodPut, ts.URL+"/profiles/alice", map[string]string{"publicKey": key})
		assert.Equal(t, http.StatusBadRequest, code, key)
		assert.Contains(t, errorText(t, body), "public key", key)
	}

	code, _ := call(t, http.MethodGet, ts.URL+"/profiles/alice", nil)
	assert.Equal(t, http.StatusNotFound, code, "rejected keys are not stored")
}

func TestCreateConversationRejectsBadInput(t *testing.T) {
	ts := newRelay(t)
	url := ts.URL + "/conversations"

	cases := []struct {
		name string
		req  createReq
		code int
	}{
		{"no id", createReq{Conversation: conv("", "alice")}, http.StatusBadRequest},
		{"creator outside", createReq{Conversation: domain.Conversation{
			ID: "c1", Participants: []domain.UserID{"bob"}, CreatedBy: "alice",
		}}, http.StatusForbidden},
		{"key for outsider", createReq{
			Conversation: conv("c1", "alice", "bob"),
			Keys:         []domain.SealedConversationKeyRecord{sealed("c1", "mallory")},
		}, http.StatusForbidden},
		{"key for other conversation", createReq{
			Conversation: conv("c1", "alice", "bob"),
			Keys:         []domain.SealedConversationKeyRecord{sealed("c2", "alice")},
		}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := call(t, http.MethodPost, url, tc.req)
			assert.Equal(t, tc.code, code)
			assert.NotEmpty(t, errorText(t, body))
		})
	}

	code, _ := call(t, http.MethodGet, ts.URL+"/conversations/c1", nil)
	assert.Equal(t, http.StatusNotFound, code, "rejected conversations are not stored")
}

func TestConversationLifecycle(t *testing.T) {
	ts := newRelay(t)

	req := createReq{
		Conversation: conv("c1", "alice", "bob"),
		Keys:         []domain.SealedConversationKeyRecord{sealed("c1", "alice"), sealed("c1", "bob")},
	}
	code, _ := call(t, http.MethodPost, ts.URL+"/conversations", req)
	require.Equal(t, http.StatusCreated, code)

	code, _ = call(t, http.MethodPost, ts.URL+"/conversations", req)
	assert.Equal(t, http.StatusConflict, code)

	code, body := call(t, http.MethodGet, ts.URL+"/conversations/c1", nil)
	require.Equal(t, http.StatusOK, code)
	var got domain.Conversation
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, []domain.UserID{"alice", "bob"}, got.Participants)
	assert.True(t, got.CreatedAt.Equal(t0))

	code, body = call(t, http.MethodGet, ts.URL+"/users/bob/conversations", nil)
	require.Equal(t, http.StatusOK, code)
	var list []domain.Conversation
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)

	code, body = call(t, http.MethodGet, ts.URL+"/users/carol/conversations", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(body))

	code, body = call(t, http.MethodGet, ts.URL+"/conversations/c1/keys/bob", nil)
	require.Equal(t, http.StatusOK, code)
	var rec domain.SealedConversationKeyRecord
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, sealed("c1", "bob"), rec)
}

func TestSealedKeysAreWriteOnce(t *testing.T) {
	ts := newRelay(t)
	code, _ := call(t, http.MethodPost, ts.URL+"/conversations", createReq{Conversation: conv("c1", "alice", "bob", "carol")})
	require.Equal(t, http.StatusCreated, code)

	keysURL := ts.URL + "/conversations/c1/keys"
	code, _ = call(t, http.MethodPost, keysURL, []domain.SealedConversationKeyRecord{sealed("c1", "alice")})
	require.Equal(t, http.StatusCreated, code)

	// A batch that overlaps an existing record is rejected whole.
	code, _ = call(t, http.MethodPost, keysURL, []domain.SealedConversationKeyRecord{
		sealed("c1", "bob"),
		{ConversationID: "c1", UserID: "alice", EncryptedKey: "b3RoZXI="},
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = call(t, http.MethodGet, keysURL+"/bob", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body := call(t, http.MethodGet, keysURL+"/alice", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), sealed("c1", "alice").EncryptedKey)

	code, _ = call(t, http.MethodPost, ts.URL+"/conversations/nope/keys", []domain.SealedConversationKeyRecord{})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMessages(t *testing.T) {
	ts := newRelay(t)
	code, _ := call(t, http.MethodPost, ts.URL+"/conversations", createReq{Conversation: conv("c1", "alice", "bob")})
	require.Equal(t, http.StatusCreated, code)
	url := ts.URL + "/conversations/c1/messages"

	for i, id := range []domain.MessageID{"m1", "m2", "m3"} {
		code, _ := call(t, http.MethodPost, url, msg(id, "c1", "alice", t0.Add(time.Duration(i)*time.Minute)))
		require.Equal(t, http.StatusCreated, code)
	}

	code, _ = call(t, http.MethodPost, url, msg("m1", "c1", "alice", t0))
	assert.Equal(t, http.StatusConflict, code, "duplicate id")

	code, _ = call(t, http.MethodPost, url, msg("x1", "c1", "mallory", t0))
	assert.Equal(t, http.StatusForbidden, code)

	direct := msg("x2", "c1", "alice", t0)
	direct.Scheme = domain.SchemePairwise
	direct.RecipientID = "mallory"
	code, _ = call(t, http.MethodPost, url, direct)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = call(t, http.MethodPost, url, msg("x3", "c2", "alice", t0))
	assert.Equal(t, http.StatusBadRequest, code)

	bad := msg("x4", "c1", "alice", t0)
	bad.Nonce = ""
	code, _ = call(t, http.MethodPost, url, bad)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := call(t, http.MethodGet, url+"?limit=2", nil)
	require.Equal(t, http.StatusOK, code)
	var got []domain.Message
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 2)
	assert.Equal(t, domain.MessageID("m2"), got[0].ID)
	assert.Equal(t, domain.MessageID("m3"), got[1].ID)

	code, _ = call(t, http.MethodGet, url+"?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, http.MethodGet, ts.URL+"/conversations/c9/messages", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMessageWithoutTimestampIsStamped(t *testing.T) {
	ts := newRelay(t)
	code, _ := call(t, http.MethodPost, ts.URL+"/conversations", createReq{Conversation: conv("c1", "alice")})
	require.Equal(t, http.StatusCreated, code)

	code, body := call(t, http.MethodPost, ts.URL+"/conversations/c1/messages", msg("m1", "c1", "alice", time.Time{}))
	require.Equal(t, http.StatusCreated, code)
	var got domain.Message
	require.NoError(t, json.Unmarshal(body, &got))
	assert.False(t, got.CreatedAt.IsZero())
}

func TestEventsStream(t *testing.T) {
	ts := newRelay(t)
	code, _ := call(t, http.MethodPost, ts.URL+"/conversations", createReq{Conversation: conv("c1", "alice", "bob")})
	require.Equal(t, http.StatusCreated, code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/conversations/c1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	require.Equal(t, ": connected", lines.Text())

	code, _ = call(t, http.MethodPost, ts.URL+"/conversations/c1/messages", msg("m1", "c1", "bob", t0))
	require.Equal(t, http.StatusCreated, code)

	var data string
	for data == "" && lines.Scan() {
		if line := lines.Text(); strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	require.NotEmpty(t, data)
	var got domain.Message
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	assert.Equal(t, domain.MessageID("m1"), got.ID)
	assert.Equal(t, domain.UserID("bob"), got.SenderID)
}

func TestEventsUnknownConversation(t *testing.T) {
	ts := newRelay(t)
	code, _ := call(t, http.MethodGet, ts.URL+"/conversations/nope/events", nil)
	assert.Equal(t, http.StatusNotFound, code)
}
