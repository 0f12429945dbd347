package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/rx3lixir/kanal/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndPollSignals(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.createUser(t, "alice")

	body := `{"call_id":"alice_bob","type":"offer","content":"sdp-blob","target_user":"bob"}`
	rec := env.do(t, http.MethodPost, "/signaling/send", aliceToken, strings.NewReader(body))
	require.Equal(t, http.StatusOK, rec.Code)

	var sig db.Signal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sig))
	assert.Equal(t, "alice", sig.Sender)
	assert.NotZero(t, sig.ID)

	// Poll endpoint is public; clients re-query on an interval
	rec = env.do(t, http.MethodGet, "/signaling/alice_bob/offer?for_user=bob", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var signals []db.Signal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signals))
	require.Len(t, signals, 1)
	assert.Equal(t, "sdp-blob", signals[0].Content)

	// Nothing is consumed by polling
	rec = env.do(t, http.MethodGet, "/signaling/alice_bob/offer?for_user=bob", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signals))
	assert.Len(t, signals, 1)

	// Addressed signals do not leak to other users
	rec = env.do(t, http.MethodGet, "/signaling/alice_bob/offer?for_user=carol", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signals))
	assert.Empty(t, signals)
}

func TestPollSignalsRequiresForUser(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/signaling/alice_bob/offer", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendSignalValidation(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "alice")

	cases := []struct {
		name string
		body string
	}{
		{"missing call_id", `{"type":"offer","content":"x"}`},
		{"missing type", `{"call_id":"c","content":"x"}`},
		{"missing content", `{"call_id":"c","type":"offer"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/signaling/send", token, strings.NewReader(tc.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestInboundOffers(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.createUser(t, "alice")
	_, bobToken := env.createUser(t, "bob")

	// Direct-call convention: call id ends in the callee's username
	body := `{"call_id":"alice_bob","type":"offer","content":"sdp","target_user":"bob"}`
	rec := env.do(t, http.MethodPost, "/signaling/send", aliceToken, strings.NewReader(body))
	require.Equal(t, http.StatusOK, rec.Code)

	// An answer in the same call must not show up as an inbound offer
	body = `{"call_id":"alice_bob","type":"answer","content":"sdp","target_user":"alice"}`
	rec = env.do(t, http.MethodPost, "/signaling/send", bobToken, strings.NewReader(body))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/signaling/bob", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var signals []db.Signal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signals))
	require.Len(t, signals, 1)
	assert.Equal(t, "alice", signals[0].Sender)
	assert.Equal(t, "offer", signals[0].Type)
}

func TestDeleteSignalingTearsDownCall(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "alice")

	rec := env.do(t, http.MethodPost, "/calls/alice_bob/join", token, strings.NewReader(`{"session_key":"k"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	body := `{"call_id":"alice_bob","type":"offer","content":"sdp","target_user":"bob"}`
	rec = env.do(t, http.MethodPost, "/signaling/send", token, strings.NewReader(body))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/signaling/alice_bob", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Session, participants and signals are all gone
	rec = env.do(t, http.MethodGet, "/calls/alice_bob", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var signals []db.Signal
	rec = env.do(t, http.MethodGet, "/signaling/alice_bob/offer?for_user=bob", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signals))
	assert.Empty(t, signals)
}
