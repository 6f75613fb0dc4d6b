package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_KeepsRawFrame(t *testing.T) {
	frame := []byte(`{"type":"time_update","session_id":7,"temps_restant":300,"pourcentage_utilise":50}`)

	env, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, TypeTimeUpdate, env.Type)
	assert.JSONEq(t, string(frame), string(env.Raw))
}

func TestDecode_RejectsMalformedFrames(t *testing.T) {
	cases := map[string]string{
		"not json":   `{"type":`,
		"no type":    `{"data":[]}`,
		"empty type": `{"type":""}`,
		"array":      `[1,2,3]`,
	}
	for name, frame := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(frame))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrProtocol))
		})
	}
}

func TestEncode_FlattensFields(t *testing.T) {
	env, err := Encode(ValidateCode{Code: "ABCD12", IPAddress: "10.0.0.4"})
	require.NoError(t, err)
	assert.Equal(t, TypeValidateCode, env.Type)
	assert.JSONEq(t, `{"type":"validate_code","code":"ABCD12","ip_address":"10.0.0.4"}`, string(env.Raw))

	env, err = Encode(ValidateCode{Code: "ABCD12"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"validate_code","code":"ABCD12"}`, string(env.Raw))
}

func TestEncode_EmptyMessages(t *testing.T) {
	for _, msg := range []Message{GetStats{}, GetSessions{}, Heartbeat{}} {
		env, err := Encode(msg)
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"`+string(msg.MessageType())+`"}`, string(env.Raw))
	}
}

func TestEnvelope_MarshalJSON(t *testing.T) {
	env, err := Encode(StartSession{SessionID: 42})
	require.NoError(t, err)

	out, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"start_session","session_id":42}`, string(out))

	out, err = json.Marshal(Envelope{Type: TypeHeartbeat})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"heartbeat"}`, string(out))
}

func TestDecodePayload(t *testing.T) {
	env, err := Decode([]byte(`{"type":"sessions_update","data":[{"id":1,"poste_nom":"PC-01","duree_totale":600,"temps_restant":400},{"id":2}]}`))
	require.NoError(t, err)

	payload, err := DecodePayload(env)
	require.NoError(t, err)
	update, ok := payload.(*SessionsUpdatePayload)
	require.True(t, ok)
	require.Len(t, update.Data, 2)
	assert.Equal(t, int64(1), update.Data[0].ID)
	assert.Equal(t, "PC-01", update.Data[0].Workstation)
	assert.Equal(t, 400, update.Data[0].RemainingTime)

	env, err = Decode([]byte(`{"type":"session_ended","data":{"id":9}}`))
	require.NoError(t, err)
	payload, err = DecodePayload(env)
	require.NoError(t, err)
	assert.Equal(t, int64(9), payload.(*SessionEndedPayload).Data.ID)

	env, err = Decode([]byte(`{"type":"time_added","secondes_ajoutees":600,"temps_restant":602,"operateur":"Sophie"}`))
	require.NoError(t, err)
	payload, err = DecodePayload(env)
	require.NoError(t, err)
	added := payload.(*TimeAddedPayload)
	assert.Equal(t, 600, added.Added)
	assert.Equal(t, 602, added.Remaining)
	assert.Equal(t, "Sophie", added.Operator)
}

func TestDecodePayload_UnknownTypeIsIgnored(t *testing.T) {
	payload, err := DecodePayload(Envelope{Type: "pong", Raw: []byte(`{"type":"pong"}`)})
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestDecodePayload_BadFieldTypes(t *testing.T) {
	env, err := Decode([]byte(`{"type":"time_update","temps_restant":"soon"}`))
	require.NoError(t, err)

	_, err = DecodePayload(env)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProtocol))
}
