package websocket

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestMsgDataTo(t *testing.T) {
	t.Run("decodes data", func(t *testing.T) {
		msg, err := NewMsg(MsgTypeBodyRemoveRequest, 3, BodyRemoveData{BodyID: 42})
		require.NoError(t, err)
		require.Equal(t, uint32(3), msg.RequestID)
		require.False(t, msg.Timestamp.IsZero())

		var data BodyRemoveData
		require.NoError(t, msg.DataTo(&data))
		require.Equal(t, uint32(42), data.BodyID)
	})

	t.Run("message without data", func(t *testing.T) {
		msg, err := NewMsg(MsgTypePing, 1, nil)
		require.NoError(t, err)
		require.Empty(t, msg.Data)

		var data BodyRemoveData
		err = msg.DataTo(&data)
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidMsg))
	})

	t.Run("malformed data", func(t *testing.T) {
		msg := Msg{Type: MsgTypeBodyAddRequest, Data: []byte(`{"x":"nope"}`)}

		var data BodyAddData
		err := msg.DataTo(&data)
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidMsg))
	})
}
