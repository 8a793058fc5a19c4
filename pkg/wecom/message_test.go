package wecom_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygate/relaygate/pkg/wecom"
)

func TestParseEnvelope(t *testing.T) {
	t.Parallel()

	t.Run("extracts Encrypt field", func(t *testing.T) {
		t.Parallel()

		body := []byte(`<xml><ToUserName><![CDATA[corp42]]></ToUserName><Encrypt><![CDATA[b64data==]]></Encrypt><AgentID><![CDATA[1]]></AgentID></xml>`)
		env, err := wecom.ParseEnvelope(body)
		require.NoError(t, err)
		assert.Equal(t, "b64data==", env.Encrypt)
	})

	t.Run("rejects missing Encrypt", func(t *testing.T) {
		t.Parallel()

		_, err := wecom.ParseEnvelope([]byte(`<xml><ToUserName>u</ToUserName></xml>`))
		assert.ErrorIs(t, err, wecom.ErrInvalidEnvelope)
	})

	t.Run("rejects non-XML body", func(t *testing.T) {
		t.Parallel()

		_, err := wecom.ParseEnvelope([]byte(`{"Encrypt":"nope"}`))
		assert.ErrorIs(t, err, wecom.ErrInvalidEnvelope)
	})
}

func TestParseMessage(t *testing.T) {
	t.Parallel()

	t.Run("parses text message", func(t *testing.T) {
		t.Parallel()

		content := `<xml><ToUserName><![CDATA[corp42]]></ToUserName><FromUserName><![CDATA[alice]]></FromUserName><CreateTime>1700000000</CreateTime><MsgType><![CDATA[text]]></MsgType><Content><![CDATA[hi there]]></Content><MsgId>6789</MsgId></xml>`
		msg, err := wecom.ParseMessage(content)
		require.NoError(t, err)
		assert.Equal(t, "alice", msg.FromUser)
		assert.Equal(t, "corp42", msg.ToUser)
		assert.Equal(t, int64(1700000000), msg.CreateTime)
		assert.Equal(t, "hi there", msg.Content)
		assert.Equal(t, "6789", msg.MsgID)
		assert.Equal(t, wecom.KindText, msg.Kind())
	})

	t.Run("unknown msg type maps to KindUnknown", func(t *testing.T) {
		t.Parallel()

		content := `<xml><FromUserName><![CDATA[alice]]></FromUserName><MsgType><![CDATA[image]]></MsgType><PicUrl><![CDATA[http://example.com/p.png]]></PicUrl></xml>`
		msg, err := wecom.ParseMessage(content)
		require.NoError(t, err)
		assert.Equal(t, wecom.KindUnknown, msg.Kind())
	})

	t.Run("text with blank content maps to KindUnknown", func(t *testing.T) {
		t.Parallel()

		content := `<xml><FromUserName><![CDATA[alice]]></FromUserName><MsgType><![CDATA[text]]></MsgType><Content><![CDATA[   ]]></Content></xml>`
		msg, err := wecom.ParseMessage(content)
		require.NoError(t, err)
		assert.Equal(t, wecom.KindUnknown, msg.Kind())
	})
}
