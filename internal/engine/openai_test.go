package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transcriptflow/server/config"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOpenAI(&config.OpenAIConfig{
		APIKey:      "sk-server-default-key-0000",
		BaseURL:     server.URL + "/v1",
		Temperature: 0.7,
	})
}

func TestOpenAI_MissingKey(t *testing.T) {
	o := NewOpenAI(&config.OpenAIConfig{})
	_, err := o.Complete(context.Background(), "", "hi")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestOpenAI_Complete(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  a summary \n"},"finish_reason":"stop"}]}`)
	})

	out, err := o.Complete(context.Background(), "sk-user-key-1234567890abc", "summarize this")
	require.NoError(t, err)
	assert.Equal(t, "a summary", out)
	assert.Equal(t, "Bearer sk-user-key-1234567890abc", gotAuth)
	assert.Equal(t, "gpt-3.5-turbo", gotBody["model"])
}

func TestOpenAI_Complete_Unauthorized(t *testing.T) {
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`)
	})

	_, err := o.Complete(context.Background(), "", "hello")
	var engineErr *Error
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, CategoryAPIKey, engineErr.Category)
}

func TestOpenAI_Synthesize(t *testing.T) {
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "tts-1", body["model"])
		assert.Equal(t, "nova", body["voice"])
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3-mp3-bytes"))
	})

	audio, err := o.Synthesize(context.Background(), "", SpeechRequest{Text: "hello", Model: "tts-1", Voice: "nova"})
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3-mp3-bytes"), audio)
}
