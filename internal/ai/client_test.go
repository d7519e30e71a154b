package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(srv.URL, "test-key", "test-model", 5*time.Second)
	c.CustomerID = "ops@example.com"
	return c
}

func reply(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
}

func TestComplete_SendsRequestShape(t *testing.T) {
	var got map[string]any
	var headers http.Header

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		reply(w, "hello there")
	})

	text, err := c.Complete(context.Background(), []Message{TextMessage(RoleUser, "hi")}, Params{Temperature: 0.7, MaxTokens: 4000})
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)

	assert.Equal(t, "Bearer test-key", headers.Get("Authorization"))
	assert.Equal(t, "ops@example.com", headers.Get("customerId"))
	assert.Equal(t, "application/json", headers.Get("Content-Type"))

	assert.Equal(t, "test-model", got["model"])
	assert.Equal(t, float64(4000), got["max_tokens"])
	assert.Equal(t, 0.7, got["temperature"])

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 1)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "hi", first["content"])
}

func TestComplete_ParamsModelOverridesDefault(t *testing.T) {
	var model string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		model = body.Model
		reply(w, "ok")
	})

	_, err := c.Complete(context.Background(), []Message{TextMessage(RoleUser, "hi")}, Params{Model: "openrouter/openai/gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "openrouter/openai/gpt-4o", model)
}

func TestComplete_MultipartContent(t *testing.T) {
	var raw []byte
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		reply(w, "looks like a cat")
	})

	img := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	msg := PartsMessage(RoleUser, TextPart("what is this?"), ImagePart(img))

	_, err := c.Complete(context.Background(), []Message{msg}, Params{})
	require.NoError(t, err)

	var body struct {
		Messages []struct {
			Content []Part `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Len(t, body.Messages[0].Content, 2)
	assert.Equal(t, PartText, body.Messages[0].Content[0].Type)
	assert.Equal(t, PartImageURL, body.Messages[0].Content[1].Type)
	assert.Equal(t, img, body.Messages[0].Content[1].ImageURL.URL)
}

func TestComplete_NonSuccessStatusIsRemoteError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded: secret stack trace", http.StatusServiceUnavailable)
	})

	_, err := c.Complete(context.Background(), []Message{TextMessage(RoleUser, "hi")}, Params{})
	require.Error(t, err)

	var re *RemoteServiceError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusServiceUnavailable, re.StatusCode)
	assert.NotContains(t, err.Error(), "secret")
	assert.True(t, IsRemote(err))
	assert.False(t, IsTransport(err))
}

func TestComplete_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, "", "m", time.Second)
	_, err := c.Complete(context.Background(), []Message{TextMessage(RoleUser, "hi")}, Params{})
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.False(t, IsRemote(err))
}

func TestComplete_TimeoutIsTransportFailure(t *testing.T) {
	block := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-block
	})
	t.Cleanup(func() { close(block) })
	c.HTTP.Timeout = 50 * time.Millisecond

	_, err := c.Complete(context.Background(), []Message{TextMessage(RoleUser, "hi")}, Params{})
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "timeout", te.Reason)
}

func TestComplete_EmptyPayloadFallsBack(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"no choices": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		},
		"empty content": func(w http.ResponseWriter, r *http.Request) {
			reply(w, "")
		},
		"null content": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":null}}]}`))
		},
		"not json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>gateway</html>`))
		},
	}

	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, h)
			text, err := c.Complete(context.Background(), []Message{TextMessage(RoleUser, "hi")}, Params{})
			require.NoError(t, err)
			assert.Equal(t, FallbackReply, text)
		})
	}
}

func TestComplete_PartsInResponseAreFlattened(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":[{"type":"text","text":"line one"},{"type":"text","text":"line two"}]}}]}`))
	})

	text, err := c.Complete(context.Background(), []Message{TextMessage(RoleUser, "hi")}, Params{})
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", text)
}

func TestComplete_InvalidInputMakesNoCall(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		reply(w, "unexpected")
	})

	cases := map[string][]Message{
		"empty":        nil,
		"missing role": {TextMessage("", "hi")},
		"unknown part": {PartsMessage(RoleUser, Part{Type: "audio"})},
		"bad image":    {PartsMessage(RoleUser, ImagePart("data:image/png;base64,%%%"))},
		"bad file":     {PartsMessage(RoleUser, FilePart("a.pdf", "not base64!"))},
		"file no data": {PartsMessage(RoleUser, Part{Type: PartFile})},
	}

	for name, msgs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Complete(context.Background(), msgs, Params{})
			var re *RequestError
			assert.True(t, errors.As(err, &re), "got %v", err)
		})
	}
	assert.Zero(t, calls)
}

func TestContent_AcceptsStringOrParts(t *testing.T) {
	var msgs []Message
	err := json.Unmarshal([]byte(`[
		{"role":"user","content":"plain"},
		{"role":"user","content":[{"type":"text","text":"a"},{"type":"file","file":{"filename":"n.txt","file_data":"aGk="}}]}
	]`), &msgs)
	require.NoError(t, err)

	assert.Equal(t, "plain", msgs[0].Content.Text)
	assert.Nil(t, msgs[0].Content.Parts)
	require.Len(t, msgs[1].Content.Parts, 2)
	assert.Equal(t, "n.txt", msgs[1].Content.Parts[1].File.Filename)
	assert.NoError(t, Validate(msgs))
}

func TestDecodePayload(t *testing.T) {
	b, err := DecodePayload("data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	b, err = DecodePayload(base64.RawStdEncoding.EncodeToString([]byte("hey")))
	require.NoError(t, err)
	assert.Equal(t, "hey", string(b))

	_, err = DecodePayload("data:text/plain,hello")
	assert.Error(t, err)
	_, err = DecodePayload("")
	assert.Error(t, err)
}
