package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blackbox-backend/internal/ai"
)

type fakeCompleter struct {
	mu       sync.Mutex
	reply    string
	err      error
	release  chan struct{}
	requests [][]ai.Message
	params   []ai.Params
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []ai.Message, p ai.Params) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, messages)
	f.params = append(f.params, p)
	f.mu.Unlock()

	if f.release != nil {
		<-f.release
	}
	return f.reply, f.err
}

func (f *fakeCompleter) lastRequest() []ai.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func waitReply(t *testing.T, r *Reply) Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m, err := r.Wait(ctx)
	require.NoError(t, err)
	return m
}

func TestNewStoreStartsWithSystemMessage(t *testing.T) {
	s := NewStore(&fakeCompleter{}, nil)

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, ai.RoleSystem, msgs[0].Role)
	assert.Equal(t, InitialSystemMessage, msgs[0].Content)
}

func TestSendAppendsExactlyTwo(t *testing.T) {
	f := &fakeCompleter{reply: "Hello, operator."}
	s := NewStore(f, nil)

	before := s.Len()
	user, reply, err := s.Send(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, ai.RoleUser, user.Role)
	assert.Equal(t, KindText, user.Type)

	assistant := waitReply(t, reply)
	assert.Equal(t, ai.RoleAssistant, assistant.Role)
	assert.Equal(t, "Hello, operator.", assistant.Content)
	assert.NoError(t, reply.Err())

	msgs := s.Messages()
	require.Len(t, msgs, before+2)
	assert.Equal(t, user.ID, msgs[before].ID)
	assert.Equal(t, assistant.ID, msgs[before+1].ID)
}

func TestSendUserMessageVisibleBeforeReply(t *testing.T) {
	f := &fakeCompleter{reply: "ok", release: make(chan struct{})}
	s := NewStore(f, nil)

	user, reply, err := s.Send(context.Background(), "hi", nil)
	require.NoError(t, err)

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, user.ID, msgs[1].ID)

	close(f.release)
	waitReply(t, reply)
	assert.Equal(t, 3, s.Len())
}

func TestSendSendsWholeLogWithSystemPrompt(t *testing.T) {
	f := &fakeCompleter{reply: "first"}
	params := StaticParams{Params: ai.Params{Model: "m1", MaxTokens: 500}, SystemPrompt: "Be brief."}
	s := NewStore(f, params)

	_, reply, err := s.Send(context.Background(), "one", nil)
	require.NoError(t, err)
	waitReply(t, reply)

	_, reply, err = s.Send(context.Background(), "two", nil)
	require.NoError(t, err)
	waitReply(t, reply)

	req := f.lastRequest()
	require.Len(t, req, 5)
	assert.Equal(t, ai.RoleSystem, req[0].Role)
	assert.Equal(t, "Be brief.", req[0].Content.Text)
	assert.Equal(t, InitialSystemMessage, req[1].Content.Text)
	assert.Equal(t, "one", req[2].Content.Text)
	assert.Equal(t, ai.RoleAssistant, req[3].Role)
	assert.Equal(t, "two", req[4].Content.Text)
	assert.Equal(t, "m1", f.params[1].Model)

	for _, m := range s.Messages() {
		assert.NotEqual(t, "Be brief.", m.Content)
	}
}

func TestSendFailureAppendsApology(t *testing.T) {
	f := &fakeCompleter{err: &ai.RemoteServiceError{StatusCode: 503, Reason: "Service Unavailable"}}
	s := NewStore(f, nil)

	_, reply, err := s.Send(context.Background(), "hi", nil)
	require.NoError(t, err)

	assistant := waitReply(t, reply)
	assert.Equal(t, ApologyReply, assistant.Content)
	assert.True(t, ai.IsRemote(reply.Err()))
	assert.Equal(t, 3, s.Len())
}

func TestSend503FromEndpointAppendsApology(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewStore(ai.New(srv.URL, "key", "model", 5*time.Second), nil)

	_, reply, err := s.Send(context.Background(), "status report", nil)
	require.NoError(t, err)

	assistant := waitReply(t, reply)
	assert.Equal(t, ApologyReply, assistant.Content)

	var remote *ai.RemoteServiceError
	require.True(t, errors.As(reply.Err(), &remote))
	assert.Equal(t, http.StatusServiceUnavailable, remote.StatusCode)

	msgs := s.Messages()
	assert.Equal(t, ApologyReply, msgs[len(msgs)-1].Content)
}

func TestSendRejectsEmpty(t *testing.T) {
	f := &fakeCompleter{}
	s := NewStore(f, nil)

	_, reply, err := s.Send(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Nil(t, reply)
	assert.Equal(t, 1, s.Len())
	assert.Nil(t, f.lastRequest())
}

func TestSendImageAttachment(t *testing.T) {
	f := &fakeCompleter{reply: "A cat."}
	s := NewStore(f, nil)

	data := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png bytes"))
	user, reply, err := s.Send(context.Background(), "", &Attachment{Name: "cat.png", Data: data})
	require.NoError(t, err)
	waitReply(t, reply)

	assert.Equal(t, "Uploaded file: cat.png", user.Content)
	assert.Equal(t, KindImage, user.Type)
	assert.Equal(t, "cat.png", user.FileName)
	assert.Equal(t, "image/png", user.Attachment.MediaType)
	assert.Equal(t, len("png bytes"), user.Attachment.Size)

	req := f.lastRequest()
	last := req[len(req)-1]
	require.Len(t, last.Content.Parts, 2)
	assert.Equal(t, "Please analyze this file.", last.Content.Parts[0].Text)
	assert.Equal(t, ai.PartImageURL, last.Content.Parts[1].Type)
	assert.Equal(t, data, last.Content.Parts[1].ImageURL.URL)
}

func TestSendFileAttachment(t *testing.T) {
	f := &fakeCompleter{reply: "Summary."}
	s := NewStore(f, nil)

	raw := base64.StdEncoding.EncodeToString([]byte("%PDF-1.7"))
	user, reply, err := s.Send(context.Background(), "summarize", &Attachment{Name: "doc.pdf", MediaType: "application/pdf", Data: raw})
	require.NoError(t, err)
	waitReply(t, reply)

	assert.Equal(t, "summarize", user.Content)
	assert.Equal(t, KindFile, user.Type)

	req := f.lastRequest()
	last := req[len(req)-1]
	require.Len(t, last.Content.Parts, 2)
	assert.Equal(t, "summarize", last.Content.Parts[0].Text)
	assert.Equal(t, ai.PartFile, last.Content.Parts[1].Type)
	assert.Equal(t, "doc.pdf", last.Content.Parts[1].File.Filename)
	assert.Equal(t, "data:application/pdf;base64,"+raw, last.Content.Parts[1].File.FileData)
}

func TestSendRejectsBadAttachments(t *testing.T) {
	s := NewStore(&fakeCompleter{}, nil)

	_, _, err := s.Send(context.Background(), "x", &Attachment{Name: "a.bin", Data: "***"})
	assert.ErrorIs(t, err, ErrInvalidAttachment)

	big := base64.StdEncoding.EncodeToString(make([]byte, MaxAttachmentBytes+1))
	_, _, err = s.Send(context.Background(), "x", &Attachment{Name: "big.bin", Data: big})
	assert.ErrorIs(t, err, ErrAttachmentTooLarge)

	assert.Equal(t, 1, s.Len())
}

func TestResetKeepsLateReplies(t *testing.T) {
	f := &fakeCompleter{reply: "late", release: make(chan struct{})}
	s := NewStore(f, nil)

	_, reply, err := s.Send(context.Background(), "hi", nil)
	require.NoError(t, err)

	m := s.Reset()
	assert.Equal(t, ResetSystemMessage, m.Content)
	assert.Equal(t, 1, s.Len())

	close(f.release)
	waitReply(t, reply)

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, ResetSystemMessage, msgs[0].Content)
	assert.Equal(t, "late", msgs[1].Content)
}

func TestSendSurvivesCallerCancellation(t *testing.T) {
	f := &fakeCompleter{reply: "done", release: make(chan struct{})}
	s := NewStore(f, nil)

	ctx, cancel := context.WithCancel(context.Background())
	_, reply, err := s.Send(ctx, "hi", nil)
	require.NoError(t, err)
	cancel()

	_, err = reply.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, reply.Err())

	close(f.release)
	s.Wait()
	assert.Equal(t, 3, s.Len())
}

func TestConcurrentSends(t *testing.T) {
	s := NewStore(&fakeCompleter{reply: "ok"}, nil)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.Send(context.Background(), "ping", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	s.Wait()

	msgs := s.Messages()
	assert.Len(t, msgs, 41)

	assistants := 0
	for _, m := range msgs {
		if m.Role == ai.RoleAssistant {
			assistants++
			assert.True(t, strings.EqualFold(m.Content, "ok"))
		}
	}
	assert.Equal(t, 20, assistants)
}
