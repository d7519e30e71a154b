package chat

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"blackbox-backend/internal/ai"
)

// ParamsSource supplies generation parameters and the system prompt for
// each outbound request.
type ParamsSource interface {
	ChatParams(ctx context.Context) (ai.Params, string)
}

type StaticParams struct {
	Params       ai.Params
	SystemPrompt string
}

func (s StaticParams) ChatParams(context.Context) (ai.Params, string) {
	return s.Params, s.SystemPrompt
}

// Reply settles once the assistant turn for a send has been appended.
type Reply struct {
	done chan struct{}
	msg  Message
	err  error
}

func (r *Reply) Done() <-chan struct{} { return r.done }

// Wait returns the appended assistant message. The completion keeps running
// when ctx ends.
func (r *Reply) Wait(ctx context.Context) (Message, error) {
	select {
	case <-r.done:
		return r.msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Err is the completion error that produced the apology, if any. It is only
// meaningful after Done is closed.
func (r *Reply) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Store is the append-only conversation log.
type Store struct {
	mu       sync.RWMutex
	log      []Message
	client   ai.Completer
	params   ParamsSource
	now      func() time.Time
	inflight sync.WaitGroup
}

func NewStore(client ai.Completer, params ParamsSource) *Store {
	if params == nil {
		params = StaticParams{}
	}
	s := &Store{client: client, params: params, now: time.Now}
	s.log = []Message{s.newMessage(ai.RoleSystem, InitialSystemMessage, nil)}
	return s
}

func (s *Store) newMessage(role, content string, att *Attachment) Message {
	m := Message{
		ID:         uuid.NewString(),
		Role:       role,
		Content:    content,
		Timestamp:  s.now().UTC(),
		Type:       KindText,
		Attachment: att,
	}
	if att != nil {
		m.Type = att.Kind
		m.FileName = att.Name
	}
	return m
}

// Append adds a message at the tail.
func (s *Store) Append(role, content string, att *Attachment) Message {
	m := s.newMessage(role, content, att)

	s.mu.Lock()
	s.log = append(s.log, m)
	s.mu.Unlock()

	return m
}

// Send appends the user turn and requests the assistant turn with the whole
// log. Exactly one assistant message is appended per successful Send.
func (s *Store) Send(ctx context.Context, text string, att *Attachment) (Message, *Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" && att == nil {
		return Message{}, nil, ErrEmptyMessage
	}

	content, prompt := text, ""
	if att != nil {
		norm, err := att.normalize()
		if err != nil {
			return Message{}, nil, err
		}
		att = norm
		if text == "" {
			content = "Uploaded file: " + att.Name
			prompt = attachmentPrompt
		}
	}

	m := s.newMessage(ai.RoleUser, content, att)
	m.prompt = prompt

	s.mu.Lock()
	s.log = append(s.log, m)
	snapshot := slices.Clone(s.log)
	s.mu.Unlock()

	r := &Reply{done: make(chan struct{})}

	s.inflight.Add(1)
	go s.complete(context.WithoutCancel(ctx), snapshot, r)

	return m, r, nil
}

func (s *Store) complete(ctx context.Context, snapshot []Message, r *Reply) {
	defer s.inflight.Done()
	defer close(r.done)

	params, systemPrompt := s.params.ChatParams(ctx)

	req := make([]ai.Message, 0, len(snapshot)+1)
	if systemPrompt != "" {
		req = append(req, ai.TextMessage(ai.RoleSystem, systemPrompt))
	}
	for _, m := range snapshot {
		req = append(req, m.completionMessage())
	}

	text, err := s.client.Complete(ctx, req, params)
	if err != nil {
		slog.Warn("chat completion failed, appending apology",
			"error", err, "remote", ai.IsRemote(err), "transport", ai.IsTransport(err))
		text = ApologyReply
		r.err = err
	}

	r.msg = s.Append(ai.RoleAssistant, text, nil)
}

// Reset replaces the log with a single system message. Replies still in
// flight are appended to the new log when they settle.
func (s *Store) Reset() Message {
	m := s.newMessage(ai.RoleSystem, ResetSystemMessage, nil)

	s.mu.Lock()
	s.log = []Message{m}
	s.mu.Unlock()

	return m
}

func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.log)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.log)
}

// Wait blocks until every in-flight completion has settled.
func (s *Store) Wait() {
	s.inflight.Wait()
}
