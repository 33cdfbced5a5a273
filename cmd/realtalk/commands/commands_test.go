package commands

import (
	"context"
	"encoding/binary"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pion/rtp"

	"github.com/haivivi/realtalk/pkg/conversation"
	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
)

// recordingTransport records sent events and yields nothing until
// disconnected.
type recordingTransport struct {
	mu        sync.Mutex
	sent      []rt.ClientEvent
	sessionID string
	done      chan struct{}
	once      sync.Once
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{done: make(chan struct{})}
}

func (r *recordingTransport) Connect(context.Context) error { return nil }

func (r *recordingTransport) Disconnect() error {
	r.once.Do(func() { close(r.done) })
	return nil
}

func (r *recordingTransport) Send(ev rt.ClientEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, ev)
	return nil
}

func (r *recordingTransport) Events() iter.Seq2[*rt.ServerEvent, error] {
	return func(yield func(*rt.ServerEvent, error) bool) { <-r.done }
}

func (r *recordingTransport) Status() rt.ConnectionStatus { return rt.ConnectionConnected }

func (r *recordingTransport) SessionID() string { return r.sessionID }

func (r *recordingTransport) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, ev := range r.sent {
		out[i] = ev.EventType()
	}
	return out
}

func TestChatInput(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		wantExit bool
		want     []string
	}{
		{"blank", []string{"   "}, false, nil},
		{"text", []string{"hello"}, false, []string{rt.EventTypeConversationItemCreate, rt.EventTypeResponseCreate}},
		{"exit", []string{"/exit"}, true, nil},
		{"quit", []string{"/quit"}, true, nil},
		{"unknown command", []string{"/nope"}, false, nil},
		{"voice without session", []string{"/voice marin"}, false, nil},
		{"voice without arg", []string{"/voice"}, false, nil},
		{"approve", []string{"/approve apr_1"}, false, []string{rt.EventTypeConversationItemCreate}},
		{"deny without id", []string{"/deny"}, false, nil},
		{"interrupt idle", []string{"/interrupt"}, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newRecordingTransport()
			conv := conversation.New(tr)
			var exit bool
			for _, line := range tt.lines {
				exit = chatInput(conv, line)
			}
			conv.Close()

			if exit != tt.wantExit {
				t.Errorf("exit = %v, want %v", exit, tt.wantExit)
			}
			got := tr.types()
			if len(got) != len(tt.want) {
				t.Fatalf("sent %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("sent[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestChatInputDenyReason(t *testing.T) {
	tr := newRecordingTransport()
	conv := conversation.New(tr)
	chatInput(conv, "/deny apr_9 not today")
	conv.Close()

	if len(tr.sent) != 1 {
		t.Fatalf("sent %d events, want 1", len(tr.sent))
	}
	resp := tr.sent[0].(*rt.ConversationItemCreate).Item.(*rt.MCPApprovalResponse)
	if resp.ApprovalRequestID != "apr_9" || resp.Approve || resp.Reason != "not today" {
		t.Errorf("response = %+v", resp)
	}
}

func TestSendAudioFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.pcm")
	// 250ms of 24 kHz mono silence.
	if err := os.WriteFile(path, make([]byte, 12000), 0644); err != nil {
		t.Fatal(err)
	}

	tr := newRecordingTransport()
	conv := conversation.New(tr)
	chatAudioRate, chatAudioStereo, chatVAD = 24000, false, false
	if err := sendAudioFile(conv, path); err != nil {
		t.Fatalf("sendAudioFile: %v", err)
	}
	conv.Close()

	want := []string{
		rt.EventTypeInputAudioBufferAppend,
		rt.EventTypeInputAudioBufferAppend,
		rt.EventTypeInputAudioBufferAppend,
		rt.EventTypeInputAudioBufferCommit,
		rt.EventTypeResponseCreate,
	}
	got := tr.types()
	if len(got) != len(want) {
		t.Fatalf("sent %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sent[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if err := sendAudioFile(conv, filepath.Join(t.TempDir(), "missing.pcm")); err == nil {
		t.Error("missing file: want error")
	}
}

func TestIsFinal(t *testing.T) {
	tests := []struct {
		name string
		item rt.Item
		want bool
	}{
		{"message in progress", &rt.Message{Status: rt.StatusInProgress}, false},
		{"message completed", &rt.Message{Status: rt.StatusCompleted}, true},
		{"message incomplete", &rt.Message{Status: rt.StatusIncomplete}, true},
		{"function call streaming", &rt.FunctionCall{Status: rt.StatusInProgress}, false},
		{"function call done", &rt.FunctionCall{Status: rt.StatusCompleted}, true},
		{"mcp call pending", &rt.MCPCall{}, false},
		{"mcp call output", &rt.MCPCall{Output: "ok"}, true},
		{"mcp call error", &rt.MCPCall{Error: "boom"}, true},
		{"list tools placeholder", &rt.MCPListTools{}, false},
		{"list tools", &rt.MCPListTools{Tools: []rt.MCPTool{}}, true},
		{"function output", &rt.FunctionCallOutput{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isFinal(tt.item); got != tt.want {
				t.Errorf("isFinal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeSession(t *testing.T) {
	temp := 0.5
	dst := rt.SessionConfig{Voice: "alloy", Instructions: "old", Modalities: []string{"text"}}
	mergeSession(&dst, &rt.SessionConfig{Instructions: "new", Temperature: &temp})

	if dst.Instructions != "new" || dst.Voice != "alloy" {
		t.Errorf("merged = %+v", dst)
	}
	if len(dst.Modalities) != 1 || dst.Temperature == nil || *dst.Temperature != 0.5 {
		t.Errorf("merged = %+v", dst)
	}
}

func TestTranscriptID(t *testing.T) {
	tr := newRecordingTransport()
	t.Cleanup(func() { chatSessionID = "" })

	chatSessionID = "mine"
	if got := transcriptID(tr); got != "mine" {
		t.Errorf("transcriptID = %q, want flag value", got)
	}
	chatSessionID = ""
	tr.sessionID = "sess_1"
	if got := transcriptID(tr); got != "sess_1" {
		t.Errorf("transcriptID = %q, want server session id", got)
	}
	tr.sessionID = ""
	if got := transcriptID(tr); len(got) != 36 {
		t.Errorf("transcriptID = %q, want a uuid", got)
	}
}

func TestPayloadDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.opus")
	d, err := newPayloadDump(path)
	if err != nil {
		t.Fatal(err)
	}
	d.write(&rtp.Packet{Payload: []byte{1, 2, 3}})
	d.write(&rtp.Packet{})
	d.write(&rtp.Packet{Payload: []byte{9}})
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0, 3, 1, 2, 3, 0, 1, 9}
	if string(data) != string(want) {
		t.Fatalf("dump = %v, want %v", data, want)
	}
	if n := binary.BigEndian.Uint16(data[:2]); n != 3 {
		t.Errorf("first length = %d, want 3", n)
	}
}

func TestRunValidate(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.yaml")
	os.WriteFile(schemaPath, []byte("type: object\nproperties:\n  n:\n    type: integer\nrequired: [n]\n"), 0644)
	good := filepath.Join(dir, "good.json")
	os.WriteFile(good, []byte(`{"n": "42"}`), 0644)
	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{"m": 1}`), 0644)
	t.Cleanup(func() { validateSchemaFile, validateValueFile = "", "-" })

	validateSchemaFile = schemaPath
	validateValueFile = good
	if err := runValidate(validateCmd, nil); err != nil {
		t.Errorf("valid value: %v", err)
	}
	validateValueFile = bad
	if err := runValidate(validateCmd, nil); err == nil {
		t.Error("invalid value: want error")
	}
	validateSchemaFile = filepath.Join(dir, "missing.json")
	if err := runValidate(validateCmd, nil); err == nil {
		t.Error("missing schema: want error")
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "b", "c"); got != "b" {
		t.Errorf("firstNonEmpty = %q, want b", got)
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Errorf("firstNonEmpty = %q, want empty", got)
	}
}
