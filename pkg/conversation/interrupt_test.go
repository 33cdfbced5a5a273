package conversation

import (
	"errors"
	"testing"
	"time"

	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
)

func TestInterruptSpeech_Elapsed(t *testing.T) {
	c, ft := newTestConversation(t)
	c.Handle(itemEvent(rt.EventTypeResponseOutputItemAdded, "e1", &rt.Message{ID: "m", Role: rt.RoleAssistant}))
	c.Handle(&rt.ServerEvent{Type: rt.EventTypeResponseOutputTextDelta, ItemID: "m", Delta: "hi"})
	c.Handle(&rt.ServerEvent{Type: rt.EventTypeResponseOutputAudioDelta, ItemID: "m", ContentIndex: 1, Audio: []byte{1}})

	c.mu.Lock()
	c.modelSpeaking = true
	c.audioPlayed = 1000 * time.Millisecond
	c.audioStart = time.Now().Add(-250 * time.Millisecond)
	c.mu.Unlock()

	if !c.InterruptSpeech() {
		t.Fatal("InterruptSpeech = false, want true")
	}

	sent := flush(t, c, ft)
	if len(sent) != 3 {
		t.Fatalf("sent %d events, want 3", len(sent))
	}
	wantOrder := []string{
		rt.EventTypeConversationItemTruncate,
		rt.EventTypeResponseCancel,
		rt.EventTypeOutputAudioBufferClear,
	}
	for i, want := range wantOrder {
		if got := sent[i].EventType(); got != want {
			t.Errorf("sent[%d] = %s, want %s", i, got, want)
		}
	}

	truncate := sent[0].(*rt.ConversationItemTruncate)
	if truncate.ItemID != "m" || truncate.ContentIndex != 1 {
		t.Errorf("truncate = %+v, want item m content 1", truncate)
	}
	if truncate.AudioEndMs < 1250 || truncate.AudioEndMs > 1750 {
		t.Errorf("AudioEndMs = %d, want about 1250", truncate.AudioEndMs)
	}

	c.mu.RLock()
	played, start := c.audioPlayed, c.audioStart
	c.mu.RUnlock()
	if played.Milliseconds() != int64(truncate.AudioEndMs) || !start.IsZero() {
		t.Errorf("accumulator = %v start = %v, want %dms and zero", played, start, truncate.AudioEndMs)
	}
	if c.PlayingItemID() != "" || c.IsInterrupting() {
		t.Errorf("after interrupt: playing=%q interrupting=%v", c.PlayingItemID(), c.IsInterrupting())
	}
}

func TestInterruptSpeech_InjectedClock(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	c, ft := newTestConversation(t, WithClock(func() time.Time { return now }))

	c.Handle(itemEvent(rt.EventTypeResponseOutputItemAdded, "e1", &rt.Message{ID: "m", Role: rt.RoleAssistant}))
	c.Handle(&rt.ServerEvent{Type: rt.EventTypeOutputAudioBufferStarted})
	now = base.Add(400 * time.Millisecond)
	c.Handle(idEvent(rt.EventTypeConversationItemTruncated, "e2", "other"))
	now = base.Add(900 * time.Millisecond)

	if !c.InterruptSpeech() {
		t.Fatal("InterruptSpeech = false, want true")
	}
	sent := flush(t, c, ft)
	truncate, ok := sent[0].(*rt.ConversationItemTruncate)
	if !ok {
		t.Fatalf("sent[0] = %T, want truncate", sent[0])
	}
	if truncate.AudioEndMs != 400 {
		t.Errorf("AudioEndMs = %d, want 400 (frozen at truncation)", truncate.AudioEndMs)
	}
	if truncate.ItemID != "m" || truncate.ContentIndex != 0 {
		t.Errorf("truncate = %+v, want newest assistant message m", truncate)
	}
}

func TestInterruptSpeech_NotSpeaking(t *testing.T) {
	c, ft := newTestConversation(t)
	if c.InterruptSpeech() {
		t.Fatal("InterruptSpeech = true while silent")
	}

	c.mu.Lock()
	c.modelSpeaking = true
	c.interrupting = true
	c.mu.Unlock()
	if c.InterruptSpeech() {
		t.Fatal("InterruptSpeech = true while another interruption runs")
	}
	if sent := flush(t, c, ft); len(sent) != 0 {
		t.Errorf("sent %d events, want 0", len(sent))
	}
}

func TestInterruptSpeech_PrefersAudioMessage(t *testing.T) {
	c, ft := newTestConversation(t)
	c.Handle(itemEvent(rt.EventTypeConversationItemCreated, "e1", &rt.Message{
		ID: "spoken", Role: rt.RoleAssistant,
		Content: []rt.ContentPart{{Type: rt.ContentOutputAudio, Transcript: "hi"}},
	}))
	c.Handle(itemEvent(rt.EventTypeConversationItemCreated, "e2", &rt.Message{
		ID: "texted", Role: rt.RoleAssistant,
		Content: []rt.ContentPart{{Type: rt.ContentOutputText, Text: "hi"}},
	}))
	c.Handle(itemEvent(rt.EventTypeConversationItemCreated, "e3", &rt.Message{ID: "user", Role: rt.RoleUser}))
	c.Handle(&rt.ServerEvent{Type: rt.EventTypeOutputAudioBufferStarted})

	c.InterruptSpeech()
	sent := flush(t, c, ft)
	if got := sent[0].(*rt.ConversationItemTruncate).ItemID; got != "spoken" {
		t.Errorf("truncate target = %q, want %q", got, "spoken")
	}
}

func TestInterruptSpeech_SendFailures(t *testing.T) {
	c, ft := newTestConversation(t)
	c.Handle(itemEvent(rt.EventTypeResponseOutputItemAdded, "e1", &rt.Message{ID: "m", Role: rt.RoleAssistant}))
	c.Handle(&rt.ServerEvent{Type: rt.EventTypeOutputAudioBufferStarted})

	cause := errors.New("pipe closed")
	ft.setSendErr(cause)

	if !c.InterruptSpeech() {
		t.Fatal("InterruptSpeech = false, want true")
	}
	for i := 0; i < 3; i++ {
		err := recvError(t, c)
		var e *rt.Error
		if !errors.As(err, &e) || e.Code != rt.ErrorCodeSendFailed || !errors.Is(err, cause) {
			t.Fatalf("error %d = %v, want send failure wrapping %v", i, err, cause)
		}
	}
	if n := len(ft.sentEvents()); n != 3 {
		t.Errorf("attempted %d sends, want 3", n)
	}
	if c.IsInterrupting() {
		t.Error("IsInterrupting = true after failed sends")
	}
}

// panicLogger panics on debug output.
type panicLogger struct{ Logger }

func (panicLogger) DebugPrintf(format string, args ...any) { panic("debug") }

func TestInterruptSpeech_ResetsAfterPanic(t *testing.T) {
	c, _ := newTestConversation(t, WithLogger(panicLogger{DefaultLogger()}))
	c.mu.Lock()
	c.modelSpeaking = true
	c.mu.Unlock()

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("InterruptSpeech did not panic")
			}
		}()
		c.InterruptSpeech()
	}()

	done := make(chan bool, 1)
	go func() { done <- c.IsInterrupting() }()
	select {
	case interrupting := <-done:
		if interrupting {
			t.Error("IsInterrupting = true after the interruption unwound")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("state lock still held after panic")
	}
}
