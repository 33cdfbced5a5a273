package openairealtime

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestClientEventRoundTrip(t *testing.T) {
	events := []ClientEvent{
		&SessionUpdate{Session: SessionConfig{Voice: VoiceAlloy, Instructions: "be brief"}},
		&InputAudioBufferAppend{Audio: []byte{0, 1, 2, 3}},
		&InputAudioBufferCommit{},
		&InputAudioBufferClear{},
		&ConversationItemCreate{
			PreviousItemID: "root",
			Item:           &Message{Role: RoleUser, Content: []ContentPart{{Type: ContentInputText, Text: "hi"}}},
		},
		&ConversationItemCreate{Item: &FunctionCallOutput{CallID: "c1", Output: "42"}},
		&ConversationItemTruncate{ItemID: "m1", ContentIndex: 0, AudioEndMs: 1250},
		&ConversationItemDelete{ItemID: "m1"},
		&ConversationItemRetrieve{ItemID: "m1"},
		&ResponseCreate{},
		&ResponseCreate{Response: &ResponseCreateOptions{
			Instructions: "again",
			Input:        ItemList{&Message{Role: RoleUser, Content: []ContentPart{{Type: ContentInputText, Text: "x"}}}},
		}},
		&ResponseCancel{},
		&OutputAudioBufferClear{},
	}

	for _, ev := range events {
		t.Run(ev.EventType(), func(t *testing.T) {
			data, err := EncodeClientEvent(ev)
			if err != nil {
				t.Fatalf("EncodeClientEvent error = %v", err)
			}
			if ev.Header().EventID == "" || !strings.HasPrefix(ev.Header().EventID, "evt_") {
				t.Errorf("EventID = %q, want evt_ prefix", ev.Header().EventID)
			}
			got, err := DecodeClientEvent(data)
			if err != nil {
				t.Fatalf("DecodeClientEvent(%s) error = %v", data, err)
			}
			if !reflect.DeepEqual(got, ev) {
				t.Errorf("round trip mismatch\n got: %#v\nwant: %#v", got, ev)
			}
		})
	}
}

func TestEncodeClientEventKeepsID(t *testing.T) {
	ev := &ResponseCancel{EventHeader: EventHeader{EventID: "evt_fixed"}}
	data, err := EncodeClientEvent(ev)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m["type"] != EventTypeResponseCancel || m["event_id"] != "evt_fixed" {
		t.Errorf("encoded = %s", data)
	}
}

func TestTruncateEncodesZeroFields(t *testing.T) {
	data, err := EncodeClientEvent(&ConversationItemTruncate{ItemID: "m1"})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"content_index":0`, `"audio_end_ms":0`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("encoded = %s, want %s", data, want)
		}
	}
}

func TestSessionConfigTurnDetectionDisabled(t *testing.T) {
	data, err := json.Marshal(SessionConfig{Voice: VoiceEcho, TurnDetectionDisabled: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"turn_detection":null`) {
		t.Errorf("encoded = %s, want explicit null turn_detection", data)
	}
	data, err = json.Marshal(SessionConfig{Voice: VoiceEcho})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "turn_detection") {
		t.Errorf("encoded = %s, want no turn_detection", data)
	}
}

func TestDecodeServerEvent(t *testing.T) {
	ev, err := DecodeServerEvent([]byte(`{"type":"conversation.item.done","event_id":"e1","item":{"type":"function_call","id":"fc","call_id":"c","name":"f","arguments":"{}","status":"completed"}}`))
	if err != nil {
		t.Fatalf("DecodeServerEvent error = %v", err)
	}
	fc, ok := ev.Item.(*FunctionCall)
	if !ok {
		t.Fatalf("Item = %T, want *FunctionCall", ev.Item)
	}
	if fc.Status != StatusCompleted || fc.ID != "fc" {
		t.Errorf("Item = %+v", fc)
	}

	ev, err = DecodeServerEvent([]byte(`{"type":"response.output_audio.delta","item_id":"m","delta":"AQID"}`))
	if err != nil {
		t.Fatalf("DecodeServerEvent error = %v", err)
	}
	if !reflect.DeepEqual(ev.Audio, []byte{1, 2, 3}) {
		t.Errorf("Audio = %v, want [1 2 3]", ev.Audio)
	}

	ev, err = DecodeServerEvent([]byte(`{"type":"response.done","response":{"id":"r","status":"completed","output":[{"type":"message","role":"assistant","content":[]}],"usage":{"total_tokens":3}}}`))
	if err != nil {
		t.Fatalf("DecodeServerEvent error = %v", err)
	}
	if len(ev.Response.Output) != 1 || ev.Response.Usage.TotalTokens != 3 {
		t.Errorf("Response = %+v", ev.Response)
	}

	for _, bad := range []string{`{`, `{"event_id":"x"}`, `{"type":"response.audio.delta","delta":"!!"}`, `{"type":"conversation.item.added","item":{"type":"nope"}}`} {
		_, err := DecodeServerEvent([]byte(bad))
		var decodeErr *DecodeError
		if err == nil || !errors.As(err, &decodeErr) {
			t.Errorf("DecodeServerEvent(%s) error = %v, want *DecodeError", bad, err)
		}
	}
}

func TestServerEventMarshalIncludesItem(t *testing.T) {
	ev := ServerEvent{Type: EventTypeConversationItemCreated, Item: &FunctionCallOutput{ID: "o", CallID: "c", Output: "1"}}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	back, err := DecodeServerEvent(data)
	if err != nil {
		t.Fatalf("DecodeServerEvent(%s) error = %v", data, err)
	}
	if !reflect.DeepEqual(back.Item, ev.Item) {
		t.Errorf("Item = %#v, want %#v", back.Item, ev.Item)
	}
}

func TestNewSendError(t *testing.T) {
	cause := ErrNotConnected
	ev := &ResponseCreate{EventHeader: EventHeader{EventID: "evt_1"}}
	err := NewSendError(ev, cause)
	if err.Type != ErrorTypeClient || err.Code != ErrorCodeSendFailed || err.EventID != "evt_1" {
		t.Errorf("NewSendError = %+v", err)
	}
	if !errors.Is(err, ErrNotConnected) {
		t.Error("errors.Is(err, ErrNotConnected) = false")
	}
}
