package conversation

import (
	"bytes"
	"time"

	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
)

// Handle applies one server event. It is called by Run for every event and
// must not be called concurrently with itself. Follow-up client events are
// queued on the outbox; Handle never waits for them to be written.
func (c *Conversation) Handle(ev *rt.ServerEvent) {
	if ev == nil {
		return
	}
	var follow []rt.ClientEvent

	c.mu.Lock()
	switch ev.Type {
	case rt.EventTypeError:
		c.mu.Unlock()
		if ev.Error != nil {
			c.pushError(ev.Error.ToError())
		}
		return

	case rt.EventTypeSessionCreated, rt.EventTypeSessionUpdated:
		if ev.Session != nil {
			c.session = ev.Session
		}
		if ev.Type == rt.EventTypeSessionCreated && !c.configured && c.cfg.configure != nil && c.session != nil {
			c.configured = true
			cfg := c.session.Config()
			c.cfg.configure(&cfg)
			follow = append(follow, &rt.SessionUpdate{Session: cfg})
		}

	case rt.EventTypeConversationItemCreated,
		rt.EventTypeConversationItemAdded,
		rt.EventTypeConversationItemRetrieved:
		if ev.Item == nil {
			break
		}
		c.upsert(ev.Item)
		if _, ok := ev.Item.(*rt.MCPCall); ok && ev.Type == rt.EventTypeConversationItemAdded {
			c.markAdded(ev.Item.ItemID(), ev.EventID)
		}

	case rt.EventTypeResponseOutputItemAdded:
		if ev.Item == nil {
			break
		}
		if _, ok := c.index[ev.Item.ItemID()]; !ok {
			c.upsert(ev.Item)
		}
		if _, ok := ev.Item.(*rt.MCPCall); ok {
			c.markAdded(ev.Item.ItemID(), ev.EventID)
		}

	case rt.EventTypeConversationItemDone, rt.EventTypeResponseOutputItemDone:
		if ev.Item == nil {
			break
		}
		follow = c.finalize(ev.Item, ev.EventID)

	case rt.EventTypeConversationItemDeleted:
		c.remove(ev.ItemID)

	case rt.EventTypeConversationItemTruncated:
		if c.playingItemID == ev.ItemID {
			c.playingItemID = ""
		}
		c.freezeAudio()

	case rt.EventTypeResponseMCPCallArgumentsDelta:
		tr := c.track(ev.ItemID)
		if tr.callStep < rt.MCPStepCallInProgress {
			tr.callStep = rt.MCPStepCallInProgress
		}
		tr.responseLastEventID = ev.EventID

	case rt.EventTypeResponseMCPCallArgumentsDone:
		tr := c.track(ev.ItemID)
		if tr.callStep < rt.MCPStepCallCompleted && tr.callStep != rt.MCPStepCallIncomplete {
			tr.callStep = rt.MCPStepCallCompleted
		}
		tr.responseLastEventID = ev.EventID

	case rt.EventTypeResponseMCPCallInProgress:
		tr := c.track(ev.ItemID)
		if tr.callStep < rt.MCPStepCallInProgress {
			tr.callStep = rt.MCPStepCallInProgress
		}
		tr.responseLastEventID = ev.EventID

	case rt.EventTypeResponseMCPCallFailed:
		tr := c.track(ev.ItemID)
		tr.responseLastEventID = ev.EventID
		if tr.callStep != rt.MCPStepCallIncomplete && tr.callStep != rt.MCPStepResponseCompleted {
			tr.callStep = rt.MCPStepCallIncomplete
			follow = append(follow, &rt.ResponseCreate{})
		}

	case rt.EventTypeResponseMCPCallCompleted:
		// The transition to the response phase waits for the item done
		// event that carries the output.
		c.track(ev.ItemID).responseLastEventID = ev.EventID

	case rt.EventTypeMCPListToolsInProgress:
		c.listToolsProgress(ev, rt.StatusInProgress)
	case rt.EventTypeMCPListToolsCompleted:
		c.listToolsProgress(ev, rt.StatusCompleted)
	case rt.EventTypeMCPListToolsFailed:
		c.listToolsProgress(ev, rt.StatusIncomplete)

	case rt.EventTypeResponseFunctionCallArgumentsDelta:
		c.updateFunctionCall(ev.ItemID, func(f *rt.FunctionCall) {
			f.Arguments += ev.Delta
		})
	case rt.EventTypeResponseFunctionCallArgumentsDone:
		c.updateFunctionCall(ev.ItemID, func(f *rt.FunctionCall) {
			f.Arguments = ev.Arguments
			if ev.Name != "" {
				f.Name = ev.Name
			}
			f.Status = rt.StatusCompleted
		})

	case rt.EventTypeResponseContentPartAdded, rt.EventTypeResponseContentPartDone:
		if ev.Part == nil {
			break
		}
		c.updateMessage(ev.ItemID, func(m *rt.Message) {
			if p := c.ensurePart(m, ev.ContentIndex, ev.Part.Type); p != nil {
				*p = mergePart(*p, *ev.Part)
			}
		})

	case rt.EventTypeResponseOutputTextDelta, rt.EventTypeResponseTextDelta:
		c.updateMessage(ev.ItemID, func(m *rt.Message) {
			if p := c.ensurePart(m, ev.ContentIndex, textPartType(ev.Type)); p != nil {
				p.Text += ev.Delta
			}
		})
	case rt.EventTypeResponseOutputTextDone, rt.EventTypeResponseTextDone:
		c.updateMessage(ev.ItemID, func(m *rt.Message) {
			if p := c.ensurePart(m, ev.ContentIndex, textPartType(ev.Type)); p != nil {
				p.Text = ev.Text
			}
		})

	case rt.EventTypeResponseOutputAudioDelta, rt.EventTypeResponseAudioDelta:
		c.updateMessage(ev.ItemID, func(m *rt.Message) {
			if p := c.ensurePart(m, ev.ContentIndex, audioPartType(ev.Type)); p != nil {
				p.Audio = append(p.Audio, ev.Audio...)
			}
		})
		c.playingItemID = ev.ItemID

	case rt.EventTypeResponseOutputAudioTranscriptDelta, rt.EventTypeResponseAudioTranscriptDelta:
		c.updateMessage(ev.ItemID, func(m *rt.Message) {
			if p := c.ensurePart(m, ev.ContentIndex, audioPartType(ev.Type)); p != nil {
				p.Transcript += ev.Delta
			}
		})
	case rt.EventTypeResponseOutputAudioTranscriptDone, rt.EventTypeResponseAudioTranscriptDone:
		c.updateMessage(ev.ItemID, func(m *rt.Message) {
			if p := c.ensurePart(m, ev.ContentIndex, audioPartType(ev.Type)); p != nil {
				p.Transcript = ev.Transcript
			}
		})

	case rt.EventTypeInputAudioTranscriptionDelta:
		c.updateMessage(ev.ItemID, func(m *rt.Message) {
			if p := c.ensurePart(m, ev.ContentIndex, rt.ContentInputAudio); p != nil {
				p.Transcript += ev.Delta
			}
		})
	case rt.EventTypeInputAudioTranscriptionCompleted:
		c.updateMessage(ev.ItemID, func(m *rt.Message) {
			if p := c.ensurePart(m, ev.ContentIndex, rt.ContentInputAudio); p != nil {
				p.Transcript = ev.Transcript
			}
		})
	case rt.EventTypeInputAudioTranscriptionFailed:
		c.mu.Unlock()
		if ev.Error != nil {
			c.pushError(ev.Error.ToError())
		}
		return

	case rt.EventTypeInputAudioBufferSpeechStarted:
		c.userSpeaking = true
	case rt.EventTypeInputAudioBufferSpeechStopped:
		c.userSpeaking = false

	case rt.EventTypeOutputAudioBufferStarted:
		c.modelSpeaking = true
		c.audioPlayed = 0
		c.audioStart = c.cfg.now()
	case rt.EventTypeOutputAudioBufferStopped, rt.EventTypeOutputAudioBufferCleared:
		c.modelSpeaking = false
		c.freezeAudio()
		c.playingItemID = ""

	case rt.EventTypeResponseCreated, rt.EventTypeResponseDone:
		if ev.Response != nil {
			c.lastResponse = ev.Response
		}

	case rt.EventTypeRateLimitsUpdated:
		c.rateLimits = ev.RateLimits

	default:
		c.mu.Unlock()
		c.log.DebugPrintf("unhandled event %s", ev.Type)
		return
	}
	c.mu.Unlock()

	c.notify()
	if len(follow) > 0 {
		if err := c.enqueue(follow...); err != nil {
			c.log.WarnPrintf("follow-up after %s: %v", ev.Type, err)
		}
	}
}

// upsert replaces the entry with the same id or appends item. Items
// without an id are always appended. Callers hold c.mu.
func (c *Conversation) upsert(item rt.Item) {
	id := item.ItemID()
	if i, ok := c.index[id]; ok && id != "" {
		c.entries[i] = item
		return
	}
	c.entries = append(c.entries, item)
	if id != "" {
		c.index[id] = len(c.entries) - 1
	}
}

// finalize applies a done event. Only known entries are replaced; the MCP
// call state advances regardless. Callers hold c.mu.
func (c *Conversation) finalize(item rt.Item, eventID string) []rt.ClientEvent {
	id := item.ItemID()
	if i, ok := c.index[id]; ok {
		if m, ok := item.(*rt.Message); ok {
			if prev, ok := c.entries[i].(*rt.Message); ok {
				item = mergeMessage(prev, m)
			}
		}
		c.entries[i] = item
	} else {
		c.log.DebugPrintf("done for unknown item %s", id)
	}

	switch item.(type) {
	case *rt.MCPListTools:
		tr := c.track(id)
		tr.listTools = rt.StatusCompleted
		tr.listToolsLastEventID = eventID
	case *rt.MCPCall:
		tr := c.track(id)
		tr.responseLastEventID = eventID
		switch tr.callStep {
		case rt.MCPStepCallIncomplete, rt.MCPStepResponseCompleted:
			return nil
		}
		tr.callStep = rt.MCPStepResponseCompleted
		return []rt.ClientEvent{&rt.ResponseCreate{}}
	}
	return nil
}

// remove deletes the entry and its MCP tracking. Callers hold c.mu.
func (c *Conversation) remove(id string) {
	delete(c.mcp, id)
	i, ok := c.index[id]
	if !ok {
		return
	}
	c.entries = append(c.entries[:i:i], c.entries[i+1:]...)
	delete(c.index, id)
	for j := i; j < len(c.entries); j++ {
		if eid := c.entries[j].ItemID(); eid != "" {
			c.index[eid] = j
		}
	}
	if c.playingItemID == id {
		c.playingItemID = ""
	}
}

// track returns the MCP tracking record for id, creating it. Callers hold
// c.mu.
func (c *Conversation) track(id string) *mcpTrack {
	tr, ok := c.mcp[id]
	if !ok {
		tr = &mcpTrack{}
		c.mcp[id] = tr
	}
	return tr
}

func (c *Conversation) markAdded(id, eventID string) {
	tr := c.track(id)
	if tr.callStep == 0 {
		tr.callStep = rt.MCPStepAdded
	}
	tr.responseLastEventID = eventID
}

func (c *Conversation) listToolsProgress(ev *rt.ServerEvent, status rt.Status) {
	if _, ok := c.index[ev.ItemID]; !ok {
		c.upsert(&rt.MCPListTools{ID: ev.ItemID})
	}
	tr := c.track(ev.ItemID)
	tr.listTools = status
	tr.listToolsLastEventID = ev.EventID
}

// updateMessage replaces the message at id with a modified clone.
func (c *Conversation) updateMessage(id string, fn func(*rt.Message)) {
	i, ok := c.index[id]
	if !ok {
		c.log.DebugPrintf("content for unknown item %s", id)
		return
	}
	m, ok := c.entries[i].(*rt.Message)
	if !ok {
		c.log.DebugPrintf("content for non-message item %s", id)
		return
	}
	m = rt.CloneItem(m).(*rt.Message)
	fn(m)
	c.entries[i] = m
}

func (c *Conversation) updateFunctionCall(id string, fn func(*rt.FunctionCall)) {
	i, ok := c.index[id]
	if !ok {
		c.log.DebugPrintf("arguments for unknown item %s", id)
		return
	}
	f, ok := c.entries[i].(*rt.FunctionCall)
	if !ok {
		c.log.DebugPrintf("arguments for non-function item %s", id)
		return
	}
	f = rt.CloneItem(f).(*rt.FunctionCall)
	fn(f)
	c.entries[i] = f
}

// freezeAudio folds the running playback interval into the accumulator.
func (c *Conversation) freezeAudio() {
	if !c.audioStart.IsZero() {
		c.audioPlayed += c.cfg.now().Sub(c.audioStart)
		c.audioStart = time.Time{}
	}
}

// ensurePart returns part i of m, appending it when i is the next index.
// Any other index is logged and yields nil.
func (c *Conversation) ensurePart(m *rt.Message, i int, typ rt.ContentType) *rt.ContentPart {
	if i < 0 || i > len(m.Content) {
		c.log.WarnPrintf("item %s: content index %d out of range (%d parts)", m.ID, i, len(m.Content))
		return nil
	}
	if i == len(m.Content) {
		m.Content = append(m.Content, rt.ContentPart{})
	}
	p := &m.Content[i]
	if p.Type == "" {
		p.Type = typ
	}
	return p
}

// mergePart returns next, keeping what prev accumulated when next lacks it.
func mergePart(prev, next rt.ContentPart) rt.ContentPart {
	if len(next.Audio) == 0 && len(prev.Audio) > 0 {
		next.Audio = bytes.Clone(prev.Audio)
	}
	if next.Transcript == "" {
		next.Transcript = prev.Transcript
	}
	if next.Text == "" {
		next.Text = prev.Text
	}
	return next
}

// mergeMessage returns the finalized message with streamed content kept
// where the final payload omits it.
func mergeMessage(prev, done *rt.Message) *rt.Message {
	out := rt.CloneItem(done).(*rt.Message)
	for i := range out.Content {
		if i < len(prev.Content) {
			out.Content[i] = mergePart(prev.Content[i], out.Content[i])
		}
	}
	if len(out.Content) == 0 && len(prev.Content) > 0 {
		out.Content = rt.CloneItem(prev).(*rt.Message).Content
	}
	return out
}

func textPartType(eventType string) rt.ContentType {
	if eventType == rt.EventTypeResponseTextDelta || eventType == rt.EventTypeResponseTextDone {
		return rt.ContentText
	}
	return rt.ContentOutputText
}

func audioPartType(eventType string) rt.ContentType {
	switch eventType {
	case rt.EventTypeResponseAudioDelta, rt.EventTypeResponseAudioTranscriptDelta, rt.EventTypeResponseAudioTranscriptDone:
		return rt.ContentAudio
	}
	return rt.ContentOutputAudio
}
