package conversation

import (
	"time"

	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
)

// InterruptSpeech stops the model mid-utterance. It truncates the playing
// assistant message at the audio played so far, cancels the response and
// clears the output audio buffer, in that order. It reports whether an
// interruption was started; it is a no-op while the model is silent or
// another interruption is underway. Send failures are delivered on Errors.
func (c *Conversation) InterruptSpeech() bool {
	c.mu.Lock()
	if !c.modelSpeaking || c.interrupting {
		c.mu.Unlock()
		return false
	}
	c.interrupting = true
	elapsed := c.audioPlayed
	if !c.audioStart.IsZero() {
		elapsed += c.cfg.now().Sub(c.audioStart)
	}
	target, contentIndex := c.interruptTarget()
	c.mu.Unlock()

	// Registered only after Unlock: the reset takes c.mu.
	defer func() {
		c.mu.Lock()
		c.interrupting = false
		c.mu.Unlock()
	}()

	if target != "" {
		err := c.enqueue(
			&rt.ConversationItemTruncate{
				ItemID:       target,
				ContentIndex: contentIndex,
				AudioEndMs:   int(elapsed.Milliseconds()),
			},
			&rt.ResponseCancel{},
			&rt.OutputAudioBufferClear{},
		)
		if err != nil {
			c.log.WarnPrintf("interrupt: %v", err)
		}
	} else {
		c.log.DebugPrintf("interrupt: no assistant message to truncate")
	}

	c.mu.Lock()
	c.audioPlayed = elapsed
	c.audioStart = time.Time{}
	c.playingItemID = ""
	c.mu.Unlock()
	c.notify()
	return true
}

// interruptTarget picks the item to truncate: the playing item, else the
// newest assistant message with audio, else the newest assistant message.
// Callers hold c.mu.
func (c *Conversation) interruptTarget() (string, int) {
	if c.playingItemID != "" {
		if i, ok := c.index[c.playingItemID]; ok {
			if m, ok := c.entries[i].(*rt.Message); ok {
				return c.playingItemID, audioIndex(m)
			}
		}
		return c.playingItemID, 0
	}
	for i := len(c.entries) - 1; i >= 0; i-- {
		m, ok := c.entries[i].(*rt.Message)
		if ok && m.Role == rt.RoleAssistant && hasAudio(m) {
			return m.ID, audioIndex(m)
		}
	}
	for i := len(c.entries) - 1; i >= 0; i-- {
		if m, ok := c.entries[i].(*rt.Message); ok && m.Role == rt.RoleAssistant {
			return m.ID, audioIndex(m)
		}
	}
	return "", 0
}

func hasAudio(m *rt.Message) bool {
	for _, p := range m.Content {
		if p.Type.IsAudio() {
			return true
		}
	}
	return false
}

// audioIndex returns the index of the first audio part, or 0.
func audioIndex(m *rt.Message) int {
	for i, p := range m.Content {
		if p.Type.IsAudio() {
			return i
		}
	}
	return 0
}
