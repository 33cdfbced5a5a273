// Package conversation keeps the state of one OpenAI Realtime session.
//
// A [Conversation] consumes server events from a transport and reconciles
// them into an ordered log of items. Streaming deltas are spliced into the
// message they belong to, done events replace provisional items, and MCP
// progress that arrives before its item is tracked out of band. When an MCP
// call finishes, successfully or not, exactly one response.create is sent
// so the model can continue.
//
//	client, err := openairealtime.NewClient(apiKey)
//	if err != nil {
//	    return err
//	}
//	conv := conversation.New(client.NewWebSocketTransport(nil))
//	if err := conv.Start(ctx); err != nil {
//	    return err
//	}
//	defer conv.Close()
//
//	go func() {
//	    for err := range conv.Errors() {
//	        log.Println(err)
//	    }
//	}()
//	conv.SendText("hello")
//
// Handling an event never waits for the network: client events are queued
// and written in order by a background goroutine. Failures to send are
// reported on Errors together with server error events.
package conversation
