// Package openairealtime implements the wire model and transports of the
// OpenAI Realtime API.
//
// # Items
//
// A conversation [Item] is one of [Message], [FunctionCall],
// [FunctionCallOutput], [MCPCall], [MCPToolCall], [MCPApprovalRequest],
// [MCPApprovalResponse] or [MCPListTools]. Items encode with a "type"
// discriminator and decode through [DecodeItem]. MCPCall carries JSON
// values while MCPToolCall and MCPApprovalRequest carry JSON-encoded
// argument strings, as the API does.
//
// # Events
//
// Inbound frames decode into a flat [ServerEvent]. Outbound events are the
// [ClientEvent] types, encoded with [EncodeClientEvent].
//
// # Transports
//
//	client, err := openairealtime.NewClient(apiKey)
//	if err != nil {
//	    return err
//	}
//	t := client.NewWebSocketTransport(&openairealtime.ConnectConfig{
//	    Model: openairealtime.ModelGPTRealtime,
//	})
//	if err := t.Connect(ctx); err != nil {
//	    return err
//	}
//	defer t.Disconnect()
//
//	for event, err := range t.Events() {
//	    if err != nil {
//	        return err
//	    }
//	    switch event.Type {
//	    case openairealtime.EventTypeResponseOutputTextDelta:
//	        fmt.Print(event.Delta)
//	    }
//	}
//
// WebRTC transports exchange events over the "oai-events" data channel and
// deliver model audio as RTP packets through [WebRTCTransport.OnAudioPacket].
package openairealtime
