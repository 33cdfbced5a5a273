package commands

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/rtp"
	"github.com/spf13/cobra"

	"github.com/haivivi/realtalk/pkg/audio/resampler"
	"github.com/haivivi/realtalk/pkg/cli"
	"github.com/haivivi/realtalk/pkg/conversation"
	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
	"github.com/haivivi/realtalk/pkg/transcript"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive realtime conversation",
	Long: `Start an interactive conversation with a realtime model.

Plain lines are sent as user text. Lines starting with "/" are commands:

  /audio <file>     send raw PCM16 audio (rate set by --audio-rate)
  /interrupt        stop the assistant's current audio
  /voice <id>       change the output voice
  /approve <id>     approve an MCP tool call
  /deny <id> [why]  deny an MCP tool call
  /exit             end the session

The conversation is saved to the transcript store on exit.

Examples:
  realtalk -c myctx chat
  realtalk -c myctx chat -f session.yaml --voice marin
  realtalk -c myctx chat --transport webrtc -o reply.opus`,
	RunE: runChat,
}

var (
	chatTransport    string
	chatModel        string
	chatVoice        string
	chatInstructions string
	chatSessionFile  string
	chatVAD          bool
	chatAudioRate    int
	chatAudioStereo  bool
	chatDumpFile     string
	chatSessionID    string
	chatKeepAudio    bool
	chatNoSave       bool
)

func init() {
	f := chatCmd.Flags()
	f.StringVar(&chatTransport, "transport", "", "websocket or webrtc (default from context, else websocket)")
	f.StringVar(&chatModel, "model", "", "realtime model (default from context, else "+rt.ModelGPTRealtime+")")
	f.StringVar(&chatVoice, "voice", "", "output voice (default from context)")
	f.StringVar(&chatInstructions, "instructions", "", "system instructions")
	f.StringVarP(&chatSessionFile, "file", "f", "", "session configuration file (YAML or JSON)")
	f.BoolVar(&chatVAD, "vad", false, "keep server voice activity detection; otherwise audio is committed per /audio")
	f.IntVar(&chatAudioRate, "audio-rate", resampler.Realtime.SampleRate, "sample rate of /audio files")
	f.BoolVar(&chatAudioStereo, "audio-stereo", false, "/audio files are stereo")
	f.StringVarP(&chatDumpFile, "output", "o", "", "webrtc only: write received audio RTP payloads, each prefixed with its 2-byte big-endian length; a bare file name goes to the audio directory")
	f.StringVar(&chatSessionID, "session-id", "", "transcript id to save under (default: server session id)")
	f.BoolVar(&chatKeepAudio, "keep-audio", false, "keep audio bytes in the saved transcript")
	f.BoolVar(&chatNoSave, "no-save", false, "do not save the transcript")
}

func runChat(cmd *cobra.Command, args []string) error {
	cctx, err := getContext()
	if err != nil {
		return err
	}
	client, err := newClient(cctx)
	if err != nil {
		return err
	}

	kind := firstNonEmpty(chatTransport, cctx.Transport, "websocket")
	transport, err := client.NewTransport(kind, &rt.ConnectConfig{
		Model: firstNonEmpty(chatModel, cctx.Model),
		Voice: firstNonEmpty(chatVoice, cctx.Voice),
	})
	if err != nil {
		return err
	}

	if chatDumpFile != "" {
		rtc, ok := transport.(*rt.WebRTCTransport)
		if !ok {
			return fmt.Errorf("-o requires --transport webrtc")
		}
		path := chatDumpFile
		if filepath.Base(path) == path {
			if path, err = globalPaths.AudioPath(path); err != nil {
				return err
			}
		}
		dump, err := newPayloadDump(path)
		if err != nil {
			return err
		}
		cli.PrintInfo("Writing model audio to %s", path)
		defer dump.Close()
		rtc.OnAudioPacket(dump.write)
	}

	var session rt.SessionConfig
	if chatSessionFile != "" {
		if err := cli.LoadRequest(chatSessionFile, &session); err != nil {
			return err
		}
	}
	voice := firstNonEmpty(chatVoice, cctx.Voice)

	conv := conversation.New(transport,
		conversation.WithLogger(conversation.SlogLogger(slog.Default())),
		conversation.WithSessionConfigurator(func(cfg *rt.SessionConfig) {
			mergeSession(cfg, &session)
			if chatInstructions != "" {
				cfg.Instructions = chatInstructions
			}
			if voice != "" {
				cfg.Voice = voice
			}
			if !chatVAD {
				cfg.TurnDetection = nil
				cfg.TurnDetectionDisabled = true
			}
		}),
	)
	defer conv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Debug("connecting", "context", cctx.Name, "transport", kind)
	if err := conv.Start(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = conv.WaitForConnection(waitCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	cli.PrintSuccess("Connected (%s)", kind)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		watchConversation(ctx, conv, cli.NewItemStyles(cli.DefaultTheme))
	}()

	fmt.Println("Type a message, or /exit to quit.")
	lines := readLines(os.Stdin)
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if done := chatInput(conv, line); done {
				break loop
			}
		}
	}
	stop()
	wg.Wait()

	items := conv.Entries()
	if err := conv.Close(); err != nil {
		cli.PrintWarning("close: %v", err)
	}
	if chatNoSave || len(items) == 0 {
		return nil
	}
	return saveTranscript(cctx, transcriptID(transport), items)
}

// chatInput handles one line of user input and reports whether to exit.
func chatInput(conv *conversation.Conversation, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		if err := conv.SendText(line); err != nil {
			cli.PrintError("%v", err)
		}
		return false
	}

	name, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	var err error
	switch name {
	case "exit", "quit":
		return true
	case "interrupt":
		if conv.InterruptSpeech() {
			cli.PrintInfo("Interrupted")
		} else {
			cli.PrintInfo("Nothing to interrupt")
		}
	case "voice":
		if arg == "" {
			err = errors.New("usage: /voice <id>")
			break
		}
		err = conv.UpdateSession(func(cfg *rt.SessionConfig) { cfg.Voice = arg })
	case "audio":
		if arg == "" {
			err = errors.New("usage: /audio <file>")
			break
		}
		err = sendAudioFile(conv, arg)
	case "approve", "deny":
		id, reason, _ := strings.Cut(arg, " ")
		if id == "" {
			err = fmt.Errorf("usage: /%s <approval request id>", name)
			break
		}
		err = conv.SendApproval(id, name == "approve", strings.TrimSpace(reason))
	default:
		err = fmt.Errorf("unknown command /%s", name)
	}
	if err != nil {
		cli.PrintError("%v", err)
	}
	return false
}

func sendAudioFile(conv *conversation.Conversation, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read audio file: %w", err)
	}
	src := resampler.Format{SampleRate: chatAudioRate, Stereo: chatAudioStereo}
	pcm, err := resampler.Convert(raw, src, resampler.Realtime)
	if err != nil {
		return err
	}
	cli.PrintInfo("Sending %s of audio from %s", cli.FormatDuration(resampler.Realtime.Duration(len(pcm))), path)

	for chunk := range resampler.Chunks(pcm, resampler.Realtime, 100*time.Millisecond) {
		if err := conv.SendAudioDelta(chunk); err != nil {
			return err
		}
	}
	if chatVAD {
		return nil
	}
	if err := conv.Send(&rt.InputAudioBufferCommit{}); err != nil {
		return err
	}
	return conv.CreateResponse(nil)
}

// watchConversation prints entries once they are final and reports errors
// until ctx is done or the conversation closes.
func watchConversation(ctx context.Context, conv *conversation.Conversation, styles cli.ItemStyles) {
	printed := make(map[string]bool)
	changes := conv.Changes()
	errs := conv.Errors()
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				return
			}
			cli.PrintError("%v", err)
		case _, ok := <-changes:
			if !ok {
				return
			}
			for _, item := range conv.Entries() {
				id := item.ItemID()
				if printed[id] || !isFinal(item) {
					continue
				}
				printed[id] = true
				fmt.Println(styles.Render(item))
				if req, ok := item.(*rt.MCPApprovalRequest); ok {
					cli.PrintInfo("Answer with /approve %s or /deny %s", req.ID, req.ID)
				}
			}
		}
	}
}

func isFinal(item rt.Item) bool {
	switch it := item.(type) {
	case *rt.Message:
		return it.Status == rt.StatusCompleted || it.Status == rt.StatusIncomplete
	case *rt.FunctionCall:
		return it.Status == rt.StatusCompleted
	case *rt.MCPCall:
		return it.Output != nil || it.Error != nil
	case *rt.MCPListTools:
		return !it.IsPlaceholder()
	default:
		return true
	}
}

func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			ch <- scanner.Text()
		}
	}()
	return ch
}

func mergeSession(dst, src *rt.SessionConfig) {
	if src.Modalities != nil {
		dst.Modalities = src.Modalities
	}
	if src.Instructions != "" {
		dst.Instructions = src.Instructions
	}
	if src.Voice != "" {
		dst.Voice = src.Voice
	}
	if src.InputAudioFormat != "" {
		dst.InputAudioFormat = src.InputAudioFormat
	}
	if src.OutputAudioFormat != "" {
		dst.OutputAudioFormat = src.OutputAudioFormat
	}
	if src.InputAudioTranscription != nil {
		dst.InputAudioTranscription = src.InputAudioTranscription
	}
	if src.TurnDetection != nil {
		dst.TurnDetection = src.TurnDetection
	}
	if src.Tools != nil {
		dst.Tools = src.Tools
	}
	if src.ToolChoice != nil {
		dst.ToolChoice = src.ToolChoice
	}
	if src.Temperature != nil {
		dst.Temperature = src.Temperature
	}
	if src.MaxResponseOutputTokens != nil {
		dst.MaxResponseOutputTokens = src.MaxResponseOutputTokens
	}
}

func transcriptID(t rt.Transport) string {
	if chatSessionID != "" {
		return chatSessionID
	}
	if s, ok := t.(interface{ SessionID() string }); ok && s.SessionID() != "" {
		return s.SessionID()
	}
	return uuid.NewString()
}

func saveTranscript(cctx *cli.Context, id string, items []rt.Item) error {
	store, err := openStore(cctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if !chatKeepAudio {
		items = transcript.StripAudio(items)
	}
	if err := store.Save(context.Background(), id, items); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	cli.PrintSuccess("Saved %d items as %s", len(items), id)
	return nil
}

// payloadDump writes RTP payloads with a 2-byte length prefix.
type payloadDump struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

func newPayloadDump(path string) (*payloadDump, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &payloadDump{f: f, w: bufio.NewWriter(f)}, nil
}

func (d *payloadDump) write(pkt *rtp.Packet) {
	if len(pkt.Payload) == 0 || len(pkt.Payload) > 0xffff {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(pkt.Payload)))
	d.w.Write(hdr[:])
	d.w.Write(pkt.Payload)
}

func (d *payloadDump) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.w.Flush(); err != nil {
		d.f.Close()
		return err
	}
	return d.f.Close()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
