// avatar-probe checks a running avatar server and prints streamed frames.
//
//	avatar-probe -url http://localhost:8765 -frames 30
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"github.com/teslashibe/go-avatar/internal/httpc"
	"github.com/teslashibe/go-avatar/internal/log"
	"github.com/teslashibe/go-avatar/pkg/protocol"
)

type health struct {
	Status            string `json:"status"`
	Service           string `json:"service"`
	WebsocketEndpoint string `json:"websocket_endpoint"`
	Sessions          int    `json:"sessions"`
}

func main() {
	_ = godotenv.Load()

	baseURL := flag.String("url", "http://localhost:8765", "Server base URL")
	frames := flag.Int("frames", 30, "Frames to read before closing (0 = until interrupted)")
	encoding := flag.String("encoding", protocol.EncodingJSON, "Frame encoding: json or msgpack")
	session := flag.String("session", "", "Session id (default: server assigned)")
	healthOnly := flag.Bool("health", false, "Only check /health")
	flag.Parse()

	log.Init(os.Getenv("LOG_LEVEL"))
	logger := log.Component("probe")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var h health
	hctx, hcancel := context.WithTimeout(ctx, 5*time.Second)
	err := httpc.GetJSON(hctx, *baseURL+"/health", &h)
	hcancel()
	if err != nil {
		logger.Error("health check failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %s (%d sessions)\n", h.Service, h.Status, h.Sessions)
	if *healthOnly {
		return
	}

	codec, err := protocol.CodecFor(*encoding)
	if err != nil {
		logger.Error("bad encoding", "error", err)
		os.Exit(2)
	}

	wsURL, err := streamURL(*baseURL, *session, codec.Name())
	if err != nil {
		logger.Error("bad url", "error", err)
		os.Exit(2)
	}

	if err := probe(ctx, wsURL, codec, *frames); err != nil {
		logger.Error("stream failed", "error", err)
		os.Exit(1)
	}
}

// streamURL turns an http(s) base URL into the websocket stream URL.
func streamURL(base, session, encoding string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	if session != "" {
		u.Path += "/" + session
	}
	u.RawQuery = url.Values{"encoding": {encoding}}.Encode()
	return u.String(), nil
}

func probe(ctx context.Context, wsURL string, codec protocol.Codec, n int) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer ws.Close()

	go func() {
		<-ctx.Done()
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	}()

	start := time.Now()
	blinks := 0
	for i := 0; n == 0 || i < n; i++ {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		frame, err := codec.Decode(data)
		if err != nil {
			return err
		}
		if frame.Blink {
			blinks++
		}
		fmt.Printf("%4d body.y=%7.2f head=(%7.2f,%7.2f) eyes=(%7.2f,%7.2f) blink=%v\n",
			i, frame.Body.Y, frame.Head.X, frame.Head.Y, frame.Eyes.X, frame.Eyes.Y, frame.Blink)
	}

	elapsed := time.Since(start)
	fmt.Printf("%d frames in %s (%.1f fps, %d blinks)\n", n, elapsed.Round(time.Millisecond),
		float64(n)/elapsed.Seconds(), blinks)

	return ws.WriteMessage(websocket.TextMessage, []byte("close"))
}
