package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	appcfg "github.com/park285/baseball-scorekeeper/internal/config"
	"github.com/park285/baseball-scorekeeper/internal/livews"
	"github.com/park285/baseball-scorekeeper/internal/statusapi"
	"github.com/park285/baseball-scorekeeper/pkg/scoreproto"
)

func main() {
	if err := appcfg.LoadEnvFile(); err != nil {
		log.Fatalf("env file error: %v", err)
	}
	wsURL := strings.TrimSpace(os.Getenv("SCORE_WS_URL"))
	statusURL := strings.TrimSpace(os.Getenv("STATUS_URL"))
	window := 10 * time.Second
	if v := strings.TrimSpace(os.Getenv("CHECK_WINDOW_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			window = time.Duration(n) * time.Second
		}
	}

	if statusURL != "" {
		probeStatus(statusURL)
	}

	if wsURL == "" {
		log.Println("SCORE_WS_URL not set; skipping WS check")
		return
	}

	ws := livews.NewWebSocket(wsURL, 0, time.Second)
	ws.OnStateChange(func(state livews.State) {
		log.Printf("WS state: %s", state)
	})
	ws.OnError(func(err error) {
		log.Printf("WS error: %v", err)
	})
	ws.OnMessage(func(data []byte) {
		msg, err := scoreproto.Decode(data)
		if err != nil {
			fmt.Printf("WS frame (undecodable: %v) %s\n", err, data)
			return
		}
		fmt.Printf("WS %s %s\n", msg.Kind(), data)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}

	// 서버가 현재 상태를 다시 보내도록 요청
	if err := ws.Send(cctx, scoreproto.NewScore()); err != nil {
		log.Printf("WS send SCORE error: %v", err)
	}

	t := time.NewTimer(window)
	<-t.C

	_ = ws.Close(context.Background())
}

func probeStatus(baseURL string) {
	client := statusapi.NewClient(baseURL, statusapi.WithTimeout(3*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Health(ctx); err != nil {
		log.Printf("status /healthz error: %v", err)
		return
	}
	st, err := client.State(ctx)
	if err != nil {
		log.Printf("status /state error: %v", err)
		return
	}
	log.Printf("status ok: session=%s phase=%s conn=%s inning=%s score=%d:%d pending=%d",
		st.SessionID, st.Phase, st.Connection, st.State.Inning, st.State.Away, st.State.Home, st.Pending)
	if h, err := client.History(ctx, 3); err == nil {
		for _, e := range h.Entries {
			log.Printf("  %s (%s)", e.Text, e.Score)
		}
	}
}
