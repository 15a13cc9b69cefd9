// Command watch tails a topic's live feed and renders the merged word cloud
// in the terminal. It folds the seed snapshot and every delta batch the same
// way a browser client does.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shyamsaitejamandibi/votii/internal/domain"
	"github.com/Shyamsaitejamandibi/votii/internal/wordcloud"
	"github.com/gorilla/websocket"
)

func main() {
	serverURL := flag.String("server", "ws://localhost:8080", "server base URL")
	topic := flag.String("topic", "", "topic to watch (required)")
	top := flag.Int("top", 20, "number of words to display")
	interval := flag.Duration("interval", 2*time.Second, "render interval")
	flag.Parse()

	if *topic == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := domain.ValidateTopic(*topic); err != nil {
		log.Fatalf("invalid topic %q: %v", *topic, err)
	}

	url := *serverURL + "/ws/" + *topic
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", url, err)
	}
	defer conn.Close()

	cloud := wordcloud.New()
	updates := make(chan []domain.WordCount)

	go func() {
		defer close(updates)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var update domain.RoomUpdate
			if err := json.Unmarshal(msg, &update); err != nil {
				log.Printf("skipping malformed frame: %v", err)
				continue
			}
			updates <- update.Words
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	// The first frame is the snapshot, everything after is a delta batch.
	seeded := false
	for {
		select {
		case words, ok := <-updates:
			if !ok {
				fmt.Println("connection closed")
				return
			}
			if !seeded {
				cloud.Seed(words)
				seeded = true
			} else {
				cloud.Merge(words)
			}
		case <-ticker.C:
			render(cloud, *topic, *top)
		case <-sigCh:
			return
		}
	}
}

func render(cloud *wordcloud.Cloud, topic string, top int) {
	words := cloud.Words()
	if len(words) > top {
		words = words[:top]
	}

	fmt.Printf("\n=== %s (%d words tracked) ===\n", topic, cloud.Len())
	for _, w := range words {
		fmt.Printf("%6d  %s\n", w.Value, w.Text)
	}
}
