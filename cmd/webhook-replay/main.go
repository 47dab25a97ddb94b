// webhook-replay fires concurrent duplicate confirm webhooks at a running
// server for one transaction id. The gateway delivers at-least-once, so a
// correct server answers every duplicate with success while committing the
// completion exactly once; this tool makes that observable in a live
// environment.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const defaultDeliveries = 20

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <tx_id> [server_url]", os.Args[0])
	}
	txID := os.Args[1]

	serverURL := "http://localhost:8080"
	if len(os.Args) > 2 {
		serverURL = os.Args[2]
	}

	body, _ := json.Marshal(map[string]string{
		"tx_id":  txID,
		"status": "paid",
	})

	client := &http.Client{Timeout: 10 * time.Second}

	var okCount atomic.Int32
	var dupCount atomic.Int32
	var failCount atomic.Int32
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < defaultDeliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			resp, err := client.Post(serverURL+"/payments/confirm", "application/json", bytes.NewReader(body))
			if err != nil {
				failCount.Add(1)
				return
			}
			defer resp.Body.Close()

			var out struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || !out.Success {
				failCount.Add(1)
				return
			}
			if out.Message == "already processed" {
				dupCount.Add(1)
			} else {
				okCount.Add(1)
			}
		}()
	}
	wg.Wait()

	fmt.Printf("deliveries: %d in %v\n", defaultDeliveries, time.Since(start))
	fmt.Printf("committed:  %d\n", okCount.Load())
	fmt.Printf("duplicates: %d\n", dupCount.Load())
	fmt.Printf("failures:   %d\n", failCount.Load())

	if okCount.Load() > 1 {
		fmt.Println("WARNING: completion committed more than once")
	}
}
