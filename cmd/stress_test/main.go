package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var phrases = []string{
	"%d avocados",
	"%d yogurts exp 2026-03-01",
	"bag of salad expires tomorrow",
	"milk in the fridge in %d days",
	"%d cans of beans in the pantry",
	"frozen peas in two weeks",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "pantry server base URL")
	totalRequests := flag.Int("n", 50, "number of commands to send")
	duplicates := flag.Bool("dup", false, "send every idempotency key twice")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}
	if resp, err := client.Get(*baseURL + "/health"); err != nil {
		log.Fatalf("server not reachable: %v", err)
	} else {
		resp.Body.Close()
	}

	// Counters
	var successCount atomic.Int32
	var duplicateCount atomic.Int32
	var failCount atomic.Int32

	// Spawn concurrent requests
	var wg sync.WaitGroup
	start := time.Now()

	keys := make([]string, *totalRequests)
	for i := range keys {
		if *duplicates && i%2 == 1 {
			keys[i] = keys[i-1]
			continue
		}
		keys[i] = uuid.NewString()
	}

	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			text := phrases[n%len(phrases)]
			if strings.Contains(text, "%d") {
				text = fmt.Sprintf(text, n%9+1)
			}

			status, err := sendCommand(client, *baseURL, text, keys[n])
			switch {
			case err != nil:
				failCount.Add(1)
			case status == http.StatusOK:
				successCount.Add(1)
			case status == http.StatusConflict:
				duplicateCount.Add(1)
			default:
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	dup := duplicateCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Duplicates:       %d\n", dup)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	wantSuccess := int32(*totalRequests)
	if *duplicates {
		wantSuccess = int32((*totalRequests + 1) / 2)
	}
	if success == wantSuccess && fail == 0 {
		fmt.Printf("PASS: %d commands applied\n", success)
	} else {
		fmt.Printf("FAIL: expected %d applied and 0 failed, got %d/%d\n", wantSuccess, success, fail)
	}
}

func sendCommand(client *http.Client, baseURL, text, key string) (int, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/pantry/command", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", key)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
