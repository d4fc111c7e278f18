package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"CCIP-Bridge/sdk/go/ccip"
)

func main() {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/transfers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(ccip.SubmitResult{
			CorrelationID: "transfer_1712345678901_abcdef123",
			Status:        ccip.StatusProcessing,
		})
	})
	mux.HandleFunc("/api/v1/transfers/transfer_1712345678901_abcdef123", func(w http.ResponseWriter, r *http.Request) {
		transfer := ccip.Transfer{ID: "transfer_1712345678901_abcdef123", Status: ccip.StatusProcessing, Message: "transfer submitted"}
		if polls.Add(1) >= 3 {
			transfer.Status = ccip.StatusSuccess
			transfer.Message = "transfer confirmed"
			transfer.ExplorerURL = "https://ccip.chain.link/msg/0x9f2c"
		}
		_ = json.NewEncoder(w).Encode(transfer)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := ccip.NewClient(srv.URL, srv.Client())
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := client.SubmitTransfer(ctx, ccip.TransferRequest{
		SourceChain:      "Solana Devnet",
		DestinationChain: "Ethereum Sepolia",
		TokenIdentifier:  "BnM",
		Amount:           "10000000",
		ReceiverAddress:  "0x4aEeE376E7b9F0fAb9883382Bd5f9c8D22764ABb",
	})
	if err != nil {
		panic(err)
	}
	fmt.Printf("submitted transfer %s (status=%s)\n", result.CorrelationID, result.Status)

	poller := ccip.NewPoller(client, ccip.PollerConfig{Interval: 100 * time.Millisecond, MaxAttempts: 10, InitialDelay: -1})
	final, err := poller.Watch(ctx, result.CorrelationID, func(u ccip.Update) {
		fmt.Printf("attempt %d: %s %s\n", u.Attempt, u.Status, u.Message)
	})
	if err != nil {
		panic(err)
	}
	fmt.Printf("transfer %s finished as %s\n", final.TransferID, final.Status)
	if final.Transfer != nil && final.Transfer.ExplorerURL != "" {
		fmt.Printf("explorer: %s\n", final.Transfer.ExplorerURL)
	}
}
