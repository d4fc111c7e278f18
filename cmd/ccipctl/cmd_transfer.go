package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"CCIP-Bridge/sdk/go/ccip"
)

func init() {
	var (
		req        ccip.TransferRequest
		feeToken   string
		gasLimit   uint64
		outOfOrder bool
		watch      bool
	)
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a cross-chain token transfer",
		Example: "  ccipctl submit --from solana-devnet --to ethereum-sepolia \\\n" +
			"    --token BnM --amount 10000000 --receiver 0x9d087fC03ae39b088326b67fA3C788236645b717 --watch",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(); err != nil {
				return err
			}
			opts := &ccip.TransferOptions{FeeToken: feeToken}
			if cmd.Flags().Changed("gas-limit") {
				opts.GasLimit = &gasLimit
			}
			if cmd.Flags().Changed("out-of-order") {
				opts.AllowOutOfOrderExecution = &outOfOrder
			}
			if *opts != (ccip.TransferOptions{}) {
				req.Options = opts
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			res, err := client.SubmitTransfer(cmd.Context(), req)
			if err != nil {
				var apiErr *ccip.APIError
				if errors.As(err, &apiErr) && apiErr.TransferID != "" {
					return fmt.Errorf("transfer %s was registered but not dispatched: %w", apiErr.TransferID, err)
				}
				return err
			}
			out := cmd.OutOrStdout()
			if !watch {
				if flagOutput == "json" {
					return printJSON(out, res)
				}
				fmt.Fprintf(out, "transfer %s accepted (%s)\n", res.CorrelationID, res.Status)
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "transfer %s accepted, watching...\n", res.CorrelationID)
			return watchTransfer(cmd, client, res.CorrelationID)
		},
	}
	f := submitCmd.Flags()
	f.StringVar(&req.SourceChain, "from", "solana-devnet", "Source chain key or alias")
	f.StringVar(&req.DestinationChain, "to", "", "Destination chain key or alias")
	f.StringVar(&req.TokenIdentifier, "token", "", "Token symbol or mint address")
	f.StringVar(&req.Amount, "amount", "", "Amount in the token's smallest unit")
	f.StringVar(&req.ReceiverAddress, "receiver", "", "EVM receiver address (server default when empty)")
	f.StringVar(&feeToken, "fee-token", "", "Fee token: native|link")
	f.Uint64Var(&gasLimit, "gas-limit", 0, "Destination gas limit")
	f.BoolVar(&outOfOrder, "out-of-order", false, "Allow out-of-order execution")
	f.BoolVar(&watch, "watch", false, "Poll until the transfer reaches a final status")
	_ = submitCmd.MarkFlagRequired("to")
	_ = submitCmd.MarkFlagRequired("token")
	_ = submitCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(submitCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "status <transfer-id>",
		Short: "Show the current status of a transfer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(); err != nil {
				return err
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			t, err := client.GetTransfer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if flagOutput == "json" {
				return printJSON(cmd.OutOrStdout(), t)
			}
			printTransfer(cmd.OutOrStdout(), t)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "watch <transfer-id>",
		Short: "Poll a transfer until it succeeds, fails or times out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(); err != nil {
				return err
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			return watchTransfer(cmd, client, args[0])
		},
	})

	var (
		listStatus string
		listLimit  int
		listOffset int
		listQuery  string
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent transfers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(); err != nil {
				return err
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			q := ccip.ListQuery{Limit: listLimit, Offset: listOffset, Query: listQuery}
			for _, s := range strings.Split(listStatus, ",") {
				if s = strings.TrimSpace(s); s != "" {
					q.Statuses = append(q.Statuses, ccip.Status(s))
				}
			}
			page, err := client.ListTransfers(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if flagOutput == "json" {
				return printJSON(out, page)
			}
			for i := range page.Transfers {
				t := &page.Transfers[i]
				fmt.Fprintf(out, "%-40s %-10s %s\n", t.ID, t.Status, t.Route)
			}
			s := page.Stats
			fmt.Fprintf(out, "total=%d pending=%d processing=%d success=%d error=%d timeout=%d\n",
				s.Total, s.Pending, s.Processing, s.Success, s.Error, s.Timeout)
			return nil
		},
	}
	listCmd.Flags().StringVar(&listStatus, "status", "", "Comma-separated statuses to include")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of transfers")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "Number of transfers to skip")
	listCmd.Flags().StringVar(&listQuery, "query", "", "Substring match on id, message or signature")
	rootCmd.AddCommand(listCmd)
}

// watchTransfer prints every observed change and returns an error unless the
// transfer ends in success.
func watchTransfer(cmd *cobra.Command, client *ccip.Client, id string) error {
	cfg, err := loadCfg()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	poller := newPoller(client, cfg)
	final, err := poller.Watch(cmd.Context(), id, func(u ccip.Update) {
		if flagOutput == "json" {
			_ = printJSON(out, u)
			return
		}
		fmt.Fprintf(out, "[%s] #%d %s %s\n", time.Now().Format(time.TimeOnly), u.Attempt, u.Status, u.Message)
	})
	if err != nil {
		return err
	}
	if flagOutput != "json" && final.Transfer != nil {
		printTransfer(out, final.Transfer)
	}
	if final.Status != ccip.StatusSuccess {
		return fmt.Errorf("transfer %s ended with status %s", id, final.Status)
	}
	return nil
}

func printTransfer(w io.Writer, t *ccip.Transfer) {
	fmt.Fprintf(w, "ID:         %s\n", t.ID)
	fmt.Fprintf(w, "Status:     %s\n", t.Status)
	if t.Message != "" {
		fmt.Fprintf(w, "Message:    %s\n", t.Message)
	}
	if t.Route != "" {
		fmt.Fprintf(w, "Route:      %s\n", t.Route)
	}
	if t.TxSignature != "" {
		fmt.Fprintf(w, "Signature:  %s\n", t.TxSignature)
	}
	if t.OnChainMessageID != "" {
		fmt.Fprintf(w, "Message ID: %s\n", t.OnChainMessageID)
	}
	if t.ExplorerURL != "" {
		fmt.Fprintf(w, "Explorer:   %s\n", t.ExplorerURL)
	}
	if t.ErrorCode != "" {
		fmt.Fprintf(w, "Error code: %s\n", t.ErrorCode)
	}
	fmt.Fprintf(w, "Updated:    %s\n", time.UnixMilli(t.UpdatedAt).Format(time.RFC3339))
}
