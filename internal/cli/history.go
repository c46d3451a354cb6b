package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type historyEntry struct {
	Signature string    `json:"signature"`
	SentAt    time.Time `json:"sent_at"`
}

// NewHistoryCommand 列出去重窗口内的提交记录
func NewHistoryCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "列出去重窗口内的提交记录",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			submissions, closeStore, err := openStore(root)
			if err != nil {
				return err
			}
			defer closeStore()

			records := submissions.Recent(cmd.Context())
			entries := make([]historyEntry, 0, len(records))
			for _, record := range records {
				entries = append(entries, historyEntry{
					Signature: record.Signature,
					SentAt:    time.UnixMilli(record.Timestamp).UTC(),
				})
			}

			out := cmd.OutOrStdout()
			if root.Format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "暂无提交记录")
				return nil
			}
			for _, entry := range entries {
				fmt.Fprintf(out, "%s  %s\n", entry.SentAt.Format(time.RFC3339), entry.Signature)
			}
			return nil
		},
	}
}

// NewPurgeCommand 清空提交记录
func NewPurgeCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "清空全部提交记录",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			submissions, closeStore, err := openStore(root)
			if err != nil {
				return err
			}
			defer closeStore()

			submissions.Clear(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "提交记录已清空")
			return nil
		},
	}
}
