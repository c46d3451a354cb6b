package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"contact-form-guard/internal/config"
	"contact-form-guard/internal/store"
)

// RootOptions 全局参数
type RootOptions struct {
	DataDir string
	Backend string
	Key     string
	Format  string // "json" | "text"
}

// ValidFormats 支持的输出格式
var ValidFormats = []string{"text", "json"}

// NewRootCommand 创建 contactctl 根命令
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "contactctl",
		Short:         "提交联系表单，24 小时内拦截重复提交",
		Long:          "把联系表单投递到托管表单端点；同一内容 24 小时内重复提交会被拦截。",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("无效的输出格式 %q，可选: %v", opts.Format, ValidFormats)
			}
			if opts.Backend != config.BackendFile && opts.Backend != config.BackendSQLite {
				return fmt.Errorf("无效的存储后端 %q，可选: %s 或 %s", opts.Backend, config.BackendFile, config.BackendSQLite)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", defaultDataDir(), "本地提交记录目录")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", config.BackendFile, "存储后端 (file|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.Key, "key", store.DefaultKey, "提交记录的存储键")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "输出格式 (json|text)")

	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewPurgeCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".contactctl"
	}
	return filepath.Join(dir, "contactctl")
}

// openStore 打开本机所有 contactctl 进程共享的提交记录
func openStore(opts *RootOptions) (*store.SubmissionStore, func() error, error) {
	noop := func() error { return nil }

	switch opts.Backend {
	case config.BackendSQLite:
		if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
			return nil, noop, fmt.Errorf("创建数据目录失败: %w", err)
		}
		kv, err := store.OpenSQLiteKV(filepath.Join(opts.DataDir, "submissions.db"))
		if err != nil {
			return nil, noop, err
		}
		return store.NewSubmissionStore(kv, store.WithKey(opts.Key)), kv.Close, nil
	default:
		kv, err := store.NewFileKV(opts.DataDir)
		if err != nil {
			return nil, noop, err
		}
		return store.NewSubmissionStore(kv, store.WithKey(opts.Key)), noop, nil
	}
}
