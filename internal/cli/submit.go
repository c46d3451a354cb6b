package cli

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"contact-form-guard/internal/feedback"
	"contact-form-guard/internal/formspree"
	"contact-form-guard/internal/security"
	"contact-form-guard/internal/signature"
)

// SubmitOptions submit 子命令参数
type SubmitOptions struct {
	Endpoint       string
	Fields         []string
	Timeout        time.Duration
	SubjectPrefix  string
	PlainSignature bool
}

// NewSubmitCommand 创建 submit 子命令
func NewSubmitCommand(root *RootOptions) *cobra.Command {
	opts := &SubmitOptions{}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "提交联系表单",
		Example: `  contactctl submit --endpoint https://formspree.io/f/abc \
    -f Name=Jane -f Email=jane@x.com -f "Message=Fortnightly clean please"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseFields(opts.Fields)
			if err != nil {
				return err
			}

			submissions, closeStore, err := openStore(root)
			if err != nil {
				return err
			}
			defer closeStore()

			var digester signature.Digester = signature.SHA256Digester{}
			if opts.PlainSignature {
				digester = nil
			}

			orchestrator := feedback.NewOrchestrator(feedback.Options{
				Endpoint:      opts.Endpoint,
				Hasher:        signature.NewHasher(digester),
				Gate:          security.NewDuplicateGate(submissions),
				Transport:     formspree.NewClient("contactctl"),
				Timeout:       opts.Timeout,
				SubjectPrefix: opts.SubjectPrefix,
			})

			sink := newConsoleSink(cmd.OutOrStdout(), cmd.ErrOrStderr(), root.Format)
			outcome := orchestrator.Submit(cmd.Context(), feedback.Attempt{FormID: "cli", Values: values}, sink)
			if !outcome.Success() {
				return fmt.Errorf("提交未成功: %s", outcome.Result)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "表单端点 URL（必填）")
	cmd.Flags().StringArrayVarP(&opts.Fields, "field", "f", nil, "表单字段，格式 Name=Value，可重复")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", feedback.DefaultTimeout, "上游请求超时")
	cmd.Flags().StringVar(&opts.SubjectPrefix, "subject-prefix", feedback.DefaultSubjectPrefix, "_subject 主题前缀")
	cmd.Flags().BoolVar(&opts.PlainSignature, "plain-signature", false, "以明文规范化字符串代替 SHA-256 摘要存储")
	_ = cmd.MarkFlagRequired("endpoint")

	return cmd
}

func parseFields(raw []string) (url.Values, error) {
	values := url.Values{}
	for _, item := range raw {
		name, value, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("无效字段 %q，格式应为 Name=Value", item)
		}
		values.Add(strings.TrimSpace(name), value)
	}
	return values, nil
}
