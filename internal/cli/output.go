package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"contact-form-guard/internal/feedback"
)

// consoleSink 在终端输出状态提示
type consoleSink struct {
	out    io.Writer
	errOut io.Writer
	format string
}

func newConsoleSink(out, errOut io.Writer, format string) *consoleSink {
	return &consoleSink{out: out, errOut: errOut, format: format}
}

func (s *consoleSink) Show(kind feedback.Kind, message string) {
	if s.format == "json" {
		_ = json.NewEncoder(s.out).Encode(map[string]string{"kind": string(kind), "message": message})
		return
	}
	fmt.Fprintf(s.out, "[%s] %s\n", kind, message)
}

func (s *consoleSink) SetSubmitting(on bool) {
	if on && s.format != "json" {
		fmt.Fprintln(s.errOut, "Sending...")
	}
}
