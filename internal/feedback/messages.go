package feedback

// Kind 状态提示类型，对应页面 alert-<kind> 样式
type Kind string

const (
	KindSuccess Kind = "success"
	KindDanger  Kind = "danger"
)

// 面向用户的提示文案
const (
	MessageHoneypot  = "Thanks!"
	MessageSent      = "Thanks! Your request has been sent. We’ll be in touch shortly."
	MessageDuplicate = "Looks like you already sent this recently. If you need to add details, please change something and try again."
	MessageRejected  = "Oops — there was a problem submitting the form."
	MessageTimeout   = "Taking too long to respond. Please try again in a moment or email us directly."
	MessageNetwork   = "Network error — please try again, or email us directly."
	MessageBusy      = "Your request is already being sent. Please wait a moment."
)

// Result 一次提交尝试的结局
type Result string

const (
	ResultSent      Result = "sent"
	ResultHoneypot  Result = "honeypot"
	ResultInvalid   Result = "invalid"
	ResultDuplicate Result = "duplicate"
	ResultBusy      Result = "busy"
	ResultRejected  Result = "rejected"
	ResultTimeout   Result = "timeout"
	ResultNetwork   Result = "network_error"
)

// Outcome 返回给调用方的提交结果
type Outcome struct {
	Result  Result
	Kind    Kind
	Message string
	// Status 上游 HTTP 状态码，未发出请求时为 0
	Status int
	Err    error
}

func (o Outcome) Success() bool {
	return o.Kind == KindSuccess
}

// StatusSink 状态提示与提交中状态的展示端
type StatusSink interface {
	Show(kind Kind, message string)
	SetSubmitting(on bool)
}

type discardSink struct{}

func (discardSink) Show(Kind, string)  {}
func (discardSink) SetSubmitting(bool) {}
