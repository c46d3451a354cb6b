package feedback

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"contact-form-guard/internal/formspree"
	"contact-form-guard/internal/security"
	"contact-form-guard/internal/signature"
)

const (
	DefaultTimeout       = 15 * time.Second
	DefaultCooldown      = 4 * time.Second
	DefaultSubjectPrefix = "New BeautyClean enquiry from"
)

// Transport 表单投递通道
type Transport interface {
	Send(ctx context.Context, req formspree.Request) (formspree.Response, error)
}

// Options 编排器依赖
type Options struct {
	Endpoint      string
	Validator     Validator
	Hasher        *signature.Hasher
	Gate          *security.DuplicateGate
	Transport     Transport
	Timeout       time.Duration
	Cooldown      time.Duration
	SubjectPrefix string
}

// Attempt 一次提交尝试。FormID 标识表单实例，同一实例同时只允许一个提交在途。
type Attempt struct {
	FormID string
	Values url.Values
}

// Orchestrator 串联校验、蜜罐、签名、去重、投递与状态反馈。
// 每次尝试严格按顺序执行，签名只在上游确认成功后写入。
type Orchestrator struct {
	opts      Options
	mu        sync.Mutex
	inFlight  map[string]struct{}
	afterFunc func(time.Duration, func())
}

func NewOrchestrator(opts Options) *Orchestrator {
	if opts.Validator == nil {
		opts.Validator = NewFieldValidator()
	}
	if opts.Hasher == nil {
		opts.Hasher = signature.NewHasher(signature.SHA256Digester{})
	}
	if opts.Transport == nil {
		opts.Transport = formspree.NewClient("")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Cooldown < 0 {
		opts.Cooldown = 0
	}

	return &Orchestrator{
		opts:     opts,
		inFlight: make(map[string]struct{}),
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// Submit 执行一次提交尝试，结果同时推送到 sink 并返回
func (o *Orchestrator) Submit(ctx context.Context, attempt Attempt, sink StatusSink) Outcome {
	if sink == nil {
		sink = discardSink{}
	}
	values := attempt.Values
	if values == nil {
		values = url.Values{}
	}

	if !o.acquire(attempt.FormID) {
		return report(sink, Outcome{Result: ResultBusy, Kind: KindDanger, Message: MessageBusy})
	}
	submitting := false
	cooldown := time.Duration(0)
	defer func() {
		o.release(attempt.FormID, sink, submitting, cooldown)
	}()

	if err := o.opts.Validator.Validate(values); err != nil {
		return report(sink, Outcome{Result: ResultInvalid, Kind: KindDanger, Message: err.Error(), Err: err})
	}

	if honeypotFilled(values) {
		return report(sink, Outcome{Result: ResultHoneypot, Kind: KindSuccess, Message: MessageHoneypot})
	}

	sig := o.opts.Hasher.Sign(signature.URLValues(values))
	if o.opts.Gate.CheckAndDecide(ctx, sig) == security.Duplicate {
		return report(sink, Outcome{Result: ResultDuplicate, Kind: KindDanger, Message: MessageDuplicate})
	}

	submitting = true
	sink.SetSubmitting(true)

	sendCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	resp, err := o.opts.Transport.Send(sendCtx, formspree.Request{
		URL:     o.opts.Endpoint,
		Method:  http.MethodPost,
		Fields:  outboundFields(o.opts.SubjectPrefix, values),
		Headers: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		if formspree.IsTimeout(err) || errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
			return report(sink, Outcome{Result: ResultTimeout, Kind: KindDanger, Message: MessageTimeout, Err: err})
		}
		return report(sink, Outcome{Result: ResultNetwork, Kind: KindDanger, Message: MessageNetwork, Err: err})
	}

	if !resp.OK {
		message := formspree.ErrorMessage(resp.Body)
		if message == "" {
			message = MessageRejected
		}
		return report(sink, Outcome{Result: ResultRejected, Kind: KindDanger, Message: message, Status: resp.Status})
	}

	// 上游已受理，客户端断开也必须记录签名
	o.opts.Gate.ConfirmSuccess(context.WithoutCancel(ctx), sig)
	cooldown = o.opts.Cooldown
	return report(sink, Outcome{Result: ResultSent, Kind: KindSuccess, Message: MessageSent, Status: resp.Status})
}

// Busy 报告表单实例是否有提交在途或处于冷却期
func (o *Orchestrator) Busy(formID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	_, busy := o.inFlight[formID]
	return busy
}

func (o *Orchestrator) acquire(formID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, busy := o.inFlight[formID]; busy {
		return false
	}
	o.inFlight[formID] = struct{}{}
	return true
}

// release 成功后保持占用一段冷却期，防止立即重复点击
func (o *Orchestrator) release(formID string, sink StatusSink, submitting bool, after time.Duration) {
	done := func() {
		o.mu.Lock()
		delete(o.inFlight, formID)
		o.mu.Unlock()
		if submitting {
			sink.SetSubmitting(false)
		}
	}
	if after <= 0 {
		done()
		return
	}
	o.afterFunc(after, done)
}

func report(sink StatusSink, outcome Outcome) Outcome {
	sink.Show(outcome.Kind, outcome.Message)
	return outcome
}
