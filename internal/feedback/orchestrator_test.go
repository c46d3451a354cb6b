package feedback

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contact-form-guard/internal/formspree"
	"contact-form-guard/internal/security"
	"contact-form-guard/internal/signature"
	"contact-form-guard/internal/store"
)

type fakeTransport struct {
	mu       sync.Mutex
	requests []formspree.Request
	respond  func(ctx context.Context) (formspree.Response, error)
}

func (f *fakeTransport) Send(ctx context.Context, req formspree.Request) (formspree.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.respond == nil {
		return formspree.Response{OK: true, Status: http.StatusOK, Body: []byte(`{"ok":true}`)}, nil
	}
	return f.respond(ctx)
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type recordingSink struct {
	shown      []Kind
	messages   []string
	submitting []bool
}

func (s *recordingSink) Show(kind Kind, message string) {
	s.shown = append(s.shown, kind)
	s.messages = append(s.messages, message)
}

func (s *recordingSink) SetSubmitting(on bool) {
	s.submitting = append(s.submitting, on)
}

type harness struct {
	orchestrator *Orchestrator
	transport    *fakeTransport
	submissions  *store.SubmissionStore
	deferred     []func()
}

func newHarness(t *testing.T, digester signature.Digester) *harness {
	t.Helper()
	h := &harness{
		transport:   &fakeTransport{},
		submissions: store.NewSubmissionStore(store.NewMemoryKV()),
	}
	h.orchestrator = NewOrchestrator(Options{
		Endpoint:      "https://forms.example/f/abc",
		Hasher:        signature.NewHasher(digester),
		Gate:          security.NewDuplicateGate(h.submissions),
		Transport:     h.transport,
		Timeout:       50 * time.Millisecond,
		Cooldown:      DefaultCooldown,
		SubjectPrefix: DefaultSubjectPrefix,
	})
	h.orchestrator.afterFunc = func(_ time.Duration, f func()) {
		h.deferred = append(h.deferred, f)
	}
	return h
}

func (h *harness) flushCooldown() {
	for _, f := range h.deferred {
		f()
	}
	h.deferred = nil
}

func janeForm() url.Values {
	return url.Values{"Name": {"Jane"}, "Email": {"jane@x.com"}, "_subject": {""}, "_gotcha": {""}}
}

func TestSubmitThenDuplicateThenChangedEmail(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, signature.SHA256Digester{})

	sink := &recordingSink{}
	outcome := h.orchestrator.Submit(ctx, Attempt{FormID: "tab-1", Values: janeForm()}, sink)
	require.Equal(t, ResultSent, outcome.Result)
	assert.Equal(t, MessageSent, outcome.Message)
	assert.Len(t, h.submissions.Load(ctx), 1)
	assert.Equal(t, []bool{true}, sink.submitting)

	h.flushCooldown()
	assert.Equal(t, []bool{true, false}, sink.submitting)

	sink = &recordingSink{}
	outcome = h.orchestrator.Submit(ctx, Attempt{FormID: "tab-1", Values: janeForm()}, sink)
	assert.Equal(t, ResultDuplicate, outcome.Result)
	assert.Equal(t, []string{MessageDuplicate}, sink.messages)
	assert.Empty(t, sink.submitting)
	assert.Equal(t, 1, h.transport.calls())

	changed := janeForm()
	changed.Set("Email", "jane2@x.com")
	outcome = h.orchestrator.Submit(ctx, Attempt{FormID: "tab-1", Values: changed}, nil)
	assert.Equal(t, ResultSent, outcome.Result)
	assert.Equal(t, 2, h.transport.calls())
}

func TestDuplicateDetectedAcrossFormInstances(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, signature.SHA256Digester{})

	require.True(t, h.orchestrator.Submit(ctx, Attempt{FormID: "tab-1", Values: janeForm()}, nil).Success())

	outcome := h.orchestrator.Submit(ctx, Attempt{FormID: "tab-2", Values: janeForm()}, nil)
	assert.Equal(t, ResultDuplicate, outcome.Result)
}

func TestSubmitPersonalisesSubject(t *testing.T) {
	h := newHarness(t, signature.SHA256Digester{})
	values := janeForm()

	h.orchestrator.Submit(context.Background(), Attempt{Values: values}, nil)

	require.Len(t, h.transport.requests, 1)
	sent := h.transport.requests[0]
	assert.Equal(t, "New BeautyClean enquiry from Jane", sent.Fields.Get("_subject"))
	assert.Equal(t, "application/json", sent.Headers["Accept"])
	assert.Equal(t, http.MethodPost, sent.Method)
	assert.Equal(t, "", values.Get("_subject"))
}

func TestDigestUnavailableStoresPlainSignature(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	require.True(t, h.orchestrator.Submit(ctx, Attempt{Values: janeForm()}, nil).Success())
	h.flushCooldown()

	records := h.submissions.Load(ctx)
	require.Len(t, records, 1)
	assert.Equal(t, signature.Canonical(signature.URLValues(janeForm())), records[0].Signature)

	outcome := h.orchestrator.Submit(ctx, Attempt{Values: janeForm()}, nil)
	assert.Equal(t, ResultDuplicate, outcome.Result)
}

func TestTimeoutSurfacesDistinctMessageAndStoresNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, signature.SHA256Digester{})
	h.transport.respond = func(ctx context.Context) (formspree.Response, error) {
		<-ctx.Done()
		return formspree.Response{}, ctx.Err()
	}

	sink := &recordingSink{}
	outcome := h.orchestrator.Submit(ctx, Attempt{FormID: "tab-1", Values: janeForm()}, sink)

	assert.Equal(t, ResultTimeout, outcome.Result)
	assert.Equal(t, MessageTimeout, outcome.Message)
	assert.Equal(t, []bool{true, false}, sink.submitting)
	assert.Empty(t, h.submissions.Load(ctx))
	assert.False(t, h.orchestrator.Busy("tab-1"))
}

func TestNetworkErrorAllowsImmediateRetry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, signature.SHA256Digester{})
	h.transport.respond = func(context.Context) (formspree.Response, error) {
		return formspree.Response{}, errors.New("connection refused")
	}

	outcome := h.orchestrator.Submit(ctx, Attempt{FormID: "tab-1", Values: janeForm()}, nil)
	assert.Equal(t, ResultNetwork, outcome.Result)
	assert.Equal(t, MessageNetwork, outcome.Message)

	h.transport.respond = nil
	outcome = h.orchestrator.Submit(ctx, Attempt{FormID: "tab-1", Values: janeForm()}, nil)
	assert.Equal(t, ResultSent, outcome.Result)
}

func TestRejectionUsesUpstreamErrors(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, signature.SHA256Digester{})
	h.transport.respond = func(context.Context) (formspree.Response, error) {
		return formspree.Response{
			Status: http.StatusUnprocessableEntity,
			Body:   []byte(`{"errors":[{"message":"should be an email"},{"message":"form disabled"}]}`),
		}, nil
	}

	outcome := h.orchestrator.Submit(ctx, Attempt{Values: janeForm()}, nil)

	assert.Equal(t, ResultRejected, outcome.Result)
	assert.Equal(t, "should be an email, form disabled", outcome.Message)
	assert.Equal(t, http.StatusUnprocessableEntity, outcome.Status)
	assert.Empty(t, h.submissions.Load(ctx))
}

func TestRejectionFallsBackToGenericMessage(t *testing.T) {
	h := newHarness(t, signature.SHA256Digester{})
	h.transport.respond = func(context.Context) (formspree.Response, error) {
		return formspree.Response{Status: http.StatusInternalServerError, Body: []byte("oops")}, nil
	}

	outcome := h.orchestrator.Submit(context.Background(), Attempt{Values: janeForm()}, nil)

	assert.Equal(t, MessageRejected, outcome.Message)
}

func TestHoneypotReportsSuccessWithoutSending(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, signature.SHA256Digester{})
	values := janeForm()
	values.Set("_gotcha", "http://spam.example")

	outcome := h.orchestrator.Submit(ctx, Attempt{Values: values}, nil)

	assert.Equal(t, ResultHoneypot, outcome.Result)
	assert.Equal(t, MessageHoneypot, outcome.Message)
	assert.True(t, outcome.Success())
	assert.Zero(t, h.transport.calls())
	assert.Empty(t, h.submissions.Load(ctx))
}

func TestValidationFailureStopsEarly(t *testing.T) {
	h := newHarness(t, signature.SHA256Digester{})

	outcome := h.orchestrator.Submit(context.Background(), Attempt{Values: url.Values{"Name": {"Jane"}}}, nil)

	assert.Equal(t, ResultInvalid, outcome.Result)
	assert.ErrorIs(t, outcome.Err, ErrValidation)
	assert.Zero(t, h.transport.calls())
}

func TestCooldownKeepsFormBusy(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, signature.SHA256Digester{})

	require.True(t, h.orchestrator.Submit(ctx, Attempt{FormID: "tab-1", Values: janeForm()}, nil).Success())
	assert.True(t, h.orchestrator.Busy("tab-1"))

	other := janeForm()
	other.Set("Message", "one more thing")
	outcome := h.orchestrator.Submit(ctx, Attempt{FormID: "tab-1", Values: other}, nil)
	assert.Equal(t, ResultBusy, outcome.Result)

	h.flushCooldown()
	assert.False(t, h.orchestrator.Busy("tab-1"))
	outcome = h.orchestrator.Submit(ctx, Attempt{FormID: "tab-1", Values: other}, nil)
	assert.Equal(t, ResultSent, outcome.Result)
}

func TestFieldValidator(t *testing.T) {
	v := NewFieldValidator()

	assert.NoError(t, v.Validate(janeForm()))

	var verr *ValidationError
	require.ErrorAs(t, v.Validate(url.Values{"Email": {"jane@x.com"}}), &verr)
	assert.Equal(t, "Name", verr.Field)

	require.ErrorAs(t, v.Validate(url.Values{"Name": {"Jane"}, "Email": {"not-an-email"}}), &verr)
	assert.Equal(t, "Email", verr.Field)
}

func TestRenderSubject(t *testing.T) {
	assert.Equal(t, "New BeautyClean enquiry from Website visitor", renderSubject(DefaultSubjectPrefix, url.Values{"Name": {"  "}}))
	assert.Equal(t, "Jane", renderSubject("", url.Values{"Name": {" Jane "}}))
}

// contextAwareKV 与 SQLite/Redis 一样，在 context 已取消时拒绝写入
type contextAwareKV struct {
	*store.MemoryKV
}

func (k contextAwareKV) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return k.MemoryKV.Set(ctx, key, value)
}

func TestAcceptedSubmissionRememberedAfterClientDisconnect(t *testing.T) {
	submissions := store.NewSubmissionStore(contextAwareKV{MemoryKV: store.NewMemoryKV()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport := &fakeTransport{respond: func(context.Context) (formspree.Response, error) {
		cancel()
		return formspree.Response{OK: true, Status: http.StatusOK}, nil
	}}
	orchestrator := NewOrchestrator(Options{
		Gate:      security.NewDuplicateGate(submissions),
		Transport: transport,
	})

	outcome := orchestrator.Submit(ctx, Attempt{Values: janeForm()}, nil)

	require.Equal(t, ResultSent, outcome.Result)
	assert.Len(t, submissions.Load(context.Background()), 1)
	assert.Equal(t, ResultDuplicate, orchestrator.Submit(context.Background(), Attempt{FormID: "other", Values: janeForm()}, nil).Result)
}

func TestNewOrchestratorDefaultsTransport(t *testing.T) {
	orchestrator := NewOrchestrator(Options{})

	assert.NotNil(t, orchestrator.opts.Transport)
	assert.NotPanics(t, func() {
		outcome := orchestrator.Submit(context.Background(), Attempt{Values: janeForm()}, nil)
		assert.NotEqual(t, ResultSent, outcome.Result)
	})
}
