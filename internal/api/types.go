package api

import (
	"net/http"

	"contact-form-guard/internal/feedback"
)

// ContactResponse 提交结果，页面据此渲染 alert-<kind> 提示
type ContactResponse struct {
	Success   bool   `json:"success"`
	Result    string `json:"result"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

func newContactResponse(outcome feedback.Outcome, requestID string) ContactResponse {
	return ContactResponse{
		Success:   outcome.Success(),
		Result:    string(outcome.Result),
		Kind:      string(outcome.Kind),
		Message:   outcome.Message,
		RequestID: requestID,
	}
}

// statusCode 提交结果到 HTTP 状态码的映射
func statusCode(result feedback.Result) int {
	switch result {
	case feedback.ResultSent, feedback.ResultHoneypot:
		return http.StatusOK
	case feedback.ResultInvalid:
		return http.StatusBadRequest
	case feedback.ResultDuplicate:
		return http.StatusConflict
	case feedback.ResultBusy:
		return http.StatusTooManyRequests
	case feedback.ResultTimeout:
		return http.StatusGatewayTimeout
	case feedback.ResultRejected, feedback.ResultNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
