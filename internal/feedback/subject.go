package feedback

import (
	"net/url"
	"strings"
)

const (
	honeypotField = "_gotcha"
	subjectField  = "_subject"
	anonymousName = "Website visitor"
)

func renderSubject(prefix string, values url.Values) string {
	person := strings.TrimSpace(values.Get("Name"))
	if person == "" {
		person = anonymousName
	}
	if prefix == "" {
		return person
	}
	return prefix + " " + person
}

func honeypotFilled(values url.Values) bool {
	return values.Get(honeypotField) != ""
}

// outboundFields 复制表单并写入个性化主题，不修改调用方的数据
func outboundFields(prefix string, values url.Values) url.Values {
	payload := make(url.Values, len(values)+1)
	for key, items := range values {
		payload[key] = append([]string(nil), items...)
	}
	payload.Set(subjectField, renderSubject(prefix, values))
	return payload
}
