package signature

import (
	"net/url"
	"strings"
)

// Separator 规范化字段之间的分隔符
const Separator = "|"

// Field 参与签名的表单控件，Tag 为控件类型，Name 为 name 属性
type Field struct {
	Tag  string
	Name string
}

// Fields 参与签名的字段，顺序固定，不可调整
var Fields = []Field{
	{Tag: "input", Name: "Name"},
	{Tag: "input", Name: "Email"},
	{Tag: "input", Name: "Phone"},
	{Tag: "input", Name: "Suburb"},
	{Tag: "select", Name: "Property Type"},
	{Tag: "input", Name: "Size"},
	{Tag: "select", Name: "Service"},
	{Tag: "select", Name: "Frequency"},
	{Tag: "select", Name: "Preferred Day"},
	{Tag: "select", Name: "Preferred Time"},
	{Tag: "textarea", Name: "Message"},
}

// FormState 只读的表单状态
type FormState interface {
	Value(tag, name string) (string, bool)
}

// Values 按字段名取值的表单状态，忽略控件类型
type Values map[string]string

func (v Values) Value(_ string, name string) (string, bool) {
	value, ok := v[name]
	return value, ok
}

// URLValues 适配提交后的表单数据，控件类型在提交后已不可见
type URLValues url.Values

func (v URLValues) Value(_ string, name string) (string, bool) {
	values, ok := v[name]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// Canonical 生成提交内容的规范化字符串。
// 蜜罐与 _subject 等字段不在 Fields 中，不影响结果。
func Canonical(form FormState) string {
	parts := make([]string, 0, len(Fields))
	for _, field := range Fields {
		parts = append(parts, normalize(form, field))
	}
	return strings.Join(parts, Separator)
}

func normalize(form FormState, field Field) string {
	if form == nil {
		return ""
	}
	value, ok := form.Value(field.Tag, field.Name)
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(value))
}
