package internal

import (
	"bytes"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// ParsePrompt renders a prompt template. Sprig functions are available to
// templates, e.g. {{ join ", " .EntityTypes }}.
func ParsePrompt(promptTemplate string, data any) (string, error) {
	tmpl, err := template.New("prompt").Funcs(sprig.TxtFuncMap()).Parse(promptTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}
