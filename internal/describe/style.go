package describe

import (
	"bytes"
	"fmt"
	"sort"
	"text/template"
)

// Style is a named prompt style: a system directive plus the phrase that
// tells the model which register to write in.
type Style struct {
	Name      string
	Directive string
	Flavor    string
}

const DefaultStyle = "pokedex"

var styles = map[string]Style{
	"pokedex": {
		Name:      "pokedex",
		Directive: "あなたはポケモン図鑑のスタイルで動物の説明を作成するAIアシスタントです。",
		Flavor:    "ポケモン図鑑風",
	},
	"encyclopedia": {
		Name:      "encyclopedia",
		Directive: "あなたは動物百科事典の編集者として、正確で簡潔な解説を書くAIアシスタントです。",
		Flavor:    "百科事典の項目のような客観的な文体",
	},
	"field-guide": {
		Name:      "field-guide",
		Directive: "あなたは野外観察図鑑の執筆者として、観察に役立つ動物の特徴を書くAIアシスタントです。",
		Flavor:    "野外観察図鑑風（見分け方・生息地・行動を中心に）",
	},
}

// LookupStyle returns the style registered under name. An empty name selects
// DefaultStyle.
func LookupStyle(name string) (Style, bool) {
	if name == "" {
		name = DefaultStyle
	}
	s, ok := styles[name]
	return s, ok
}

// StyleNames lists the registered style names in sorted order.
func StyleNames() []string {
	names := make([]string, 0, len(styles))
	for name := range styles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var userPromptTemplate = template.Must(template.New("user_prompt").Parse(
	`以下の動物の説明文を、{{.Flavor}}で作成してください。動物名は{{.Subject}}です。` +
		`{{if .StyleText}}
追加の指示: {{.StyleText}}{{end}}` +
		`{{if gt .MaxLength 0}}
{{.MaxLength}}文字以内で書いてください。{{end}}`))

type promptVars struct {
	Flavor    string
	Subject   string
	StyleText string
	MaxLength int
}

// UserPrompt renders the user message for req in style s.
func UserPrompt(s Style, req Request) (string, error) {
	var buf bytes.Buffer
	err := userPromptTemplate.Execute(&buf, promptVars{
		Flavor:    s.Flavor,
		Subject:   req.Subject,
		StyleText: req.StyleText,
		MaxLength: req.MaxLength,
	})
	if err != nil {
		return "", fmt.Errorf("render user prompt: %w", err)
	}
	return buf.String(), nil
}
