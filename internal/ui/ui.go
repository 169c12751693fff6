// Package ui renders the small presentational pieces shared by every screen.
// Each component is a props struct whose zero value is usable; Render fills
// in defaults and returns escaped HTML.
package ui

import (
	"bytes"
	"html/template"
	"math"
	"strconv"
)

var tmpl = template.Must(template.New("ui").Parse(`
{{define "button"}}{{if .Href}}<a class="btn btn-{{.Variant}}{{if .FullWidth}} btn-block{{end}}{{if .Disabled}} is-disabled{{end}}" {{if .Disabled}}aria-disabled="true"{{else}}href="{{.Href}}"{{end}}>{{.Label}}</a>{{else}}<button type="{{.Type}}" class="btn btn-{{.Variant}}{{if .FullWidth}} btn-block{{end}}"{{if .Name}} name="{{.Name}}" value="{{.Value}}"{{end}}{{if .Disabled}} disabled{{end}}>{{.Label}}</button>{{end}}{{end}}
{{define "card"}}{{if .Href}}<a class="card card-link{{if .Selected}} is-selected{{end}}" href="{{.Href}}">{{.Body}}</a>{{else}}<div class="card{{if .Selected}} is-selected{{end}}">{{.Body}}</div>{{end}}{{end}}
{{define "progress"}}<div class="progress" role="progressbar" aria-valuemin="0" aria-valuemax="100" aria-valuenow="{{.Percent}}"><div class="progress-fill" style="width: {{.Width}}"></div></div>{{end}}
{{define "audio"}}<button type="button" class="audio-btn{{if .Speaking}} is-speaking{{end}}" data-speak="{{.Text}}" data-lang="{{.Lang}}" data-rate="{{.Rate}}" aria-label="Play audio">{{if .Speaking}}🔊{{else}}▶️{{end}}</button>{{end}}
{{define "avatar"}}<div class="avatar{{if .Speaking}} is-speaking{{end}}" style="font-size: {{.Size}}px">{{.Emoji}}</div>{{end}}
{{define "feedback"}}<div class="feedback feedback-{{.Kind}}" role="status">{{.Icon}} {{.Message}}</div>{{end}}
`))

func render(name string, data any) template.HTML {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return template.HTML("<!-- " + template.HTMLEscapeString(err.Error()) + " -->")
	}
	return template.HTML(buf.String())
}

// Button variants.
const (
	Primary   = "primary"
	Secondary = "secondary"
	Success   = "success"
	Warning   = "warning"
)

// Button renders a <button>, or an <a> when Href is set. Variant defaults to
// primary; unknown variants fall back to primary.
type Button struct {
	Label     string
	Variant   string
	Disabled  bool
	FullWidth bool
	Href      string
	Name      string
	Value     string
	Type      string
}

func (b Button) Render() template.HTML {
	switch b.Variant {
	case Primary, Secondary, Success, Warning:
	default:
		b.Variant = Primary
	}
	if b.Type == "" {
		b.Type = "submit"
	}
	return render("button", b)
}

// Card is a bordered container. Body is trusted markup.
type Card struct {
	Body     template.HTML
	Selected bool
	Href     string
}

func (c Card) Render() template.HTML { return render("card", c) }

// ProgressBar shows Percent, clamped to 0..100.
type ProgressBar struct {
	Percent float64
}

// Clamped returns the percentage actually drawn.
func (p ProgressBar) Clamped() float64 {
	if math.IsNaN(p.Percent) {
		return 0
	}
	return math.Max(0, math.Min(100, p.Percent))
}

func (p ProgressBar) Render() template.HTML {
	pct := p.Clamped()
	return render("progress", struct {
		Percent string
		Width   template.CSS
	}{
		Percent: strconv.FormatFloat(pct, 'f', -1, 64),
		Width:   template.CSS(strconv.FormatFloat(pct, 'f', -1, 64) + "%"),
	})
}

// AudioButton plays Text through the browser's speech engine.
type AudioButton struct {
	Text     string
	Lang     string
	Rate     float64
	Speaking bool
}

func (a AudioButton) Render() template.HTML {
	if a.Lang == "" {
		a.Lang = "es-ES"
	}
	if a.Rate <= 0 {
		a.Rate = 0.8
	}
	return render("audio", a)
}

// Avatar shows the tutor.
type Avatar struct {
	Emoji    string
	Size     int
	Speaking bool
}

func (a Avatar) Render() template.HTML {
	if a.Emoji == "" {
		a.Emoji = "👩🏽‍🏫"
	}
	if a.Size <= 0 {
		a.Size = 64
	}
	return render("avatar", a)
}

// Feedback is a success or error banner.
type Feedback struct {
	Kind    string
	Message string
}

func (f Feedback) Render() template.HTML {
	data := struct {
		Kind, Icon, Message string
	}{Kind: "success", Icon: "✅", Message: f.Message}
	if f.Kind == "error" {
		data.Kind, data.Icon = "error", "❌"
	}
	return render("feedback", data)
}

// FuncMap exposes the components to page templates, e.g.
// {{ button "Start Day 1" "primary" "/day/1" }}.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"button": func(label, variant, href string) template.HTML {
			return Button{Label: label, Variant: variant, Href: href}.Render()
		},
		"submit": func(label, variant string, disabled bool) template.HTML {
			return Button{Label: label, Variant: variant, Disabled: disabled, FullWidth: true}.Render()
		},
		// choice is a named submit button, e.g. one rating among several.
		"choice": func(label, variant, name, value string) template.HTML {
			return Button{Label: label, Variant: variant, Name: name, Value: value, FullWidth: true}.Render()
		},
		"progressBar": func(pct float64) template.HTML {
			return ProgressBar{Percent: pct}.Render()
		},
		"audioButton": func(text, lang string) template.HTML {
			return AudioButton{Text: text, Lang: lang}.Render()
		},
		"avatar": func(speaking bool) template.HTML {
			return Avatar{Speaking: speaking}.Render()
		},
		"feedback": func(kind, msg string) template.HTML {
			return Feedback{Kind: kind, Message: msg}.Render()
		},
		// body comes from the template source, never from user input.
		"card": func(body, href string, selected bool) template.HTML {
			return Card{Body: template.HTML(body), Href: href, Selected: selected}.Render()
		},
	}
}
