package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const pageStyle = `
    body { font-family: system-ui, sans-serif; background: #f4f5f7; margin: 0; }
    main { max-width: 360px; margin: 10vh auto; background: #fff; padding: 2rem; border-radius: 8px; box-shadow: 0 1px 4px rgba(0,0,0,.1); }
    h1 { font-size: 1.4rem; margin-top: 0; }
    label { display: block; margin: 1rem 0 .25rem; }
    input[type=text], input[type=password] { width: 100%; padding: .5rem; box-sizing: border-box; }
    button { margin-top: 1.5rem; width: 100%; padding: .6rem; background: #2563eb; color: #fff; border: 0; border-radius: 4px; }
    .error { color: #b91c1c; background: #fef2f2; padding: .5rem; border-radius: 4px; }
`

// pageWriter keeps the first write error so page bodies read top to bottom.
type pageWriter struct {
	w   io.Writer
	err error
}

// raw writes trusted markup.
func (p *pageWriter) raw(s string) {
	if p.err == nil {
		_, p.err = io.WriteString(p.w, s)
	}
}

// text writes escaped content, safe in element bodies and quoted attributes.
func (p *pageWriter) text(s string) {
	p.raw(templ.EscapeString(s))
}

// hidden writes a hidden form field.
func (p *pageWriter) hidden(name, value string) {
	p.raw(`<input type="hidden" name="`)
	p.text(name)
	p.raw(`" value="`)
	p.text(value)
	p.raw(`">`)
}

// layout wraps body in the shared page chrome.
func layout(title string, body func(p *pageWriter)) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.raw(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>`)
		p.text(title)
		p.raw(`</title>
  <style>` + pageStyle + `</style>
</head>
<body>
<main>
`)
		body(p)
		p.raw(`
</main>
</body>
</html>
`)
		return p.err
	})
}
