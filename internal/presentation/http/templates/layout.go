package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const tailwindCDN = "https://cdn.tailwindcss.com"

// Layout wraps content in the shared HTML document.
func Layout(data LayoutData, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := data.Title
		if title == "" {
			title = SiteName
		}
		footer := data.FooterNote
		if footer == "" {
			footer = DefaultFooterNote
		}

		if err := write(w,
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`,
		); err != nil {
			return err
		}
		if err := text(w, title); err != nil {
			return err
		}
		if err := write(w,
			`</title><link rel="icon" href="/favicon.svg" type="image/svg+xml">`,
			`<script src="`+tailwindCDN+`"></script>`,
			`<link rel="stylesheet" href="/static/app.css"></head><body class="min-h-screen bg-white text-gray-900">`,
		); err != nil {
			return err
		}

		if !data.Bare {
			if err := write(w, `<header class="site-header"><a href="/" class="site-brand">`+SiteName+`</a></header><main class="site-main">`); err != nil {
				return err
			}
		}

		if content != nil {
			if err := content.Render(ctx, w); err != nil {
				return err
			}
		}

		if data.Bare {
			return write(w, `</body></html>`)
		}

		if err := write(w, `</main><footer class="site-footer"><p>`); err != nil {
			return err
		}
		if err := text(w, footer); err != nil {
			return err
		}
		return write(w, `</p></footer></body></html>`)
	})
}
