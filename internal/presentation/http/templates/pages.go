package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// PublicPage renders a published landing page verbatim inside a bare document.
func PublicPage(data PublicPageData) templ.Component {
	return Layout(LayoutData{Title: SiteName, Bare: true}, RawHTML(data.HTML))
}

// HomePage renders the landing shell. The shim forwards legacy #/p/<owner>/<page> links.
func HomePage(data HomePageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w, `<section class="home"><h1 class="home-title">`+SiteName+`</h1><p class="home-tagline">`); err != nil {
			return err
		}
		if err := text(w, data.Tagline); err != nil {
			return err
		}
		if err := write(w, `</p><p class="home-description">`); err != nil {
			return err
		}
		if err := text(w, data.Description); err != nil {
			return err
		}
		if err := write(w, `</p><ol class="home-steps">`); err != nil {
			return err
		}
		for _, step := range data.Steps {
			if err := write(w, `<li>`); err != nil {
				return err
			}
			if err := text(w, step); err != nil {
				return err
			}
			if err := write(w, `</li>`); err != nil {
				return err
			}
		}
		return write(w,
			`</ol><p class="home-links"><a href="/docs">API documentation</a></p></section>`,
			`<script src="/static/shim.js"></script>`,
		)
	})

	return Layout(LayoutData{Title: SiteName + " • AI landing pages"}, body)
}

// NotFoundPage is shown for missing and unpublished pages alike.
func NotFoundPage() templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return write(w,
			`<section class="notice"><h1 class="notice-title">Page Not Found</h1>`,
			`<p>The page you're looking for doesn't exist or hasn't been published yet.</p>`,
			`<p><a href="/">Back to `+SiteName+`</a></p></section>`,
		)
	})
	return Layout(LayoutData{Title: "Page Not Found • " + SiteName}, body)
}

// ErrorPage renders a generic failure view.
func ErrorPage(data ErrorPageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w, `<section class="notice"><h1 class="notice-title">`); err != nil {
			return err
		}
		if err := text(w, data.StatusLabel); err != nil {
			return err
		}
		if err := write(w, `</h1><p>`); err != nil {
			return err
		}
		if err := text(w, data.Message); err != nil {
			return err
		}
		return write(w, `</p><p><a href="/">Back to `+SiteName+`</a></p></section>`)
	})
	return Layout(LayoutData{Title: data.StatusLabel + " • " + SiteName}, body)
}
