// Package templates renders the server-side HTML views: the public page viewer,
// the landing shell, and the not-found and error pages.
package templates

// SiteName is shown in titles and the shared header.
const SiteName = "LandAI"

// DefaultFooterNote is shown in the shared layout when a page does not supply custom text.
const DefaultFooterNote = "Landing pages on LandAI are generated by AI from a one-sentence product description."

// LayoutData configures the shared document shell.
type LayoutData struct {
	Title      string
	FooterNote string
	// Bare renders the body without the site header and footer.
	Bare bool
}

// HomePageData contains the copy rendered on the landing shell.
type HomePageData struct {
	Tagline     string
	Description string
	Steps       []string
}

// PublicPageData holds a published landing page.
type PublicPageData struct {
	HTML string
}

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	StatusLabel string
	Message     string
}
