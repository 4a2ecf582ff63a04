package http

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"landai/app/internal/data/database"
	"landai/app/internal/domain/pages"
	"landai/app/internal/presentation/http/templates"
)

const (
	htmlContentType      = "text/html; charset=utf-8"
	errorFallbackMessage = "We couldn't process your request right now."
)

type htmlResponse struct {
	Status       int
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

type publicPageInput struct {
	OwnerID string `path:"ownerId" doc:"Owner of the page"`
	PageID  string `path:"pageId" doc:"Page identifier"`
}

type healthResponse struct {
	Status int
	Body   struct {
		Status    string `json:"status"`
		Database  string `json:"database"`
		Generator string `json:"generator"`
	}
}

func (s *Server) registerHomeRoute() {
	huma.Get(s.api, "/", s.homeHandler, htmlOperation("LandAI home", stdhttp.StatusInternalServerError))
}

func (s *Server) registerPublicPageRoute() {
	huma.Get(s.api, "/p/{ownerId}/{pageId}", s.publicPageHandler, htmlOperation(
		"View a published landing page",
		stdhttp.StatusNotFound,
		stdhttp.StatusServiceUnavailable,
	))
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) homeHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	data := templates.HomePageData{
		Tagline:     "Describe your product in one sentence. Get a landing page.",
		Description: "LandAI turns a short product description into a Tailwind-styled landing page you can edit, regenerate and publish at a shareable link.",
		Steps: []string{
			"Create an account and sign in.",
			"Describe your product and generate a draft.",
			"Edit or regenerate until it reads right.",
			"Publish to get a public link anyone can open.",
		},
	}

	body, err := renderComponent(ctx, templates.HomePage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering home page", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render the homepage.")
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) publicPageHandler(ctx context.Context, input *publicPageInput) (*htmlResponse, error) {
	ownerID := strings.TrimSpace(input.OwnerID)
	pageID := strings.TrimSpace(input.PageID)

	html, err := s.pages.ReadPublic(ctx, ownerID, pageID)
	if err != nil {
		if eris.Is(err, pages.ErrNotFound) {
			return s.renderNotFound(ctx)
		}

		s.recordError(ctx, err, "reading public page", logrus.Fields{"owner_id": ownerID, "page_id": pageID})
		return s.renderErrorResponse(ctx, stdhttp.StatusServiceUnavailable, "This page is temporarily unavailable. Please try again shortly.")
	}

	body, err := renderComponent(ctx, templates.PublicPage(templates.PublicPageData{HTML: html}))
	if err != nil {
		s.recordError(ctx, err, "rendering public page", logrus.Fields{"page_id": pageID})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	response := newHTMLResponse(stdhttp.StatusOK, body)
	response.CacheControl = "no-cache"
	return response, nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"
	resp.Body.Generator = "ready"

	if s.db == nil {
		resp.Body.Status = "degraded"
		resp.Body.Database = "unconfigured"
		resp.Status = stdhttp.StatusServiceUnavailable
	} else if err := database.Ping(ctx, s.db); err != nil {
		s.recordError(ctx, err, "pinging database", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	// Upstream generation trouble degrades the report but the process stays serviceable.
	if !s.pages.GeneratorReady() {
		resp.Body.Status = "degraded"
		resp.Body.Generator = "failing"
	}

	if resp.Status == 0 {
		resp.Status = stdhttp.StatusOK
	}

	return resp, nil
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		statusCodes := append([]int{stdhttp.StatusOK}, statuses...)
		for _, status := range statusCodes {
			code := strconv.Itoa(status)
			op.Responses[code] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}

func (s *Server) renderNotFound(ctx context.Context) (*htmlResponse, error) {
	body, err := renderComponent(ctx, templates.NotFoundPage())
	if err != nil {
		s.recordError(ctx, err, "rendering not found page", nil)
		return newHTMLResponse(stdhttp.StatusNotFound, []byte("<html><body><h1>Page Not Found</h1></body></html>")), nil
	}
	return newHTMLResponse(stdhttp.StatusNotFound, body), nil
}

func (s *Server) renderErrorResponse(ctx context.Context, status int, message string) (*htmlResponse, error) {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	template := templates.ErrorPage(templates.ErrorPageData{
		StatusLabel: label,
		Message:     message,
	})

	body, err := renderComponent(ctx, template)
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status})
		fallback := []byte(fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", label, message))
		return newHTMLResponse(status, fallback), nil
	}

	return newHTMLResponse(status, body), nil
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}
