package http

import (
	"context"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"landai/app/internal/domain/pages"
	"landai/app/internal/platform/idempotency"
)

const (
	messagePageGenerated   = "Landing page generated successfully!"
	messagePageRegenerated = "Landing page regenerated successfully!"
	messagePageSaved       = "Page saved successfully!"
	messagePagePublished   = "Page published successfully!"
	messagePublishFailed   = "Failed to publish page"
	messagePageUnpublished = "Page unpublished"

	operationGenerate = "generate"
	operationPublish  = "publish"
)

type pageView struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Title       string    `json:"title"`
	Prompt      string    `json:"prompt"`
	HTMLContent string    `json:"htmlContent"`
	IsPublished bool      `json:"isPublished"`
	PublicURL   string    `json:"publicUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type pagePathInput struct {
	PageID string `path:"pageId" doc:"Page identifier"`
}

type generatePageInput struct {
	IdempotencyKey string `header:"Idempotency-Key" doc:"Replays the first successful response for retries with the same key"`
	Body           struct {
		Prompt string `json:"prompt" maxLength:"2000" doc:"One-sentence product description"`
	}
}

type editPageInput struct {
	PageID string `path:"pageId" doc:"Page identifier"`
	Body   struct {
		Title       *string `json:"title,omitempty" doc:"New page title"`
		HTMLContent *string `json:"htmlContent,omitempty" doc:"Replacement HTML content"`
	}
}

type publishPageInput struct {
	PageID         string `path:"pageId" doc:"Page identifier"`
	IdempotencyKey string `header:"Idempotency-Key" doc:"Replays the first successful response for retries with the same key"`
}

type pageOutput struct {
	Status int
	Replay string `header:"Idempotent-Replayed"`
	Body   pageView
}

type pageListOutput struct {
	Body struct {
		Pages []pageView `json:"pages"`
	}
}

type publishOutput struct {
	Replay string `header:"Idempotent-Replayed"`
	Body   struct {
		PageID      string `json:"pageId"`
		IsPublished bool   `json:"isPublished"`
		PublicURL   string `json:"publicUrl"`
	}
}

type unpublishOutput struct {
	Body struct {
		PageID      string `json:"pageId"`
		IsPublished bool   `json:"isPublished"`
	}
}

func (s *Server) registerPageRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "generate-page",
		Method:        stdhttp.MethodPost,
		Path:          "/api/pages",
		Summary:       "Generate a landing page from a prompt",
		Tags:          []string{"pages"},
		DefaultStatus: stdhttp.StatusCreated,
	}, s.generatePageHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-pages",
		Method:      stdhttp.MethodGet,
		Path:        "/api/pages",
		Summary:     "List your pages, newest first",
		Tags:        []string{"pages"},
	}, s.listPagesHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-page",
		Method:      stdhttp.MethodGet,
		Path:        "/api/pages/{pageId}",
		Summary:     "Load a page for editing",
		Tags:        []string{"pages"},
	}, s.getPageHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "edit-page",
		Method:      stdhttp.MethodPatch,
		Path:        "/api/pages/{pageId}",
		Summary:     "Edit the title or HTML of a page",
		Tags:        []string{"pages"},
	}, s.editPageHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "regenerate-page",
		Method:      stdhttp.MethodPost,
		Path:        "/api/pages/{pageId}/regenerate",
		Summary:     "Regenerate the HTML from the stored prompt",
		Tags:        []string{"pages"},
	}, s.regeneratePageHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "publish-page",
		Method:      stdhttp.MethodPost,
		Path:        "/api/pages/{pageId}/publish",
		Summary:     "Publish a page at its public URL",
		Tags:        []string{"pages"},
	}, s.publishPageHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "unpublish-page",
		Method:      stdhttp.MethodPost,
		Path:        "/api/pages/{pageId}/unpublish",
		Summary:     "Return a page to draft",
		Tags:        []string{"pages"},
	}, s.unpublishPageHandler)
}

func (s *Server) generatePageHandler(ctx context.Context, input *generatePageInput) (*pageOutput, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	key := idempotency.Key(user.ID, operationGenerate, input.IdempotencyKey)
	value, replayed, err := s.idempotency.Do(ctx, key, func() (any, error) {
		return s.pages.Generate(ctx, user.ID, input.Body.Prompt)
	})
	if err != nil {
		return nil, s.apiError(ctx, err, "generating page", logrus.Fields{"owner_id": user.ID})
	}

	page, ok := value.(*pages.Page)
	if !ok || page == nil {
		return nil, s.apiError(ctx, eris.New("generation returned no page"), "generating page", logrus.Fields{"owner_id": user.ID})
	}

	output := &pageOutput{Status: stdhttp.StatusCreated, Body: toPageView(page)}
	if replayed {
		output.Replay = "true"
	} else {
		s.notifications.Success(user.ID, messagePageGenerated)
	}
	return output, nil
}

func (s *Server) listPagesHandler(ctx context.Context, _ *struct{}) (*pageListOutput, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.pages.List(ctx, user.ID)
	if err != nil {
		return nil, s.apiError(ctx, err, "listing pages", logrus.Fields{"owner_id": user.ID})
	}

	output := &pageListOutput{}
	output.Body.Pages = make([]pageView, 0, len(list))
	for i := range list {
		output.Body.Pages = append(output.Body.Pages, toPageView(&list[i]))
	}
	return output, nil
}

func (s *Server) getPageHandler(ctx context.Context, input *pagePathInput) (*pageOutput, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	page, err := s.pages.Get(ctx, user.ID, strings.TrimSpace(input.PageID))
	if err != nil {
		return nil, s.ownerError(ctx, user.ID, err, "loading page", input.PageID)
	}
	return &pageOutput{Status: stdhttp.StatusOK, Body: toPageView(page)}, nil
}

func (s *Server) editPageHandler(ctx context.Context, input *editPageInput) (*pageOutput, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	edit := pages.PageEdit{Title: input.Body.Title, HTMLContent: input.Body.HTMLContent}
	page, err := s.pages.Edit(ctx, user.ID, strings.TrimSpace(input.PageID), edit)
	if err != nil {
		return nil, s.ownerError(ctx, user.ID, err, "editing page", input.PageID)
	}

	s.notifications.Success(user.ID, messagePageSaved)
	return &pageOutput{Status: stdhttp.StatusOK, Body: toPageView(page)}, nil
}

func (s *Server) regeneratePageHandler(ctx context.Context, input *pagePathInput) (*pageOutput, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	page, err := s.pages.Regenerate(ctx, user.ID, strings.TrimSpace(input.PageID))
	if err != nil {
		return nil, s.ownerError(ctx, user.ID, err, "regenerating page", input.PageID)
	}

	s.notifications.Success(user.ID, messagePageRegenerated)
	return &pageOutput{Status: stdhttp.StatusOK, Body: toPageView(page)}, nil
}

func (s *Server) publishPageHandler(ctx context.Context, input *publishPageInput) (*publishOutput, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	pageID := strings.TrimSpace(input.PageID)
	key := idempotency.Key(user.ID, publishScope(pageID), input.IdempotencyKey)
	value, replayed, err := s.idempotency.Do(ctx, key, func() (any, error) {
		return s.pages.Publish(ctx, user.ID, pageID)
	})
	if err != nil {
		if !isOwnershipError(err) {
			s.notifications.Error(user.ID, messagePublishFailed)
		}
		return nil, s.ownerError(ctx, user.ID, err, "publishing page", pageID)
	}

	url, _ := value.(string)

	output := &publishOutput{}
	output.Body.PageID = pageID
	output.Body.IsPublished = true
	output.Body.PublicURL = url
	if replayed {
		output.Replay = "true"
	} else {
		s.notifications.Success(user.ID, messagePagePublished)
	}
	return output, nil
}

func (s *Server) unpublishPageHandler(ctx context.Context, input *pagePathInput) (*unpublishOutput, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	pageID := strings.TrimSpace(input.PageID)
	if err := s.pages.Unpublish(ctx, user.ID, pageID); err != nil {
		return nil, s.ownerError(ctx, user.ID, err, "unpublishing page", pageID)
	}
	// A later publish must write again even with a reused key.
	s.idempotency.Forget(user.ID, publishScope(pageID))

	s.notifications.Info(user.ID, messagePageUnpublished)

	output := &unpublishOutput{}
	output.Body.PageID = pageID
	output.Body.IsPublished = false
	return output, nil
}

func publishScope(pageID string) string {
	return operationPublish + ":" + pageID
}

// ownerError queues the not-found-or-unauthorized notice for ownership failures
// before mapping err to a problem response.
func (s *Server) ownerError(ctx context.Context, actorID string, err error, message, pageID string) error {
	if isOwnershipError(err) {
		s.notifications.Error(actorID, messageNotFoundOrUnauthorized)
	}
	return s.apiError(ctx, err, message, logrus.Fields{"owner_id": actorID, "page_id": pageID})
}

func isOwnershipError(err error) bool {
	return eris.Is(err, pages.ErrNotFound) || eris.Is(err, pages.ErrUnauthorized)
}

func toPageView(page *pages.Page) pageView {
	return pageView{
		ID:          page.ID,
		OwnerID:     page.OwnerID,
		Title:       page.Title,
		Prompt:      page.Prompt,
		HTMLContent: page.HTMLContent,
		IsPublished: page.IsPublished,
		PublicURL:   page.PublicURL,
		CreatedAt:   page.CreatedAt,
		UpdatedAt:   page.UpdatedAt,
	}
}
