package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"landai/app/internal/domain/identity"
)

const (
	messageAccountCreated = "Account created successfully!"
	messageWelcomeBack    = "Welcome back!"
)

type userView struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
}

type sessionView struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      userView  `json:"user"`
}

type signUpInput struct {
	Body identity.SignUpInput
}

type signInInput struct {
	Body struct {
		Email    string `json:"email" doc:"Account email"`
		Password string `json:"password" doc:"Account password"`
	}
}

type sessionOutput struct {
	Status int
	Body   sessionView
}

type userOutput struct {
	Body userView
}

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "sign-up",
		Method:        stdhttp.MethodPost,
		Path:          "/api/auth/signup",
		Summary:       "Create an account",
		Tags:          []string{"auth"},
		DefaultStatus: stdhttp.StatusCreated,
	}, s.signUpHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "sign-in",
		Method:      stdhttp.MethodPost,
		Path:        "/api/auth/signin",
		Summary:     "Sign in with email and password",
		Tags:        []string{"auth"},
	}, s.signInHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "current-user",
		Method:      stdhttp.MethodGet,
		Path:        "/api/auth/me",
		Summary:     "Current user",
		Tags:        []string{"auth"},
	}, s.meHandler)
}

func (s *Server) signUpHandler(ctx context.Context, input *signUpInput) (*sessionOutput, error) {
	session, err := s.identity.SignUp(ctx, input.Body)
	if err != nil {
		return nil, s.apiError(ctx, err, "signing up", nil)
	}

	s.notifications.Success(session.User.ID, messageAccountCreated)
	return &sessionOutput{Status: stdhttp.StatusCreated, Body: toSessionView(session)}, nil
}

func (s *Server) signInHandler(ctx context.Context, input *signInInput) (*sessionOutput, error) {
	session, err := s.identity.SignIn(ctx, input.Body.Email, input.Body.Password)
	if err != nil {
		return nil, s.apiError(ctx, err, "signing in", nil)
	}

	s.notifications.Success(session.User.ID, messageWelcomeBack)
	return &sessionOutput{Status: stdhttp.StatusOK, Body: toSessionView(session)}, nil
}

func (s *Server) meHandler(ctx context.Context, _ *struct{}) (*userOutput, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	return &userOutput{Body: toUserView(user)}, nil
}

func (s *Server) requireUser(ctx context.Context) (*identity.User, error) {
	user := UserFromContext(ctx)
	if user == nil {
		return nil, huma.Error401Unauthorized(messageSignInRequired)
	}
	return user, nil
}

func toUserView(user *identity.User) userView {
	return userView{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
	}
}

func toSessionView(session *identity.Session) sessionView {
	return sessionView{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      toUserView(&session.User),
	}
}
