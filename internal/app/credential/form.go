/*
Package credential implements the email/password credential flow.

It validates the submitted fields, drives either the account-creation or the
sign-in flow against the backend, and produces the merged User record on
success. Every failure surfaces as a single user-readable error; there is no
structured recovery and no field-level feedback beyond "required".
*/
package credential

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"supachat/internal/app/user"
	"supachat/internal/backend"
	"supachat/internal/pkg/errs"
	"supachat/internal/pkg/logx"
)

// Mode selects which credential flow Submit runs.
type Mode string

const (
	// ModeSignUp creates an account and its profile row.
	ModeSignUp Mode = "sign_up"

	// ModeSignIn verifies credentials and loads the profile row.
	ModeSignIn Mode = "sign_in"
)

// Input carries the submitted form fields. Username is only meaningful for
// ModeSignUp and may be left blank, in which case the email local part is
// used as the display name.
type Input struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
	Username string
}

// Form drives credential submission against the backend.
type Form struct {
	backend  *backend.Client
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewForm constructs a Form on top of the backend client.
func NewForm(b *backend.Client) *Form {
	return &Form{
		backend:  b,
		validate: validator.New(),
		logger:   logx.Logger().With().Str("component", "credential").Logger(),
	}
}

// Submit runs the selected flow and returns the signed-in user. All failures
// come back as a *errs.CustomError whose message is shown to the user as-is.
func (f *Form) Submit(ctx context.Context, mode Mode, input Input) (*user.User, *errs.CustomError) {
	if err := f.validate.Struct(input); err != nil {
		f.logger.Warn().Err(err).Str("mode", string(mode)).Msg("Credential validation failed")
		return nil, errs.NewError(errs.ErrMissingFields)
	}

	switch mode {
	case ModeSignUp:
		return f.signUp(ctx, input)
	case ModeSignIn:
		return f.signIn(ctx, input)
	default:
		return nil, errs.NewError(errs.ErrInvalidParams)
	}
}

// signUp creates the account, then writes the profile row keyed by the new
// identity id. A profile-write failure fails the submission but does not roll
// back the already-created account; the next sign-in resolves the missing
// profile through the fallback chain.
func (f *Form) signUp(ctx context.Context, input Input) (*user.User, *errs.CustomError) {
	principal, authErr := f.backend.SignUp(ctx, input.Email, input.Password, input.Username)
	if authErr != nil {
		return nil, authErr
	}

	displayName := user.DisplayName(input.Username, input.Email)

	profile := user.Profile{
		ID:        principal.ID,
		Username:  displayName,
		AvatarURL: "",
	}

	if err := f.backend.InsertProfile(ctx, profile); err != nil {
		logx.Error(err, errs.NewError(errs.ErrProfileWriteFailed).Message, "user_id", principal.ID)
		return nil, errs.NewError(errs.ErrAuthFailed, err.Error())
	}

	f.logger.Info().Str("user_id", principal.ID).Msg("Account and profile created")

	return &user.User{
		ID:        principal.ID,
		Email:     principal.Email,
		Username:  displayName,
		AvatarURL: "",
	}, nil
}

// signIn verifies the credentials and merges the principal with its profile
// row. A missing or unreadable profile degrades to the fallback display name.
func (f *Form) signIn(ctx context.Context, input Input) (*user.User, *errs.CustomError) {
	principal, authErr := f.backend.SignIn(ctx, input.Email, input.Password)
	if authErr != nil {
		return nil, authErr
	}

	profileName := ""
	avatarURL := ""

	profile, err := f.backend.FetchProfile(ctx, principal.ID)
	if err != nil {
		logx.Error(err, errs.NewError(errs.ErrProfileFetchFailed).Message, "user_id", principal.ID)
	} else if profile != nil {
		profileName = profile.Username
		avatarURL = profile.AvatarURL
	}

	f.logger.Info().Str("user_id", principal.ID).Msg("Signed in")

	return &user.User{
		ID:        principal.ID,
		Email:     principal.Email,
		Username:  user.DisplayName(profileName, principal.Email),
		AvatarURL: avatarURL,
	}, nil
}
