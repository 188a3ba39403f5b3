package apperr

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesByKindAndMessage(t *testing.T) {
	wrapped := fmt.Errorf("services.story.Create: %w", ErrQuotaExceeded)

	assert.True(t, errors.Is(wrapped, ErrQuotaExceeded))
	assert.False(t, errors.Is(wrapped, ErrPremiumRequired))
	assert.False(t, errors.Is(wrapped, ErrUnauthorized))
}

func TestIs_ValidationSentinelMatchesAnyValidation(t *testing.T) {
	err := Validation("password must be at least 6 characters")

	assert.True(t, errors.Is(err, ErrValidation))
	assert.True(t, errors.Is(ErrInvalidMonths, ErrValidation))
	assert.True(t, errors.Is(ErrSelfAction, ErrValidation))
	assert.False(t, errors.Is(err, ErrInvalidMonths))
	assert.Equal(t, "password must be at least 6 characters", err.Error())
}

func TestIs_NotFoundSentinelMatchesAnyObject(t *testing.T) {
	err := fmt.Errorf("op: %w", NotFound("story"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(ErrNotFound, NotFound("story")))
}

func TestRateLimited(t *testing.T) {
	err := RateLimited(90 * time.Second)

	assert.True(t, errors.Is(err, ErrRateLimited))
	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, 90*time.Second, e.RetryAfter())
	assert.Equal(t, time.Duration(0), RateLimited(-time.Second).(*Error).RetryAfter())
}

func TestKindOfAndPublic(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
		wantMsg  string
	}{
		{name: "unauthorized", err: ErrUnauthorized, wantKind: KindUnauthorized, wantMsg: "unauthorized"},
		{name: "wrapped not found", err: fmt.Errorf("op: %w", NotFound("story")), wantKind: KindNotFound, wantMsg: "story not found"},
		{name: "raw driver error", err: errors.New("pq: connection refused"), wantKind: KindInternal, wantMsg: "internal error"},
		{name: "validation", err: ErrValidation, wantKind: KindValidation, wantMsg: "validation error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKind, KindOf(tt.err))
			assert.Equal(t, tt.wantMsg, Public(tt.err))
		})
	}
}

func TestFromValidation(t *testing.T) {
	type input struct {
		Email    string `validate:"required,email"`
		Password string `validate:"min=6"`
	}
	v := validator.New()

	err := FromValidation(v.Struct(input{Email: "nope", Password: "123"}))

	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "field email must be a valid email")
	assert.Contains(t, err.Error(), "field password must be at least 6")

	assert.NoError(t, FromValidation(v.Struct(input{Email: "a@b.co", Password: "123456"})))

	plain := errors.New("boom")
	assert.Same(t, plain, FromValidation(plain))
}
