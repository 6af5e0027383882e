package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portal-watch/portal-watch/internal/interface/telegram/handler"
)

type stubHandler struct {
	calls    int
	lastArgs string
	err      error
}

func (h *stubHandler) Handle(_ context.Context, req handler.Request) (handler.Response, error) {
	h.calls++
	h.lastArgs = req.Args
	return handler.Response{}, h.err
}

func TestRouter_HandleCommand_PropagatesHandlerError(t *testing.T) {
	r := NewRouter(RouterConfig{})
	h := &stubHandler{err: errors.New("portal down")}
	r.RegisterCommand("attendance", h)

	err := r.HandleCommand(context.Background(), "attendance", CommandContext{ChatID: 1})

	require.Error(t, err)
	assert.Equal(t, 1, h.calls)
}

func TestRouter_HandleCallback_LongestPrefixWins(t *testing.T) {
	r := NewRouter(RouterConfig{})

	var matched string
	r.RegisterCallbackPrefix("marks:", func(_ context.Context, _ CallbackContext) error {
		matched = "marks:"
		return nil
	})
	r.RegisterCallbackPrefix("marks:extra:", func(_ context.Context, _ CallbackContext) error {
		matched = "marks:extra:"
		return nil
	})

	err := r.HandleCallback(context.Background(), "marks:extra:payload", CallbackContext{})

	require.NoError(t, err)
	assert.Equal(t, "marks:extra:", matched)
}

func TestRouter_HandleCallback_UnknownDataIgnored(t *testing.T) {
	r := NewRouter(RouterConfig{})

	err := r.HandleCallback(context.Background(), "nothing:here", CallbackContext{})

	assert.NoError(t, err)
}

func TestRouter_SemesterCallback_PassesLabelAsArgs(t *testing.T) {
	r := NewRouter(RouterConfig{})
	h := &stubHandler{err: errors.New("stop before send")}
	r.RegisterCommand("marks", h)
	r.RegisterCallbackPrefix("marks:", r.createSemesterCallbackHandler())

	err := r.HandleCallback(context.Background(), "marks:Odd 2024", CallbackContext{ChatID: 1, MessageID: 7})

	require.Error(t, err)
	assert.Equal(t, 1, h.calls)
	assert.Equal(t, "Odd 2024", h.lastArgs)
}

func TestRouter_SemesterCallback_EmptyLabelIgnored(t *testing.T) {
	r := NewRouter(RouterConfig{})
	h := &stubHandler{}
	r.RegisterCommand("marks", h)
	r.RegisterCallbackPrefix("marks:", r.createSemesterCallbackHandler())

	err := r.HandleCallback(context.Background(), "marks:", CallbackContext{})

	require.NoError(t, err)
	assert.Equal(t, 0, h.calls)
}

func TestRouter_GetRegisteredCommands(t *testing.T) {
	r := NewRouter(RouterConfig{})
	r.RegisterCommand("attendance", &stubHandler{})
	r.RegisterCommand("marks", &stubHandler{})

	commands := r.GetRegisteredCommands()

	assert.ElementsMatch(t, []string{"attendance", "marks"}, commands)
}
