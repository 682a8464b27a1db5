package summarize

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/carryon/internal/config"
	"github.com/hpungsan/carryon/internal/errors"
)

func TestFunc(t *testing.T) {
	var gotBackground bool
	s := Func(func(_ context.Context, system, message string, background bool) (string, error) {
		gotBackground = background
		return system + "|" + message, nil
	})

	out, err := s.Summarize(context.Background(), "sys", "msg", true)
	require.NoError(t, err)
	require.Equal(t, "sys|msg", out)
	require.True(t, gotBackground)
}

func TestOptions_Model(t *testing.T) {
	o := Options{Model: "big"}
	require.Equal(t, "big", o.model(true))

	o.UtilityModel = "small"
	require.Equal(t, "small", o.model(true))
	require.Equal(t, "big", o.model(false))
}

func TestOptions_CallContextDetachesBackground(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	cancel()

	o := Options{Timeout: time.Minute}

	bg, bgCancel := o.callContext(parent, true)
	defer bgCancel()
	require.NoError(t, bg.Err(), "background call must not inherit cancellation")
	deadline, ok := bg.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)

	fg, fgCancel := o.callContext(parent, false)
	defer fgCancel()
	require.Error(t, fg.Err(), "foreground call follows the caller")
}

func TestOptions_CallContextDefaultTimeout(t *testing.T) {
	bg, cancel := Options{}.callContext(context.Background(), true)
	defer cancel()
	_, ok := bg.Deadline()
	require.True(t, ok, "background calls are always bounded")

	fg, cancel2 := Options{}.callContext(context.Background(), false)
	defer cancel2()
	_, ok = fg.Deadline()
	require.False(t, ok)
}

func TestNew_Providers(t *testing.T) {
	cfg := config.DefaultConfig()

	s, err := New(cfg)
	require.NoError(t, err)
	_, err = s.Summarize(context.Background(), "sys", "msg", true)
	require.True(t, errors.Is(err, errors.ErrSummarizerUnavailable))

	cfg.SummarizerProvider = "OpenAI"
	s, err = New(cfg)
	require.NoError(t, err)
	require.IsType(t, &OpenAI{}, s)
	require.Equal(t, "gpt-4o-mini", s.(*OpenAI).opts.Model)

	cfg.SummarizerProvider = "anthropic"
	s, err = New(cfg)
	require.NoError(t, err)
	require.IsType(t, &Anthropic{}, s)
	require.Equal(t, DefaultAnthropicModel, s.(*Anthropic).opts.Model)

	cfg.SummarizerModel = "claude-sonnet-4-0"
	cfg.UtilityModel = "claude-3-5-haiku-latest"
	cfg.SummarizerTimeoutSeconds = 30
	s, err = New(cfg)
	require.NoError(t, err)
	a := s.(*Anthropic)
	require.Equal(t, "claude-sonnet-4-0", a.opts.Model)
	require.Equal(t, "claude-3-5-haiku-latest", a.opts.UtilityModel)
	require.Equal(t, 30*time.Second, a.opts.Timeout)

	cfg.SummarizerProvider = "cohere"
	_, err = New(cfg)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
