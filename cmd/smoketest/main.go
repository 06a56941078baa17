package main

import (
	"context"
	"github.com/planificaia/aliada/internal/e2etest"
	"github.com/planificaia/aliada/internal/errors"
	"github.com/planificaia/aliada/internal/logging"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"
)

// onboardingAnswers walks the form wizard from the first to the last step.
var onboardingAnswers = []url.Values{
	{"key": {"name"}, "value": {"Prueba"}},
	{"key": {"level"}, "value": {"primaria"}},
	{"key": {"grade"}, "value": {"1° de primaria"}},
	{"key": {"studentCount"}, "value": {"20"}},
	{"key": {"location"}, "value": {"Lima"}},
	{"key": {"resources"}, "value": {"Internet"}},
	{"key": {"avgClassSize"}, "value": {"20"}},
}

func TestOnboarding(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	for _, values := range onboardingAnswers {
		values.Set("action", "next")
		if _, err := client.SubmitForm(ctx, "/onboarding", "/onboarding", values); err != nil {
			return errors.Wrap(err, "answer step", slog.String("key", values.Get("key")))
		}
	}

	doc, err := client.GetDoc(ctx, "/dashboard")
	if err != nil {
		return errors.Wrap(err, "get dashboard")
	}
	if greeting := doc.Find("h1").Text(); !strings.Contains(greeting, "Prueba") {
		return errors.New("dashboard does not greet the visitor", slog.String("h1", greeting))
	}
	return nil
}

func TestMainChat(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second) //nolint:mnd // replies take a few seconds
	defer cancel()

	if _, err := client.SubmitForm(ctx, "/main-chat", "/main-chat/messages",
		url.Values{"message": {"Hola"}}); err != nil {
		return errors.Wrap(err, "send message")
	}
	events, err := client.ReadEvents(ctx, "/main-chat/stream")
	if err != nil {
		return errors.Wrap(err, "read reply stream")
	}
	if len(events) == 0 || events[len(events)-1].Name != "done" {
		return errors.New("reply stream did not finish", slog.Int("events", len(events)))
	}
	return nil
}

func main() {
	logger := logging.NewLogger(os.Stdout, slog.LevelDebug)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		baseURL  = "https://" + hostname
		client   *e2etest.Client
		err      error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", baseURL))

	if client, err = e2etest.NewClient(baseURL); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestOnboarding(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing onboarding", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestMainChat(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing main chat", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
