package command

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kvgate/kvgate/internal/auth"
	"github.com/kvgate/kvgate/internal/executor"
	"github.com/kvgate/kvgate/internal/server"
	"github.com/kvgate/kvgate/internal/storage/memkv"
)

// startServer runs a real server on a loopback port and returns its
// address.
func startServer(t *testing.T, users []auth.User) string {
	t.Helper()

	eng := memkv.New()
	t.Cleanup(func() { eng.Close() })

	reg, err := auth.NewRegistry(users)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	exec := executor.New(eng, reg, log)

	srv := server.New(&server.Config{Addr: "127.0.0.1:0"}, exec, nil, log)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	return srv.Addr().String()
}

// runApp executes the CLI with the given arguments, capturing output.
// Exit handling is disabled so error replies come back as ExitCoder
// errors instead of terminating the test binary.
func runApp(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	return runAppInput(t, "", args...)
}

// runAppInput is runApp with scripted stdin.
func runAppInput(t *testing.T, input string, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	app := App()
	var out, errOut bytes.Buffer
	app.Reader = strings.NewReader(input)
	app.Writer = &out
	app.ErrWriter = &errOut
	app.ExitErrHandler = func(*cli.Context, error) {}

	err = app.Run(append([]string{"kvgate-cli"}, args...))
	return out.String(), errOut.String(), err
}
