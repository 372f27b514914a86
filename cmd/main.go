/*
Package main is the entry point for the supachat terminal client.

It is responsible for loading configuration, initializing the global logging
system, wiring the backend client, and running the interactive loop: resolve
the current session, collect credentials until a user is signed in, then
stream messages until sign-out or shutdown. Operating system interrupt
signals (SIGINT, SIGTERM) end the loop gracefully.
*/
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gookit/color"
	"github.com/joho/godotenv"

	"supachat/internal/app/credential"
	"supachat/internal/app/session"
	"supachat/internal/app/stream"
	"supachat/internal/app/user"
	"supachat/internal/app/view"
	"supachat/internal/backend"
	"supachat/internal/configs"
	"supachat/internal/pkg/logx"
)

func main() {
	// A .env file is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Str("backend_url", cfg.BackendURL).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := backend.New(cfg)
	resolver := session.NewResolver(client)
	form := credential.NewForm(client)

	// One goroutine owns stdin; every interactive loop consumes from lines.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := run(ctx, client, resolver, form, lines); err != nil {
		logx.Fatal(err, "Client terminated with error")
	}

	logx.Info("Goodbye.")
}

// run alternates between the credential prompt and the chat loop until the
// user quits or the context is cancelled.
func run(ctx context.Context, client *backend.Client, resolver *session.Resolver, form *credential.Form, lines <-chan string) error {
	current, err := resolver.Resolve(ctx)
	if err != nil {
		logx.Error(err, "Session resolution failed, starting unauthenticated")
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		if current == nil {
			current = promptCredentials(ctx, form, lines)
			if current == nil {
				return nil
			}
		}

		quit := chatLoop(ctx, client, resolver, *current, lines)
		if quit {
			return nil
		}
		current = nil
	}
}

// promptCredentials collects email/password (and a display name for sign-up)
// until a submission succeeds. Authentication errors are printed as blocking
// messages, mirroring how a browser client would alert them.
func promptCredentials(ctx context.Context, form *credential.Form, lines <-chan string) *user.User {
	for {
		fmt.Println(color.Bold.Sprint("Sign in [1] or create an account [2]?"))

		choice, ok := readLine(ctx, lines)
		if !ok {
			return nil
		}

		mode := credential.ModeSignIn
		if strings.TrimSpace(choice) == "2" {
			mode = credential.ModeSignUp
		}

		input := credential.Input{}

		fmt.Print("Email: ")
		if input.Email, ok = readLine(ctx, lines); !ok {
			return nil
		}

		fmt.Print("Password: ")
		if input.Password, ok = readLine(ctx, lines); !ok {
			return nil
		}

		if mode == credential.ModeSignUp {
			fmt.Print("Display name (optional): ")
			if input.Username, ok = readLine(ctx, lines); !ok {
				return nil
			}
		}

		u, authErr := form.Submit(ctx, mode, input)
		if authErr != nil {
			fmt.Println(color.Red.Sprint(authErr.Message))
			continue
		}

		return u
	}
}

// chatLoop runs one mounted chat view: it opens the stream, prints messages
// as they arrive, and sends every typed line until /logout, /quit, or
// shutdown. It returns true when the whole client should exit.
func chatLoop(ctx context.Context, client *backend.Client, resolver *session.Resolver, viewer user.User, lines <-chan string) bool {
	fmt.Println(view.Header(viewer))

	printed := make(map[int64]struct{})
	render := make(chan struct{}, 1)

	st := stream.New(client, viewer, func() {
		select {
		case render <- struct{}{}:
		default:
		}
	})
	defer st.Close()

	// The session watch is scoped to this mounted view: a sign-out (here or
	// elsewhere) unmounts it, which releases the subscription.
	signedOut := make(chan struct{}, 1)
	stopWatch := resolver.Watch(func(u *user.User) {
		if u == nil {
			select {
			case signedOut <- struct{}{}:
			default:
			}
		}
	})
	defer stopWatch()

	st.Open(ctx)

	for _, line := range view.RenderStream(st) {
		fmt.Println(line)
	}
	unprinted(printed, st.Snapshot())

	for {
		select {
		case <-ctx.Done():
			return true

		case <-signedOut:
			fmt.Println(color.Gray.Sprint("Signed out."))
			return false

		case <-render:
			for _, m := range unprinted(printed, st.Snapshot()) {
				fmt.Println(view.RenderMessage(viewer, m))
			}

		case line, ok := <-lines:
			if !ok {
				return true
			}

			switch strings.TrimSpace(line) {
			case "/quit":
				return true
			case "/logout":
				if err := client.SignOut(ctx); err != nil {
					logx.Error(err, "Sign-out call failed")
				}
			default:
				st.Send(ctx, line)
			}
		}
	}
}

// unprinted returns the snapshot rows not printed yet and marks them printed.
// Rows are matched by id, not by position: an event carrying an earlier
// timestamp sorts before rows already on screen and must not shift them back
// into the unprinted tail.
func unprinted(printed map[int64]struct{}, msgs []user.Message) []user.Message {
	var fresh []user.Message
	for _, m := range msgs {
		if _, ok := printed[m.ID]; ok {
			continue
		}
		printed[m.ID] = struct{}{}
		fresh = append(fresh, m)
	}
	return fresh
}

// readLine reads one stdin line, aborting on shutdown or closed input.
func readLine(ctx context.Context, lines <-chan string) (string, bool) {
	select {
	case line, ok := <-lines:
		return strings.TrimSpace(line), ok
	case <-ctx.Done():
		return "", false
	}
}
