package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"foundrscan/internal/auth"
	"foundrscan/internal/cache"
	"foundrscan/internal/chat"
	"foundrscan/internal/config"
	"foundrscan/internal/inference"
	"foundrscan/internal/logging"
	"foundrscan/internal/store"
)

// env holds the wired application components for one command invocation
type env struct {
	cfg    *config.Config
	logger *logging.Logger
	store  *store.SQLiteStore
	cache  *cache.Cache
	gate   *auth.Gate
}

// setup loads config and wires the store, cache, provider, and gate.
// Start is called so remembered sign-ins are resumed before any command runs.
func setup(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger("main", logging.ParseLevel(cfg.Logging.Level), os.Stderr)

	st, err := store.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	ch, err := cache.Open(cfg.Storage.CachePath)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to open local cache: %w", err)
	}

	provider, err := auth.GetProvider(cfg.Auth.Provider, st, &consoleFlow{in: os.Stdin, out: os.Stdout}, cfg.Auth.SessionExpiryDays, logger)
	if err != nil {
		ch.Close()
		st.Close()
		return nil, err
	}

	profiles := store.NewProfileStore(st)
	gate := auth.NewGate(provider, profiles, ch, logger)
	gate.Start(c.Context)

	return &env{cfg: cfg, logger: logger, store: st, cache: ch, gate: gate}, nil
}

func (e *env) close() {
	e.cache.Close()
	e.store.Close()
}

func signupCmd() *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "Create an account and sign in",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Display name"},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true, Usage: "Email address"},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Required: true, Usage: "Password (at least 6 characters)"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			identity, err := e.gate.SignUp(c.Context, c.String("name"), c.String("email"), c.String("password"))
			if err != nil {
				return authError(err)
			}
			fmt.Printf("Signed up and signed in as %s <%s>\n", identity.Name, identity.Email)
			return nil
		},
	}
}

func loginCmd() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in with email/password or a federated account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Email address"},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password"},
			&cli.BoolFlag{Name: "federated", Usage: "Use the federated sign-in flow"},
			&cli.BoolFlag{Name: "signup", Usage: "Federated only: create a profile on first sign-in"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			var identity *store.Identity
			if c.Bool("federated") {
				intent := auth.IntentLogin
				if c.Bool("signup") {
					intent = auth.IntentSignup
				}
				identity, err = e.gate.SignInFederated(c.Context, intent)
			} else {
				if c.String("email") == "" || c.String("password") == "" {
					return fmt.Errorf("--email and --password are required unless --federated is set")
				}
				identity, err = e.gate.SignIn(c.Context, c.String("email"), c.String("password"))
			}
			if err != nil {
				return authError(err)
			}
			fmt.Printf("Signed in as %s <%s>\n", identity.Name, identity.Email)
			return nil
		},
	}
}

func logoutCmd() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Sign out and forget the remembered session",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			e.gate.SignOut(c.Context)
			fmt.Println("Signed out")
			return nil
		},
	}
}

func whoamiCmd() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in identity",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			identity, ok := e.gate.Current()
			if !ok {
				fmt.Println("Not signed in")
				return nil
			}
			fmt.Printf("%s <%s> (provider: %s, member since %s)\n",
				identity.Name, identity.Email, identity.Provider, identity.CreatedAt.Format("2006-01-02"))
			return nil
		},
	}
}

func chatCmd() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Open the conversation (requires a remembered sign-in)",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			identity, ok := e.gate.Current()
			if !ok {
				return fmt.Errorf("not signed in; run 'foundrscan login' first")
			}

			client := inference.NewHTTPClient(
				e.cfg.Inference.Endpoint,
				time.Duration(e.cfg.Inference.TimeoutSeconds)*time.Second,
				e.logger,
			)
			transcripts := store.NewTranscriptStore(e.store)
			manager := chat.NewManager(client, transcripts, e.cache, e.logger)
			manager.Restore(c.Context, identity)

			return runChatLoop(c.Context, manager, identity)
		},
	}
}

// runChatLoop reads user messages from stdin until /quit or EOF.
// /new starts a fresh conversation.
func runChatLoop(ctx context.Context, manager *chat.Manager, identity *store.Identity) error {
	for _, msg := range manager.Messages() {
		printMessage(msg, identity)
	}
	fmt.Println("(type /new for a fresh conversation, /quit to leave)")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit":
			return nil
		case "/new":
			if err := manager.Reset(); err != nil {
				fmt.Println("cannot reset right now")
				continue
			}
			for _, msg := range manager.Messages() {
				printMessage(msg, identity)
			}
			continue
		}

		before := len(manager.Messages())
		if err := manager.Send(ctx, line); err != nil {
			if errors.Is(err, chat.ErrBusy) || errors.Is(err, chat.ErrEmptyInput) {
				continue
			}
			return err
		}
		for _, msg := range manager.Messages()[before+1:] {
			printMessage(msg, identity)
		}
	}
	return scanner.Err()
}

func printMessage(msg store.Message, identity *store.Identity) {
	who := "Founder Scan AI"
	if msg.Sender == store.SenderUser {
		who = identity.Name
	}
	fmt.Printf("[%s] %s\n", who, msg.Content)
}

// authError renders a classified auth failure with its suggested action
func authError(err error) error {
	var ae *auth.Error
	if !errors.As(err, &ae) {
		return err
	}
	switch ae.Action {
	case auth.ActionSignUp:
		return fmt.Errorf("%s (try 'foundrscan signup')", ae.Message)
	case auth.ActionContactSupport:
		return fmt.Errorf("%s", ae.Message)
	case auth.ActionRetry:
		return fmt.Errorf("%s (try again)", ae.Message)
	default:
		return fmt.Errorf("%s", ae.Message)
	}
}

// consoleFlow is the terminal stand-in for an external federated sign-in
// window. It prompts for the asserted identity; an empty email means the
// user abandoned the flow.
type consoleFlow struct {
	in  *os.File
	out *os.File
}

func (f *consoleFlow) Authenticate(ctx context.Context) (*auth.FederatedClaim, error) {
	reader := bufio.NewReader(f.in)

	fmt.Fprint(f.out, "Federated sign-in. Email: ")
	email, err := reader.ReadString('\n')
	if err != nil {
		return nil, &auth.ProviderError{Code: auth.CodePopupCancelled, Message: "sign-in flow closed"}
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, &auth.ProviderError{Code: auth.CodePopupCancelled, Message: "sign-in flow abandoned"}
	}

	fmt.Fprint(f.out, "Display name: ")
	name, err := reader.ReadString('\n')
	if err != nil {
		return nil, &auth.ProviderError{Code: auth.CodePopupCancelled, Message: "sign-in flow closed"}
	}

	return &auth.FederatedClaim{
		Subject: "fed:" + strings.ToLower(email),
		Name:    strings.TrimSpace(name),
		Email:   strings.ToLower(email),
	}, nil
}
