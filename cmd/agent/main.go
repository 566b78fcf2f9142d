package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/petasbytes/toolchat/agent"
	"github.com/petasbytes/toolchat/internal/config"
	"github.com/petasbytes/toolchat/internal/logging"
	"github.com/petasbytes/toolchat/internal/provider"
	"github.com/petasbytes/toolchat/internal/telemetry"
	"github.com/petasbytes/toolchat/memory"
	"github.com/petasbytes/toolchat/tools"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	// Set up graceful shutdown on Ctrl-C (SIGINT) / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer telemetry.Close()

	if err := newApp(os.Stdin, os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// newModel builds the model backend; tests replace it with a scripted model.
var newModel = provider.New

func newApp(in io.Reader, out io.Writer) *cli.App {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "provider", Usage: "model provider (openai or anthropic)", EnvVars: []string{"AGT_PROVIDER"}},
		&cli.StringFlag{Name: "model", Usage: "model name (provider default when empty)", EnvVars: []string{"AGT_MODEL"}},
		&cli.Float64Flag{Name: "temperature", Usage: "sampling temperature", EnvVars: []string{"AGT_TEMPERATURE"}},
		&cli.Int64Flag{Name: "max-tokens", Usage: "max tokens per completion", EnvVars: []string{"AGT_MAX_TOKENS"}},
		&cli.IntFlag{Name: "token-budget", Usage: "estimated input token budget per request (<= 0 disables windowing)", EnvVars: []string{"AGT_TOKEN_BUDGET"}},
		&cli.IntFlag{Name: "max-steps", Usage: "max tool rounds per turn", EnvVars: []string{"AGT_MAX_STEPS"}},
		&cli.StringFlag{Name: "system-prompt", Usage: "system prompt", EnvVars: []string{"AGT_SYSTEM_PROMPT"}},
		&cli.StringFlag{Name: "conversation", Usage: "conversation file used by chat", EnvVars: []string{"AGT_CONVERSATION_PATH"}},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log tool calls and outputs", EnvVars: []string{"AGT_VERBOSE"}},
		&cli.StringFlag{Name: "log-level", Usage: "diagnostic log level", EnvVars: []string{"AGT_LOG_LEVEL"}},
	}
	return &cli.App{
		Name:      "agent",
		Usage:     "chat with a tool-calling model (multiply, add)",
		Reader:    in,
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: append(flags,
			&cli.StringFlag{Name: "prompt", Aliases: []string{"p"}, Usage: "one-shot prompt", Value: config.DefaultPrompt},
		),
		Action: runOnce,
		Commands: []*cli.Command{{
			Name:   "chat",
			Usage:  "interactive chat that resumes the saved conversation",
			Flags:  flags,
			Action: runREPL,
		}},
	}
}

// loadConfig reads the env and applies flag overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return cfg, err
	}
	if v := c.String("provider"); v != "" {
		cfg.Provider = strings.ToLower(v)
	}
	if v := c.String("model"); v != "" {
		cfg.Model = v
	}
	if c.IsSet("temperature") {
		cfg.Temperature = c.Float64("temperature")
	}
	if c.IsSet("max-tokens") {
		cfg.MaxTokens = c.Int64("max-tokens")
	}
	if c.IsSet("token-budget") {
		cfg.TokenBudget = c.Int("token-budget")
	}
	if c.IsSet("max-steps") {
		cfg.MaxSteps = c.Int("max-steps")
	}
	if v := c.String("system-prompt"); v != "" {
		cfg.SystemPrompt = v
	}
	if v := c.String("conversation"); v != "" {
		cfg.ConversationPath = v
	}
	if c.IsSet("verbose") {
		cfg.Verbose = c.Bool("verbose")
	}
	if v := c.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, cfg.CheckAPIKey()
}

// setup builds the agent for cfg.
func setup(c *cli.Context, cfg config.Config, history ...agent.Option) (*agent.Agent, *logrus.Logger, error) {
	log := logging.New(cfg.LogLevel, c.App.ErrWriter)
	model, err := newModel(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts := append([]agent.Option{
		agent.WithSystemPrompt(cfg.SystemPrompt),
		agent.WithLogger(log),
		agent.WithVerbose(cfg.Verbose),
		agent.WithMaxSteps(cfg.MaxSteps),
		agent.WithTokenBudget(cfg.TokenBudget),
	}, history...)
	log.WithFields(logrus.Fields{"provider": cfg.Provider, "model": model.Name()}).Debug("agent ready")
	return agent.New(model, tools.Registry(), opts...), log, nil
}

func runOnce(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	a, _, err := setup(c, cfg)
	if err != nil {
		return err
	}
	out := c.App.Writer
	_, err = a.StreamChat(c.Context, c.String("prompt"), func(tok string) {
		fmt.Fprint(out, tok)
	})
	fmt.Fprintln(out)
	return err
}

func runREPL(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	persisted, err := memory.LoadConversation(cfg.ConversationPath)
	if err != nil {
		fmt.Fprintf(c.App.ErrWriter, "warning: failed to load persisted conversation: %v\n", err)
	}
	persisted = memory.TrimIncomplete(persisted)

	a, log, err := setup(c, cfg, agent.WithHistory(persisted))
	if err != nil {
		return err
	}
	ctx, out := c.Context, c.App.Writer

	// stdin reader goroutine -> lines into channel
	inputCh := make(chan string)
	scanner := bufio.NewScanner(c.App.Reader)
	go func() {
		defer close(inputCh)
		for scanner.Scan() {
			select {
			case inputCh <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(out, "Chat with the agent (/reset clears history, Ctrl-C to quit)")
	for {
		fmt.Fprint(out, "\u001b[94mYou\u001b[0m: ")
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nExiting...")
			return nil
		case line, ok = <-inputCh:
			if !ok {
				if err := scanner.Err(); err != nil {
					log.WithError(err).Warn("stdin read error")
				}
				return nil
			}
		}

		switch strings.TrimSpace(line) {
		case "":
			continue
		case "/reset":
			a.Reset()
			save(log, cfg.ConversationPath, a)
			fmt.Fprintln(out, "(history cleared)")
			continue
		}

		fmt.Fprint(out, "\u001b[93mAgent\u001b[0m: ")
		_, err := a.StreamChat(ctx, line, func(tok string) { fmt.Fprint(out, tok) })
		fmt.Fprintln(out)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.WithError(err).Error("turn failed")
		}
		save(log, cfg.ConversationPath, a)
	}
}

func save(log logrus.FieldLogger, path string, a *agent.Agent) {
	if err := memory.SaveConversation(path, memory.TrimIncomplete(a.History())); err != nil {
		log.WithError(err).Warn("failed to save conversation")
	}
}
