package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/nymia/internal/config"
	"github.com/zhouzirui/nymia/internal/identity"
	model "github.com/zhouzirui/nymia/internal/model/chat"
	"github.com/zhouzirui/nymia/internal/service/auth"
	chatservice "github.com/zhouzirui/nymia/internal/service/chat"
	"github.com/zhouzirui/nymia/internal/transport"
	"github.com/zhouzirui/nymia/internal/voice"
)

var (
	userLabel      = color.New(color.FgCyan, color.Bold).Sprint("you")
	assistantLabel = color.New(color.FgGreen, color.Bold).Sprint("assistant")
	errorLabel     = color.New(color.FgRed, color.Bold).Sprint("error")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if !auth.ValidateKeyFormat(cfg.Client.APIKey) {
		log.Println("warning: NYMIA_API_KEY does not look like a JWT, the backend may reject it")
	}

	api := transport.New(cfg.Client.BaseURL, cfg.Client.APIKey)
	if err := auth.Probe(ctx, api); err != nil {
		log.Printf("warning: credential check against %s failed: %v", api.BaseURL(), err)
	}

	var ids identity.Store
	if path, err := identity.DefaultPath("client-id"); err != nil {
		log.Printf("warning: no config dir available, conversation reuse disabled: %v", err)
	} else {
		ids = identity.NewFileStore(path)
	}

	svc := chatservice.NewService(api, ids)
	svc.SetPreferences(cfg.Client.ShowImages, cfg.Client.AudioAnswers)

	fmt.Printf("%s — connected to %s\n", cfg.Client.Title, api.BaseURL())
	fmt.Println("Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Println()

	svc.Initialize(ctx)
	if err := svc.Err(); err != nil {
		log.Fatalf("failed to initialize chat session: %v", err)
	}
	for _, m := range svc.Messages() {
		printMessage(m)
	}

	if err := run(ctx, svc); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nGoodbye!")
}

func run(ctx context.Context, svc *chatservice.Service) error {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")

		// Read input with context awareness
		inputCh := make(chan string, 1)
		errCh := make(chan error, 1)

		go func() {
			if scanner.Scan() {
				inputCh <- scanner.Text()
			} else {
				if err := scanner.Err(); err != nil {
					errCh <- err
				} else {
					errCh <- io.EOF
				}
			}
		}()

		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case input = <-inputCh:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if input == "/quit" || input == "/exit" || input == "/q" {
			return nil
		}

		if handled := handleCommand(ctx, svc, input); handled {
			fmt.Println()
			continue
		}

		deliver(svc, func() { svc.Send(ctx, input) })
		fmt.Println()
	}
}

// handleCommand interprets slash commands; it reports false for plain chat input.
func handleCommand(ctx context.Context, svc *chatservice.Service, input string) bool {
	switch {
	case input == "/help":
		printHelp()
	case input == "/images":
		if svc.ToggleShowImages() {
			fmt.Println("Image processing: on")
		} else {
			fmt.Println("Image processing: off")
		}
	case input == "/audio":
		if svc.ToggleAudioAnswers() {
			fmt.Println("Audio answers: on")
		} else {
			fmt.Println("Audio answers: off")
		}
	case input == "/clear":
		svc.ClearMessages()
		fmt.Println("Transcript cleared. /init rebinds a conversation.")
	case input == "/init":
		svc.Initialize(ctx)
		if err := svc.Err(); err != nil {
			fmt.Printf("[%s] %v\n", errorLabel, err)
		} else {
			fmt.Printf("Bound to conversation %s\n", svc.ConversationID())
		}
	case strings.HasPrefix(input, "/voice"):
		path := strings.TrimSpace(strings.TrimPrefix(input, "/voice"))
		if path == "" {
			fmt.Println("Usage: /voice <audio-file>")
			return true
		}
		payload, err := voice.FromFile(path)
		if err != nil {
			fmt.Printf("[%s] %v\n", errorLabel, err)
			return true
		}
		deliver(svc, func() { svc.SendVoice(ctx, payload) })
	default:
		return false
	}
	return true
}

// deliver runs one send and prints whatever the turn appended, or the
// session error when the dispatch failed.
func deliver(svc *chatservice.Service, send func()) {
	before := len(svc.Messages())
	send()

	for _, m := range svc.Messages()[before:] {
		printMessage(m)
	}
	if err := svc.Err(); err != nil {
		fmt.Printf("[%s] %v\n", errorLabel, err)
	}
}

func printMessage(m model.Message) {
	label := assistantLabel
	if m.Sender == model.SenderUser {
		label = userLabel
	}
	fmt.Printf("%s: %s\n", label, m.Content)
	if m.AudioURL != "" {
		fmt.Printf("        [audio] %s\n", m.AudioURL)
	}
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /voice <file>  Send an audio file as a voice message")
	fmt.Println("  /images        Toggle image processing for replies")
	fmt.Println("  /audio         Toggle spoken (text-to-voice) answers")
	fmt.Println("  /clear         Clear the local transcript")
	fmt.Println("  /init          Re-resolve the conversation session")
	fmt.Println("  /help          Show this help")
	fmt.Println("  /quit          Exit")
}
