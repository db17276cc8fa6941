package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/BradenHooton/inspireokc/internal/chat"
	"github.com/BradenHooton/inspireokc/internal/models"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	defaultEndpoint := os.Getenv("ASSISTANT_ENDPOINT")
	if defaultEndpoint == "" {
		defaultEndpoint = "http://localhost:8080/api/chat"
	}
	endpoint := flag.String("endpoint", defaultEndpoint, "chat endpoint URL")
	token := flag.String("token", os.Getenv("ASSISTANT_TOKEN"), "optional bearer token")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []chat.Option
	if *token != "" {
		opts = append(opts, chat.WithHeader("Authorization", "Bearer "+*token))
	}
	client := chat.NewClient(*endpoint, opts...)

	printer := &replyPrinter{}
	client.OnUpdate = printer.update

	conv := chat.NewConversation()
	fmt.Println("Inspire OKC assistant. Type a question, or /reset to start over. Ctrl-D quits.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/reset":
			conv = chat.NewConversation()
			fmt.Println("(conversation cleared)")
			continue
		}

		conv.AddUser(line)
		printer.reset(conv.Len())
		if err := client.Send(ctx, conv); err != nil {
			logger.Warn("chat request failed", slog.Any("error", err))
		}
		fmt.Println()

		if ctx.Err() != nil {
			return
		}
	}
}

// replyPrinter writes only the text added since the last update
type replyPrinter struct {
	index   int
	printed int
}

func (p *replyPrinter) reset(index int) {
	p.index = index
	p.printed = 0
}

func (p *replyPrinter) update(conv *chat.Conversation) {
	messages := conv.Messages()
	if p.index >= len(messages) {
		return
	}
	msg := messages[p.index]
	if msg.Role != models.RoleAssistant || len(msg.Content) <= p.printed {
		return
	}
	fmt.Print(msg.Content[p.printed:])
	p.printed = len(msg.Content)
}
