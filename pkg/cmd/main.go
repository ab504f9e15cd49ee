package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"git.solsynth.dev/hypernet/chatkit/pkg/models"
	"git.solsynth.dev/hypernet/chatkit/pkg/session"
	"git.solsynth.dev/hypernet/chatkit/pkg/transport"
	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	authorStyle  = color.New(color.FgCyan, color.Bold)
	pendingStyle = color.New(color.FgHiBlack)
	failedStyle  = color.New(color.FgRed)
	editedStyle  = color.New(color.FgYellow)
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	token := viper.GetString("credentials.token")
	identity := session.Identity{
		ID:       viper.GetString("credentials.user_id"),
		Username: viper.GetString("credentials.username"),
	}
	if len(identity.ID) == 0 {
		if subject, err := transport.TokenSubject(token); err == nil {
			identity.ID = subject
		}
	}

	// Connect the two delivery channels
	rest := transport.NewRestSender(viper.GetString("endpoints.api"), token)
	gateway := transport.NewWsTransport(viper.GetString("endpoints.gateway"), token)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := gateway.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connecting to the realtime gateway.")
	}

	chat := session.New(identity, rest, gateway, session.OptionsFromViper(), session.Callbacks{
		OnUpdate: renderMessages,
		OnWarning: func(reason, message string) {
			log.Warn().Str("reason", reason).Msg(message)
		},
		OnTyping: func(_ models.ConversationKey, _, username string, active bool) {
			if active {
				pendingStyle.Printf("%s is typing...\n", username)
			}
		},
		OnCopy: func(content string) {
			fmt.Println(content)
		},
	})

	go chat.Run(ctx)

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc("@every 5m", chat.Housekeeping)
	quartz.Start()

	if channel := viper.GetString("conversation.channel"); len(channel) > 0 {
		if err := chat.SwitchConversation(models.ConversationKey{
			Type:     models.ConversationTypeChannel,
			TargetID: channel,
		}); err != nil {
			log.Error().Err(err).Msg("An error occurred when joining the conversation.")
		}
	}

	go readInput(chat)

	log.Info().Msg("Chatkit demo client is started...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Chatkit demo client is quitting...")

	quartz.Stop()
	chat.Close()
	_ = gateway.Close()
}

func readInput(chat *session.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			if _, err := chat.ComposeAndSend(line, nil, nil, nil); err != nil {
				log.Warn().Err(err).Msg("Unable to send your message.")
			}
			continue
		}
		if err := dealInput(chat, line); err != nil {
			log.Warn().Err(err).Msg("Unable to run your command.")
		}
	}
}

func dealInput(chat *session.Session, line string) error {
	parts := strings.Fields(line)
	switch parts[0] {
	case "/switch":
		if len(parts) < 3 {
			return fmt.Errorf("usage: /switch channel|direct <id>")
		}
		kind := models.ConversationTypeChannel
		if parts[1] == "direct" {
			kind = models.ConversationTypeDirect
		}
		return chat.SwitchConversation(models.ConversationKey{Type: kind, TargetID: parts[2]})
	case "/reply":
		if len(parts) < 3 {
			return fmt.Errorf("usage: /reply <id> <text>")
		}
		return chat.Do(models.Action{
			Kind:      models.ActionReply,
			MessageID: parts[1],
			Content:   strings.Join(parts[2:], " "),
		})
	case "/edit":
		if len(parts) < 3 {
			return fmt.Errorf("usage: /edit <id> <text>")
		}
		return chat.Do(models.Action{
			Kind:      models.ActionEdit,
			MessageID: parts[1],
			Content:   strings.Join(parts[2:], " "),
		})
	case "/delete":
		if len(parts) < 2 {
			return fmt.Errorf("usage: /delete <id>")
		}
		return chat.Do(models.Action{Kind: models.ActionDelete, MessageID: parts[1]})
	case "/react":
		if len(parts) < 3 {
			return fmt.Errorf("usage: /react <id> <emoji>")
		}
		return chat.Do(models.Action{Kind: models.ActionReact, MessageID: parts[1], Emoji: parts[2]})
	case "/pin":
		if len(parts) < 2 {
			return fmt.Errorf("usage: /pin <id>")
		}
		return chat.Do(models.Action{Kind: models.ActionPin, MessageID: parts[1]})
	case "/copy":
		if len(parts) < 2 {
			return fmt.Errorf("usage: /copy <id>")
		}
		return chat.Do(models.Action{Kind: models.ActionCopy, MessageID: parts[1]})
	case "/history":
		count, err := chat.LoadOlderMessages()
		if err == nil {
			log.Info().Int("count", count).Msg("Loaded older messages.")
		}
		return err
	default:
		return fmt.Errorf("unknown command %s", parts[0])
	}
}

func renderMessages(messages []models.Message) {
	for _, message := range messages {
		prefix := authorStyle.Sprintf("%s", message.AuthorName)
		suffix := ""
		switch message.Status {
		case models.MessageStatusProvisional:
			suffix = pendingStyle.Sprint(" (sending...)")
		case models.MessageStatusFailed:
			suffix = failedStyle.Sprint(" (failed to send)")
		}
		if message.EditedAt != nil {
			suffix += editedStyle.Sprint(" (edited)")
		}
		fmt.Printf("[%s] %s: %s%s\n", message.ID, prefix, message.Content, suffix)
	}
}
