package main

import (
	"fmt"
	"log"
	"strings"
	"sync"

	twitchirc "github.com/gempir/go-twitch-irc/v4"
)

const commandPrefix = "!"

// CommandHandler receives the sender's display name and the raw message text.
type CommandHandler func(sender, text string)

// CommandRouter maps a fixed command word (first whitespace-delimited token
// after the prefix) to a handler. Unmatched input is ignored.
type CommandRouter struct {
	handlers map[string]CommandHandler
}

func NewCommandRouter() *CommandRouter {
	return &CommandRouter{handlers: make(map[string]CommandHandler)}
}

// Handle registers a handler for a command word, without the prefix.
func (r *CommandRouter) Handle(command string, h CommandHandler) {
	r.handlers[strings.ToLower(command)] = h
}

// Dispatch routes one chat message. Non-command messages and unknown
// commands fall through silently.
func (r *CommandRouter) Dispatch(sender, text string) {
	if !strings.HasPrefix(text, commandPrefix) {
		return
	}
	word := strings.Fields(strings.TrimPrefix(text, commandPrefix))
	if len(word) == 0 {
		return
	}
	h, ok := r.handlers[strings.ToLower(word[0])]
	if !ok {
		return
	}
	h(sender, text)
}

// chatClient is the slice of the IRC client the bot drives; the real
// implementation is gempir's client.
type chatClient interface {
	OnPrivateMessage(func(message twitchirc.PrivateMessage))
	Join(channels ...string)
	Say(channel, text string)
	Connect() error
	Disconnect() error
}

// Bot owns the chat connection for the configured bot identity. Attach is
// called whenever that identity completes authorization (or is rehydrated at
// boot); each attach replaces any previous connection rather than patching
// it.
type Bot struct {
	channel string
	router  *CommandRouter

	newClient func(username, oauthToken string) chatClient

	mu     sync.Mutex
	client chatClient
}

func NewBot(channel string, router *CommandRouter) *Bot {
	return &Bot{
		channel: channel,
		router:  router,
		newClient: func(username, oauthToken string) chatClient {
			return twitchirc.NewClient(username, oauthToken)
		},
	}
}

// Attach connects the bot to chat using the given credential. Any previous
// connection is dropped first.
func (b *Bot) Attach(identity *UserIdentity, cred *Credential) error {
	if cred == nil || cred.AccessToken == "" {
		return fmt.Errorf("no access token for %s", identity.Login)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		if err := b.client.Disconnect(); err != nil {
			log.Printf("bot: disconnect previous session: %v", err)
		}
	}

	client := b.newClient(identity.Login, "oauth:"+cred.AccessToken)
	client.OnPrivateMessage(func(m twitchirc.PrivateMessage) {
		b.router.Dispatch(m.User.DisplayName, m.Message)
	})
	client.Join(b.channel)
	b.client = client

	go func() {
		if err := client.Connect(); err != nil {
			log.Printf("bot: chat connection for %s ended: %v", identity.Login, err)
		}
	}()

	log.Printf("bot: %s attached to #%s", identity.Login, b.channel)
	return nil
}

// Say sends a line to the bot channel, if connected.
func (b *Bot) Say(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil {
		b.client.Say(b.channel, text)
	}
}

// Close drops the chat connection.
func (b *Bot) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == nil {
		return nil
	}
	err := b.client.Disconnect()
	b.client = nil
	return err
}
