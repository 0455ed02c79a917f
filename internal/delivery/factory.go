package delivery

import (
	"fmt"
	"strings"

	"github.com/dealposter/internal/config"
)

const (
	KindLog     = "log"
	KindOneBot  = "onebot"
	KindDiscord = "discord"
)

var defaultTemplates = map[string]string{
	KindLog:     "log:%s",
	KindOneBot:  "aiocqhttp:group:%s",
	KindDiscord: "https://discord.com/api/webhooks/%s",
}

// FromConfig builds the Dispatcher for the configured delivery kind.
func FromConfig(cfg *config.Config, observer Observer) (*Dispatcher, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Delivery.Kind))
	if kind == "" {
		kind = KindLog
	}

	var sender Sender
	switch kind {
	case KindLog:
		sender = LogSender{}
	case KindOneBot:
		sender = NewOneBotSender(cfg.OneBot)
	case KindDiscord:
		sender = NewDiscordSender(cfg.Discord)
	default:
		return nil, fmt.Errorf("unknown delivery kind: %s", cfg.Delivery.Kind)
	}

	template := cfg.Delivery.AddressTemplate
	if template == "" {
		template = defaultTemplates[kind]
	}
	return NewDispatcher(sender, template, observer), nil
}
