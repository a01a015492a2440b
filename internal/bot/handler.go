// internal/bot/handler.go
package bot

import (
	"log/slog"

	"discord-slowmode-bot/internal/database"

	"github.com/bwmarrin/discordgo"
)

// Handler ingests message activity and serves the slash-command surface.
type Handler struct {
	db      *database.DB
	session *discordgo.Session
	logger  *slog.Logger
	botID   string
}

func NewHandler(db *database.DB, logger *slog.Logger) *Handler {
	return &Handler{
		db:     db,
		logger: logger,
	}
}

func (h *Handler) SetSession(s *discordgo.Session) {
	h.session = s

	user, err := s.User("@me")
	if err != nil {
		h.logger.Error("failed to get bot user", "error", err)
		return
	}
	h.botID = user.ID

	s.AddHandler(h.handleInteraction)
}

// OnMessageCreate records message activity for rate tracking. Bot and system
// messages and DMs are excluded.
func (h *Handler) OnMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	timestamp := m.Timestamp.Unix()

	go func() {
		if err := h.db.RecordMessage(m.ChannelID, timestamp); err != nil {
			h.logger.Error("failed to record message activity",
				"guild_id", m.GuildID, "channel_id", m.ChannelID, "error", err)
		}
	}()
}

func (h *Handler) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	if data.Name != "slowmode" || len(data.Options) == 0 {
		return
	}

	sub := data.Options[0]
	switch sub.Name {
	case "enable":
		h.handleGuildEnable(s, i, true)
	case "disable":
		h.handleGuildEnable(s, i, false)
	case "threshold":
		h.handleGuildThreshold(s, i, sub.Options)
	case "interval":
		h.handleGuildInterval(s, i, sub.Options)
	case "channel-enable":
		h.handleChannelEnable(s, i, sub.Options, true)
	case "channel-disable":
		h.handleChannelEnable(s, i, sub.Options, false)
	case "channel-threshold":
		h.handleChannelThreshold(s, i, sub.Options)
	case "config":
		h.handleConfig(s, i)
	case "stats":
		h.handleStats(s, i, sub.Options)
	}
}
