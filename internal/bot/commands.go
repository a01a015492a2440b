// internal/bot/commands.go
package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const (
	colorGreen   = 0x43B581
	colorYellow  = 0xFAA61A
	colorRed     = 0xF04747
	colorBlurple = 0x5865F2
	colorGrey    = 0x99AAB5
)

// RegisterCommands registers the /slowmode command tree.
func (h *Handler) RegisterCommands() error {
	manageChannels := int64(discordgo.PermissionManageChannels)

	command := &discordgo.ApplicationCommand{
		Name:                     "slowmode",
		Description:              "Adaptive slowmode configuration and statistics",
		DefaultMemberPermissions: &manageChannels,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "enable",
				Description: "Enable adaptive slowmode in this server",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "disable",
				Description: "Disable adaptive slowmode in this server",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "threshold",
				Description: "Set the default message threshold for this server",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "messages",
						Description: "Messages per minute before slowmode activates",
						Required:    true,
						MinValue:    float64Ptr(1),
						MaxValue:    100,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "interval",
				Description: "Set the update interval for slowmode adjustments",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "minutes",
						Description: "Interval in minutes",
						Required:    true,
						MinValue:    float64Ptr(1),
						MaxValue:    5,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "channel-enable",
				Description: "Enable adaptive slowmode for a channel",
				Options:     []*discordgo.ApplicationCommandOption{channelOption("The channel to enable")},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "channel-disable",
				Description: "Disable adaptive slowmode for a channel",
				Options:     []*discordgo.ApplicationCommandOption{channelOption("The channel to disable")},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "channel-threshold",
				Description: "Set the message threshold for a channel",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "messages",
						Description: "Messages per minute before slowmode activates (0 to use server default)",
						Required:    true,
						MinValue:    float64Ptr(0),
						MaxValue:    100,
					},
					channelOption("The channel to set the threshold for"),
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "config",
				Description: "View the current configuration for this server",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "stats",
				Description: "View slowmode statistics for a channel",
				Options:     []*discordgo.ApplicationCommandOption{channelOption("The channel to view stats for")},
			},
		},
	}

	_, err := h.session.ApplicationCommandCreate(h.session.State.User.ID, "", command)
	if err != nil {
		return fmt.Errorf("error creating 'slowmode' command: %v", err)
	}

	h.logger.Info("slash commands registered")
	return nil
}

func channelOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionChannel,
		Name:        "channel",
		Description: description,
		Required:    false,
		ChannelTypes: []discordgo.ChannelType{
			discordgo.ChannelTypeGuildText,
		},
	}
}

func float64Ptr(v float64) *float64 {
	return &v
}

func (h *Handler) handleGuildEnable(s *discordgo.Session, i *discordgo.InteractionCreate, enable bool) {
	if !h.requireGuild(s, i) || !h.requirePermission(s, i, discordgo.PermissionManageServer) {
		return
	}

	if _, err := h.db.GetGuildConfig(i.GuildID); err != nil {
		h.respondFailure(s, i, err, "updating the server configuration")
		return
	}
	if err := h.db.SetGuildEnabled(i.GuildID, enable); err != nil {
		h.respondFailure(s, i, err, "updating the server configuration")
		return
	}

	if enable {
		h.respondEmbed(s, i, &discordgo.MessageEmbed{
			Title: "✅ Adaptive Slowmode Enabled",
			Description: "Adaptive slowmode has been enabled in this server. " +
				"Use `/slowmode channel-enable` in channels where automatic slowmode should be applied.",
			Color: colorGreen,
		})
	} else {
		h.respondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "✅ Adaptive Slowmode Disabled",
			Description: "Adaptive slowmode has been disabled in this server.",
			Color:       colorRed,
		})
	}

	h.logger.Info("guild slowmode toggled", "guild_id", i.GuildID, "enabled", enable, "user_id", i.Member.User.ID)
}

func (h *Handler) handleGuildThreshold(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if !h.requireGuild(s, i) || !h.requirePermission(s, i, discordgo.PermissionManageServer) {
		return
	}

	threshold := int(options[0].IntValue())

	if _, err := h.db.GetGuildConfig(i.GuildID); err != nil {
		h.respondFailure(s, i, err, "setting the threshold")
		return
	}
	if err := h.db.SetGuildThreshold(i.GuildID, threshold); err != nil {
		h.respondFailure(s, i, err, "setting the threshold")
		return
	}

	h.respondEmbed(s, i, &discordgo.MessageEmbed{
		Title: "✅ Threshold Updated",
		Description: fmt.Sprintf(
			"The default message threshold has been set to **%d** messages/minute. "+
				"Channels exceeding this rate may have slowmode applied.", threshold),
		Color: colorGreen,
	})

	h.logger.Info("guild threshold updated", "guild_id", i.GuildID, "threshold", threshold, "user_id", i.Member.User.ID)
}

func (h *Handler) handleGuildInterval(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if !h.requireGuild(s, i) || !h.requirePermission(s, i, discordgo.PermissionManageServer) {
		return
	}

	minutes := int(options[0].IntValue())

	if _, err := h.db.GetGuildConfig(i.GuildID); err != nil {
		h.respondFailure(s, i, err, "setting the update interval")
		return
	}
	if err := h.db.SetGuildInterval(i.GuildID, minutes*60); err != nil {
		h.respondFailure(s, i, err, "setting the update interval")
		return
	}

	h.respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "✅ Update Interval Updated",
		Description: fmt.Sprintf("The slowmode update interval has been set to **%d** minutes.", minutes),
		Color:       colorGreen,
	})
}

func (h *Handler) handleChannelEnable(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption, enable bool) {
	if !h.requireGuild(s, i) || !h.requirePermission(s, i, discordgo.PermissionManageChannels) {
		return
	}

	channelID := h.targetChannelID(s, i, options)

	// Ensure the row exists before flipping the flag.
	if _, err := h.db.GetChannelConfig(channelID, i.GuildID); err != nil {
		h.respondFailure(s, i, err, "updating the channel configuration")
		return
	}
	if err := h.db.SetChannelEnabled(channelID, enable); err != nil {
		h.respondFailure(s, i, err, "updating the channel configuration")
		return
	}

	title, state, color := "✅ Channel Enabled", "enabled", colorGreen
	if !enable {
		title, state, color = "✅ Channel Disabled", "disabled", colorRed
	}
	h.respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("Adaptive slowmode has been **%s** for <#%s>.", state, channelID),
		Color:       color,
	})

	h.logger.Info("channel slowmode toggled",
		"guild_id", i.GuildID, "channel_id", channelID, "enabled", enable, "user_id", i.Member.User.ID)
}

func (h *Handler) handleChannelThreshold(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if !h.requireGuild(s, i) || !h.requirePermission(s, i, discordgo.PermissionManageChannels) {
		return
	}

	threshold := int(options[0].IntValue())
	channelID := h.targetChannelID(s, i, options)

	var thresholdValue *int
	if threshold > 0 {
		thresholdValue = &threshold
	}

	if _, err := h.db.GetChannelConfig(channelID, i.GuildID); err != nil {
		h.respondFailure(s, i, err, "setting the channel threshold")
		return
	}
	if err := h.db.SetChannelThreshold(channelID, thresholdValue); err != nil {
		h.respondFailure(s, i, err, "setting the channel threshold")
		return
	}

	description := fmt.Sprintf("The message threshold for <#%s> has been reset to the server default.", channelID)
	if thresholdValue != nil {
		description = fmt.Sprintf("The message threshold has been set to **%d** messages/minute for <#%s>.",
			threshold, channelID)
	}
	h.respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "✅ Channel Threshold Updated",
		Description: description,
		Color:       colorGreen,
	})
}

func (h *Handler) handleConfig(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.requireGuild(s, i) {
		return
	}

	guildConfig, err := h.db.GetGuildConfig(i.GuildID)
	if err != nil {
		h.respondFailure(s, i, err, "retrieving the configuration")
		return
	}
	enabledChannels, err := h.db.EnabledChannels(i.GuildID)
	if err != nil {
		h.respondFailure(s, i, err, "retrieving the configuration")
		return
	}

	status, color := "Enabled ✅", colorBlurple
	if !guildConfig.IsEnabled {
		status, color = "Disabled ❌", colorGrey
	}

	channelsValue := "No channels enabled"
	if len(enabledChannels) > 0 {
		channelsValue = fmt.Sprintf("%d channels", len(enabledChannels))
	}

	h.respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "⚙️ Adaptive Slowmode Configuration",
		Description: fmt.Sprintf("**Adaptive slowmode is %s**", status),
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "📊 Default Settings",
				Value: fmt.Sprintf("**Threshold:** %d messages/minute\n**Check Interval:** %d seconds",
					guildConfig.DefaultThreshold, guildConfig.UpdateInterval),
			},
			{
				Name:  "📝 Enabled Channels",
				Value: channelsValue,
			},
		},
	})
}

func (h *Handler) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if !h.requireGuild(s, i) {
		return
	}

	channelID := h.targetChannelID(s, i, options)

	channelConfig, err := h.db.GetChannelConfig(channelID, i.GuildID)
	if err != nil {
		h.respondFailure(s, i, err, "retrieving channel statistics")
		return
	}
	guildConfig, err := h.db.GetGuildConfig(i.GuildID)
	if err != nil {
		h.respondFailure(s, i, err, "retrieving channel statistics")
		return
	}

	rate1m, err := h.db.MessageRate(channelID, 60)
	if err != nil {
		h.respondFailure(s, i, err, "retrieving channel statistics")
		return
	}
	rate5m, _ := h.db.MessageRate(channelID, 300)
	rate15m, _ := h.db.MessageRate(channelID, 900)

	threshold := guildConfig.DefaultThreshold
	if channelConfig.Threshold != nil {
		threshold = *channelConfig.Threshold
	}

	var status string
	var color int
	switch {
	case !channelConfig.IsEnabled:
		status, color = "⚪ Disabled", colorGrey
	case rate1m < float64(threshold)*0.5:
		status, color = "🟢 Low Activity", colorGreen
	case rate1m < float64(threshold):
		status, color = "🟡 Moderate Activity", colorYellow
	default:
		status, color = "🔴 High Activity", colorRed
	}

	enabled := "No"
	if channelConfig.IsEnabled {
		enabled = "Yes"
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("📊 Channel Slowmode Statistics: <#%s>", channelID),
		Description: fmt.Sprintf("**Status:** %s", status),
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "📈 Current Activity",
				Value: fmt.Sprintf("1 Minute: %.2f msgs/min\n5 Minutes: %.2f msgs/min\n15 Minutes: %.2f msgs/min",
					rate1m, rate5m, rate15m),
				Inline: true,
			},
			{
				Name:   "⚙️ Configuration",
				Value:  fmt.Sprintf("**Threshold:** %d msg/min\n**Enabled:** %s", threshold, enabled),
				Inline: true,
			},
		},
	}

	if channel, err := s.State.Channel(channelID); err == nil {
		slowmodeValue := "Disabled"
		if channel.RateLimitPerUser > 0 {
			slowmodeValue = fmt.Sprintf("%d seconds", channel.RateLimitPerUser)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "⏱️ Current Slowmode",
			Value: slowmodeValue,
		})
	}

	if rate1m > float64(threshold) && channelConfig.IsEnabled {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: "⚠️ Activity is above threshold - slowmode may be adjusted soon",
		}
	}

	h.respondEmbed(s, i, embed)
}

// targetChannelID resolves the optional channel option, defaulting to the
// channel the command was invoked in.
func (h *Handler) targetChannelID(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) string {
	for _, option := range options {
		if option.Name == "channel" {
			if channel := option.ChannelValue(s); channel != nil {
				return channel.ID
			}
		}
	}
	return i.ChannelID
}

func (h *Handler) requireGuild(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if i.GuildID != "" {
		return true
	}
	h.respondEphemeral(s, i, "❌ This command can only be used in a server.")
	return false
}

func (h *Handler) requirePermission(s *discordgo.Session, i *discordgo.InteractionCreate, permission int64) bool {
	if i.Member != nil && i.Member.Permissions&permission != 0 {
		return true
	}
	h.respondEphemeral(s, i, "❌ You don't have permission to use this command.")
	return false
}

// respondFailure reports a generic message to the user and full detail to the
// log.
func (h *Handler) respondFailure(s *discordgo.Session, i *discordgo.InteractionCreate, err error, action string) {
	h.logger.Error("command failed",
		"guild_id", i.GuildID, "channel_id", i.ChannelID, "action", action, "error", err)
	h.respondEphemeral(s, i, fmt.Sprintf("❌ An error occurred while %s. Please try again later.", action))
}

func (h *Handler) respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		h.logger.Error("failed to respond to interaction", "error", err)
	}
}

func (h *Handler) respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
	if err != nil {
		h.logger.Error("failed to respond to interaction", "error", err)
	}
}
