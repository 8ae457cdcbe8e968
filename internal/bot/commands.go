package bot

import (
	"fmt"

	"oblivion/internal/modules/achievements"
	"oblivion/internal/storage"

	"github.com/bwmarrin/discordgo"
)

func perms(p int64) *int64 { return &p }

func floatPtr(f float64) *float64 { return &f }

var dmDisabled = new(bool)

func userOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionUser, Name: name, Description: description, Required: required}
}

func stringOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: name, Description: description, Required: required}
}

func intOption(name, description string, required bool, min, max float64) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        name,
		Description: description,
		Required:    required,
		MinValue:    floatPtr(min),
		MaxValue:    max,
	}
}

func channelOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         name,
		Description:  description,
		Required:     required,
		ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
	}
}

func reasonOption() *discordgo.ApplicationCommandOption {
	return stringOption("reason", "Reason for the action", false)
}

func subcommand(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionSubCommand, Name: name, Description: description, Options: options}
}

func featureChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(storage.Features))
	for _, f := range storage.Features {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: f.String(), Value: f.String()})
	}
	return choices
}

func actionChoices() []*discordgo.ApplicationCommandOptionChoice {
	return []*discordgo.ApplicationCommandOptionChoice{
		{Name: "delete", Value: string(storage.ActionDelete)},
		{Name: "warn", Value: string(storage.ActionWarn)},
		{Name: "both", Value: string(storage.ActionBoth)},
	}
}

func tierChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(storage.AchievementRoleKeys))
	for _, key := range storage.AchievementRoleKeys {
		tier, ok := achievements.LookupTier(key)
		if !ok {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  fmt.Sprintf("%s %s (%s)", tier.Emoji, tier.Name, tier.Description()),
			Value: key,
		})
	}
	return choices
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:                     "ban",
			Description:              "Ban a user from the server",
			DefaultMemberPermissions: perms(discordgo.PermissionBanMembers),
			DMPermission:             dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("user", "The user to ban", true),
				reasonOption(),
				intOption("delete_days", "Days of messages to delete (0-7)", false, 0, 7),
			},
		},
		{
			Name:                     "kick",
			Description:              "Kick a member from the server",
			DefaultMemberPermissions: perms(discordgo.PermissionKickMembers),
			DMPermission:             dmDisabled,
			Options:                  []*discordgo.ApplicationCommandOption{userOption("user", "The member to kick", true), reasonOption()},
		},
		{
			Name:                     "mute",
			Description:              "Timeout a member",
			DefaultMemberPermissions: perms(discordgo.PermissionModerateMembers),
			DMPermission:             dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("user", "The member to mute", true),
				stringOption("duration", "Duration such as 10m, 1h or 2d (max 28d)", true),
				reasonOption(),
			},
		},
		{
			Name:                     "unmute",
			Description:              "Remove a member's timeout",
			DefaultMemberPermissions: perms(discordgo.PermissionModerateMembers),
			DMPermission:             dmDisabled,
			Options:                  []*discordgo.ApplicationCommandOption{userOption("user", "The member to unmute", true), reasonOption()},
		},
		{
			Name:                     "warn",
			Description:              "Warn a member",
			DefaultMemberPermissions: perms(discordgo.PermissionModerateMembers),
			DMPermission:             dmDisabled,
			Options:                  []*discordgo.ApplicationCommandOption{userOption("user", "The member to warn", true), reasonOption()},
		},
		{
			Name:                     "unwarn",
			Description:              "Remove a member's most recent warnings",
			DefaultMemberPermissions: perms(discordgo.PermissionModerateMembers),
			DMPermission:             dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("user", "The member", true),
				intOption("amount", "How many warnings to remove", false, 1, 100),
				reasonOption(),
			},
		},
		{
			Name:                     "warnings",
			Description:              "List a member's warnings",
			DefaultMemberPermissions: perms(discordgo.PermissionModerateMembers),
			DMPermission:             dmDisabled,
			Options:                  []*discordgo.ApplicationCommandOption{userOption("user", "The member", true)},
		},
		{
			Name:                     "unban",
			Description:              "Unban a user",
			DefaultMemberPermissions: perms(discordgo.PermissionBanMembers),
			DMPermission:             dmDisabled,
			Options:                  []*discordgo.ApplicationCommandOption{stringOption("user_id", "ID of the banned user", true), reasonOption()},
		},
		{
			Name:                     "purge",
			Description:              "Bulk delete recent messages",
			DefaultMemberPermissions: perms(discordgo.PermissionManageMessages),
			DMPermission:             dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				intOption("amount", "Number of messages (1-100)", true, 1, 100),
				userOption("user", "Only delete messages from this user", false),
			},
		},
		{
			Name:                     "case",
			Description:              "View a moderation case",
			DefaultMemberPermissions: perms(discordgo.PermissionModerateMembers),
			DMPermission:             dmDisabled,
			Options:                  []*discordgo.ApplicationCommandOption{intOption("number", "Case number", true, 1, 1e9)},
		},
		{
			Name:                     "cases",
			Description:              "List recent moderation cases",
			DefaultMemberPermissions: perms(discordgo.PermissionModerateMembers),
			DMPermission:             dmDisabled,
			Options:                  []*discordgo.ApplicationCommandOption{userOption("user", "Only cases for this user", false)},
		},
		{
			Name:                     "removecase",
			Description:              "Delete a moderation case",
			DefaultMemberPermissions: perms(discordgo.PermissionAdministrator),
			DMPermission:             dmDisabled,
			Options:                  []*discordgo.ApplicationCommandOption{intOption("number", "Case number", true, 1, 1e9)},
		},
		{
			Name:                     "settings",
			Description:              "Configure the bot for this server",
			DefaultMemberPermissions: perms(discordgo.PermissionManageServer),
			DMPermission:             dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("view", "Show the current settings"),
				subcommand("modlog", "Set the moderation log channel", channelOption("channel", "Leave empty to disable", false)),
				subcommand("eventlog", "Set the event log channel", channelOption("channel", "Leave empty to disable", false)),
				subcommand("automod", "Configure an AutoMod filter",
					&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: "feature", Description: "Filter", Required: true, Choices: featureChoices()},
					&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionBoolean, Name: "enabled", Description: "Turn the filter on or off", Required: true},
					&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: "action", Description: "What to do with matches", Choices: actionChoices()},
				),
				subcommand("bannedword", "Add or remove a banned word",
					&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: "action", Description: "add or remove", Required: true, Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "add", Value: "add"},
						{Name: "remove", Value: "remove"},
					}},
					stringOption("word", "The word", true),
				),
				subcommand("levelup", "Toggle level up messages",
					&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionBoolean, Name: "enabled", Description: "Announce level ups", Required: true},
				),
				subcommand("achievementmessages", "Toggle achievement announcements",
					&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionBoolean, Name: "enabled", Description: "Announce unlocks", Required: true},
				),
			},
		},
		{
			Name:         "rank",
			Description:  "Show a member's level and XP",
			DMPermission: dmDisabled,
			Options:      []*discordgo.ApplicationCommandOption{userOption("user", "Member to look up", false)},
		},
		{
			Name:         "leaderboard",
			Description:  "Show the XP leaderboard",
			DMPermission: dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "timeframe", Description: "All time or this week", Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "All time", Value: "alltime"},
					{Name: "Weekly", Value: "weekly"},
				}},
			},
		},
		{
			Name:         "achievements",
			Description:  "Show a member's achievements",
			DMPermission: dmDisabled,
			Options:      []*discordgo.ApplicationCommandOption{userOption("user", "Member to look up", false)},
		},
		{
			Name:                     "achsetup",
			Description:              "Link an achievement tier to a role",
			DefaultMemberPermissions: perms(discordgo.PermissionManageRoles),
			DMPermission:             dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "tier", Description: "Achievement tier", Required: true, Choices: tierChoices()},
				{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Leave empty to unlink"},
			},
		},
		{
			Name:                     "setxp",
			Description:              "Set a member's total XP",
			DefaultMemberPermissions: perms(discordgo.PermissionAdministrator),
			DMPermission:             dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("user", "The member", true),
				intOption("xp", "New XP total", true, 0, 1e12),
			},
		},
		{
			Name:                     "giveaway",
			Description:              "Run giveaways",
			DefaultMemberPermissions: perms(discordgo.PermissionManageServer),
			DMPermission:             dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("start", "Start a giveaway in this channel",
					stringOption("prize", "What is being given away", true),
					stringOption("duration", "How long it runs, e.g. 1h or 2d", true),
					intOption("winners", "Number of winners", false, 1, 20),
				),
				subcommand("end", "End a giveaway now", stringOption("message_id", "Giveaway message ID", true)),
				subcommand("reroll", "Pick a new winner", stringOption("message_id", "Giveaway message ID", true)),
			},
		},
		{
			Name:                     "welcome",
			Description:              "Configure welcome messages",
			DefaultMemberPermissions: perms(discordgo.PermissionManageServer),
			DMPermission:             dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("enable", "Enable welcome messages",
					channelOption("channel", "Where to greet new members", true),
					stringOption("message", "Template using {user}, {server} and {memberCount}", false),
				),
				subcommand("disable", "Disable welcome messages"),
				subcommand("test", "Preview the welcome message"),
			},
		},
		{
			Name:         "userinfo",
			Description:  "Show information about a user",
			DMPermission: dmDisabled,
			Options:      []*discordgo.ApplicationCommandOption{userOption("user", "User to look up", false)},
		},
		{
			Name:         "stats",
			Description:  "Show server moderation and activity statistics",
			DMPermission: dmDisabled,
		},
	}
}

// registerCommands syncs the global command set: existing commands are
// edited, missing ones created and stale ones deleted.
func (b *Bot) registerCommands() error {
	commands := commandDefinitions()
	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}
	return nil
}
