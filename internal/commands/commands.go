package commands

import "github.com/bwmarrin/discordgo"

// toggleSubcommands maps /antinuke subcommand names to their policy
// flag descriptions. One subcommand per flag, all shaped the same.
var toggleSubcommands = []struct {
	Name        string
	Description string
}{
	{"massban", "Toggle mass ban protection"},
	{"masskick", "Toggle mass kick protection"},
	{"massdelete", "Toggle mass channel delete protection"},
	{"massping", "Toggle mass ping protection"},
	{"webhookspam", "Toggle webhook spam protection"},
	{"dangerperms", "Toggle dangerous role permission protection"},
	{"unauthorizedbot", "Toggle unauthorized bot screening"},
}

func userSubcommands(noun string) []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Name:        "add",
			Description: "Add a user to the " + noun,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "user",
					Description: "User to add",
					Type:        discordgo.ApplicationCommandOptionUser,
					Required:    true,
				},
			},
		},
		{
			Name:        "remove",
			Description: "Remove a user from the " + noun,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "user",
					Description: "User to remove",
					Type:        discordgo.ApplicationCommandOptionUser,
					Required:    true,
				},
			},
		},
		{
			Name:        "list",
			Description: "List everyone on the " + noun,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
		},
	}
}

// GetAllCommands returns all application commands
func GetAllCommands() []*discordgo.ApplicationCommand {
	antinukeOptions := make([]*discordgo.ApplicationCommandOption, 0, len(toggleSubcommands)+1)
	for _, t := range toggleSubcommands {
		antinukeOptions = append(antinukeOptions, &discordgo.ApplicationCommandOption{
			Name:        t.Name,
			Description: t.Description,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "enabled",
					Description: "Enable or disable this protection",
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Required:    true,
				},
			},
		})
	}
	antinukeOptions = append(antinukeOptions, &discordgo.ApplicationCommandOption{
		Name:        "bot-authorize",
		Description: "Authorize a bot to join this guild",
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "id",
				Description: "Bot user ID",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    true,
			},
		},
	})

	return []*discordgo.ApplicationCommand{
		{
			Name:        "whitelist",
			Description: "Manage users exempt from automated corrections",
			Options:     userSubcommands("whitelist"),
		},
		{
			Name:        "trusted",
			Description: "Manage users allowed to change security settings",
			Options:     userSubcommands("trusted list"),
		},
		{
			Name:        "antinuke",
			Description: "Configure anti-nuke protections",
			Options:     antinukeOptions,
		},
		{
			Name:        "lockdown",
			Description: "Lock the server down (with confirmation)",
		},
		{
			Name:        "unlockdown",
			Description: "Lift the server lockdown",
		},
		{
			Name:        "logs",
			Description: "Set the security log channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "channel",
					Description: "Channel to send security notifications to",
					Type:        discordgo.ApplicationCommandOptionChannel,
					Required:    true,
				},
			},
		},
		{
			Name:        "status",
			Description: "Show protection status for this guild",
		},
		{
			Name:        "stats",
			Description: "Show host and runtime statistics",
		},
	}
}
