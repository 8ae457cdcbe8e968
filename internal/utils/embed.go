package utils

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	ColorSuccess = 0x00FF00
	ColorError   = 0xFF0000
	ColorWarning = 0xFFCC00
	ColorInfo    = 0x3498DB
)

func Embed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

func SuccessEmbed(description string) *discordgo.MessageEmbed {
	return Embed("✅ Success", description, ColorSuccess)
}

func ErrorEmbed(description string) *discordgo.MessageEmbed {
	return Embed("❌ Error", description, ColorError)
}

func WarningEmbed(description string) *discordgo.MessageEmbed {
	return Embed("⚠️ Warning", description, ColorWarning)
}

func InfoEmbed(description string) *discordgo.MessageEmbed {
	return Embed("ℹ️ Information", description, ColorInfo)
}

// Truncate cuts s to at most n runes, ending with "..." when shortened.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
