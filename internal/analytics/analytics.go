package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"oblivion/internal/storage"
	"oblivion/internal/utils"

	"github.com/bwmarrin/discordgo"
)

type Service struct {
	store *storage.Store
}

func New(store *storage.Store) *Service {
	return &Service{store: store}
}

// Report summarizes moderation and engagement activity for one guild.
type Report struct {
	Since       time.Time      `json:"since"`
	TotalCases  int            `json:"total_cases"`
	RecentCases int            `json:"recent_cases"`
	ByAction    map[string]int `json:"by_action"`
	Warnings    int            `json:"warnings"`
	ActiveMutes int            `json:"active_mutes"`
	XPUsers     int            `json:"xp_users"`
}

// Report counts cases created since the given time, plus guild-wide totals
// that are not time bound.
func (s *Service) Report(ctx context.Context, guildID string, since, now time.Time) (Report, error) {
	counts, err := s.store.CountModCasesByAction(ctx, guildID, since)
	if err != nil {
		return Report{}, fmt.Errorf("count cases by action: %w", err)
	}
	report := Report{Since: since, ByAction: make(map[string]int)}
	for _, c := range counts {
		report.RecentCases += c.Count
		report.ByAction[c.Action] = c.Count
	}

	if report.TotalCases, err = s.store.CountModCases(ctx, guildID); err != nil {
		return Report{}, fmt.Errorf("count cases: %w", err)
	}
	if report.Warnings, err = s.store.CountGuildWarnings(ctx, guildID); err != nil {
		return Report{}, fmt.Errorf("count warnings: %w", err)
	}
	if report.ActiveMutes, err = s.store.CountActiveMutes(ctx, guildID, now); err != nil {
		return Report{}, fmt.Errorf("count mutes: %w", err)
	}
	if report.XPUsers, err = s.store.CountXPUsers(ctx, guildID); err != nil {
		return Report{}, fmt.Errorf("count xp users: %w", err)
	}
	return report, nil
}

// Embed renders the report for the stats command.
func (r Report) Embed(guildName string) *discordgo.MessageEmbed {
	actions := make([]string, 0, len(r.ByAction))
	for action := range r.ByAction {
		actions = append(actions, action)
	}
	sort.Strings(actions)

	var breakdown strings.Builder
	for _, action := range actions {
		fmt.Fprintf(&breakdown, "%s: %s\n", action, utils.FormatNumber(int64(r.ByAction[action])))
	}
	if breakdown.Len() == 0 {
		breakdown.WriteString("No actions")
	}

	return &discordgo.MessageEmbed{
		Title: "📊 " + guildName + " Statistics",
		Color: utils.ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Total Cases", Value: utils.FormatNumber(int64(r.TotalCases)), Inline: true},
			{Name: "Warnings", Value: utils.FormatNumber(int64(r.Warnings)), Inline: true},
			{Name: "Active Mutes", Value: utils.FormatNumber(int64(r.ActiveMutes)), Inline: true},
			{Name: "Ranked Members", Value: utils.FormatNumber(int64(r.XPUsers)), Inline: true},
			{Name: fmt.Sprintf("Actions Since <t:%d:D>", r.Since.Unix()), Value: strings.TrimSpace(breakdown.String())},
		},
	}
}
