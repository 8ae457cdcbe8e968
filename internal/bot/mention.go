package bot

import (
	"math/rand"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type mentionTopic struct {
	pattern *regexp.Regexp
	replies []string
}

// mentionTopics are tried in order; the first match answers.
var mentionTopics = []mentionTopic{
	{
		pattern: regexp.MustCompile(`(?i)\b(hi|hello|hey|yo|sup|hiya|greetings)\b`),
		replies: []string{"Hey there! 👋", "Hello! How can I help?", "Hi! 😄", "Yo! What's up?"},
	},
	{
		pattern: regexp.MustCompile(`(?i)how (are|r) (you|u)|how's it going|what's up`),
		replies: []string{"I'm doing great, thanks for asking! 😊", "All systems running smoothly! ⚙️", "Living the bot life. You?"},
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(good bot|love you|you'?re (the )?best|awesome|cool bot)\b`),
		replies: []string{"Aww, thank you! 💖", "You're pretty great yourself! ✨", "*happy beeping* 🤖"},
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(bad bot|stupid|dumb|useless|hate you)\b`),
		replies: []string{"That's not very nice... 😢", "I'm doing my best! 😔", "Ouch. Noted."},
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(help|commands|what can you do)\b`),
		replies: []string{"Type `/` to see all my commands! 📜", "Check out my slash commands by typing `/`."},
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(thanks|thank you|thx|ty)\b`),
		replies: []string{"You're welcome! 😊", "Anytime! 👍", "Happy to help!"},
	},
	{
		pattern: regexp.MustCompile(`(?i)are (you|u) (a )?(bot|robot|real|human)`),
		replies: []string{"Beep boop. Yes, I'm a bot 🤖", "100% certified bot. No humans inside.", "I'm as real as your Wi-Fi connection."},
	},
}

var defaultReplies = []string{"You called? 👀", "Hmm? 🤔", "I'm here!", "What's up?"}

// mentionReply picks an answer for content using intn to choose among the
// topic's replies.
func mentionReply(content string, intn func(int) int) string {
	for _, topic := range mentionTopics {
		if topic.pattern.MatchString(content) {
			return topic.replies[intn(len(topic.replies))]
		}
	}
	return defaultReplies[intn(len(defaultReplies))]
}

// stripMentions removes user mentions so the bot's own name does not feed
// the topic patterns.
func stripMentions(content string) string {
	return strings.TrimSpace(userMention.ReplaceAllString(content, ""))
}

var userMention = regexp.MustCompile(`<@!?\d+>`)

func (b *Bot) replyToMention(msg *discordgo.MessageCreate) {
	if !b.mentions.Allow(msg.GuildID + ":" + msg.Author.ID) {
		return
	}
	reply := mentionReply(stripMentions(msg.Content), rand.Intn)
	if _, err := b.session.ChannelMessageSendReply(msg.ChannelID, reply, msg.Reference()); err != nil {
		b.logger.Debug("mention reply failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
	}
}
