package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/jkaninda/kituo/internal/domain"
)

// Reply builders. All user-facing text lives here so the router stays free
// of formatting concerns; the transport delivers Text and Buttons unmodified.

func welcomeReply(chatID int64) Reply {
	return Reply{
		ChatID: chatID,
		Text: "🏦 *Welcome to the Call-Center Admin Console*\n\n" +
			"You are registered as an administrator.\n\n" +
			"Available commands:\n" +
			"/menu — Main menu\n" +
			"/requests — Active requests\n" +
			"/stats — Statistics\n" +
			"/help — Help\n\n" +
			"Use /menu to get started.",
		Markdown: true,
	}
}

func mainMenuReply(chatID int64) Reply {
	return Reply{
		ChatID: chatID,
		Text:   "📊 *Administrator Main Menu*\n\nChoose an action:",
		Buttons: [][]Button{
			{
				{Label: "🛡 Block card", Data: TokenBlockCard},
				{Label: "📱 Block app", Data: TokenBlockApp},
			},
			{
				{Label: "💳 Reissue card", Data: TokenReissueCard},
			},
			{
				{Label: "📋 Active requests", Data: TokenViewRequests},
			},
		},
		Markdown: true,
	}
}

func requestListReply(chatID int64, summaries []domain.RequestSummary) Reply {
	if len(summaries) == 0 {
		return Reply{ChatID: chatID, Text: "✅ No active requests"}
	}

	var b strings.Builder
	b.WriteString("*📋 Active requests:*\n\n")

	var buttons [][]Button
	for _, s := range summaries {
		fmt.Fprintf(&b, "%s %s *#%d* %s\n", priorityEmoji(s.Priority), statusEmoji(s.Status), s.ID, s.Type)
		fmt.Fprintf(&b, "👤 %s\n", s.ClientName)
		fmt.Fprintf(&b, "📞 %s\n\n", s.ClientPhone)

		buttons = append(buttons, []Button{{
			Label: fmt.Sprintf("Request #%d", s.ID),
			Data:  fmt.Sprintf("%s%d", prefixRequest, s.ID),
		}})
	}

	return Reply{ChatID: chatID, Text: b.String(), Buttons: buttons, Markdown: true}
}

func requestDetailReply(chatID int64, detail *domain.RequestDetail) Reply {
	req := detail.Request
	client := detail.Client

	var b strings.Builder
	fmt.Fprintf(&b, "*📋 Request #%d*\n\n", req.ID)
	fmt.Fprintf(&b, "*Type:* %s\n", req.Type)
	fmt.Fprintf(&b, "*Priority:* %s\n", req.Priority)
	fmt.Fprintf(&b, "*Status:* %s\n\n", req.Status)
	b.WriteString("*👤 Client:*\n")
	fmt.Fprintf(&b, "Name: %s\n", client.FullName)
	fmt.Fprintf(&b, "Phone: %s\n", client.Phone)
	fmt.Fprintf(&b, "Email: %s\n", orPlaceholder(client.Email, "not provided"))
	fmt.Fprintf(&b, "Card: %s\n\n", orPlaceholder(client.CardNumber, "not provided"))
	fmt.Fprintf(&b, "*Description:*\n%s\n\n", orPlaceholder(req.Description, "no description"))
	fmt.Fprintf(&b, "*Created:* %s", req.CreatedAt.Format(time.RFC3339))

	reply := Reply{ChatID: chatID, Text: b.String(), Markdown: true}
	if req.Status != domain.StatusCompleted {
		reply.Buttons = [][]Button{{{
			Label: "✅ Complete request",
			Data:  fmt.Sprintf("%s%d", prefixComplete, req.ID),
		}}}
	}
	return reply
}

func completedReply(chatID, requestID int64) Reply {
	return Reply{
		ChatID: chatID,
		Text:   fmt.Sprintf("✅ Request #%d completed!", requestID),
	}
}

func alreadyCompletedReply(chatID, requestID int64) Reply {
	return Reply{
		ChatID: chatID,
		Text:   fmt.Sprintf("ℹ️ Request #%d is already completed.", requestID),
	}
}

func requestNotFoundReply(chatID int64) Reply {
	return Reply{ChatID: chatID, Text: "❌ Request not found"}
}

func statisticsReply(chatID int64, stats *domain.Statistics) Reply {
	var b strings.Builder
	b.WriteString("*📊 Statistics*\n\n")
	fmt.Fprintf(&b, "*Total requests:* %d\n", stats.Total)
	fmt.Fprintf(&b, "*Pending:* %d\n", stats.Pending)
	fmt.Fprintf(&b, "*Processing:* %d\n", stats.Processing)
	fmt.Fprintf(&b, "*Completed:* %d\n\n", stats.Completed)
	b.WriteString("*Top request types:*\n")
	for _, t := range stats.TopTypes {
		fmt.Fprintf(&b, "• %s: %d\n", t.Type, t.Count)
	}

	return Reply{ChatID: chatID, Text: b.String(), Markdown: true}
}

func blockCardFormReply(chatID int64) Reply {
	return Reply{
		ChatID: chatID,
		Text: "*🛡 Block card*\n\n" +
			"To block a card, send the details in this format:\n" +
			"```\n" +
			"/block_card\n" +
			"Card number: 1234 5678 9012 3456\n" +
			"Phone: +1 999 123 45 67\n" +
			"Reason: lost\n" +
			"```\n\n" +
			"Accepted reasons: lost, stolen, fraud, client request",
		Markdown: true,
	}
}

func blockAppFormReply(chatID int64) Reply {
	return Reply{
		ChatID: chatID,
		Text: "*📱 Block app*\n\n" +
			"To block the mobile app, send the details in this format:\n" +
			"```\n" +
			"/block_app\n" +
			"Phone: +1 999 123 45 67\n" +
			"Email: client@example.com\n" +
			"Reason: device lost\n" +
			"```",
		Markdown: true,
	}
}

func reissueCardFormReply(chatID int64) Reply {
	return Reply{
		ChatID: chatID,
		Text: "*💳 Reissue card*\n\n" +
			"To reissue a card, send the details in this format:\n" +
			"```\n" +
			"/reissue_card\n" +
			"Card number: 1234 5678 9012 3456\n" +
			"Phone: +1 999 123 45 67\n" +
			"Address: 1 Main Street\n" +
			"Delivery: standard\n" +
			"```",
		Markdown: true,
	}
}

func helpReply(chatID int64) Reply {
	return Reply{
		ChatID: chatID,
		Text: "*📖 Command reference*\n\n" +
			"*Commands:*\n" +
			"/start — Register and get started\n" +
			"/menu — Main menu\n" +
			"/requests — Active requests\n" +
			"/stats — Statistics\n" +
			"/help — This reference\n\n" +
			"*Operations:*\n" +
			"• Block card\n" +
			"• Block app\n" +
			"• Reissue card\n" +
			"• View requests\n" +
			"• Complete requests\n\n" +
			"Use the menu buttons (/menu) to run operations.",
		Markdown: true,
	}
}

func unknownCommandReply(chatID int64) Reply {
	return Reply{
		ChatID: chatID,
		Text:   "❓ Unknown command. Use /menu to open the menu.",
	}
}

func storeFailureReply(chatID int64) Reply {
	return Reply{
		ChatID: chatID,
		Text:   "❗ Something went wrong. Please try again.",
	}
}

func priorityEmoji(p domain.Priority) string {
	switch p {
	case domain.PriorityHigh:
		return "🔴"
	case domain.PriorityMedium:
		return "🟡"
	default:
		return "🟢"
	}
}

func statusEmoji(s domain.Status) string {
	if s == domain.StatusPending {
		return "⏳"
	}
	return "🔄"
}

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}
