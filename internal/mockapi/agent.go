package mockapi

import (
	"fmt"
	"strings"

	"github.com/Zacy-Sokach/crmassist/internal/api"
	"github.com/Zacy-Sokach/crmassist/internal/crm"
)

type reply struct {
	text  string
	steps []api.ThinkingStep
}

// answer 按关键字挑选固定回复。ok 为 false 时模拟代理失败
func answer(message string) (reply, bool) {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "fail"):
		return reply{}, false
	case isGreeting(m):
		// 没有推理步骤，界面应保留上一轮的推理
		return reply{text: "Hello! Ask me about your pipeline, emails or interactions."}, true
	case strings.Contains(m, "funnel") || strings.Contains(m, "drop"):
		return funnelReply(), true
	case strings.Contains(m, "email"):
		return emailReply(), true
	case strings.Contains(m, "deal") || strings.Contains(m, "interaction"):
		return dealReply(), true
	}
	return insightsReply(), true
}

func isGreeting(m string) bool {
	m = strings.Trim(strings.TrimSpace(m), "!.?")
	switch m {
	case "hi", "hello", "hey", "thanks", "thank you":
		return true
	}
	return false
}

func funnelReply() reply {
	var counts []string
	for _, st := range crm.DefaultFunnel {
		counts = append(counts, fmt.Sprintf("%s=%d", st.Name, st.Count))
	}
	worst, _ := crm.WorstDropOff(crm.DefaultFunnel)

	text := fmt.Sprintf("The funnel shows a sharp drop-off at the later stages. "+
		"Only **%.0f%%** of deals move from *%s* to *%s*.\n\n"+
		"Action:\n\n"+
		"1. Analyze reasons for losing deals in the Contracting and Proposal stages.\n"+
		"2. Revisit proposals for clarity and competitive value.\n",
		worst.Rate*100, worst.From, worst.To)

	return reply{
		text: text,
		steps: []api.ThinkingStep{
			{
				Thought:     "I need the opportunity count per funnel stage.",
				Action:      "query_crm",
				ActionInput: "SELECT stage, COUNT(*) FROM opportunities GROUP BY stage",
				Observation: strings.Join(counts, ", "),
			},
			{
				Thought: fmt.Sprintf("The weakest conversion is %s -> %s.", worst.From, worst.To),
			},
		},
	}
}

func emailReply() reply {
	emails := seedEmails()
	var lines []string
	withData := 0
	for _, e := range emails {
		lines = append(lines, fmt.Sprintf("- **%s** from %s", e.Subject, e.FromEmail))
		if e.ExtractedData != nil {
			withData++
		}
	}
	text := fmt.Sprintf("You have %d recent emails, %d with extracted CRM data:\n\n%s\n",
		len(emails), withData, strings.Join(lines, "\n"))

	return reply{
		text: text,
		steps: []api.ThinkingStep{{
			Thought:     "Fetch the latest emails from the inbox.",
			Action:      "get_emails",
			ActionInput: `{"limit": 10}`,
			Observation: fmt.Sprintf("%d emails returned", len(emails)),
		}},
	}
}

func dealReply() reply {
	interactions := seedInteractions()
	total := crm.SumDealValue(interactions)
	byMedium := crm.InteractionsByMedium(interactions)

	var lines []string
	for _, mc := range byMedium {
		lines = append(lines, fmt.Sprintf("- %s: %d interactions, $%.2f", mc.Medium, mc.Count, mc.DealValue))
	}
	text := fmt.Sprintf("Open deal value across %d interactions is **$%.2f**.\n\n%s\n",
		len(interactions), total, strings.Join(lines, "\n"))

	return reply{
		text: text,
		steps: []api.ThinkingStep{
			{
				Thought:     "Load the recorded interactions.",
				Action:      "query_crm",
				ActionInput: "SELECT * FROM interactions",
				Observation: fmt.Sprintf("%d rows", len(interactions)),
			},
			{
				Thought:     "Sum deal_value grouped by interaction_medium.",
				Action:      "aggregate",
				ActionInput: "deal_value by interaction_medium",
				Observation: fmt.Sprintf("total=%.2f", total),
			},
		},
	}
}

func insightsReply() reply {
	text := "Here are the key insights for your dashboard:\n\n" +
		"**The funnel shows a sharp drop-off at the later stages.**\n\n" +
		"1. Analyze reasons for losing deals in the Contracting and Proposal stages.\n" +
		"2. Revisit proposals for clarity and competitive value.\n\n" +
		"**A high opportunity amount ($999,928) is active, but only a tiny percentage progresses to 'Closed Won.'**\n\n" +
		"1. Review active opportunities to identify bottlenecks or delays.\n" +
		"2. Implement regular pipeline reviews to keep deals moving.\n"

	return reply{
		text: text,
		steps: []api.ThinkingStep{{
			Thought:     "Summarize the dashboard metrics.",
			Action:      "read_dashboard",
			Observation: "opportunities=463, amount=$999,928.00, open_leads=56",
		}},
	}
}
