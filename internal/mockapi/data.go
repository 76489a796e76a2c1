package mockapi

import (
	"github.com/Zacy-Sokach/crmassist/internal/api"
)

type eventRecord = api.CalendarEvent

func seedEmails() []api.Email {
	return []api.Email{
		{
			ID:        "m-101",
			Subject:   "Re: Proposal for Q3 rollout",
			FromEmail: "dana@northwind.example",
			ToEmail:   "sales@crm.example",
			Date:      "2025-06-02T09:14:00Z",
			Body:      "Thanks for the proposal. Can we move the kickoff to next Thursday? Budget approved at $42,000.",
			ExtractedData: &api.ExtractedData{
				ContactName:  "Dana Reyes",
				Company:      "Northwind",
				NextStep:     "Schedule kickoff",
				DealValue:    42000,
				FollowUpDate: "2025-06-05",
			},
		},
		{
			ID:        "m-102",
			Subject:   "Pricing question",
			FromEmail: "li.wei@contoso.example",
			ToEmail:   "sales@crm.example",
			Date:      "2025-06-01T16:40:00Z",
			Body:      "Is the enterprise tier billed annually?",
		},
		{
			ID:        "m-103",
			Subject:   "Contract redlines",
			FromEmail: "legal@fabrikam.example",
			ToEmail:   "sales@crm.example",
			Date:      "2025-05-30T11:02:00Z",
			Body:      "Attached are our redlines on section 4. We need a decision by Friday.",
			ExtractedData: &api.ExtractedData{
				Company:  "Fabrikam",
				NextStep: "Review redlines",
				Notes:    "Decision needed by Friday",
			},
		},
	}
}

func seedEvents() []eventRecord {
	return []eventRecord{
		{
			ID:        "evt-1",
			Summary:   "Northwind kickoff",
			Start:     "2025-06-05T15:00:00Z",
			End:       "2025-06-05T16:00:00Z",
			Attendees: []string{"dana@northwind.example"},
		},
		{
			ID:       "evt-2",
			Summary:  "Pipeline review",
			Start:    "2025-06-06T09:00:00Z",
			End:      "2025-06-06T09:30:00Z",
			Location: "Room 4",
		},
	}
}

func seedInteractions() []api.Interaction {
	return []api.Interaction{
		{ID: 1, ContactName: "Dana Reyes", Company: "Northwind", NextStep: "Schedule kickoff", DealValue: 42000, FollowUpDate: "2025-06-05", InteractionMedium: "email"},
		{ID: 2, ContactName: "Li Wei", Company: "Contoso", NextStep: "Send pricing sheet", DealValue: 18500, InteractionMedium: "email"},
		{ID: 3, ContactName: "Sam Okafor", Company: "Fabrikam", NextStep: "Review redlines", DealValue: 96000, FollowUpDate: "2025-06-06", InteractionMedium: "voice call"},
		{ID: 4, ContactName: "Priya Nair", Company: "Litware", NextStep: "Demo", DealValue: 12000, InteractionMedium: "voice call"},
		{ID: 5, ContactName: "Jo Park", Company: "Adatum", NextStep: "Follow up", InteractionMedium: "email"},
	}
}

func seedFrequency() []api.InteractionFrequency {
	return []api.InteractionFrequency{
		{Date: "2025-05-27", Emails: 4, VoiceCalls: 1, Total: 5},
		{Date: "2025-05-28", Emails: 2, VoiceCalls: 3, Total: 5},
		{Date: "2025-05-29", Emails: 6, VoiceCalls: 0, Total: 6},
		{Date: "2025-05-30", Emails: 3, VoiceCalls: 2, Total: 5},
		{Date: "2025-05-31", Emails: 1, VoiceCalls: 0, Total: 1},
		{Date: "2025-06-01", Emails: 0, VoiceCalls: 0, Total: 0},
		{Date: "2025-06-02", Emails: 5, VoiceCalls: 2, Total: 7},
	}
}

func seedMethods() []api.InteractionMethod {
	return []api.InteractionMethod{
		{Method: "email", Contacts: 21, Percentage: 61.8},
		{Method: "voice call", Contacts: 13, Percentage: 38.2},
	}
}
