package api

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message             string        `json:"message"`
	ConversationHistory []ChatMessage `json:"conversation_history"`
}

// ThinkingStep 后端披露的一步推理，四个字段都可能缺失
type ThinkingStep struct {
	Thought     string `json:"thought,omitempty"`
	Action      string `json:"action,omitempty"`
	ActionInput string `json:"action_input,omitempty"`
	Observation string `json:"observation,omitempty"`
}

type ChatResponse struct {
	Response      string         `json:"response"`
	History       []ChatMessage  `json:"history"`
	ThinkingSteps []ThinkingStep `json:"thinking_steps,omitempty"`
}

// rawChatResponse 用指针区分"字段缺失"和"空值"
type rawChatResponse struct {
	Response      *string        `json:"response"`
	History       *[]ChatMessage `json:"history"`
	ThinkingSteps []ThinkingStep `json:"thinking_steps"`
}

type errorBody struct {
	Detail string `json:"detail"`
}

// CRM 数据类型

type ExtractedData struct {
	ContactName  string  `json:"contact_name,omitempty"`
	Company      string  `json:"company,omitempty"`
	NextStep     string  `json:"next_step,omitempty"`
	DealValue    float64 `json:"deal_value,omitempty"`
	FollowUpDate string  `json:"follow_up_date,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

type Email struct {
	ID            string         `json:"id"`
	Subject       string         `json:"subject"`
	FromEmail     string         `json:"from_email"`
	ToEmail       string         `json:"to_email"`
	Date          string         `json:"date"`
	Body          string         `json:"body"`
	ExtractedData *ExtractedData `json:"extracted_data,omitempty"`
}

type CalendarEvent struct {
	ID          string   `json:"id"`
	Summary     string   `json:"summary"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
	HTMLLink    string   `json:"html_link,omitempty"`
}

type CreateCalendarEventRequest struct {
	Summary     string   `json:"summary"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
}

type UpdateCalendarEventRequest struct {
	EventID     string   `json:"event_id"`
	Summary     string   `json:"summary,omitempty"`
	StartTime   string   `json:"start_time,omitempty"`
	EndTime     string   `json:"end_time,omitempty"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
}

type Interaction struct {
	ID                int     `json:"id,omitempty"`
	ContactName       string  `json:"contact_name,omitempty"`
	Company           string  `json:"company,omitempty"`
	NextStep          string  `json:"next_step,omitempty"`
	DealValue         float64 `json:"deal_value,omitempty"`
	FollowUpDate      string  `json:"follow_up_date,omitempty"`
	Notes             string  `json:"notes,omitempty"`
	InteractionMedium string  `json:"interaction_medium,omitempty"`
}

type InteractionFrequency struct {
	Date       string `json:"date"`
	Emails     int    `json:"emails"`
	VoiceCalls int    `json:"voice_calls"`
	Total      int    `json:"total"`
}

type InteractionMethod struct {
	Method     string  `json:"method"`
	Contacts   int     `json:"contacts"`
	Percentage float64 `json:"percentage"`
}

// TextMessage 创建文本消息
func TextMessage(role, content string) ChatMessage {
	return ChatMessage{Role: role, Content: content}
}
