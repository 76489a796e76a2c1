package mockapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Zacy-Sokach/crmassist/internal/api"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Message cannot be empty")
		return
	}

	if s.opts.Latency > 0 {
		select {
		case <-time.After(s.opts.Latency):
		case <-r.Context().Done():
			return
		}
	}

	reply, ok := answer(req.Message)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Agent failed to process the request")
		return
	}

	history := make([]api.ChatMessage, 0, len(req.ConversationHistory)+2)
	history = append(history, req.ConversationHistory...)
	history = append(history,
		api.TextMessage(api.RoleUser, req.Message),
		api.TextMessage(api.RoleAssistant, reply.text),
	)

	writeJSON(w, http.StatusOK, api.ChatResponse{
		Response:      reply.text,
		History:       history,
		ThinkingSteps: reply.steps,
	})
}

func (s *Server) handleEmails(w http.ResponseWriter, r *http.Request) {
	emails := seedEmails()
	writeJSON(w, http.StatusOK, emails[:limit(r, "limit", len(emails))])
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	events := append([]eventRecord(nil), s.events...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, events[:limit(r, "max_results", len(events))])
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req api.CreateCalendarEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Summary == "" || req.StartTime == "" || req.EndTime == "" {
		writeError(w, http.StatusBadRequest, "summary, start_time and end_time are required")
		return
	}

	s.mu.Lock()
	ev := eventRecord{
		ID:          "evt-" + strconv.Itoa(s.nextID),
		Summary:     req.Summary,
		Start:       req.StartTime,
		End:         req.EndTime,
		Description: req.Description,
		Location:    req.Location,
		Attendees:   req.Attendees,
	}
	s.nextID++
	s.events = append(s.events, ev)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req api.UpdateCalendarEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		ev := &s.events[i]
		if ev.ID != id {
			continue
		}
		if req.Summary != "" {
			ev.Summary = req.Summary
		}
		if req.StartTime != "" {
			ev.Start = req.StartTime
		}
		if req.EndTime != "" {
			ev.End = req.EndTime
		}
		if req.Description != "" {
			ev.Description = req.Description
		}
		if req.Location != "" {
			ev.Location = req.Location
		}
		if req.Attendees != nil {
			ev.Attendees = req.Attendees
		}
		writeJSON(w, http.StatusOK, *ev)
		return
	}
	writeError(w, http.StatusNotFound, "Event not found")
}

func (s *Server) handleInteractions(w http.ResponseWriter, r *http.Request) {
	interactions := seedInteractions()
	writeJSON(w, http.StatusOK, interactions[:limit(r, "limit", len(interactions))])
}

func (s *Server) handleFrequency(w http.ResponseWriter, r *http.Request) {
	freq := seedFrequency()
	n := limit(r, "days", len(freq))
	// 取最近 n 天
	writeJSON(w, http.StatusOK, freq[len(freq)-n:])
}

func (s *Server) handleMethods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, seedMethods())
}

// limit 读取正整数查询参数，超过 max 或无效时返回 max
func limit(r *http.Request, key string, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 || n > max {
		return max
	}
	return n
}
