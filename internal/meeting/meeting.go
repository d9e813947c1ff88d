// Package meeting holds the meeting context model: title, domain,
// participants, goals, prepared questions, and background research. The
// context feeds prompt construction for downstream assistants and is served
// over the HTTP API.
package meeting

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Domain classifies a meeting for specialised prompt behaviour. Values
// outside the predefined set are treated as custom domains.
type Domain string

const (
	DomainTechnical   Domain = "technical"
	DomainSales       Domain = "sales"
	DomainMedical     Domain = "medical"
	DomainLegal       Domain = "legal"
	DomainEducational Domain = "educational"
	DomainGeneral     Domain = "general"
)

// PromptPrefix returns the domain-specific facilitator instruction used as
// the prefix of assistant prompts. Unknown domains produce a custom prefix
// built from the domain string itself.
func (d Domain) PromptPrefix() string {
	switch d {
	case DomainTechnical:
		return "You are an expert technical meeting facilitator specializing in software development, engineering, and technical discussions. Provide insights, ask clarifying questions, and help ensure technical accuracy and completeness."
	case DomainSales:
		return "You are an expert sales meeting facilitator specializing in customer interactions, deal progression, and sales strategy. Provide insights on customer needs, objection handling, and deal advancement."
	case DomainMedical:
		return "You are an expert medical meeting facilitator specializing in healthcare discussions, patient care, and medical decision-making. Provide insights while maintaining HIPAA compliance and medical accuracy."
	case DomainLegal:
		return "You are an expert legal meeting facilitator specializing in legal discussions, contract negotiations, and compliance matters. Provide insights while emphasizing legal accuracy and risk considerations."
	case DomainEducational:
		return "You are an expert educational meeting facilitator specializing in learning objectives, curriculum development, and educational outcomes. Provide insights on teaching effectiveness and learning goals."
	case DomainGeneral, "":
		return "You are an expert meeting facilitator specializing in productive meetings, clear communication, and effective decision-making. Provide insights to improve meeting outcomes and participant engagement."
	default:
		return fmt.Sprintf("You are an expert meeting facilitator specializing in %s discussions. Provide relevant insights and help ensure productive outcomes.", string(d))
	}
}

// Participant describes one meeting attendee.
type Participant struct {
	Name    string `json:"name"`
	Role    string `json:"role"`
	Email   string `json:"email,omitempty"`
	Present bool   `json:"is_present"`
}

// GoalStatus tracks the lifecycle of a meeting goal.
type GoalStatus string

const (
	GoalPending    GoalStatus = "pending"
	GoalInProgress GoalStatus = "in_progress"
	GoalCompleted  GoalStatus = "completed"
	GoalCancelled  GoalStatus = "cancelled"
)

// Goal is a meeting objective with a 1-5 priority (higher is more
// important).
type Goal struct {
	Description string     `json:"description"`
	Priority    int        `json:"priority"`
	Status      GoalStatus `json:"status"`
}

// Question is a prepared question to raise during the meeting.
type Question struct {
	Question string `json:"question"`
	Category string `json:"category"`
	Priority int    `json:"priority"`
	Asked    bool   `json:"asked"`
}

// BackgroundInfo is one piece of pre-meeting research, keyed by topic in
// [Context.Background]. RelevanceScore ranges from 0 to 1.
type BackgroundInfo struct {
	Topic          string  `json:"topic"`
	Content        string  `json:"content"`
	Source         string  `json:"source"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Context is the complete preparation state for one meeting.
type Context struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Domain      Domain `json:"domain"`

	Participants []Participant `json:"participants"`

	Goals           []Goal     `json:"goals"`
	DurationMinutes int        `json:"duration_estimate_minutes"`
	Questions       []Question `json:"pre_generated_questions"`

	Background          map[string]BackgroundInfo `json:"background_info"`
	KeyPoints           []string                  `json:"key_points_to_cover"`
	PotentialChallenges []string                  `json:"potential_challenges"`

	TemplateName string    `json:"template_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
}

// NewContext returns a Context with the given title and domain and the
// standard defaults (60 minute estimate, empty rosters).
func NewContext(title string, domain Domain) *Context {
	if title == "" {
		title = "New Meeting"
	}
	if domain == "" {
		domain = DomainGeneral
	}
	now := time.Now().UTC()
	return &Context{
		Title:           title,
		Domain:          domain,
		DurationMinutes: 60,
		Background:      make(map[string]BackgroundInfo),
		CreatedAt:       now,
		LastModified:    now,
	}
}

// AddParticipant appends an attendee, initially marked absent.
func (c *Context) AddParticipant(name, role, email string) {
	c.Participants = append(c.Participants, Participant{
		Name:  name,
		Role:  role,
		Email: email,
	})
	c.touch()
}

// AddGoal appends a pending goal with the given priority.
func (c *Context) AddGoal(description string, priority int) {
	c.Goals = append(c.Goals, Goal{
		Description: description,
		Priority:    priority,
		Status:      GoalPending,
	})
	c.touch()
}

// AddQuestion appends a prepared question.
func (c *Context) AddQuestion(question, category string, priority int) {
	c.Questions = append(c.Questions, Question{
		Question: question,
		Category: category,
		Priority: priority,
	})
	c.touch()
}

// AddBackground stores research content under its topic, replacing any
// earlier entry for the same topic.
func (c *Context) AddBackground(topic, content, source string, relevance float64) {
	if c.Background == nil {
		c.Background = make(map[string]BackgroundInfo)
	}
	c.Background[topic] = BackgroundInfo{
		Topic:          topic,
		Content:        content,
		Source:         source,
		RelevanceScore: relevance,
	}
	c.touch()
}

func (c *Context) touch() {
	c.LastModified = time.Now().UTC()
}

// Summary renders the context as plain text for inclusion in assistant
// prompts.
func (c *Context) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Meeting: %s\n", c.Title)

	if c.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", c.Description)
	}

	fmt.Fprintf(&b, "Domain: %s\n", c.Domain)
	fmt.Fprintf(&b, "Duration: %d minutes\n", c.DurationMinutes)

	if len(c.Participants) > 0 {
		fmt.Fprintf(&b, "Participants (%d): ", len(c.Participants))
		names := make([]string, len(c.Participants))
		for i, p := range c.Participants {
			names[i] = fmt.Sprintf("%s (%s)", p.Name, p.Role)
		}
		b.WriteString(strings.Join(names, ", "))
		b.WriteString("\n")
	}

	if len(c.Goals) > 0 {
		b.WriteString("Goals:\n")
		for _, g := range c.Goals {
			fmt.Fprintf(&b, "  - %s (Priority: %d)\n", g.Description, g.Priority)
		}
	}

	return b.String()
}

// clone returns a deep enough copy for handing out snapshots: slices and the
// background map are copied, element values are plain data.
func (c *Context) clone() *Context {
	cp := *c
	cp.Participants = slices.Clone(c.Participants)
	cp.Goals = slices.Clone(c.Goals)
	cp.Questions = slices.Clone(c.Questions)
	cp.KeyPoints = slices.Clone(c.KeyPoints)
	cp.PotentialChallenges = slices.Clone(c.PotentialChallenges)
	cp.Background = maps.Clone(c.Background)
	return &cp
}
