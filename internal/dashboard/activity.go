package dashboard

import (
	"context"
	"fmt"
	"sort"

	"github.com/mcastilho/clientdesk/pkg/models"
)

// Activity feed entry types.
const (
	TypeTask    = "task"
	TypeMessage = "message"
	TypePayment = "payment"
	TypeContact = "contact"
	TypeProject = "project"
)

type Activity struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Timestamp   int64  `json:"timestamp"`
	RefID       int64  `json:"ref_id"`
}

// Fixed phrase tables mapping statuses to feed wording.
var taskPhrases = map[string]string{
	models.TaskTodo:       "was created",
	models.TaskInProgress: "was started",
	models.TaskReview:     "moved to review",
	models.TaskCompleted:  "was completed",
}

var projectPhrases = map[string]string{
	models.ProjectActive:    "was started",
	models.ProjectCompleted: "was completed",
	models.ProjectOnHold:    "was put on hold",
	models.ProjectCancelled: "was cancelled",
}

// RecentActivity builds the "most recent N" feed. clientID 0 scopes to the
// whole portal (admin), otherwise to one client. There is no pagination
// cursor; the feed is recomputed per request and is deterministic for a given
// database snapshot.
func (s *Service) RecentActivity(ctx context.Context, clientID int64, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 10
	}

	var out []Activity

	tasks, err := s.tasks.ListRecentTasks(ctx, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent tasks: %w", err)
	}
	for _, t := range tasks {
		phrase, ok := taskPhrases[t.Status]
		if !ok {
			phrase = "was updated"
		}
		out = append(out, Activity{
			Type:        TypeTask,
			Description: fmt.Sprintf("Task %q %s", t.Title, phrase),
			Timestamp:   t.Updated,
			RefID:       t.ID,
		})
	}

	msgs, err := s.convs.ListRecentMessages(ctx, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	for _, m := range msgs {
		out = append(out, Activity{
			Type:        TypeMessage,
			Description: fmt.Sprintf("New message from %s", m.SenderName),
			Timestamp:   m.Created,
			RefID:       m.ID,
		})
	}

	pays, err := s.payments.ListRecentPayments(ctx, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent payments: %w", err)
	}
	for _, p := range pays {
		out = append(out, Activity{
			Type:        TypePayment,
			Description: fmt.Sprintf("Payment of $%d.%02d received", p.Amount/100, p.Amount%100),
			Timestamp:   p.Date,
			RefID:       p.ID,
		})
	}

	// contact inquiries are admin-only; a customer feed never includes them
	if clientID == 0 {
		contacts, err := s.contacts.ListRecentContacts(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("recent contacts: %w", err)
		}
		for _, c := range contacts {
			out = append(out, Activity{
				Type:        TypeContact,
				Description: fmt.Sprintf("New inquiry from %s", c.Name),
				Timestamp:   c.Created,
				RefID:       c.ID,
			})
		}
	}

	projects, err := s.projects.ListRecentProjects(ctx, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent projects: %w", err)
	}
	for _, p := range projects {
		phrase, ok := projectPhrases[p.Status]
		if !ok {
			phrase = "was updated"
		}
		out = append(out, Activity{
			Type:        TypeProject,
			Description: fmt.Sprintf("Project %q %s", p.Name, phrase),
			Timestamp:   p.Updated,
			RefID:       p.ID,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []Activity{}
	}

	return out, nil
}
