package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"nextflow/internal/metrics"
	"nextflow/internal/repo"
)

var (
	ErrNoRecipients     = errors.New("no recipients")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrTemplateNotFound = errors.New("template not found")
)

// Sender delivers a rendered message to a phone number.
type Sender interface {
	SendText(ctx context.Context, phone, text string) error
}

// Request describes one send. Message overrides the template body when set.
type Request struct {
	ClientIDs  []string `json:"clientIds"`
	TemplateID string   `json:"templateId"`
	Message    string   `json:"message"`
}

// Result reports the outcome for one recipient.
type Result struct {
	ClientID  string `json:"clientId"`
	Client    string `json:"client,omitempty"`
	HistoryID string `json:"historyId,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Service renders messages per client, delivers them and writes message history.
type Service struct {
	store   *repo.Store
	sender  Sender
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New builds a messaging service. A nil sender records history without delivering.
func New(store *repo.Store, sender Sender, logger *slog.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		sender:  sender,
		logger:  logger.With("component", "messaging"),
		metrics: m,
		now:     time.Now,
	}
}

// Send delivers the message to every listed client. Per-client failures are
// reported in the results; only validation and store errors abort the call.
func (s *Service) Send(ctx context.Context, req Request) ([]Result, error) {
	if len(req.ClientIDs) == 0 {
		return nil, ErrNoRecipients
	}

	body := req.Message
	var templateName *string
	if req.TemplateID != "" {
		tpl, err := s.store.Templates().GetByID(ctx, req.TemplateID)
		if err != nil {
			return nil, err
		}
		if tpl == nil {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, req.TemplateID)
		}
		name := tpl.Name
		templateName = &name
		if strings.TrimSpace(body) == "" {
			body = tpl.Message
		}
	}
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyMessage
	}

	plans := map[string]*repo.Plan{}
	results := make([]Result, 0, len(req.ClientIDs))
	for _, id := range req.ClientIDs {
		client, err := s.store.Clients().GetByID(ctx, id)
		if err != nil {
			return results, err
		}
		if client == nil {
			results = append(results, Result{ClientID: id, Status: repo.MessageFailed, Error: "client not found"})
			continue
		}

		plan, err := s.planFor(ctx, client, plans)
		if err != nil {
			return results, err
		}
		text := Render(body, varsFor(*client, plan, s.now()))

		res := Result{ClientID: id, Client: client.Name, Status: repo.MessageSent}
		if s.sender != nil {
			if err := s.sender.SendText(ctx, client.Phone, text); err != nil {
				s.logger.Warn("message delivery failed", "client_id", id, "error", err)
				res.Status = repo.MessageFailed
				res.Error = err.Error()
			}
		}

		historyID, err := s.store.Messages().Create(ctx, repo.Fields{
			"clientId": client.ID,
			"client":   client.Name,
			"message":  text,
			"sentAt":   s.now().UTC().Format("2006-01-02 15:04:05"),
			"status":   res.Status,
			"template": templateName,
		})
		if err != nil {
			return results, fmt.Errorf("record message history: %w", err)
		}
		res.HistoryID = historyID
		if s.metrics != nil {
			s.metrics.MessagesRecorded.WithLabelValues(res.Status).Inc()
		}
		results = append(results, res)
	}

	s.logger.Info("messages sent", "recipients", len(req.ClientIDs), "template_id", req.TemplateID)
	return results, nil
}

func (s *Service) planFor(ctx context.Context, client *repo.Client, seen map[string]*repo.Plan) (*repo.Plan, error) {
	if client.PlanID == nil || *client.PlanID == "" {
		return nil, nil
	}
	if p, ok := seen[*client.PlanID]; ok {
		return p, nil
	}
	p, err := s.store.Plans().GetByID(ctx, *client.PlanID)
	if err != nil {
		return nil, err
	}
	seen[*client.PlanID] = p
	return p, nil
}
