// Package notification tells admins and customers about loan changes over
// SES email and SNS SMS.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	commonaws "vehicle-financing/internal/common/aws"
	"vehicle-financing/internal/common/config"
	apperrors "vehicle-financing/internal/common/errors"
	"vehicle-financing/internal/common/logger"
	"vehicle-financing/internal/core/loan"
	"vehicle-financing/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"

	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

type message struct {
	subject string
	body    string
}

var templates = map[models.NotificationType]message{
	models.NotificationLoanSubmitted: {
		subject: "New loan application #{{loanId}}",
		body:    "{{customerName}} applied for {{amount}} to finance {{vehicle}} (VIN {{vin}}). The application is pending review.",
	},
	models.NotificationLoanStatusChanged: {
		subject: "Loan application #{{loanId}} {{status}}",
		body:    "Hello {{customerName}}, your loan application for {{vehicle}} is now {{status}}. {{comment}}",
	},
}

// Notifier implements loan.Notifier. A disabled notifier does nothing.
type Notifier struct {
	cfg config.NotificationConfig
	ses commonaws.SESService
	sns commonaws.SNSService
	log logger.Logger
}

func NewNotifier(cfg config.NotificationConfig, sesClient commonaws.SESService, snsClient commonaws.SNSService, log logger.Logger) *Notifier {
	return &Notifier{
		cfg: cfg,
		ses: sesClient,
		sns: snsClient,
		log: log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

// LoanSubmitted emails every configured admin.
func (n *Notifier) LoanSubmitted(ctx context.Context, event loan.Event) error {
	if !n.cfg.Enabled {
		return nil
	}
	msg := render(models.NotificationLoanSubmitted, event)

	var results []models.Notification
	for _, admin := range n.cfg.AdminEmails {
		results = append(results, n.email(ctx, models.NotificationLoanSubmitted, event, admin, msg))
	}
	return n.report(results)
}

// LoanStatusChanged emails and texts the customer and emails the admins.
func (n *Notifier) LoanStatusChanged(ctx context.Context, event loan.Event) error {
	if !n.cfg.Enabled {
		return nil
	}
	msg := render(models.NotificationLoanStatusChanged, event)

	var results []models.Notification
	if event.User != nil {
		if event.User.Email != "" {
			results = append(results, n.email(ctx, models.NotificationLoanStatusChanged, event, event.User.Email, msg))
		}
		if event.User.Phone != "" {
			results = append(results, n.sms(ctx, models.NotificationLoanStatusChanged, event, event.User.Phone, msg.body))
		}
	}
	for _, admin := range n.cfg.AdminEmails {
		results = append(results, n.email(ctx, models.NotificationLoanStatusChanged, event, admin, msg))
	}
	return n.report(results)
}

func (n *Notifier) email(ctx context.Context, typ models.NotificationType, event loan.Event, to string, msg message) models.Notification {
	result := newResult(typ, event, ChannelEmail, to)
	if !n.cfg.Email.Enabled || n.ses == nil {
		return skipped(result)
	}

	out, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.body)},
			},
		},
		Source: aws.String(n.cfg.Email.FromEmail),
	})
	if err != nil {
		return failed(result, err)
	}
	result.Status = StatusSent
	result.MessageID = aws.ToString(out.MessageId)
	return result
}

func (n *Notifier) sms(ctx context.Context, typ models.NotificationType, event loan.Event, to, body string) models.Notification {
	result := newResult(typ, event, ChannelSMS, to)
	if !n.cfg.SMS.Enabled || n.sns == nil {
		return skipped(result)
	}

	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(body),
	}
	if n.cfg.SMS.SenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {DataType: aws.String("String"), StringValue: aws.String(n.cfg.SMS.SenderID)},
		}
	}

	out, err := n.sns.Publish(ctx, input)
	if err != nil {
		return failed(result, err)
	}
	result.Status = StatusSent
	result.MessageID = aws.ToString(out.MessageId)
	return result
}

// report logs every delivery and joins the failures into one error.
func (n *Notifier) report(results []models.Notification) error {
	var errs []error
	for _, r := range results {
		fields := map[string]interface{}{
			"notificationId": r.ID,
			"loanId":         r.LoanID,
			"type":           string(r.Type),
			"channel":        r.Channel,
			"status":         r.Status,
		}
		if r.Status == StatusFailed {
			fields["error"] = r.Error
			n.log.Warn("notification failed", fields)
			errs = append(errs, apperrors.NewNotificationSendFailedError(r.Channel, errors.New(r.Error)))
			continue
		}
		n.log.Debug("notification processed", fields)
	}
	return errors.Join(errs...)
}

func newResult(typ models.NotificationType, event loan.Event, channel, to string) models.Notification {
	var loanID int64
	if event.Loan != nil {
		loanID = event.Loan.ID
	}
	return models.Notification{
		ID:        uuid.New().String(),
		LoanID:    loanID,
		Recipient: to,
		Type:      typ,
		Channel:   channel,
	}
}

func skipped(n models.Notification) models.Notification {
	n.Status = StatusDisabled
	return n
}

func failed(n models.Notification, err error) models.Notification {
	n.Status = StatusFailed
	n.Error = err.Error()
	return n
}

func render(typ models.NotificationType, event loan.Event) message {
	data := map[string]string{}
	if l := event.Loan; l != nil {
		data["loanId"] = fmt.Sprintf("%d", l.ID)
		data["amount"] = l.AmountRequested.StringFixed(2)
		data["status"] = string(l.Status)
		data["comment"] = l.CommentText()
	}
	if u := event.User; u != nil {
		data["customerName"] = u.FullName()
	}
	if v := event.Vehicle; v != nil {
		data["vehicle"] = fmt.Sprintf("%d %s %s", v.Year, v.Make, v.Model)
		data["vin"] = v.VIN
	}

	tmpl := templates[typ]
	return message{
		subject: renderTemplate(tmpl.subject, data),
		body:    strings.TrimSpace(renderTemplate(tmpl.body, data)),
	}
}

// renderTemplate substitutes {{key}} placeholders in one pass and drops
// unknown ones. Substituted values are not expanded again.
func renderTemplate(tmpl string, data map[string]string) string {
	var b strings.Builder
	b.Grow(len(tmpl))
	for {
		start := strings.Index(tmpl, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(tmpl[start+2:], "}}")
		if end == -1 {
			break
		}
		b.WriteString(tmpl[:start])
		b.WriteString(data[tmpl[start+2:start+2+end]])
		tmpl = tmpl[start+2+end+2:]
	}
	b.WriteString(tmpl)
	return b.String()
}
