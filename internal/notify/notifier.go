package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/taskMaster/backend/pkg/mailer"
)

// Notifier defines the interface for sending notifications. Every call is
// fire-and-forget from the caller's side: errors are logged, never surfaced
// to the request that triggered them.
type Notifier interface {
	NotifyInvitationCreated(ctx context.Context, e InvitationCreatedEvent) error
	NotifyInvitationAccepted(ctx context.Context, e InvitationAcceptedEvent) error
	NotifyAssignmentCreated(ctx context.Context, e AssignmentCreatedEvent) error
	NotifyTaskAssigned(ctx context.Context, e TaskAssignedEvent) error
}

// NoopNotifier is a no-op implementation used when SMTP is disabled.
type NoopNotifier struct{}

func (NoopNotifier) NotifyInvitationCreated(context.Context, InvitationCreatedEvent) error {
	return nil
}
func (NoopNotifier) NotifyInvitationAccepted(context.Context, InvitationAcceptedEvent) error {
	return nil
}
func (NoopNotifier) NotifyAssignmentCreated(context.Context, AssignmentCreatedEvent) error {
	return nil
}
func (NoopNotifier) NotifyTaskAssigned(context.Context, TaskAssignedEvent) error { return nil }

// EmailNotifier delivers notifications over SMTP.
type EmailNotifier struct {
	mailer  *mailer.Mailer
	baseURL string
}

func NewEmailNotifier(m *mailer.Mailer, baseURL string) *EmailNotifier {
	return &EmailNotifier{mailer: m, baseURL: baseURL}
}

func (n *EmailNotifier) NotifyInvitationCreated(_ context.Context, e InvitationCreatedEvent) error {
	link := fmt.Sprintf("%s/invitations/%s", n.baseURL, e.Token)
	body := fmt.Sprintf("%s 邀请你协作%s「%s」（项目：%s）。\n\n", e.InviterName, targetLabel(e.TargetType), e.TargetName, e.ProjectName)
	if e.Message != "" {
		body += fmt.Sprintf("留言：%s\n\n", e.Message)
	}
	body += fmt.Sprintf("打开以下链接接受或拒绝邀请：\n%s\n", link)
	return n.send(e.Email, fmt.Sprintf("%s 邀请你加入「%s」", e.InviterName, e.TargetName), body)
}

func (n *EmailNotifier) NotifyInvitationAccepted(_ context.Context, e InvitationAcceptedEvent) error {
	body := fmt.Sprintf("%s（%s）已接受你对%s「%s」的邀请。\n", e.InviteeName, e.InviteeEmail, targetLabel(e.TargetType), e.TargetName)
	return n.send(e.AssignerEmail, fmt.Sprintf("%s 已接受你的邀请", e.InviteeName), body)
}

func (n *EmailNotifier) NotifyAssignmentCreated(_ context.Context, e AssignmentCreatedEvent) error {
	body := fmt.Sprintf("%s 已将你加入%s「%s」（项目：%s）。\n", e.AssignerName, targetLabel(e.TargetType), e.TargetName, e.ProjectName)
	return n.send(e.AssigneeEmail, fmt.Sprintf("你已被加入「%s」", e.TargetName), body)
}

func (n *EmailNotifier) NotifyTaskAssigned(_ context.Context, e TaskAssignedEvent) error {
	body := fmt.Sprintf("%s 将任务「%s」（项目：%s）指派给了你。\n", e.AssignerName, e.TaskTitle, e.ProjectName)
	return n.send(e.AssigneeEmail, fmt.Sprintf("任务「%s」已指派给你", e.TaskTitle), body)
}

func (n *EmailNotifier) send(to, subject, body string) error {
	if err := n.mailer.Send(to, subject, body); err != nil {
		log.Printf("notify: send mail to %s failed: %v", to, err)
		return err
	}
	return nil
}

func targetLabel(targetType string) string {
	switch targetType {
	case "PROJECT":
		return "项目"
	case "SECTION":
		return "分组"
	case "TASK":
		return "任务"
	default:
		return "资源"
	}
}
