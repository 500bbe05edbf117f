package notify

// InvitationCreatedEvent is emitted after a PENDING email assignment is
// persisted. Token is embedded in the accept link mailed to the invitee.
type InvitationCreatedEvent struct {
	Email       string
	Token       string
	InviterName string
	TargetType  string
	TargetName  string
	ProjectName string
	Message     string
}

// InvitationAcceptedEvent is emitted after an accept transaction commits and
// goes to the original assigner.
type InvitationAcceptedEvent struct {
	AssignerEmail string
	InviteeName   string
	InviteeEmail  string
	TargetType    string
	TargetName    string
}

// AssignmentCreatedEvent is emitted when a known user is granted access to a
// project or section.
type AssignmentCreatedEvent struct {
	AssigneeEmail string
	AssigneeName  string
	AssignerName  string
	TargetType    string
	TargetName    string
	ProjectName   string
}

// TaskAssignedEvent is emitted when a task gains a new assignee.
type TaskAssignedEvent struct {
	AssigneeEmail string
	AssigneeName  string
	AssignerName  string
	TaskTitle     string
	ProjectName   string
}
