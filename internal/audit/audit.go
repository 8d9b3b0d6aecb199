package audit

import (
	"context"

	"github.com/LandoDApp/varbe-web-sub001/pkg/log"
)

// Audit actions for the chatroom engine.
const (
	ActionSendMessage     = "chat.send_message"
	ActionReact           = "chat.react"
	ActionJoinRoom        = "chat.join_room"
	ActionLeaveRoom       = "chat.leave_room"
	ActionBecomeMember    = "chat.become_member"
	ActionLeaveMembership = "chat.leave_membership"
	ActionCreateRoom      = "chat.create_room"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, userID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithDetail emits an audit log with an extra detail field.
func LogWithDetail(ctx context.Context, action, userID, detail, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
