// Package errors provides structured, coded error handling for the engine.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"

	// Authorization errors
	CodeUnauthorized              Code = "UNAUTHORIZED"
	CodeManagerRoleInvalid        Code = "PROJECT_MANAGER_ROLE_INVALID"
	CodeAssigneeNotProjectMember  Code = "TASK_ASSIGNEE_NOT_PROJECT_MEMBER"
	CodeNotificationNotRecipient  Code = "NOTIFICATION_NOT_RECIPIENT"
	CodeCommentNotAuthor          Code = "COMMENT_NOT_AUTHOR"
	CodeRoleChangeOnSelf          Code = "USER_ROLE_CHANGE_ON_SELF"

	// Validation errors
	CodeRoleInvalid         Code = "USER_ROLE_INVALID"
	CodeTaskStatusInvalid   Code = "TASK_STATUS_INVALID"
	CodeTaskPriorityInvalid Code = "TASK_PRIORITY_INVALID"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeRoleInvalid,
		CodeTaskStatusInvalid,
		CodeTaskPriorityInvalid:
		return codes.InvalidArgument

	// PermissionDenied - authorization failures
	case CodeUnauthorized,
		CodeManagerRoleInvalid,
		CodeAssigneeNotProjectMember,
		CodeNotificationNotRecipient,
		CodeCommentNotAuthor,
		CodeRoleChangeOnSelf:
		return codes.PermissionDenied

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
