// Package realtime provides the topic-keyed publish primitive and the
// WebSocket transport behind it. Publishing is fire-and-forget: no delivery
// confirmation, no persistence, no ordering guarantee across topics.
package realtime

// Topics carried by the engine. Subscribers pick the granularity they care
// about; one logical mutation may publish on several topics.
const (
	// TopicTasks is the global task-update stream.
	TopicTasks = "tasks"
	// TopicUserStatus is the presence relay topic.
	TopicUserStatus = "user/status"
)

// TaskComments is the per-task comment stream.
func TaskComments(taskID string) string {
	return "task/" + taskID + "/comments"
}

// TaskTyping is the per-task typing relay.
func TaskTyping(taskID string) string {
	return "task/" + taskID + "/typing"
}

// ProjectTasks is the per-project task-update stream.
func ProjectTasks(projectID string) string {
	return "project/" + projectID + "/tasks"
}

// UserNotifications is a user's private notification stream.
func UserNotifications(userID string) string {
	return "user/" + userID + "/notifications"
}
