package domain

// Event names carried over the websocket.
const (
	EventConnectionAck    = "connection:ack"
	EventUserIdentify     = "user:identify"
	EventUsersList        = "users:list"
	EventUserConnected    = "user:connected"
	EventUserDisconnected = "user:disconnected"
	EventTaskCreated      = "task:created"
	EventTaskUpdated      = "task:updated"
	EventTaskDeleted      = "task:deleted"
)

// Attribution links a mutation to the user whose connection issued it.
type Attribution struct {
	By    string `json:"by"`
	Color string `json:"color"`
}

const unknownUserColor = "#9ca3af"

// UnknownUser is the fallback attribution for mutations that cannot be
// matched to a live connection.
func UnknownUser() Attribution {
	return Attribution{By: "Unknown User", Color: unknownUserColor}
}

// ConnectionAck tells a client the id assigned to its connection.
type ConnectionAck struct {
	ConnectionID string `json:"connectionId"`
}

// TaskCreated is the broadcast payload for a successful create.
type TaskCreated struct {
	Task
	CreatedBy      string `json:"created_by"`
	CreatedByColor string `json:"created_by_color"`
}

// TaskUpdated is the broadcast payload for a successful update.
type TaskUpdated struct {
	Task
	UpdatedBy      string `json:"updated_by"`
	UpdatedByColor string `json:"updated_by_color"`
}

// TaskDeleted carries only the id of the removed row, never the full task.
type TaskDeleted struct {
	ID             int64  `json:"id"`
	DeletedBy      string `json:"deleted_by"`
	DeletedByColor string `json:"deleted_by_color"`
}
