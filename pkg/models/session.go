package models

// ReplyStatus is the status field every upstream answer carries
type ReplyStatus string

const (
	StatusOK    ReplyStatus = "ok"
	StatusError ReplyStatus = "error"
)

// Upstream action names sent in the "action" form field
const (
	ActionSpawn     = "spawn"
	ActionKeepAlive = "keep_alive"
)

// UploadRequest is the multipart upload of a translation file.
// Content is nil when the upstream should fetch Name by itself.
type UploadRequest struct {
	Name    string
	Content []byte
	Module  string
	Session string
}

// Remote reports whether the upstream has to retrieve the file by name
func (r UploadRequest) Remote() bool {
	return r.Content == nil
}

// UploadReply is the upstream answer to an upload
type UploadReply struct {
	Status      ReplyStatus         `json:"status"`
	Session     string              `json:"session,omitempty"`
	CustomFiles map[string][]string `json:"custom_files,omitempty"`
	Message     string              `json:"message,omitempty"`
}

// SpawnRequest asks the upstream to start or replace the preview process
type SpawnRequest struct {
	Module  string
	File    string
	Lang    string
	Session string
}

// SpawnReply is the upstream answer to a spawn
type SpawnReply struct {
	Status  ReplyStatus `json:"status"`
	Session string      `json:"session,omitempty"`
	Port    int         `json:"port,omitempty"`
	Message string      `json:"message,omitempty"`
}

// KeepAliveReply is the upstream answer to a heartbeat
type KeepAliveReply struct {
	Status     ReplyStatus `json:"status"`
	UsersCount int         `json:"users_count,omitempty"`
	Message    string      `json:"message,omitempty"`
}
