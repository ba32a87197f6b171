// Package notify is the fire-and-forget bus between workers and the
// chat-facing bot process. Delivery is best effort: publish failures are the
// caller's to log, never to propagate into a pipeline. The one round-trip
// built on top of it — the source-file download handoff — gets its response
// out of band, by polling shared storage for the file's arrival.
package notify

import "context"

const (
	TopicStatusUpdate  = "status_update"
	TopicSendPhoto     = "send_photo"
	TopicSendVideo     = "send_video"
	TopicSendDocument  = "send_document"
	TopicDeleteMessage = "delete_message"
	TopicDownloadFile  = "download_file"
	TopicCreaseChoice  = "crease_error_choice"
)

// Publisher pushes a payload to a topic. Implementations must not block
// beyond their transport timeout.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// StatusUpdate edits the user-facing status message in place.
type StatusUpdate struct {
	ChatID    int64  `json:"chatId"`
	MessageID int    `json:"messageId"`
	Text      string `json:"text"`
}

// SendPhoto delivers a finished image asset.
type SendPhoto struct {
	ChatID    int64  `json:"chatId"`
	ImagePath string `json:"imagePath"`
	Caption   string `json:"caption,omitempty"`
}

// SendVideo delivers a finished video by URL.
type SendVideo struct {
	ChatID   int64  `json:"chatId"`
	VideoURL string `json:"videoUrl"`
	Caption  string `json:"caption,omitempty"`
}

// SendDocument delivers a full-resolution asset as a file.
type SendDocument struct {
	ChatID       int64  `json:"chatId"`
	DocumentPath string `json:"documentPath"`
	Caption      string `json:"caption,omitempty"`
}

// DeleteMessage removes a previously sent status message.
type DeleteMessage struct {
	ChatID    int64 `json:"chatId"`
	MessageID int   `json:"messageId"`
}

// DownloadFile asks the bot process to fetch a Telegram file and place it at
// DownloadPath; the requesting worker polls that path for arrival.
type DownloadFile struct {
	FileID       string `json:"fileId"`
	DownloadPath string `json:"downloadPath"`
}

// Button is one inline choice offered to the user.
type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// CreaseChoice prompts the user after a failed damage-repair stage: continue
// without repair or cancel. JobData carries the full payload needed to
// re-enqueue without another lookup.
type CreaseChoice struct {
	ChatID    int64    `json:"chatId"`
	MessageID int      `json:"messageId"`
	Text      string   `json:"text"`
	JobData   []byte   `json:"jobData"`
	Buttons   []Button `json:"buttons"`
}
