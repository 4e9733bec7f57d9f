package tasks

import "time"

type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Deadline    *time.Time   `json:"deadline,omitempty"`
	AssignedTo  string       `json:"assignedTo"`
	AssigneeNo  string       `json:"assigneeNo,omitempty"`
	Assignee    string       `json:"assignee,omitempty"`
	AssignedBy  string       `json:"assignedBy"`
	Status      string       `json:"status"`
	Comments    []Comment    `json:"comments,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type Comment struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	PostedBy string    `json:"postedBy"`
	Author   string    `json:"author,omitempty"`
	PostedAt time.Time `json:"postedAt"`
}

type Attachment struct {
	ID         string    `json:"id"`
	FileName   string    `json:"fileName"`
	FileURL    string    `json:"fileUrl"`
	UploadedAt time.Time `json:"uploadedAt"`
}

const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusOverdue    = "Overdue"
)

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusInProgress, StatusCompleted, StatusOverdue:
		return true
	}
	return false
}
