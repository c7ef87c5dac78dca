package queue

const (
	TypeResumeProcess = "resume:process"
)

type ResumeProcessPayload struct {
	ResumeID string `json:"resume_id"`
}
