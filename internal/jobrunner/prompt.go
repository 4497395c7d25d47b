package jobrunner

import (
	"fmt"

	"github.com/adiaconou/hermes/internal/core"
)

const systemPromptTemplate = `You are the assistant executing a previously scheduled task on the user's behalf. Produce the reminder or output text the user should receive. Do not schedule anything new and do not ask clarifying questions — answer with the best output you can given the stored instructions.`

// buildTask renders the task text the Tool-Execution Surface sees for one
// due job: the stored prompt, with the original user phrasing appended as
// context when present, per spec.md §4.11 step 3.a.
func buildTask(job core.ScheduledJob) string {
	if job.UserRequest == "" {
		return job.Prompt
	}
	return fmt.Sprintf("%s\n\n(original request: %q)", job.Prompt, job.UserRequest)
}
