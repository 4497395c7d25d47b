// Package core holds the data model shared by every component of the
// orchestration engine: execution context, step results, plans, and the
// registry descriptors agents and skills are built from.
package core

import (
	"strings"
	"time"
)

// Channel identifies the transport a message arrived on or should be sent over.
type Channel string

const (
	ChannelSMS       Channel = "sms"
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelEmail     Channel = "email"
	ChannelScheduler Channel = "scheduler"
	ChannelTelegram  Channel = "telegram"
	ChannelDiscord   Channel = "discord"
)

// UserProfile is the user-facing subset of UserConfig carried into prompts.
type UserProfile struct {
	Name      string
	Timezone  string
	FeatureFlags map[string]bool
}

// ExecutionContext is the read-only per-request bundle carried to every
// agent, skill, and tool invocation.
type ExecutionContext struct {
	UserID      string
	Channel     Channel
	Profile     *UserProfile // nil if unknown
	StepResults map[string]*StepResult
	Logger      Logger // optional diagnostic logger, nil-safe via NopLogger
	MediaContext string // optional pre-analysis summaries for attached media
}

// Logger is the narrow diagnostic sink components log through. It never
// blocks and never panics on a nil receiver from a zero-value ExecutionContext.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger discards everything. Used whenever ExecutionContext.Logger is nil.
type NopLogger struct{}

func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}

// LoggerOf returns ctx.Logger, or NopLogger{} if unset.
func (c ExecutionContext) LoggerOf() Logger {
	if c.Logger == nil {
		return NopLogger{}
	}
	return c.Logger
}

// ToolCallRecord is one observed tool invocation, kept on a StepResult for
// observability/debugging — never consulted for control flow.
type ToolCallRecord struct {
	ID    string
	Name  string
	Input string
}

// TokenUsage accumulates LLM token counters across every call a step made.
type TokenUsage struct {
	Input  int
	Output int
}

// Add accumulates u2 into u in place.
func (u *TokenUsage) Add(u2 TokenUsage) {
	u.Input += u2.Input
	u.Output += u2.Output
}

// StepResult is the outcome of any single agent/skill/tool invocation.
type StepResult struct {
	Success    bool
	Output     any // JSON-shaped value; nil stands for JSON null — see Normalize
	Error      string
	ToolCalls  []ToolCallRecord
	TokenUsage TokenUsage
}

// Normalize leaves Output unchanged: Go has no "undefined", so a nil Output
// already reads as JSON null, which is what the step-executor contract
// (§4.6 step 4) substitutes for a missing output.
func (r *StepResult) Normalize() {
	if r.Output == nil {
		r.Output = nil // explicit: JSON null, distinguishable from "absent"
	}
}

// OutputMap returns Output as a map[string]any if it is shaped that way,
// and ok=false otherwise. Used to read sentinel fields like needsReplan,
// isEmpty, and auth_required without type-asserting at every call site.
func (r *StepResult) OutputMap() (map[string]any, bool) {
	m, ok := r.Output.(map[string]any)
	return m, ok
}

// OutputBool reads a boolean sentinel field out of a map-shaped Output.
func (r *StepResult) OutputBool(key string) bool {
	m, ok := r.OutputMap()
	if !ok {
		return false
	}
	v, _ := m[key].(bool)
	return v
}

// OutputString reads a string field out of a map-shaped Output.
func (r *StepResult) OutputString(key string) (string, bool) {
	m, ok := r.OutputMap()
	if !ok {
		return "", false
	}
	v, ok := m[key].(string)
	return v, ok
}

// NeedsReplan reports StepResult.Output.needsReplan, per §4.8's shouldReplan order.
func (r *StepResult) NeedsReplan() bool { return r.OutputBool("needsReplan") }

// IsEmpty reports StepResult.Output.isEmpty.
func (r *StepResult) IsEmpty() bool { return r.OutputBool("isEmpty") }

// transientErrorSubstrings classifies a StepResult.Error as transient when
// no explicit "retryable" output flag is present, per SPEC_FULL.md §7's
// resolution of the retry-classifier open question.
var transientErrorSubstrings = []string{
	"timeout", "timed out", "deadline exceeded", "connection refused",
	"connection reset", "temporary failure", "too many requests", "503", "429",
}

// Retryable reports whether this failed StepResult should be retried: an
// explicit Output.retryable boolean takes precedence, otherwise the Error
// string is matched against a fixed transient-failure allow-list.
func (r *StepResult) Retryable() bool {
	if m, ok := r.OutputMap(); ok {
		if v, ok := m["retryable"].(bool); ok {
			return v
		}
	}
	lower := strings.ToLower(r.Error)
	for _, s := range transientErrorSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// AuthRequired reports whether this result carries an auth-required marker,
// and the URL to surface to the user if so.
func (r *StepResult) AuthRequired() (url string, required bool) {
	m, ok := r.OutputMap()
	if !ok {
		return "", false
	}
	if req, _ := m["auth_required"].(bool); !req {
		return "", false
	}
	url, _ = m["auth_url"].(string)
	return url, true
}

// StepStatus is the lifecycle state of a PlanStep.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// TargetType selects whether a PlanStep routes to an agent or a skill.
type TargetType string

const (
	TargetAgent TargetType = "agent"
	TargetSkill TargetType = "skill"
)

// DefaultMaxRetries is the default PlanStep.MaxRetries when unset.
const DefaultMaxRetries = 2

// PlanStep is one invocation of an agent or skill within a plan.
type PlanStep struct {
	ID         string
	TargetType TargetType
	Target     string
	Task       string
	Status     StepStatus
	RetryCount int
	MaxRetries int
	Result     *StepResult
}

// PlanStatus is the lifecycle state of an ExecutionPlan.
type PlanStatus string

const (
	PlanPlanning  PlanStatus = "planning"
	PlanExecuting PlanStatus = "executing"
	PlanCompleted PlanStatus = "completed"
	PlanFailed    PlanStatus = "failed"
)

// ExecutionPlan is an ordered, versioned list of steps chosen to satisfy a
// user request.
type ExecutionPlan struct {
	ID          string
	UserRequest string
	Goal        string
	Steps       []PlanStep
	Status      PlanStatus
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StepByID returns a pointer into p.Steps for the given id, or nil.
func (p *ExecutionPlan) StepByID(id string) *PlanStep {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i]
		}
	}
	return nil
}

// FirstPending returns the first step in pending status, or nil if none
// remain. Failed steps are not returned.
func (p *ExecutionPlan) FirstPending() *PlanStep {
	for i := range p.Steps {
		s := &p.Steps[i]
		if s.Status == StepPending {
			return s
		}
	}
	return nil
}

// CompletedSteps returns the subset of Steps with Status == StepCompleted.
func (p *ExecutionPlan) CompletedSteps() []PlanStep {
	var out []PlanStep
	for _, s := range p.Steps {
		if s.Status == StepCompleted {
			out = append(out, s)
		}
	}
	return out
}

// StepError pairs a failed step id with its error message.
type StepError struct {
	StepID string
	Error  string
}

// ConversationMessage is one turn of stored conversation history.
type ConversationMessage struct {
	ID        string
	UserID    string
	Channel   Channel
	Role      string // "user" | "assistant" | "system"
	Content   string
	CreatedAt time.Time
}

// PlanContext is the executor-facing view of a request in flight.
type PlanContext struct {
	UserMessage string
	History     []ConversationMessage
	Facts       []MemoryFact
	UserConfig  UserConfig
	Phone       string
	Channel     Channel
	StepResults map[string]*StepResult
	Errors      []StepError
	Now         time.Time
}

// UserConfig is the persisted per-user configuration the core reads.
type UserConfig struct {
	Phone             string
	Name              string
	Timezone          string
	FeatureFlags      map[string]bool
	WatcherEnabled    bool
	WatcherCheckpoint string
}

// MemoryFact is one piece of durable user memory.
type MemoryFact struct {
	ID         string
	UserID     string
	Fact       string
	Confidence float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Credential is a stored OAuth-style credential for one (user, provider) pair.
type Credential struct {
	UserID       string
	Provider     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AgentCapability describes an agent for the planner's prompt.
type AgentCapability struct {
	Name        string
	Description string
	Tools       []string // ["*"] means "all tools"
	Examples    []string
}

// SkillSource tells whether a skill came from the bundled or imported root.
type SkillSource string

const (
	SkillSourceBundled  SkillSource = "bundled"
	SkillSourceImported SkillSource = "imported"
)

// LoadedSkill is a filesystem-defined capability discovered by the skill registry.
type LoadedSkill struct {
	Name          string
	Description   string
	MarkdownPath  string
	RootDir       string
	Channels      map[Channel]bool
	Tools         []string
	MatchHints    []string
	Enabled       bool
	Source        SkillSource
	DelegateAgent string // optional
}

// SkillLoadError records a single failed skill discovery, never fatal.
type SkillLoadError struct {
	Path   string
	Reason string
}

// OnceCronPrefix marks a ScheduledJob.CronExpression as a one-shot fire
// rather than a recurring five-field cron string, per spec.md §4.11
// ("@once@{iso}" is a recognized one-shot form).
const OnceCronPrefix = "@once@"

// ScheduledJob is a saved recurring or one-shot task fired by the job runner.
type ScheduledJob struct {
	ID             string
	PhoneNumber    string
	Channel        Channel // delivery channel for the job's output
	UserRequest    string  // optional, original phrasing
	Prompt         string
	CronExpression string // five-field cron, or "@once@{RFC3339}"
	Timezone       string // IANA zone; empty means UTC
	NextRunAt      int64  // unix seconds
	LastRunAt      int64  // unix seconds, 0 if never run
	Enabled        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// WatcherThrottleState tracks per-user notification throttling for the
// background watcher. The window length is fixed at one hour (§4.12).
type WatcherThrottleState struct {
	Count       int
	WindowStart time.Time
}

const WatcherWindow = time.Hour
